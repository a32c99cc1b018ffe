package services

import (
	"errors"

	"github.com/agrineural/agrineural/internal/models"
	"github.com/agrineural/agrineural/internal/repository"
)

var ErrAccessDenied = errors.New("access denied")

// AccessPath is the route family a farm-scoped request came through.
type AccessPath string

const (
	// OwnerPath admits only the farm's owner.
	OwnerPath AccessPath = "owner"
	// AssociatedPath admits the owner and any associated user.
	AssociatedPath AccessPath = "associated"
)

type AccessGuard struct {
	farmRepo        *repository.FarmRepository
	associationRepo *repository.AssociationRepository
}

func NewAccessGuard(farmRepo *repository.FarmRepository, associationRepo *repository.AssociationRepository) *AccessGuard {
	return &AccessGuard{
		farmRepo:        farmRepo,
		associationRepo: associationRepo,
	}
}

// CanAccessFarm decides without side effects. An unknown farm is reported as
// ErrFarmNotFound rather than a denial.
func (g *AccessGuard) CanAccessFarm(callerID string, farmID uint, path AccessPath) (bool, error) {
	_, err := g.Authorize(callerID, farmID, path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrUnauthenticated):
		return false, nil
	default:
		return false, err
	}
}

// Authorize returns the farm when callerID may act on it through path.
func (g *AccessGuard) Authorize(callerID string, farmID uint, path AccessPath) (*models.Farm, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}

	farm, err := g.farmRepo.FindByID(farmID)
	if err != nil {
		return nil, err
	}
	if farm == nil {
		return nil, ErrFarmNotFound
	}

	if farm.OwnerID == callerID {
		return farm, nil
	}

	switch path {
	case OwnerPath:
		return nil, ErrAccessDenied
	case AssociatedPath:
		ok, err := g.associationRepo.Exists(callerID, farmID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAccessDenied
		}
		return farm, nil
	default:
		return nil, ErrAccessDenied
	}
}
