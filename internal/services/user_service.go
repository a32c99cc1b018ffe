package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agrineural/agrineural/internal/models"
	"github.com/agrineural/agrineural/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

type UpdateProfileInput struct {
	Name string      `json:"name" validate:"required,max=255"`
	Role models.Role `json:"role" validate:"required,oneof=producer operator surveyor"`
}

type UserService struct {
	userRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// UpdateProfile creates or overwrites the caller's own profile.
func (s *UserService) UpdateProfile(callerID string, input UpdateProfileInput) (*models.User, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user := &models.User{ID: callerID, Name: input.Name, Role: input.Role}
	if err := s.userRepo.Upsert(user); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return s.GetProfile(callerID)
}

func (s *UserService) GetProfile(callerID string) (*models.User, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.userRepo.FindByID(callerID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
