package repository

import (
	"errors"
	"time"

	"github.com/agrineural/agrineural/internal/models"
	"gorm.io/gorm"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(token *models.APIToken) error {
	return r.db.Create(token).Error
}

// FindByToken returns the stored token if it exists and has not expired.
func (r *TokenRepository) FindByToken(tokenStr string) (*models.APIToken, error) {
	var token models.APIToken
	err := r.db.Where("token = ? AND expires_at > ?", tokenStr, time.Now()).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) FindByUserID(userID string) ([]models.APIToken, error) {
	var tokens []models.APIToken
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

// Delete removes the token only if it belongs to userID and reports whether
// anything was removed.
func (r *TokenRepository) Delete(id uint, userID string) (bool, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.APIToken{})
	return result.RowsAffected > 0, result.Error
}

func (r *TokenRepository) DeleteExpired() (int64, error) {
	result := r.db.Where("expires_at < ?", time.Now()).Delete(&models.APIToken{})
	return result.RowsAffected, result.Error
}
