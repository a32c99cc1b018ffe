package services

import (
	"errors"
	"time"

	"github.com/agrineural/agrineural/internal/models"
	"github.com/agrineural/agrineural/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrTokenNotFound = errors.New("token not found")
)

type TokenClaims struct {
	CallerID string `json:"caller_id"`
	jwt.RegisteredClaims
}

type TokenService struct {
	tokenRepo *repository.TokenRepository
	jwtSecret string
}

func NewTokenService(tokenRepo *repository.TokenRepository, jwtSecret string) *TokenService {
	return &TokenService{
		tokenRepo: tokenRepo,
		jwtSecret: jwtSecret,
	}
}

// GenerateToken mints a bearer token for callerID. Caller ids come from the
// external identity provider, so no local profile is required.
func (s *TokenService) GenerateToken(callerID string, expiresIn time.Duration) (string, error) {
	if callerID == "" {
		return "", ErrUnauthenticated
	}
	if expiresIn <= 0 {
		return "", ErrInvalidInput
	}

	now := time.Now()
	claims := TokenClaims{
		CallerID: callerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   callerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "agrineural",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	apiToken := &models.APIToken{
		UserID:    callerID,
		Token:     tokenString,
		ExpiresAt: now.Add(expiresIn),
	}
	if err := s.tokenRepo.Create(apiToken); err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken checks the signature and that the token has not been revoked.
func (s *TokenService) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.CallerID == "" {
		return nil, ErrInvalidToken
	}

	dbToken, err := s.tokenRepo.FindByToken(tokenString)
	if err != nil {
		return nil, err
	}
	if dbToken == nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *TokenService) ListUserTokens(callerID string) ([]models.APIToken, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	return s.tokenRepo.FindByUserID(callerID)
}

func (s *TokenService) DeleteToken(tokenID uint, callerID string) error {
	if callerID == "" {
		return ErrUnauthenticated
	}
	deleted, err := s.tokenRepo.Delete(tokenID, callerID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTokenNotFound
	}
	return nil
}

func (s *TokenService) PurgeExpired() (int64, error) {
	return s.tokenRepo.DeleteExpired()
}
