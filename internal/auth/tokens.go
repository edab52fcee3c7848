package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/streamtube/backend/internal/models"
)

var (
	// ErrInvalidToken indicates a token that is missing, malformed, expired,
	// or signed with the wrong key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenMismatch indicates a refresh token that no longer matches the
	// one stored for the user: it has already been rotated or revoked.
	ErrTokenMismatch = errors.New("refresh token is expired or used")
)

// CredentialStore persists the single active refresh token per user.
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	SaveRefreshToken(ctx context.Context, userID, token string) error
	// SwapRefreshToken replaces the stored token only when it still equals
	// current, returning ErrTokenMismatch otherwise. This compare-and-swap is
	// what makes refresh tokens single-use.
	SwapRefreshToken(ctx context.Context, userID, current, next string) error
	ClearRefreshToken(ctx context.Context, userID string) error
}

// AccessClaims is the payload carried by access tokens.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

const issuer = "streamtube"

// TokenService issues and rotates the signed bearer credentials.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	store CredentialStore

	nowFunc func() time.Time
}

// NewTokenService constructs a TokenService. The access and refresh secrets
// must differ so one token class can never stand in for the other.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, store CredentialStore) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: token secrets must be provided")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if store == nil {
		return nil, errors.New("auth: credential store must be provided")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 10 * 24 * time.Hour
	}

	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		store:         store,
		nowFunc:       time.Now,
	}, nil
}

// IssuePair creates a new access/refresh pair for the user and persists the
// refresh token, overwriting any prior one (single session per user).
func (s *TokenService) IssuePair(ctx context.Context, user models.User) (models.TokenPair, error) {
	pair, err := s.signPair(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := s.store.SaveRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return models.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return pair, nil
}

// Rotate exchanges a refresh token for a fresh pair. The incoming token must
// verify against the refresh secret, resolve to a live user, and match the
// token currently stored for that user; once rotated it is permanently dead.
func (s *TokenService) Rotate(ctx context.Context, incoming string) (models.TokenPair, models.User, error) {
	if incoming == "" {
		return models.TokenPair{}, models.User{}, ErrInvalidToken
	}

	claims := jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(incoming, &claims, s.refreshKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	); err != nil {
		return models.TokenPair{}, models.User{}, ErrInvalidToken
	}

	user, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		return models.TokenPair{}, models.User{}, ErrInvalidToken
	}

	pair, err := s.signPair(user)
	if err != nil {
		return models.TokenPair{}, models.User{}, err
	}

	if err := s.store.SwapRefreshToken(ctx, user.ID, incoming, pair.RefreshToken); err != nil {
		return models.TokenPair{}, models.User{}, err
	}

	return pair, user, nil
}

// Revoke clears the stored refresh token, making any outstanding refresh
// token permanently unusable for the user.
func (s *TokenService) Revoke(ctx context.Context, userID string) error {
	return s.store.ClearRefreshToken(ctx, userID)
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(token string) (AccessClaims, error) {
	if token == "" {
		return AccessClaims{}, ErrInvalidToken
	}

	claims := AccessClaims{}
	if _, err := jwt.ParseWithClaims(token, &claims, s.accessKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	); err != nil {
		return AccessClaims{}, ErrInvalidToken
	}

	return claims, nil
}

func (s *TokenService) signPair(user models.User) (models.TokenPair, error) {
	now := s.now()
	accessExpiry := now.Add(s.accessTTL)
	refreshExpiry := now.Add(s.refreshTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
	})

	accessToken, err := access.SignedString(s.accessSecret)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	// The jti keeps refresh tokens unique even when two are minted within
	// the same second, so rotation always invalidates the previous token.
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   user.ID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(refreshExpiry),
	})

	refreshToken, err := refresh.SignedString(s.refreshSecret)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return models.TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

func (s *TokenService) accessKey(*jwt.Token) (any, error)  { return s.accessSecret, nil }
func (s *TokenService) refreshKey(*jwt.Token) (any, error) { return s.refreshSecret, nil }

func (s *TokenService) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc().UTC()
	}
	return time.Now().UTC()
}
