package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenManager signs access and refresh tokens with separate secrets so a
// refresh token can never be presented as an access token.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

type Claims struct {
	UserID uint64 `json:"user_id"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned by every successful sign-in and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func (tm *TokenManager) IssuePair(userID uint64) (*TokenPair, error) {
	access, err := tm.sign(userID, TokenTypeAccess, tm.accessSecret, tm.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := tm.sign(userID, TokenTypeRefresh, tm.refreshSecret, tm.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (tm *TokenManager) sign(userID uint64, typ string, secret []byte, ttl time.Duration) (string, error) {
	now := tm.now()
	claims := Claims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (tm *TokenManager) ParseAccess(tokenString string) (*Claims, error) {
	return tm.parse(tokenString, TokenTypeAccess, tm.accessSecret)
}

func (tm *TokenManager) ParseRefresh(tokenString string) (*Claims, error) {
	return tm.parse(tokenString, TokenTypeRefresh, tm.refreshSecret)
}

func (tm *TokenManager) parse(tokenString, typ string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != typ || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
