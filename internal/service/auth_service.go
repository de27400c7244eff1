package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not active")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUserNotFound       = errors.New("user not found")
)

// Claims extends JWT standard claims with app-specific fields.
// RegisteredClaims.ID (jti) identifies the browser context of the login.
type Claims struct {
	jwt.RegisteredClaims
	UserID string     `json:"user_id"`
	Role   model.Role `json:"role"`
	Email  string     `json:"email"`
}

// ContextID is the browser context a token was issued to.
func (c *Claims) ContextID() string { return c.ID }

// AuthService handles the simulated login against the static user directory.
type AuthService struct {
	cfg     *config.Config
	rdb     *redis.Client
	byEmail map[string]model.User
	byID    map[string]model.User

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewAuthService creates a new AuthService. rdb may be nil, in which case
// revoked tokens are tracked in memory.
func NewAuthService(cfg *config.Config, users []model.User, rdb *redis.Client) *AuthService {
	s := &AuthService{
		cfg:     cfg,
		rdb:     rdb,
		byEmail: make(map[string]model.User, len(users)),
		byID:    make(map[string]model.User, len(users)),
		revoked: make(map[string]time.Time),
	}
	for _, u := range users {
		s.byEmail[strings.ToLower(u.Email)] = u
		s.byID[u.ID] = u
	}
	return s
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login finds the user by email and issues a token. Any non-empty password
// is accepted unless the directory entry carries a hash.
func (s *AuthService) Login(_ context.Context, email, password string) (string, *model.User, error) {
	user, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok || password == "" {
		return "", nil, ErrInvalidCredentials
	}
	if user.PasswordHash != "" {
		if err := s.CheckPassword(user.PasswordHash, password); err != nil {
			return "", nil, err
		}
	}
	if user.Status != model.UserStatusActive {
		return "", nil, ErrAccountInactive
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// GenerateToken creates a JWT with a fresh jti for the user.
func (s *AuthService) GenerateToken(user model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT and rejects revoked tokens.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke invalidates a token until it would have expired.
func (s *AuthService) Revoke(ctx context.Context, claims *Claims) error {
	ttl := s.cfg.JWTExpiry
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}

	if s.rdb != nil {
		key := config.CacheKey.RevokedTokenKey(claims.ID)
		if err := s.rdb.Set(ctx, key, 1, ttl).Err(); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = now.Add(ttl)
	return nil
}

// GetUser looks up a directory entry by id.
func (s *AuthService) GetUser(id string) (*model.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (s *AuthService) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.rdb != nil {
		n, err := s.rdb.Exists(ctx, config.CacheKey.RevokedTokenKey(tokenID)).Result()
		if err != nil {
			return false, fmt.Errorf("check revoked token: %w", err)
		}
		return n > 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[tokenID]
	return ok && time.Now().Before(exp), nil
}
