package service

import (
	"context"
	"testing"

	"github.com/stemsi/exstem-proctor/internal/fixture"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T, extra ...model.User) *AuthService {
	t.Helper()
	users, err := fixture.LoadUsers("")
	require.NoError(t, err)
	return NewAuthService(testConfig(), append(users, extra...), nil)
}

func TestLogin_AcceptsAnyPasswordForDirectoryUser(t *testing.T) {
	auth := newAuth(t)

	token, user, err := auth.Login(context.Background(), "Student@ICC.edu", "whatever")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, user.Role)

	claims, err := auth.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.RoleStudent, claims.Role)
	assert.NotEmpty(t, claims.ContextID())
}

func TestLogin_Refusals(t *testing.T) {
	auth := newAuth(t, model.User{
		ID: "9", Email: "gone@icc.edu", Role: model.RoleStudent, Status: model.UserStatusSuspended,
	})

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"unknown email", "nobody@icc.edu", "pw", ErrInvalidCredentials},
		{"empty password", "student@icc.edu", "", ErrInvalidCredentials},
		{"suspended account", "gone@icc.edu", "pw", ErrAccountInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := auth.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLogin_HashedPassword(t *testing.T) {
	plain := NewAuthService(testConfig(), nil, nil)
	hash, err := plain.HashPassword("s3cret")
	require.NoError(t, err)

	auth := newAuth(t, model.User{
		ID: "10", Email: "locked@icc.edu", Role: model.RoleAdministrator,
		Status: model.UserStatusActive, PasswordHash: hash,
	})

	_, _, err = auth.Login(context.Background(), "locked@icc.edu", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, user, err := auth.Login(context.Background(), "locked@icc.edu", "s3cret")
	require.NoError(t, err)
	assert.True(t, user.Role.CanManage())
}

func TestLogin_EachLoginIsANewContext(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	t1, _, err := auth.Login(ctx, "student@icc.edu", "pw")
	require.NoError(t, err)
	t2, _, err := auth.Login(ctx, "student@icc.edu", "pw")
	require.NoError(t, err)

	c1, err := auth.ValidateToken(ctx, t1)
	require.NoError(t, err)
	c2, err := auth.ValidateToken(ctx, t2)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ContextID(), c2.ContextID())
}

func TestRevoke_RejectsToken(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	token, _, err := auth.Login(ctx, "faculty@icc.edu", "pw")
	require.NoError(t, err)
	claims, err := auth.ValidateToken(ctx, token)
	require.NoError(t, err)

	require.NoError(t, auth.Revoke(ctx, claims))

	_, err = auth.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	auth := newAuth(t)
	token, _, err := auth.Login(context.Background(), "student@icc.edu", "pw")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.JWTSecret = "other-secret"
	other := NewAuthService(cfg, nil, nil)

	_, err = other.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}
