package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
	appErrors "github.com/bitbender-8/cs-fy-project-sub000/pkg/errors"
)

type authRepoStub struct {
	usersByEmail map[string]*models.User
	usersByID    map[string]*models.User
	tokens       map[string]*models.RefreshToken
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[string]*models.User),
		tokens:       make(map[string]*models.RefreshToken),
	}
}

func (s *authRepoStub) addUser(user *models.User) {
	s.usersByEmail[user.Email] = user
	s.usersByID[user.ID] = user
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.usersByID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := s.tokens[token]; ok {
		return stored, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range s.tokens {
		if token.ID == id {
			token.Revoked = true
			ts := revokedAt
			token.RevokedAt = &ts
		}
	}
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, token := range s.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func newAuthFixture() (*AuthService, *authRepoStub) {
	repo := newAuthRepoStub()
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	repo.addUser(&models.User{
		ID:           "rcp-1",
		Email:        "recipient@example.com",
		PasswordHash: string(hash),
		FullName:     "Abebe Kebede",
		Role:         models.RoleRecipient,
		Active:       true,
	})
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "campaigns-api",
	})
	return svc, repo
}

func TestAuthLoginAndValidate(t *testing.T) {
	svc, _ := newAuthFixture()

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "recipient@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, models.RoleRecipient, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "rcp-1", claims.UserID)
	require.Equal(t, models.RoleRecipient, claims.Role)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "recipient@example.com",
		Password: "wrong-password",
	})
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	svc, repo := newAuthFixture()
	repo.usersByEmail["recipient@example.com"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "recipient@example.com",
		Password: "correct-horse",
	})
	require.True(t, appErrors.HasCode(err, appErrors.ErrInactiveAccount))
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthFixture()

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "recipient@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	require.True(t, repo.tokens[login.RefreshToken].Revoked)

	// The consumed token cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestAuthValidateTokenRejectsForgedSignature(t *testing.T) {
	svc, _ := newAuthFixture()
	other := NewAuthService(newAuthRepoStub(), nil, nil, AuthConfig{
		AccessTokenSecret:  "different-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})

	resp, err := other.Login(context.Background(), models.LoginRequest{
		Email:    "recipient@example.com",
		Password: "correct-horse",
	})
	require.Error(t, err)
	require.Nil(t, resp)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "recipient@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = other.ValidateToken(login.AccessToken)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
