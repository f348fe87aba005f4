package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"CamuPos/app/config"
	"CamuPos/app/database"
	"CamuPos/app/models"
)

type memUsers struct {
	users map[string]*models.User
}

func (m *memUsers) FindUser(ctx context.Context, username string) (*models.User, error) {
	u, ok := m.users[strings.ToLower(username)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) CreateUser(ctx context.Context, user *models.User) error {
	user.Username = strings.ToLower(user.Username)
	user.ID = uint(len(m.users) + 1)
	m.users[user.Username] = user
	return nil
}

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	auth := NewAuthService(&memUsers{users: map[string]*models.User{}}, config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	if _, err := auth.CreateUser(context.Background(), "Reza", "camu1234", models.RoleAdmin); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return auth
}

func TestAuth_Login(t *testing.T) {
	auth := newTestAuth(t)
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"valid", "reza", "camu1234", nil},
		{"case insensitive", "  REZA ", "camu1234", nil},
		{"wrong password", "reza", "nope", ErrInvalidCredentials},
		{"unknown user", "budi", "camu1234", ErrInvalidCredentials},
		{"empty", "", "", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, user, err := auth.Login(context.Background(), tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if user.Username != "reza" {
				t.Errorf("Login() user = %q, want reza", user.Username)
			}
			claims, err := auth.ValidateToken(token)
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if claims.Role != models.RoleAdmin || claims.Subject != "1" {
				t.Errorf("claims = %+v", claims)
			}
		})
	}
}

func TestAuth_RemoteDisabled(t *testing.T) {
	auth := NewAuthService(nil, config.AuthConfig{JWTSecret: "x"})
	if _, _, err := auth.Login(context.Background(), "reza", "camu1234"); !errors.Is(err, database.ErrRemoteDisabled) {
		t.Errorf("Login() error = %v, want ErrRemoteDisabled", err)
	}
}

func TestAuth_ExpiredAndForgedTokens(t *testing.T) {
	auth := newTestAuth(t)
	user := &models.User{ID: 1, Username: "reza", Role: models.RoleAdmin}
	token, err := auth.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := auth.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}

	other := NewAuthService(nil, config.AuthConfig{JWTSecret: "other-secret"})
	forged, _ := other.IssueToken(user)
	auth.now = time.Now
	if _, err := auth.ValidateToken(forged); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("forged token error = %v, want ErrInvalidToken", err)
	}
}
