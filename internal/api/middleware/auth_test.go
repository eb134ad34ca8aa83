package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lcportal/lcportal/internal/domain"
	"github.com/lcportal/lcportal/internal/service"
)

type stubUserStore struct {
	users map[uuid.UUID]*domain.User
}

func (s *stubUserStore) Create(ctx context.Context, user *domain.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *stubUserStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users[id], nil
}

func (s *stubUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func newAuthFixture(t *testing.T) (*AuthMiddleware, *service.AuthService, *domain.User) {
	t.Helper()

	user := &domain.User{
		ID:       uuid.New(),
		Email:    "trader@example.com",
		Role:     domain.RoleUser,
		IsActive: true,
	}
	store := &stubUserStore{users: map[uuid.UUID]*domain.User{user.ID: user}}
	authService := service.NewAuthService(store, "test-secret", time.Hour)
	return NewAuthMiddleware(authService), authService, user
}

func echoUser(t *testing.T, captured **domain.User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateAttachesUser(t *testing.T) {
	mw, authService, user := newAuthFixture(t)

	token, err := authService.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var captured *domain.User
	handler := mw.Authenticate(echoUser(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured == nil || captured.ID != user.ID {
		t.Fatalf("handler must see the authenticated user")
	}
}

func TestAuthenticateRejectsMissingAndBadTokens(t *testing.T) {
	mw, _, _ := newAuthFixture(t)

	var captured *domain.User
	handler := mw.Authenticate(echoUser(t, &captured))

	cases := []struct {
		name   string
		header string
	}{
		{"no_header", ""},
		{"wrong_scheme", "Basic dXNlcjpwYXNz"},
		{"garbage_token", "Bearer not-a-jwt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if captured != nil {
				t.Fatalf("handler must not run for rejected requests")
			}
		})
	}
}

func TestAuthenticateRejectsDeactivatedAccount(t *testing.T) {
	mw, authService, user := newAuthFixture(t)

	token, err := authService.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	user.IsActive = false

	var captured *domain.User
	handler := mw.Authenticate(echoUser(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deactivated accounts must be rejected, got %d", rec.Code)
	}
}

func TestAuthorizeByRole(t *testing.T) {
	cases := []struct {
		name     string
		role     domain.Role
		allowed  []domain.Role
		wantCode int
	}{
		{"admin_allowed", domain.RoleAdmin, []domain.Role{domain.RoleAdmin}, http.StatusOK},
		{"officer_allowed", domain.RoleComplianceOfficer, []domain.Role{domain.RoleAdmin, domain.RoleComplianceOfficer}, http.StatusOK},
		{"user_forbidden", domain.RoleUser, []domain.Role{domain.RoleAdmin}, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := Authorize(tc.allowed...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			user := &domain.User{ID: uuid.New(), Role: tc.role, IsActive: true}
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			req = req.WithContext(WithUser(req.Context(), user))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
		})
	}
}

func TestAuthorizeWithoutAuthentication(t *testing.T) {
	handler := Authorize(domain.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when no user is attached, got %d", rec.Code)
	}
}
