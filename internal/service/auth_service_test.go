package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lcportal/lcportal/internal/domain"
	"github.com/lcportal/lcportal/internal/repository"
)

type memUserStore struct {
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]*domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (m *memUserStore) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.byEmail[user.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *memUserStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return m.byID[id], nil
}

func (m *memUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.byEmail[email], nil
}

func newAuthFixture() (*AuthService, *memUserStore) {
	store := newMemUserStore()
	return NewAuthService(store, "test-secret", time.Hour), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	user, err := svc.Register(ctx, &domain.RegisterRequest{
		FirstName: "Tomas",
		LastName:  "Keller",
		Email:     "tomas@example.com",
		Password:  "secret123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("new accounts must get the user role, got %s", user.Role)
	}
	if !user.IsActive {
		t.Fatalf("new accounts must be active")
	}
	if user.PasswordHash == "secret123" {
		t.Fatalf("password must not be stored in plaintext")
	}

	token, err := svc.Login(ctx, &domain.LoginRequest{Email: "tomas@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token.AccessToken == "" || token.TokenType != "Bearer" {
		t.Fatalf("unexpected token response: %+v", token)
	}

	authed, err := svc.Authenticate(ctx, token.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("token must resolve to the registered user")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	req := &domain.RegisterRequest{FirstName: "A", LastName: "B", Email: "dup@example.com", Password: "secret123"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, req); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, store := newAuthFixture()
	ctx := context.Background()

	user, err := svc.Register(ctx, &domain.RegisterRequest{
		FirstName: "Carla",
		LastName:  "Osei",
		Email:     "carla@example.com",
		Password:  "secret123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, &domain.LoginRequest{Email: "carla@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, &domain.LoginRequest{Email: "nobody@example.com", Password: "secret123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	store.byEmail[user.Email].IsActive = false
	if _, err := svc.Login(ctx, &domain.LoginRequest{Email: "carla@example.com", Password: "secret123"}); !errors.Is(err, ErrUserNotActive) {
		t.Fatalf("expected ErrUserNotActive, got %v", err)
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "not-a-token"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for garbage token, got %v", err)
	}

	// Token signed with a different secret
	other := NewAuthService(newMemUserStore(), "other-secret", time.Hour)
	token, err := other.GenerateToken(&domain.User{ID: uuid.New(), Email: "x@example.com", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token.AccessToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for foreign signature, got %v", err)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	svc, store := newAuthFixture()
	ctx := context.Background()

	user, err := svc.Register(ctx, &domain.RegisterRequest{
		FirstName: "Old",
		LastName:  "Token",
		Email:     "old@example.com",
		Password:  "secret123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	expired := &AuthService{users: store, jwtSecret: []byte("test-secret"), tokenTTL: -time.Hour}
	token, err := expired.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token.AccessToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for expired token, got %v", err)
	}
}
