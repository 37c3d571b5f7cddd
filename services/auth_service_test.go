package services

import (
	"context"
	"errors"
	"testing"

	"github.com/nbekov/race-control/models"
	"github.com/nbekov/race-control/repositories"
)

type fakeUserRepo struct {
	users  map[string]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if _, exists := r.users[user.Username]; exists {
		return repositories.ErrUserUsernameConflict
	}
	r.nextID++
	user.ID = r.nextID
	stored := *user
	r.users[user.Username] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func TestRegisterAndLogin(t *testing.T) {
	service := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	user, err := service.Register(ctx, RegisterInput{
		Username: "marshal",
		Password: "secret123",
		Role:     models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 {
		t.Error("expected assigned user id")
	}
	if user.PasswordHash != "" {
		t.Error("password hash must not leak out of the service")
	}

	loggedIn, err := service.Login(ctx, LoginInput{Username: "marshal", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loggedIn.Username != "marshal" || loggedIn.Role != models.RoleAdmin {
		t.Errorf("unexpected user after login: %+v", loggedIn)
	}
	if loggedIn.PasswordHash != "" {
		t.Error("password hash must not leak out of the service")
	}
}

func TestRegisterValidation(t *testing.T) {
	service := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	if _, err := service.Register(ctx, RegisterInput{Username: "a", Password: "short", Role: models.RoleAdmin}); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := service.Register(ctx, RegisterInput{Username: "a", Password: "secret123", Role: "spectator"}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	service := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	input := RegisterInput{Username: "marshal", Password: "secret123", Role: models.RoleOwner}
	if _, err := service.Register(ctx, input); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := service.Register(ctx, input); !errors.Is(err, ErrAuthUsernameTaken) {
		t.Fatalf("expected ErrAuthUsernameTaken, got %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	service := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	if _, err := service.Register(ctx, RegisterInput{Username: "marshal", Password: "secret123", Role: models.RoleAdmin}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := service.Login(ctx, LoginInput{Username: "marshal", Password: "wrongpass"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Errorf("wrong password: expected ErrAuthInvalidCredentials, got %v", err)
	}
	if _, err := service.Login(ctx, LoginInput{Username: "nobody", Password: "secret123"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Errorf("unknown user: expected ErrAuthInvalidCredentials, got %v", err)
	}
}
