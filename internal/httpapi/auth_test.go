package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pondokpos/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"manager": {
				Username:  "manager",
				Password:  "manager123",
				Role:      domain.RoleManager,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, "123456", store)
	_, err := manager.Login(domain.LoginRequest{
		Username: "manager",
		Password: "manager123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "manager123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestLoginPicksUpUsersCreatedAfterStartup(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{}}
	manager := NewAuthManager("test-secret", time.Hour, "123456", store)

	hashed, err := hashPassword("pass1234")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	store.mu.Lock()
	store.users["kasirbaru"] = domain.UserAccount{
		Username:  "kasirbaru",
		Password:  hashed,
		Role:      domain.RoleCashier,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	store.mu.Unlock()

	resp, err := manager.Login(domain.LoginRequest{
		Username: "kasirbaru",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("login with new cashier failed: %v", err)
	}
	if resp.Role != domain.RoleCashier {
		t.Fatalf("expected cashier role, got %s", resp.Role)
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"dormant": {
				Username:  "dormant",
				Password:  "secret99",
				Role:      domain.RoleCashier,
				Active:    false,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, "123456", store)
	if _, err := manager.Login(domain.LoginRequest{Username: "dormant", Password: "secret99"}); err == nil {
		t.Fatalf("expected login to fail for inactive account")
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", &userStoreStub{})

	token, err := manager.sign("manager", domain.RoleManager, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	actor, err := manager.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "manager" || actor.Role != domain.RoleManager {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", &userStoreStub{})

	token, err := manager.sign("manager", domain.RoleManager, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestManagerPINIsHashedAndStillValidates(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{}}
	manager := NewAuthManager("test-secret", time.Hour, "654321", store)

	if manager.managerPIN == "654321" {
		t.Fatalf("expected manager pin to be stored as hash, got plain-text")
	}

	if !manager.ValidateManagerPIN("654321") {
		t.Fatalf("expected manager pin validation to succeed")
	}

	if manager.ValidateManagerPIN("111111") {
		t.Fatalf("expected wrong manager pin to fail")
	}
}
