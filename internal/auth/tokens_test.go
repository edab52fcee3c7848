package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/streamtube/backend/internal/models"
)

type fakeCredentialStore struct {
	users  map[string]models.User
	tokens map[string]string
}

func newFakeCredentialStore(users ...models.User) *fakeCredentialStore {
	s := &fakeCredentialStore{
		users:  make(map[string]models.User),
		tokens: make(map[string]string),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeCredentialStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, errors.New("user not found")
	}
	return user, nil
}

func (s *fakeCredentialStore) SaveRefreshToken(_ context.Context, userID, token string) error {
	s.tokens[userID] = token
	return nil
}

func (s *fakeCredentialStore) SwapRefreshToken(_ context.Context, userID, current, next string) error {
	if s.tokens[userID] != current {
		return ErrTokenMismatch
	}
	s.tokens[userID] = next
	return nil
}

func (s *fakeCredentialStore) ClearRefreshToken(_ context.Context, userID string) error {
	delete(s.tokens, userID)
	return nil
}

func testUser() models.User {
	return models.User{
		ID:       "8b7d3f1a-4f41-49d0-96c5-54cf24de0fbb",
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice Example",
	}
}

func newTestService(t *testing.T, store CredentialStore) *TokenService {
	t.Helper()
	svc, err := NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour, store)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

func TestNewTokenServiceRejectsSharedSecret(t *testing.T) {
	if _, err := NewTokenService("same", "same", time.Minute, time.Hour, newFakeCredentialStore()); err == nil {
		t.Fatal("expected error when access and refresh secrets match")
	}
}

func TestIssuePairAndVerifyAccess(t *testing.T) {
	user := testUser()
	store := newFakeCredentialStore(user)
	svc := newTestService(t, store)

	pair, err := svc.IssuePair(context.Background(), user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}
	if store.tokens[user.ID] != pair.RefreshToken {
		t.Fatal("expected refresh token to be persisted")
	}

	claims, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != user.ID {
		t.Fatalf("expected subject %q, got %q", user.ID, claims.Subject)
	}
	if claims.Username != user.Username || claims.Email != user.Email {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyAccessRejectsRefreshToken(t *testing.T) {
	user := testUser()
	svc := newTestService(t, newFakeCredentialStore(user))

	pair, err := svc.IssuePair(context.Background(), user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	if _, err := svc.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for refresh token used as access, got %v", err)
	}
}

func TestVerifyAccessRejectsExpiredToken(t *testing.T) {
	user := testUser()
	svc := newTestService(t, newFakeCredentialStore(user))
	svc.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	pair, err := svc.IssuePair(context.Background(), user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	svc.nowFunc = time.Now
	if _, err := svc.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestRotateIsSingleUse(t *testing.T) {
	user := testUser()
	store := newFakeCredentialStore(user)
	svc := newTestService(t, store)

	pair, err := svc.IssuePair(context.Background(), user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	next, rotatedUser, err := svc.Rotate(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotatedUser.ID != user.ID {
		t.Fatalf("expected rotated user %q, got %q", user.ID, rotatedUser.ID)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("expected a fresh refresh token after rotation")
	}

	// Replaying the consumed token must fail.
	if _, _, err := svc.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch on replay, got %v", err)
	}

	// The fresh token still works.
	if _, _, err := svc.Rotate(context.Background(), next.RefreshToken); err != nil {
		t.Fatalf("rotate fresh token: %v", err)
	}
}

func TestRotateAfterRevoke(t *testing.T) {
	user := testUser()
	store := newFakeCredentialStore(user)
	svc := newTestService(t, store)

	pair, err := svc.IssuePair(context.Background(), user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	if err := svc.Revoke(context.Background(), user.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, _, err := svc.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch after revoke, got %v", err)
	}
}

func TestRotateRejectsGarbage(t *testing.T) {
	svc := newTestService(t, newFakeCredentialStore())

	for _, token := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, _, err := svc.Rotate(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}
