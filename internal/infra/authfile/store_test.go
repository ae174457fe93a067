package authfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestStore_AuthorizePersists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "authorized_users.json")

	s, err := NewStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	ok, err := s.IsAuthorized(ctx, 42)
	if err != nil || ok {
		t.Fatalf("expected unauthorized, got ok=%v err=%v", ok, err)
	}

	if err := s.Authorize(ctx, 42); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	ok, _ = s.IsAuthorized(ctx, 42)
	if !ok {
		t.Fatalf("expected user 42 authorized")
	}

	// a fresh store sees the persisted user
	s2, err := NewStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewStore reload: %v", err)
	}
	ok, _ = s2.IsAuthorized(ctx, 42)
	if !ok {
		t.Fatalf("expected authorization to survive reload")
	}
	ok, _ = s2.IsAuthorized(ctx, 7)
	if ok {
		t.Fatalf("user 7 was never authorized")
	}
}

func TestStore_AuthorizeIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")
	s, err := NewStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Authorize(ctx, 1); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if err := s.Authorize(ctx, 1); err != nil {
		t.Fatalf("second Authorize: %v", err)
	}
}

func TestStore_CorruptFileStartsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s, err := NewStore(path, testLogger())
	if err != nil {
		t.Fatalf("a corrupt file must not fail construction: %v", err)
	}
	ok, _ := s.IsAuthorized(context.Background(), 42)
	if ok {
		t.Fatalf("corrupt file must yield an empty store")
	}
}
