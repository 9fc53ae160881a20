package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token string
	err   error
	calls int
	exec  struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.calls++
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestResolveStoredToken(t *testing.T) {
	store := NewStore(&stubExecutor{token: " abc123 "})
	key, err := store.Resolve(context.Background(), "ailabapi")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
}

func TestResolveMissingToken(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	_, err := store.Resolve(context.Background(), "lightx")
	if !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestResolveEnvReferenceSkipsDatabase(t *testing.T) {
	t.Setenv("PHOTOBOOTH_TEST_KEY", " from-env ")
	exec := &stubExecutor{token: "from-db"}
	store := NewStore(exec)
	key, err := store.Resolve(context.Background(), "env:PHOTOBOOTH_TEST_KEY")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if key != "from-env" {
		t.Fatalf("expected from-env, got %q", key)
	}
	if exec.calls != 0 {
		t.Fatalf("expected no database lookups, got %d", exec.calls)
	}
}

func TestResolveUnsetEnvReference(t *testing.T) {
	t.Setenv("PHOTOBOOTH_TEST_KEY", "")
	store := NewStore(&stubExecutor{})
	if _, err := store.Resolve(context.Background(), "env:PHOTOBOOTH_TEST_KEY"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestSetToken(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetToken(context.Background(), "gemini", "secret", nil); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
}

func TestSetTokenValidation(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetToken(context.Background(), "gemini", " ", nil); err == nil {
		t.Fatal("expected error for empty token")
	}
	if err := store.SetToken(context.Background(), "env:GEMINI_API_KEY", "x", nil); err == nil {
		t.Fatal("expected error for env reference")
	}
}
