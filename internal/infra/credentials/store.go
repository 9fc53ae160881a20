package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"photobooth/internal/domain"
	"photobooth/internal/infra"
	"photobooth/internal/sqlinline"
)

// EnvPrefix marks an authKeyRef that names an environment variable.
const EnvPrefix = "env:"

// ErrSecretNotFound is returned when a reference resolves to nothing.
var ErrSecretNotFound = errors.New("credentials: secret not found")

// Store resolves provider secrets. References of the form "env:NAME" read the
// process environment; any other reference is an integration_tokens provider.
type Store struct {
	sql    infra.SQLExecutor
	lookup func(string) (string, bool)
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql, lookup: os.LookupEnv}
}

// Resolve returns the secret behind ref. It is called once per provider
// invocation so rotated keys take effect without a restart.
func (s *Store) Resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrSecretNotFound)
	}
	if name, ok := strings.CutPrefix(ref, EnvPrefix); ok {
		if v, ok := s.lookup(strings.TrimSpace(name)); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, ref)
	}
	token, err := s.Token(ctx, ref)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, ref)
	}
	return token, nil
}

// Token reads a stored integration token. Missing rows yield an empty token.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	if s.sql == nil {
		return "", nil
	}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: load %s: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

// SetToken stores the secret for provider, replacing any previous value.
func (s *Store) SetToken(ctx context.Context, provider, token string, props map[string]any) error {
	provider = strings.TrimSpace(provider)
	token = strings.TrimSpace(token)
	if provider == "" {
		return errors.New("credentials: provider is required")
	}
	if strings.HasPrefix(provider, EnvPrefix) {
		return errors.New("credentials: env references cannot be stored")
	}
	if token == "" {
		return fmt.Errorf("credentials: %s token is required", provider)
	}
	return s.upsert(ctx, provider, token, props)
}

// DeleteToken removes a stored secret.
func (s *Store) DeleteToken(ctx context.Context, provider string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QDeleteIntegrationToken, strings.TrimSpace(provider))
	return err
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

var _ domain.SecretResolver = (*Store)(nil)
