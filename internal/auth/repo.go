package auth

import (
	"context"
	"time"

	apperrors "github.com/wxrouter/wxrouter/internal/errors"
	"github.com/wxrouter/wxrouter/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Repository persists API keys. Secrets are stored only as bcrypt hashes;
// the raw key is shown exactly once, at creation.
type Repository struct {
	db store.Database
}

func NewRepository(db store.Database) *Repository {
	return &Repository{db: db}
}

// APIKeyRecord is the stored metadata for one key.
type APIKeyRecord struct {
	ID        int       `json:"id"`
	Key       string    `json:"key"`
	Owner     string    `json:"owner"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateAPIKey mints a key for an owner and returns the raw key.
func (r *Repository) CreateAPIKey(ctx context.Context, owner string) (rawKey string, rec *APIKeyRecord, err error) {
	if r == nil || r.db == nil || !r.db.IsConfigured() {
		return "", nil, apperrors.ErrInvalidInput
	}

	id, raw, hash, err := GenerateAPIKey()
	if err != nil {
		return "", nil, err
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO api_keys (key, key_hash, owner, active)
		VALUES ($1, $2, $3, 1)
		RETURNING id, created_at
	`, id, string(hash), owner)

	rec = &APIKeyRecord{Key: id, Owner: owner, Active: true}
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return "", nil, err
	}
	return raw, rec, nil
}

// LookupAPIKey verifies a raw key against the active keys and returns its
// record. Unknown, revoked, or mismatched keys all return ErrUnauthorized.
func (r *Repository) LookupAPIKey(ctx context.Context, rawKey string) (*APIKeyRecord, error) {
	if r == nil || r.db == nil || !r.db.IsConfigured() {
		return nil, apperrors.ErrUnauthorized
	}

	id, secret, ok := ParseAPIKey(rawKey)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}

	row := r.db.QueryRow(ctx, `
		SELECT id, key, key_hash, COALESCE(owner, ''), active, created_at
		FROM api_keys
		WHERE key = $1 AND active = 1
	`, id)

	var rec APIKeyRecord
	var hash string
	var active int
	if err := row.Scan(&rec.ID, &rec.Key, &hash, &rec.Owner, &active, &rec.CreatedAt); err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	rec.Active = active == 1
	return &rec, nil
}

// RevokeAPIKey deactivates a key by its public id segment. Revocation is a
// flag flip; the row stays for audit.
func (r *Repository) RevokeAPIKey(ctx context.Context, keyID string) error {
	if r == nil || r.db == nil || !r.db.IsConfigured() {
		return apperrors.ErrInvalidInput
	}
	return r.db.Exec(ctx, `UPDATE api_keys SET active = 0 WHERE key = $1`, keyID)
}

// ListAPIKeys returns every key record, active and revoked. Hashes are
// never included.
func (r *Repository) ListAPIKeys(ctx context.Context) ([]APIKeyRecord, error) {
	if r == nil || r.db == nil || !r.db.IsConfigured() {
		return nil, apperrors.ErrInvalidInput
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, key, COALESCE(owner, ''), active, created_at
		FROM api_keys ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []APIKeyRecord
	for rows.Next() {
		var rec APIKeyRecord
		var active int
		if err := rows.Scan(&rec.ID, &rec.Key, &rec.Owner, &active, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Active = active == 1
		list = append(list, rec)
	}
	return list, rows.Err()
}
