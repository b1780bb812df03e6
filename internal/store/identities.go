// ABOUTME: Identity persistence for the SQLite store
// ABOUTME: Mirrors profile-subsystem users for auth and sender summaries

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateIdentity inserts a new identity record.
// Returns ErrDuplicateIdentity if the handle is already taken.
func (s *SQLiteStore) CreateIdentity(ctx context.Context, ident *Identity) error {
	query := `
		INSERT INTO identities (id, handle, display_name, avatar_url, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		ident.ID,
		ident.Handle,
		ident.DisplayName,
		nullString(ident.AvatarURL),
		ident.PasswordHash,
		ident.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("inserting identity: %w", err)
	}

	s.logger.Debug("created identity", "id", ident.ID, "handle", ident.Handle)
	return nil
}

// GetIdentity retrieves an identity by ID.
// Returns ErrNotFound if the identity doesn't exist.
func (s *SQLiteStore) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, handle, display_name, avatar_url, password_hash, created_at
		FROM identities
		WHERE id = ?
	`, id)
	return s.scanIdentity(row)
}

// GetIdentityByHandle retrieves an identity by its unique handle.
// Returns ErrNotFound if no identity has that handle.
func (s *SQLiteStore) GetIdentityByHandle(ctx context.Context, handle string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, handle, display_name, avatar_url, password_hash, created_at
		FROM identities
		WHERE handle = ?
	`, handle)
	return s.scanIdentity(row)
}

func (s *SQLiteStore) scanIdentity(row *sql.Row) (*Identity, error) {
	var ident Identity
	var avatarURL sql.NullString
	var createdAtStr string

	err := row.Scan(&ident.ID, &ident.Handle, &ident.DisplayName, &avatarURL, &ident.PasswordHash, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning identity: %w", err)
	}

	if avatarURL.Valid {
		ident.AvatarURL = avatarURL.String
	}

	ident.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &ident, nil
}

// ListIdentities returns identities ordered by handle.
// If limit is 0 or negative, a default limit of 100 is used.
func (s *SQLiteStore) ListIdentities(ctx context.Context, limit int) ([]*Identity, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, handle, display_name, avatar_url, password_hash, created_at
		FROM identities
		ORDER BY handle
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying identities: %w", err)
	}
	defer rows.Close()

	var identities []*Identity
	for rows.Next() {
		var ident Identity
		var avatarURL sql.NullString
		var createdAtStr string

		if err := rows.Scan(&ident.ID, &ident.Handle, &ident.DisplayName, &avatarURL, &ident.PasswordHash, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning identity row: %w", err)
		}
		if avatarURL.Valid {
			ident.AvatarURL = avatarURL.String
		}
		ident.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		identities = append(identities, &ident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating identity rows: %w", err)
	}
	return identities, nil
}
