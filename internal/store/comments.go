// ABOUTME: Flat comment persistence with explicit parent pointers
// ABOUTME: Tree traversal lives in the comments package, not in SQL

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateComment inserts a comment node.
func (s *SQLiteStore) CreateComment(ctx context.Context, c *Comment) error {
	var parentID any
	if c.ParentID != nil {
		parentID = *c.ParentID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author_id, parent_id, content, deleted, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, c.ID, c.PostID, c.AuthorID, parentID, c.Content, c.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}

	s.logger.Debug("created comment", "id", c.ID, "post_id", c.PostID)
	return nil
}

// GetComment retrieves a comment by ID.
// Returns ErrNotFound if the comment doesn't exist.
func (s *SQLiteStore) GetComment(ctx context.Context, id string) (*Comment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, post_id, author_id, parent_id, content, deleted, created_at
		FROM comments
		WHERE id = ?
	`, id)

	var c Comment
	var parentID sql.NullString
	var createdAtStr string
	err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &parentID, &c.Content, &c.Deleted, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning comment: %w", err)
	}

	if parentID.Valid {
		c.ParentID = &parentID.String
	}
	c.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &c, nil
}

// ListCommentsByPost returns all comments on a post in creation order,
// including deleted ones so the arena can keep tree shape intact.
func (s *SQLiteStore) ListCommentsByPost(ctx context.Context, postID string) ([]*Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, author_id, parent_id, content, deleted, created_at
		FROM comments
		WHERE post_id = ?
		ORDER BY created_at ASC, id ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	comments := []*Comment{}
	for rows.Next() {
		var c Comment
		var parentID sql.NullString
		var createdAtStr string
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &parentID, &c.Content, &c.Deleted, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		if parentID.Valid {
			c.ParentID = &parentID.String
		}
		c.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		comments = append(comments, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comment rows: %w", err)
	}
	return comments, nil
}

// MarkCommentsDeleted tombstones the given comment IDs in one statement.
// Callers pass a subtree's IDs collected iteratively from the arena.
func (s *SQLiteStore) MarkCommentsDeleted(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE comments SET deleted = 1 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("deleting comments: %w", err)
	}

	s.logger.Debug("tombstoned comments", "count", len(ids))
	return nil
}
