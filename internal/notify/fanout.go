// ABOUTME: Comment fanout: persist the comment, then notify author, thread, and mentions
// ABOUTME: Each affected identity is notified at most once per comment

package notify

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/devmesh/realtime-gateway/internal/comments"
	"github.com/devmesh/realtime-gateway/internal/store"
)

// CommentStore defines the comment operations the fanout needs.
type CommentStore interface {
	CreateComment(ctx context.Context, c *store.Comment) error
	GetComment(ctx context.Context, id string) (*store.Comment, error)
	ListCommentsByPost(ctx context.Context, postID string) ([]*store.Comment, error)
	MarkCommentsDeleted(ctx context.Context, ids []string) error
}

// mentionPattern matches @handle references in comment bodies.
var mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9_][a-zA-Z0-9_-]*)`)

// CommentRequest carries one comment delivery from the profile subsystem.
// The gateway does not own posts, so the post author rides along.
type CommentRequest struct {
	PostID       string
	PostAuthorID string
	AuthorID     string
	ParentID     *string
	Content      string
}

// HandleComment persists the comment and fans out notifications:
//
//   - the post author gets a comment notification
//   - every distinct author up the reply chain gets a reply notification
//   - every @mentioned identity gets a mention notification
//
// An identity is notified at most once per comment, the strongest match
// winning in the order above. Dispatch failures never fail the comment.
func (s *Service) HandleComment(ctx context.Context, cs CommentStore, req *CommentRequest) (*store.Comment, error) {
	c := &store.Comment{
		ID:        uuid.New().String(),
		PostID:    req.PostID,
		AuthorID:  req.AuthorID,
		ParentID:  req.ParentID,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := cs.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	notified := map[string]bool{req.AuthorID: true}
	notify := func(recipientID, notifType string) {
		if notified[recipientID] {
			return
		}
		notified[recipientID] = true
		if _, err := s.Notify(ctx, recipientID, req.AuthorID, notifType, &req.PostID, &c.ID); err != nil {
			s.logger.Error("comment fanout notification failed",
				"comment_id", c.ID,
				"recipient_id", recipientID,
				"type", notifType,
				"error", err,
			)
		}
	}

	notify(req.PostAuthorID, store.NotificationComment)

	if req.ParentID != nil {
		all, err := cs.ListCommentsByPost(ctx, req.PostID)
		if err != nil {
			s.logger.Error("loading thread for reply cascade failed", "post_id", req.PostID, "error", err)
		} else {
			arena := comments.Build(all)
			for _, ancestor := range arena.Ancestors(c.ID) {
				notify(ancestor.AuthorID, store.NotificationReply)
			}
		}
	}

	for _, handle := range parseMentions(req.Content) {
		ident, err := s.store.GetIdentityByHandle(ctx, handle)
		if err != nil {
			continue // unknown handles are just text
		}
		notify(ident.ID, store.NotificationMention)
	}

	return c, nil
}

// DeleteComment tombstones a comment and its whole subtree. Replies to a
// deleted comment make no sense on their own, so the branch goes as one.
func (s *Service) DeleteComment(ctx context.Context, cs CommentStore, commentID string) (int, error) {
	c, err := cs.GetComment(ctx, commentID)
	if err != nil {
		return 0, fmt.Errorf("looking up comment: %w", err)
	}

	all, err := cs.ListCommentsByPost(ctx, c.PostID)
	if err != nil {
		return 0, fmt.Errorf("loading thread: %w", err)
	}

	ids := comments.Build(all).SubtreeIDs(commentID)
	if err := cs.MarkCommentsDeleted(ctx, ids); err != nil {
		return 0, fmt.Errorf("deleting comment subtree: %w", err)
	}

	s.logger.Info("comment subtree deleted", "comment_id", commentID, "count", len(ids))
	return len(ids), nil
}

// parseMentions extracts unique @handles from a comment body, in order
// of first appearance.
func parseMentions(content string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}
