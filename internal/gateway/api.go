// ABOUTME: HTTP JSON API handlers for messaging, notifications, hooks, and admin
// ABOUTME: Validation errors map to 400, missing refs to 404, dispatch failures to nothing

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/devmesh/realtime-gateway/internal/auth"
	"github.com/devmesh/realtime-gateway/internal/markdown"
	"github.com/devmesh/realtime-gateway/internal/notify"
	"github.com/devmesh/realtime-gateway/internal/session"
	"github.com/devmesh/realtime-gateway/internal/store"
)

var validate = validator.New()

// LoginRequest is the JSON request body for POST /api/login.
type LoginRequest struct {
	Handle   string `json:"handle" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the JSON response for POST /api/login.
type LoginResponse struct {
	Token    string           `json:"token"`
	Identity IdentityResponse `json:"identity"`
}

// IdentityResponse is the public view of an identity.
type IdentityResponse struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// SendMessageRequest is the JSON request body for POST /api/messages.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Content     string `json:"content" validate:"required"`
}

// MessageResponse is the JSON view of a message. ContentHTML carries the
// rendered markdown body for web clients.
type MessageResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id"`
	Content        string `json:"content"`
	ContentHTML    string `json:"content_html,omitempty"`
	Read           bool   `json:"read"`
	CreatedAt      string `json:"created_at"`
}

// ConversationSummaryResponse is one row of GET /api/conversations.
type ConversationSummaryResponse struct {
	Partner     IdentityResponse `json:"partner"`
	LastMessage *MessageResponse `json:"last_message,omitempty"`
	UpdatedAt   string           `json:"updated_at"`
}

// NotificationResponse is the JSON view of a notification.
type NotificationResponse struct {
	ID        string  `json:"id"`
	SenderID  string  `json:"sender_id"`
	Type      string  `json:"type"`
	PostID    *string `json:"post_id,omitempty"`
	CommentID *string `json:"comment_id,omitempty"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"created_at"`
}

// LikeHookRequest is the body of POST /api/hooks/like.
type LikeHookRequest struct {
	PostID       string `json:"post_id" validate:"required"`
	PostAuthorID string `json:"post_author_id" validate:"required"`
	SenderID     string `json:"sender_id" validate:"required"`
}

// CommentHookRequest is the body of POST /api/hooks/comment.
type CommentHookRequest struct {
	PostID       string  `json:"post_id" validate:"required"`
	PostAuthorID string  `json:"post_author_id" validate:"required"`
	AuthorID     string  `json:"author_id" validate:"required"`
	ParentID     *string `json:"parent_id,omitempty"`
	Content      string  `json:"content" validate:"required"`
}

// CommentDeletedHookRequest is the body of POST /api/hooks/comment-deleted.
type CommentDeletedHookRequest struct {
	CommentID string `json:"comment_id" validate:"required"`
}

// CreateIdentityRequest is the body of POST /api/admin/identities.
type CreateIdentityRequest struct {
	Handle      string `json:"handle" validate:"required"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// MintTokenRequest is the body of POST /api/admin/tokens.
type MintTokenRequest struct {
	IdentityID string `json:"identity_id" validate:"required"`
	TTL        string `json:"ttl,omitempty"`
}

// BroadcastRequest is the body of POST /api/admin/broadcast.
type BroadcastRequest struct {
	Message string `json:"message" validate:"required"`
}

func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeAndValidate parses a JSON body into dst and runs struct validation.
func decodeAndValidate(r io.Reader, dst any) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}
	return validate.Struct(dst)
}

// storeErrorStatus maps store sentinel errors to HTTP status codes.
func storeErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrSameParticipant), errors.Is(err, store.ErrDuplicateIdentity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func identityResponse(i *store.Identity) IdentityResponse {
	return IdentityResponse{
		ID:          i.ID,
		Handle:      i.Handle,
		DisplayName: i.DisplayName,
		AvatarURL:   i.AvatarURL,
	}
}

func (g *Gateway) messageResponse(m *store.Message) *MessageResponse {
	html, err := markdown.Render(m.Content)
	if err != nil {
		g.logger.Error("rendering message body failed", "message_id", m.ID, "error", err)
		html = ""
	}
	return &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		RecipientID:    m.RecipientID,
		Content:        m.Content,
		ContentHTML:    html,
		Read:           m.Read,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339Nano),
	}
}

// handleLogin handles POST /api/login: handle+password in, JWT out.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "handle and password are required")
		return
	}

	ident, err := g.store.GetIdentityByHandle(r.Context(), req.Handle)
	if err != nil {
		// Same answer for unknown handle and wrong password
		g.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.CheckPassword(ident.PasswordHash, req.Password); err != nil {
		g.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := g.verifier.Generate(ident.ID, g.config.Auth.TokenTTL)
	if err != nil {
		g.logger.Error("token generation failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		Identity: identityResponse(ident),
	})
}

// handleSendMessage handles POST /api/messages.
func (g *Gateway) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	var req SendMessageRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "recipient_id and content are required")
		return
	}

	msg, err := g.messaging.SendMessage(r.Context(), caller.IdentityID, req.RecipientID, req.Content)
	if err != nil {
		status := storeErrorStatus(err)
		if status == http.StatusInternalServerError {
			g.logger.Error("send message failed", "error", err)
			g.sendJSONError(w, status, "internal server error")
			return
		}
		g.sendJSONError(w, status, err.Error())
		return
	}

	g.writeJSON(w, http.StatusCreated, g.messageResponse(msg))
}

// handleListConversations handles GET /api/conversations.
func (g *Gateway) handleListConversations(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	summaries, err := g.messaging.ListConversations(r.Context(), caller.IdentityID)
	if err != nil {
		g.logger.Error("list conversations failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := lo.Map(summaries, func(s *store.ConversationSummary, _ int) ConversationSummaryResponse {
		resp := ConversationSummaryResponse{
			Partner:   identityResponse(s.Partner),
			UpdatedAt: s.UpdatedAt.Format(time.RFC3339Nano),
		}
		if s.LastMessage != nil {
			resp.LastMessage = g.messageResponse(s.LastMessage)
		}
		return resp
	})
	g.writeJSON(w, http.StatusOK, out)
}

// handleListMessages handles GET /api/conversations/{partnerID}/messages.
// Supports ?after=<messageID> to restart an interrupted listing and
// ?limit=<n> to bound the page.
func (g *Gateway) handleListMessages(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())
	partnerID := r.PathValue("partnerID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			g.sendJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	msgs, err := g.messaging.ListMessages(r.Context(), caller.IdentityID, partnerID, r.URL.Query().Get("after"), limit)
	if err != nil {
		// An unknown after cursor surfaces as ErrNotFound; that is the
		// caller's mistake, not a server failure.
		status := storeErrorStatus(err)
		if status == http.StatusInternalServerError {
			g.logger.Error("list messages failed", "error", err)
			g.sendJSONError(w, status, "internal server error")
			return
		}
		g.sendJSONError(w, status, err.Error())
		return
	}

	out := lo.Map(msgs, func(m *store.Message, _ int) *MessageResponse {
		return g.messageResponse(m)
	})
	g.writeJSON(w, http.StatusOK, out)
}

// handleMarkRead handles POST /api/conversations/{partnerID}/read.
func (g *Gateway) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	if err := g.messaging.MarkRead(r.Context(), caller.IdentityID, r.PathValue("partnerID")); err != nil {
		g.logger.Error("mark read failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListNotifications handles GET /api/notifications.
func (g *Gateway) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	list, err := g.notify.List(r.Context(), caller.IdentityID, 0)
	if err != nil {
		g.logger.Error("list notifications failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := lo.Map(list, func(n *store.Notification, _ int) NotificationResponse {
		return NotificationResponse{
			ID:        n.ID,
			SenderID:  n.SenderID,
			Type:      n.Type,
			PostID:    n.PostID,
			CommentID: n.CommentID,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.Format(time.RFC3339Nano),
		}
	})
	g.writeJSON(w, http.StatusOK, out)
}

// handleUnreadCount handles GET /api/notifications/unread-count.
func (g *Gateway) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	count, err := g.notify.UnreadCount(r.Context(), caller.IdentityID)
	if err != nil {
		g.logger.Error("unread count failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// handleMarkNotificationsRead handles POST /api/notifications/read.
func (g *Gateway) handleMarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	if err := g.notify.MarkAllRead(r.Context(), caller.IdentityID); err != nil {
		g.logger.Error("mark notifications read failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkHookAuth validates the shared secret and suppresses duplicate
// deliveries. Returns ok=false after writing the response when the request
// must not proceed. A delivery that passes is claimed in the suppressor;
// handlers must Forget the returned ID if their work fails, so the
// upstream retry is not answered as an already-handled replay.
func (g *Gateway) checkHookAuth(w http.ResponseWriter, r *http.Request) (deliveryID string, ok bool) {
	if g.config.Hooks.Secret == "" || r.Header.Get("X-Hook-Secret") != g.config.Hooks.Secret {
		g.sendJSONError(w, http.StatusUnauthorized, "invalid hook secret")
		return "", false
	}
	deliveryID = r.Header.Get("X-Delivery-ID")
	if g.dedupe.Duplicate(deliveryID) {
		// Replayed delivery: the first one already did the work.
		w.WriteHeader(http.StatusAccepted)
		return "", false
	}
	return deliveryID, true
}

// handleLikeHook handles POST /api/hooks/like from the profile subsystem.
func (g *Gateway) handleLikeHook(w http.ResponseWriter, r *http.Request) {
	deliveryID, ok := g.checkHookAuth(w, r)
	if !ok {
		return
	}

	var req LikeHookRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		g.dedupe.Forget(deliveryID)
		g.sendJSONError(w, http.StatusBadRequest, "post_id, post_author_id, and sender_id are required")
		return
	}

	if _, err := g.notify.Notify(r.Context(), req.PostAuthorID, req.SenderID, store.NotificationLike, &req.PostID, nil); err != nil {
		g.dedupe.Forget(deliveryID)
		g.logger.Error("like fanout failed", "error", err)
		g.sendJSONError(w, storeErrorStatus(err), "like fanout failed")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleCommentHook handles POST /api/hooks/comment.
func (g *Gateway) handleCommentHook(w http.ResponseWriter, r *http.Request) {
	deliveryID, ok := g.checkHookAuth(w, r)
	if !ok {
		return
	}

	var req CommentHookRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		g.dedupe.Forget(deliveryID)
		g.sendJSONError(w, http.StatusBadRequest, "post_id, post_author_id, author_id, and content are required")
		return
	}

	c, err := g.notify.HandleComment(r.Context(), g.store, &notify.CommentRequest{
		PostID:       req.PostID,
		PostAuthorID: req.PostAuthorID,
		AuthorID:     req.AuthorID,
		ParentID:     req.ParentID,
		Content:      req.Content,
	})
	if err != nil {
		g.dedupe.Forget(deliveryID)
		g.logger.Error("comment fanout failed", "error", err)
		g.sendJSONError(w, storeErrorStatus(err), "comment fanout failed")
		return
	}
	g.writeJSON(w, http.StatusCreated, map[string]string{"comment_id": c.ID})
}

// handleCommentDeletedHook handles POST /api/hooks/comment-deleted.
func (g *Gateway) handleCommentDeletedHook(w http.ResponseWriter, r *http.Request) {
	deliveryID, ok := g.checkHookAuth(w, r)
	if !ok {
		return
	}

	var req CommentDeletedHookRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		g.dedupe.Forget(deliveryID)
		g.sendJSONError(w, http.StatusBadRequest, "comment_id is required")
		return
	}

	count, err := g.notify.DeleteComment(r.Context(), g.store, req.CommentID)
	if err != nil {
		g.dedupe.Forget(deliveryID)
		g.sendJSONError(w, storeErrorStatus(err), "comment deletion failed")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]int{"deleted": count})
}

// handleCreateIdentity handles POST /api/admin/identities.
func (g *Gateway) handleCreateIdentity(w http.ResponseWriter, r *http.Request) {
	var req CreateIdentityRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "handle and password (min 8 chars) are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		g.logger.Error("password hashing failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	ident := &store.Identity{
		ID:           uuid.New().String(),
		Handle:       req.Handle,
		DisplayName:  req.DisplayName,
		AvatarURL:    req.AvatarURL,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := g.store.CreateIdentity(r.Context(), ident); err != nil {
		if errors.Is(err, store.ErrDuplicateIdentity) {
			g.sendJSONError(w, http.StatusConflict, "handle already taken")
			return
		}
		g.logger.Error("identity creation failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusCreated, identityResponse(ident))
}

// handleListIdentities handles GET /api/admin/identities.
func (g *Gateway) handleListIdentities(w http.ResponseWriter, r *http.Request) {
	list, err := g.store.ListIdentities(r.Context(), 0)
	if err != nil {
		g.logger.Error("identity listing failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := lo.Map(list, func(i *store.Identity, _ int) IdentityResponse {
		return identityResponse(i)
	})
	g.writeJSON(w, http.StatusOK, out)
}

// handleMintToken handles POST /api/admin/tokens: mints a JWT for any
// identity, for operator tooling and service accounts.
func (g *Gateway) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var req MintTokenRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "identity_id is required")
		return
	}

	if _, err := g.store.GetIdentity(r.Context(), req.IdentityID); err != nil {
		g.sendJSONError(w, storeErrorStatus(err), "identity not found")
		return
	}

	ttl := g.config.Auth.TokenTTL
	if req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid ttl")
			return
		}
		ttl = parsed
	}

	token, err := g.verifier.Generate(req.IdentityID, ttl)
	if err != nil {
		g.logger.Error("token generation failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleBroadcast handles POST /api/admin/broadcast: pushes a system
// event to every connected identity.
func (g *Gateway) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	g.dispatcher.Broadcast(session.EventSystem, map[string]string{"message": req.Message})
	w.WriteHeader(http.StatusAccepted)
}
