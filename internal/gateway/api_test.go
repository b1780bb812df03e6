// ABOUTME: HTTP API tests driving the full gateway through its mux
// ABOUTME: Covers login, messaging, notifications, hooks, and admin endpoints

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmesh/realtime-gateway/internal/auth"
	"github.com/devmesh/realtime-gateway/internal/config"
	"github.com/devmesh/realtime-gateway/internal/store"
)

const (
	testJWTSecret  = "gateway-test-secret-32-bytes-long"
	testHookSecret = "hook-secret"
	testPassword   = "correct horse battery staple"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "gateway.db")},
		Auth: config.AuthConfig{
			JWTSecret:    testJWTSecret,
			AdminHandles: []string{"ops"},
			TokenTTL:     time.Hour,
		},
		Hooks: config.HooksConfig{
			Secret:       testHookSecret,
			DedupeWindow: time.Minute,
		},
	}
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := New(testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = g.Shutdown(ctx)
	})
	return g
}

// seedIdentity creates an identity with the shared test password and
// returns it along with a valid token.
func seedIdentity(t *testing.T, g *Gateway, handle string) (*store.Identity, string) {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	ident := &store.Identity{
		ID:           "id-" + handle,
		Handle:       handle,
		DisplayName:  handle,
		PasswordHash: hash,
	}
	require.NoError(t, g.store.CreateIdentity(context.Background(), ident))

	token, err := g.verifier.Generate(ident.ID, time.Hour)
	require.NoError(t, err)
	return ident, token
}

// doJSON performs a request against the gateway mux and decodes the response.
func doJSON(t *testing.T, g *Gateway, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	g.httpServer.Handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func doHook(t *testing.T, g *Gateway, path, secret, deliveryID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(raw))
	if secret != "" {
		req.Header.Set("X-Hook-Secret", secret)
	}
	if deliveryID != "" {
		req.Header.Set("X-Delivery-ID", deliveryID)
	}
	rec := httptest.NewRecorder()
	g.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	g := newTestGateway(t)
	ada, _ := seedIdentity(t, g, "ada")

	t.Run("valid credentials", func(t *testing.T) {
		var resp LoginResponse
		rec := doJSON(t, g, http.MethodPost, "/api/login", "", LoginRequest{
			Handle: "ada", Password: testPassword,
		}, &resp)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, ada.ID, resp.Identity.ID)

		// The token actually works
		id, err := g.verifier.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, ada.ID, id)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodPost, "/api/login", "", LoginRequest{
			Handle: "ada", Password: "nope",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown handle", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodPost, "/api/login", "", LoginRequest{
			Handle: "ghost", Password: testPassword,
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodPost, "/api/login", "", map[string]string{}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSendMessage(t *testing.T) {
	g := newTestGateway(t)
	_, adaToken := seedIdentity(t, g, "ada")
	bob, _ := seedIdentity(t, g, "bob")

	t.Run("created", func(t *testing.T) {
		var resp MessageResponse
		rec := doJSON(t, g, http.MethodPost, "/api/messages", adaToken, SendMessageRequest{
			RecipientID: bob.ID, Content: "hello **bob**",
		}, &resp)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "hello **bob**", resp.Content)
		assert.Contains(t, resp.ContentHTML, "<strong>bob</strong>")
		assert.False(t, resp.Read)
	})

	t.Run("missing content", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodPost, "/api/messages", adaToken, SendMessageRequest{
			RecipientID: bob.ID,
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodPost, "/api/messages", adaToken, SendMessageRequest{
			RecipientID: "ghost", Content: "hi",
		}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodPost, "/api/messages", "", SendMessageRequest{
			RecipientID: bob.ID, Content: "hi",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestConversationEndpoints(t *testing.T) {
	g := newTestGateway(t)
	ada, adaToken := seedIdentity(t, g, "ada")
	bob, bobToken := seedIdentity(t, g, "bob")

	for _, content := range []string{"one", "two", "three"} {
		rec := doJSON(t, g, http.MethodPost, "/api/messages", adaToken, SendMessageRequest{
			RecipientID: bob.ID, Content: content,
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	t.Run("list conversations", func(t *testing.T) {
		var resp []ConversationSummaryResponse
		rec := doJSON(t, g, http.MethodGet, "/api/conversations", bobToken, nil, &resp)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, resp, 1)
		assert.Equal(t, ada.ID, resp[0].Partner.ID)
		require.NotNil(t, resp[0].LastMessage)
		assert.Equal(t, "three", resp[0].LastMessage.Content)
	})

	t.Run("list messages ascending", func(t *testing.T) {
		var resp []MessageResponse
		rec := doJSON(t, g, http.MethodGet, "/api/conversations/"+ada.ID+"/messages", bobToken, nil, &resp)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, resp, 3)
		assert.Equal(t, "one", resp[0].Content)
		assert.Equal(t, "three", resp[2].Content)
	})

	t.Run("after cursor", func(t *testing.T) {
		var all []MessageResponse
		doJSON(t, g, http.MethodGet, "/api/conversations/"+ada.ID+"/messages", bobToken, nil, &all)
		require.Len(t, all, 3)

		var rest []MessageResponse
		rec := doJSON(t, g, http.MethodGet,
			"/api/conversations/"+ada.ID+"/messages?after="+all[0].ID, bobToken, nil, &rest)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, rest, 2)
		assert.Equal(t, "two", rest[0].Content)
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodGet,
			"/api/conversations/"+ada.ID+"/messages?limit=bogus", bobToken, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown after cursor", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodGet,
			"/api/conversations/"+ada.ID+"/messages?after=no-such-message", bobToken, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("mark read", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodPost, "/api/conversations/"+ada.ID+"/read", bobToken, nil, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		var msgs []MessageResponse
		doJSON(t, g, http.MethodGet, "/api/conversations/"+ada.ID+"/messages", bobToken, nil, &msgs)
		for _, m := range msgs {
			assert.True(t, m.Read)
		}
	})
}

func TestNotificationEndpoints(t *testing.T) {
	g := newTestGateway(t)
	ada, _ := seedIdentity(t, g, "ada")
	bob, bobToken := seedIdentity(t, g, "bob")

	rec := doHook(t, g, "/api/hooks/like", testHookSecret, "", LikeHookRequest{
		PostID: "post-1", PostAuthorID: bob.ID, SenderID: ada.ID,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	t.Run("list", func(t *testing.T) {
		var resp []NotificationResponse
		rec := doJSON(t, g, http.MethodGet, "/api/notifications", bobToken, nil, &resp)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, resp, 1)
		assert.Equal(t, store.NotificationLike, resp[0].Type)
		assert.False(t, resp[0].Read)
	})

	t.Run("unread count then mark read", func(t *testing.T) {
		var count map[string]int64
		rec := doJSON(t, g, http.MethodGet, "/api/notifications/unread-count", bobToken, nil, &count)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(1), count["count"])

		rec = doJSON(t, g, http.MethodPost, "/api/notifications/read", bobToken, nil, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, g, http.MethodGet, "/api/notifications/unread-count", bobToken, nil, &count)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, count["count"])
	})
}

func TestHooks_AuthAndDedupe(t *testing.T) {
	g := newTestGateway(t)
	ada, _ := seedIdentity(t, g, "ada")
	bob, bobToken := seedIdentity(t, g, "bob")

	like := LikeHookRequest{PostID: "post-1", PostAuthorID: bob.ID, SenderID: ada.ID}

	t.Run("missing secret", func(t *testing.T) {
		rec := doHook(t, g, "/api/hooks/like", "", "", like)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		rec := doHook(t, g, "/api/hooks/like", "bogus", "", like)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("replayed delivery is a no-op", func(t *testing.T) {
		rec := doHook(t, g, "/api/hooks/like", testHookSecret, "delivery-7", like)
		require.Equal(t, http.StatusAccepted, rec.Code)
		rec = doHook(t, g, "/api/hooks/like", testHookSecret, "delivery-7", like)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var count map[string]int64
		doJSON(t, g, http.MethodGet, "/api/notifications/unread-count", bobToken, nil, &count)
		assert.Equal(t, int64(1), count["count"], "the retry must not create a second notification")
	})
}

func TestHooks_FailedDeliveryRetried(t *testing.T) {
	g := newTestGateway(t)
	ada, _ := seedIdentity(t, g, "ada")
	bob, bobToken := seedIdentity(t, g, "bob")

	// The first attempt fails because the sender is unknown
	rec := doHook(t, g, "/api/hooks/like", testHookSecret, "delivery-9", LikeHookRequest{
		PostID: "post-1", PostAuthorID: bob.ID, SenderID: "ghost",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	// A failed delivery must not claim its ID: the upstream retry with the
	// corrected payload has to go through, not be answered as a replay.
	good := LikeHookRequest{PostID: "post-1", PostAuthorID: bob.ID, SenderID: ada.ID}
	rec = doHook(t, g, "/api/hooks/like", testHookSecret, "delivery-9", good)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var count map[string]int64
	doJSON(t, g, http.MethodGet, "/api/notifications/unread-count", bobToken, nil, &count)
	assert.Equal(t, int64(1), count["count"], "the retried delivery must create the notification the failed attempt lost")

	// After a success the ID is claimed and replays stay suppressed
	rec = doHook(t, g, "/api/hooks/like", testHookSecret, "delivery-9", good)
	require.Equal(t, http.StatusAccepted, rec.Code)
	doJSON(t, g, http.MethodGet, "/api/notifications/unread-count", bobToken, nil, &count)
	assert.Equal(t, int64(1), count["count"])
}

func TestCommentHooks(t *testing.T) {
	g := newTestGateway(t)
	ada, _ := seedIdentity(t, g, "ada")
	bob, bobToken := seedIdentity(t, g, "bob")

	var created map[string]string
	rec := doHook(t, g, "/api/hooks/comment", testHookSecret, "", CommentHookRequest{
		PostID: "post-1", PostAuthorID: bob.ID, AuthorID: ada.ID, Content: "nice post",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created["comment_id"])

	var notifs []NotificationResponse
	doJSON(t, g, http.MethodGet, "/api/notifications", bobToken, nil, &notifs)
	require.Len(t, notifs, 1)
	assert.Equal(t, store.NotificationComment, notifs[0].Type)

	t.Run("delete cascade", func(t *testing.T) {
		rec := doHook(t, g, "/api/hooks/comment-deleted", testHookSecret, "", CommentDeletedHookRequest{
			CommentID: created["comment_id"],
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]int
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp["deleted"])
	})

	t.Run("delete unknown comment", func(t *testing.T) {
		rec := doHook(t, g, "/api/hooks/comment-deleted", testHookSecret, "", CommentDeletedHookRequest{
			CommentID: "missing",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	g := newTestGateway(t)
	_, opsToken := seedIdentity(t, g, "ops")
	_, adaToken := seedIdentity(t, g, "ada")

	t.Run("non-admin forbidden", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodGet, "/api/admin/identities", adaToken, nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("create identity", func(t *testing.T) {
		var resp IdentityResponse
		rec := doJSON(t, g, http.MethodPost, "/api/admin/identities", opsToken, CreateIdentityRequest{
			Handle: "eve", Password: "a long password", DisplayName: "Eve",
		}, &resp)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "eve", resp.Handle)

		// Duplicate handle
		rec = doJSON(t, g, http.MethodPost, "/api/admin/identities", opsToken, CreateIdentityRequest{
			Handle: "eve", Password: "a long password",
		}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		// The new identity can log in
		rec = doJSON(t, g, http.MethodPost, "/api/login", "", LoginRequest{
			Handle: "eve", Password: "a long password",
		}, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("short password rejected", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodPost, "/api/admin/identities", opsToken, CreateIdentityRequest{
			Handle: "shorty", Password: "short",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list identities", func(t *testing.T) {
		var resp []IdentityResponse
		rec := doJSON(t, g, http.MethodGet, "/api/admin/identities", opsToken, nil, &resp)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.GreaterOrEqual(t, len(resp), 2)
	})

	t.Run("mint token", func(t *testing.T) {
		var resp map[string]string
		rec := doJSON(t, g, http.MethodPost, "/api/admin/tokens", opsToken, MintTokenRequest{
			IdentityID: "id-ada", TTL: "1h",
		}, &resp)
		require.Equal(t, http.StatusOK, rec.Code)

		id, err := g.verifier.Verify(resp["token"])
		require.NoError(t, err)
		assert.Equal(t, "id-ada", id)
	})

	t.Run("mint token unknown identity", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodPost, "/api/admin/tokens", opsToken, MintTokenRequest{
			IdentityID: "ghost",
		}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("broadcast", func(t *testing.T) {
		rec := doJSON(t, g, http.MethodPost, "/api/admin/broadcast", opsToken, BroadcastRequest{
			Message: "maintenance at noon",
		}, nil)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	g := newTestGateway(t)

	rec := doJSON(t, g, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, g, http.MethodGet, "/health/ready", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}
