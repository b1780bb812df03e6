// ABOUTME: WebSocket channel endpoint: one live connection per identity
// ABOUTME: Registers the session binding, relays typing frames, and drains pushed events

package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/devmesh/realtime-gateway/internal/session"
)

// clientFrame is what the client sends over the socket. Only the typing
// relay flows client→server; everything else goes through the JSON API.
type clientFrame struct {
	Event string `json:"event"`
	Data  struct {
		RecipientID string `json:"recipient_id"`
	} `json:"data"`
}

// socketToken extracts the JWT from the Authorization header or, for
// browser clients that cannot set headers on a WebSocket handshake, from
// the token query parameter.
func socketToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// handleSocket handles GET /api/ws. The connection is refused before any
// registration happens if the credential does not verify.
func (g *Gateway) handleSocket(w http.ResponseWriter, r *http.Request) {
	token := socketToken(r)
	if token == "" {
		g.sendJSONError(w, http.StatusUnauthorized, "missing token")
		return
	}
	identityID, err := g.verifier.Verify(token)
	if err != nil {
		g.sendJSONError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if _, err := g.store.GetIdentity(r.Context(), identityID); err != nil {
		g.sendJSONError(w, http.StatusUnauthorized, "identity not found")
		return
	}

	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.logger.Debug("websocket accept failed", "error", err)
		return
	}

	ch := session.NewConn()
	g.registry.Register(identityID, ch)

	// A disconnect removes the binding immediately, but only if it still
	// points at this channel; a newer login keeps its own binding.
	defer func() {
		g.registry.Unregister(identityID, ch)
		ch.Close()
		_ = ws.Close(websocket.StatusNormalClosure, "")
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go g.writeEvents(ctx, cancel, ws, ch)
	g.readFrames(ctx, ws, identityID)
}

// writeEvents drains the session channel onto the wire. A write failure
// tears the whole connection down.
func (g *Gateway) writeEvents(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, ch *session.Conn) {
	defer cancel()
	for {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, ws, ev); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readFrames processes client frames until the connection dies. Unknown
// events are ignored rather than fatal, so old clients stay connected.
func (g *Gateway) readFrames(ctx context.Context, ws *websocket.Conn, identityID string) {
	for {
		var frame clientFrame
		if err := wsjson.Read(ctx, ws, &frame); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				g.logger.Debug("websocket read failed", "identity_id", identityID, "error", err)
			}
			return
		}

		switch frame.Event {
		case session.EventTyping:
			if frame.Data.RecipientID != "" {
				g.messaging.Typing(identityID, frame.Data.RecipientID)
			}
		case session.EventStopTyping:
			if frame.Data.RecipientID != "" {
				g.messaging.StopTyping(identityID, frame.Data.RecipientID)
			}
		default:
			g.logger.Debug("ignoring unknown client frame", "event", frame.Event)
		}
	}
}
