package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/assogest/assogest/internal/httputil"
)

const (
	feedWriteWait = 10 * time.Second
	feedPingEvery = 30 * time.Second
)

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS middleware for the rest
	// of the API; the feed carries no mutations, so the upgrade itself is
	// allowed from any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// sessionFeed streams a session's presence events to a staff dashboard
// over a websocket. Events stop when the session's kiosk closes or the
// client goes away.
func (h *handler) sessionFeed(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := h.app.Activite.GetSession(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}

	sub := h.app.Hub.Subscribe(id)
	if sub == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, http.ErrServerClosed)
		return
	}
	defer sub.Close()

	conn, err := feedUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.Debug().Err(err).Int64("session_id", id).Msg("feed upgrade failed")
		return
	}
	defer conn.Close()

	// Reader goroutine: the dashboard sends nothing, but reading is what
	// surfaces the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingEvery)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed closed"), time.Now().Add(feedWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
