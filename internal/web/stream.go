package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gpsbeacon/internal/gps"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The UI is served from the device itself; any origin on the local link is fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FixMessage is one websocket frame on /api/stream.
type FixMessage struct {
	Fix     gps.Snapshot `json:"fix"`
	Display gps.Display  `json:"display"`
}

func streamHandler(b *Broadcaster, status *Status, log *zap.SugaredLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b == nil {
			http.Error(w, "stream unavailable", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnw("websocket upgrade failed", "err", err)
			return
		}
		defer conn.Close()

		status.clientJoined()
		defer status.clientLeft()

		id, ch := b.Subscribe(4)
		defer b.Unsubscribe(id)

		// Reader: only used to notice the client going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						log.Debugw("websocket closed", "err", err)
					}
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case snap, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(FixMessage{Fix: snap, Display: snap.Display()}); err != nil {
					return
				}
			}
		}
	})
}
