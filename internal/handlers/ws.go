// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gridclash/arena/internal/arena"
	"github.com/gridclash/arena/internal/middleware"
)

// outbound is one queued server->client message before framing.
type outbound struct {
	name string
	data interface{}
}

// wsConn adapts a coder/websocket connection to the transport.Conn the core
// consumes. Sends are queued on a buffered channel drained by the write
// pump; a full queue drops the message rather than blocking the core.
type wsConn struct {
	log    *logrus.Logger
	out    chan outbound
	cancel context.CancelFunc
	once   sync.Once
}

func (w *wsConn) Send(name string, data interface{}) {
	select {
	case w.out <- outbound{name: name, data: data}:
	default:
		w.log.Warnf("wsConn: outbound queue full, dropped message %q", name)
	}
}

func (w *wsConn) Close(reason string) {
	// Cancelling the connection context stops both pumps; the handler's
	// deferred websocket close finishes the job.
	w.once.Do(w.cancel)
}

// ArenaWSHandler upgrades the HTTP connection to the arena websocket
// protocol and shuttles frames between the socket and the core.
func ArenaWSHandler(logger *logrus.Logger, core *arena.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"arena"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "arena" {
			c.Close(websocket.StatusPolicyViolation, "client must speak the arena subprotocol")
			return
		}
		middleware.WSConnected(logger, r)

		ctx, cancel := context.WithCancel(r.Context())
		conn := &wsConn{
			log:    logger,
			out:    make(chan outbound, 32),
			cancel: cancel,
		}

		core.HandleConnect(conn)

		go writePump(ctx, c, conn, logger)

		// Read pump blocks until the connection closes or errors.
		reason := readPump(ctx, c, conn, core, logger)

		cancel()
		core.HandleDisconnect(conn, reason)
		middleware.WSClosed(logger, r, reason)
	}
}

// readPump forwards inbound text frames to the core and returns the
// disconnect reason once the connection dies.
func readPump(ctx context.Context, c *websocket.Conn, conn *wsConn, core *arena.Core, logger *logrus.Logger) string {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			switch {
			case closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway:
				return "client closed"
			case strings.Contains(err.Error(), "context canceled"):
				return "server closed"
			default:
				logger.Warnf("websocket read error: %v (CloseStatus: %d)", err, closeStatus)
				return "transport error"
			}
		}
		if typ != websocket.MessageText {
			logger.Warnf("ignoring non-text message type %d", typ)
			continue
		}
		core.HandleMessage(conn, msg)
	}
}

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *wsConn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.out:
			frame, err := json.Marshal(struct {
				Type string      `json:"type"`
				Data interface{} `json:"data,omitempty"`
			}{Type: msg.name, Data: msg.data})
			if err != nil {
				logger.Warnf("failed to marshal outgoing %q: %v", msg.name, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				logger.Warnf("failed to write to websocket: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed, assuming disconnect: %v", err)
				return
			}
		}
	}
}
