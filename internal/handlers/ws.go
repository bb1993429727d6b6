// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/jackpot/internal/auth"
	"github.com/jason-s-yu/jackpot/internal/game"
	"github.com/jason-s-yu/jackpot/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the optional WebSocket subprotocol spoken by clients.
const Subprotocol = "jackpot"

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
	readLimit    = 16 << 10
)

// WSHandler upgrades a request to the round protocol. A session token may be
// supplied as ?token=, a bearer header or the auth_token cookie; a token that
// fails verification closes the socket, no token yields an anonymous session.
func WSHandler(logger *logrus.Logger, coord *game.Coordinator, hub *Hub, signer *auth.Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")
		c.SetReadLimit(readLimit)

		if len(r.Header.Values("Sec-WebSocket-Protocol")) > 0 && c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the jackpot subprotocol")
			return
		}

		var subject string
		if token := sessionToken(r); token != "" {
			if signer == nil {
				c.Close(InvalidAuthTokenError, "tokens are not accepted")
				return
			}
			subject, err = signer.AuthenticateJWT(token)
			if err != nil {
				logger.WithError(err).WithField("remote", remoteAddr).Warn("Rejected session token")
				c.Close(InvalidAuthTokenError, "invalid auth token")
				return
			}
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := newConnection(uuid.NewString(), remoteAddr, subject, cancel)
		hub.Register(conn)
		middleware.LogWebSocketConnect(logger, conn.ID, remoteAddr, subject != "")

		go writePump(ctx, c, conn, logger)
		readErr := readPump(ctx, c, coord, conn, logger)

		coord.Disconnect(conn.ID)
		hub.Unregister(conn.ID)
		middleware.LogWebSocketDisconnect(logger, conn.ID, remoteAddr, readErr)
	}
}

// readPump feeds inbound text frames to the coordinator until the socket
// closes. A normal closure returns nil.
func readPump(ctx context.Context, c *websocket.Conn, coord *game.Coordinator, conn *Connection, logger *logrus.Logger) error {
	sess := game.Session{ConnID: conn.ID, Subject: conn.Subject}
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from %s. Ignoring.", typ, conn.ID)
			continue
		}
		if err := coord.Dispatch(sess, msg); errors.Is(err, game.ErrClosed) {
			c.Close(ServerShuttingDown, "server shutting down")
			return nil
		}
	}
}

// writePump drains the outbox of conn to the socket and keeps it alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.Close(websocket.StatusGoingAway, "write pump stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("Failed to marshal outgoing %s event for %s: %v", ev.Type, conn.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write to websocket %s: %v", conn.ID, err)
				conn.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Debugf("Ping failed for %s: %v", conn.ID, err)
				conn.Cancel()
				return
			}
		}
	}
}
