package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const logWriteTimeout = 5 * time.Second

// StreamLogs upgrades to a WebSocket and forwards every structured log line as a text message
// until the client goes away. originPatterns are host patterns accepted cross-origin.
// It is a plain net/http handler: the upgrade hijacks the connection, which gin's writer refuses.
func (h *Handler) StreamLogs(originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.logs == nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "log streaming disabled"})
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			h.logger.Warn(r.Context(), "log stream upgrade failed", "error", err)
			return
		}
		defer conn.CloseNow()

		lines, cancel := h.logs.Subscribe()
		defer cancel()

		// Reads are discarded; ctx ends when the peer closes
		ctx := conn.CloseRead(context.WithoutCancel(r.Context()))
		h.logger.Info(ctx, "log stream client connected", "remote_addr", r.RemoteAddr)

		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "log stream closed")
					return
				}
				if err := writeLine(ctx, conn, line); err != nil {
					return
				}
			}
		}
	}
}

func writeLine(ctx context.Context, conn *websocket.Conn, line []byte) error {
	ctx, cancel := context.WithTimeout(ctx, logWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, bytes.TrimRight(line, "\n"))
}

// originHostPatterns turns allowed CORS origins into the host patterns the WebSocket handshake checks
func originHostPatterns(allowedOrigins []string) []string {
	patterns := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if _, rest, ok := strings.Cut(origin, "://"); ok {
			if strings.Contains(rest, "*") {
				patterns = append(patterns, rest)
				continue
			}
			if u, err := url.Parse(origin); err == nil && u.Host != "" {
				patterns = append(patterns, u.Host)
			}
			continue
		}
		if origin != "" {
			patterns = append(patterns, origin)
		}
	}
	return patterns
}
