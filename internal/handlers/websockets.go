package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"extruder_monitor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Live telemetry stream
// @Description  Upgrades to a websocket. Sends a "state" envelope first, then every live envelope
// @Description  (serial-data, init-line, init-block, header-detected, data-row, parse-warning, serial-error,
// @Description  connection, session-reset, init-block-cleared) plus a periodic "state" snapshot.
// @Tags         telemetry
// @Param        interval     query  string  false  "Snapshot period, e.g. 2s (max 10s)"
// @Param        interval_ms  query  int     false  "Snapshot period in ms (max 10000)"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	// Subscribe before the first snapshot so nothing emitted in between is lost.
	var live <-chan service.Envelope
	if h.services.Stream != nil {
		ch, unsubscribe := h.services.Stream.Subscribe()
		defer unsubscribe()
		live = ch
	}

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	if err := h.sendState(ctx, conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case env, ok := <-live:
			if !ok {
				// The hub dropped us for falling behind.
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscriber too slow"))
				return
			}
			if err := writeEnvelope(conn, env); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err, "type", env.Type)
				}
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendState(ctx, conn); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err, "type", service.TypeState)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return defaultInterval
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

func writeEnvelope(conn *websocket.Conn, env service.Envelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}

// sendState fetches and writes the current state snapshot.
func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn) error {
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_get_state_failed", "err", err)
		}
		return err
	}
	return writeEnvelope(conn, service.Envelope{
		Type:       service.TypeState,
		Data:       st,
		Phase:      st.Phase,
		OccurredAt: time.Now().UTC(),
	})
}
