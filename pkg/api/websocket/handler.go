package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aescanero/layoutcounter/pkg/domain"
	"github.com/aescanero/layoutcounter/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	bufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SnapshotFunc returns the current counter set
type SnapshotFunc func(ctx context.Context) (domain.Counters, error)

// Handler handles WebSocket connections
type Handler struct {
	eventBus ports.EventBus
	snapshot SnapshotFunc
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(eventBus ports.EventBus, snapshot SnapshotFunc, logger *zap.Logger) *Handler {
	return &Handler{
		eventBus: eventBus,
		snapshot: snapshot,
		logger:   logger,
	}
}

// HandleCounterStream streams the counter set to one client
func (h *Handler) HandleCounterStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established", zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates := make(chan domain.Counters, bufferSize)
	handler := func(ctx context.Context, event domain.CounterEvent) error {
		select {
		case updates <- event.Counters:
		case <-ctx.Done():
			return ctx.Err()
		default:
			h.logger.Warn("update channel full, dropping event", zap.String("event_id", event.ID))
		}
		return nil
	}

	if err := h.eventBus.Subscribe(ctx, domain.TopicCountersUpdated, handler); err != nil {
		h.logger.Error("failed to subscribe to counter events", zap.Error(err))
		return
	}

	if h.snapshot != nil {
		counters, err := h.snapshot(ctx)
		if err != nil {
			h.logger.Error("failed to load initial counters", zap.Error(err))
		} else if err := h.write(conn, counters); err != nil {
			return
		}
	}

	go h.readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case counters := <-updates:
			if err := h.write(conn, counters); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// write sends one counter set as a text message
func (h *Handler) write(conn *websocket.Conn, counters domain.Counters) error {
	data, err := json.Marshal(counters)
	if err != nil {
		h.logger.Error("failed to marshal counters", zap.Error(err))
		return nil
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug("failed to write message", zap.Error(err))
		return err
	}
	return nil
}

// readPump drains client frames so pongs and close frames are processed
func (h *Handler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
