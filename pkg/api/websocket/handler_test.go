package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/layoutcounter/pkg/adapters/events/memory"
	"github.com/aescanero/layoutcounter/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleCounterStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	bus := memory.NewInMemoryEventBus()
	initial := domain.NewCounters().With(domain.KeyFooter, 2)

	h := NewHandler(bus, func(context.Context) (domain.Counters, error) { return initial, nil }, zap.NewNop())
	router := gin.New()
	router.GET("/ws", h.HandleCounterStream)

	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"header":0,"left":0,"article":0,"right":0,"footer":2}`, string(msg))

	require.Eventually(t, func() bool {
		return bus.Subscribers(domain.TopicCountersUpdated) == 1
	}, time.Second, 5*time.Millisecond)

	updated := initial.With(domain.KeyLeft, 7)
	require.NoError(t, bus.Publish(context.Background(), domain.TopicCountersUpdated, domain.CounterEvent{
		ID:       "ev-1",
		Key:      domain.KeyLeft,
		Delta:    7,
		Value:    7,
		Counters: updated,
	}))

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"header":0,"left":7,"article":0,"right":0,"footer":2}`, string(msg))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return bus.Subscribers(domain.TopicCountersUpdated) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
