package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
)

type countingGauge struct {
	last chan int
}

func (g *countingGauge) RecordWebsocketClients(count int) {
	select {
	case g.last <- count:
	default:
	}
}

func startHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return hub, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestSubscribeAndReceiveScenarioRun(t *testing.T) {
	hub, conn := startHub(t)

	require.NoError(t, conn.WriteJSON(SubscriptionMessage{Type: "subscribe", Portfolios: []string{"p-1"}, ID: "req-1"}))
	confirm := readMessage(t, conn)
	assert.Equal(t, "subscription_confirmed", confirm.Type)
	assert.Equal(t, "req-1", confirm.ID)
	assert.Equal(t, 1, hub.SubscriberCount("p-1"))

	// runs for other portfolios are not delivered
	hub.PublishScenarioRun(&models.ScenarioRun{ID: "other", PortfolioID: "p-2"})

	run := models.NewScenarioRun("run-1", "p-1", 16.02,
		[]models.MarketCondition{{PriceChange: 0.1}}, []float64{21.5})
	hub.PublishScenarioRun(run)

	msg := readMessage(t, conn)
	assert.Equal(t, "scenario_run", msg.Type)
	assert.Equal(t, "p-1", msg.Portfolio)

	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-1", data["id"])
	assert.Equal(t, 16.02, data["base_value"])
}

func TestUnsubscribeAndPing(t *testing.T) {
	hub, conn := startHub(t)

	require.NoError(t, conn.WriteJSON(SubscriptionMessage{Type: "subscribe", Portfolios: []string{"a", "b"}}))
	assert.Equal(t, "subscription_confirmed", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(SubscriptionMessage{Type: "unsubscribe", Portfolios: []string{"a"}}))
	assert.Equal(t, "unsubscription_confirmed", readMessage(t, conn).Type)
	assert.Equal(t, 0, hub.SubscriberCount("a"))
	assert.Equal(t, 1, hub.SubscriberCount("b"))

	require.NoError(t, conn.WriteJSON(SubscriptionMessage{Type: "ping", ID: "p"}))
	pong := readMessage(t, conn)
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, "p", pong.ID)

	require.NoError(t, conn.WriteJSON(SubscriptionMessage{Type: "bogus"}))
	assert.Equal(t, "error", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, "Invalid message format", readMessage(t, conn).Error)
}

func TestDisconnectRemovesSubscriptions(t *testing.T) {
	gauge := &countingGauge{last: make(chan int, 16)}
	hub := NewHub(gauge)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(SubscriptionMessage{Type: "subscribe", Portfolios: []string{"p"}}))
	assert.Equal(t, "subscription_confirmed", readMessage(t, conn).Type)
	assert.Equal(t, 1, <-gauge.last)

	conn.Close()

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 0 && hub.SubscriberCount("p") == 0
	}, 5*time.Second, 10*time.Millisecond)
}
