package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/speedwagon-io/xrgimon/internal/collector"
	"github.com/speedwagon-io/xrgimon/internal/dashboard"
	"github.com/speedwagon-io/xrgimon/internal/display"
	"github.com/speedwagon-io/xrgimon/internal/history"
	"github.com/speedwagon-io/xrgimon/internal/lib/logger/sl"
	"github.com/speedwagon-io/xrgimon/internal/model"
	"github.com/speedwagon-io/xrgimon/internal/timestamp"
	"github.com/speedwagon-io/xrgimon/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireMessage struct {
	Type     string          `json:"type"`
	DeviceID string          `json:"device_id"`
	Data     json.RawMessage `json:"data"`
	Error    string          `json:"error"`
}

func dialHub(t *testing.T, fetcher collector.Fetcher) (*Hub, *websocket.Conn) {
	t.Helper()

	norm := timestamp.New(time.UTC)
	hub := NewHub(
		sl.Discard(),
		testFleet(),
		fetcher,
		window.NewResolver(time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC), time.UTC),
		display.NewNormalizer(norm),
	)

	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return hub, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_SelectPushesDashboard(t *testing.T) {
	fetcher := &stubFetcher{raw: model.Telemetry{display.FieldPowerProduction: 2000.0}}
	_, conn := dialHub(t, fetcher)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageSelect, DeviceID: "xrgi-1", Preset: "last7days"}))

	msg := readMessage(t, conn)
	require.Equal(t, MessageDashboard, msg.Type)
	assert.Equal(t, "xrgi-1", msg.DeviceID)

	var view dashboard.View
	require.NoError(t, json.Unmarshal(msg.Data, &view))
	assert.Equal(t, uint64(1), view.Generation)
	assert.False(t, view.Loading)
	assert.Equal(t, "2 kWh", view.Cards[0].Value)
}

func TestHub_RejectsBadSelection(t *testing.T) {
	fetcher := &stubFetcher{}
	_, conn := dialHub(t, fetcher)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageSelect, DeviceID: "ghost"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageError, msg.Type)
	assert.Equal(t, "unknown device", msg.Error)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageSelect, DeviceID: "xrgi-1", Preset: "year", Year: "abc"}))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageError, msg.Type)
	assert.Contains(t, msg.Error, "invalid")

	assert.Zero(t, fetcher.calls())
}

func TestHub_BroadcastsRefresh(t *testing.T) {
	hub, conn := dialHub(t, &stubFetcher{})

	hub.NotifyRefresh(collector.Refresh{
		Key:       "xrgi-1#energy",
		Count:     4,
		Selection: history.Selection{Selected: true},
	})

	msg := readMessage(t, conn)
	require.Equal(t, MessageHistory, msg.Type)

	var refresh collector.Refresh
	require.NoError(t, json.Unmarshal(msg.Data, &refresh))
	assert.Equal(t, "xrgi-1#energy", refresh.Key)
	assert.Equal(t, 4, refresh.Count)
}

func TestHub_PingAndDisconnect(t *testing.T) {
	hub, conn := dialHub(t, &stubFetcher{})

	require.NoError(t, conn.WriteJSON(Message{Type: MessagePing}))
	assert.Equal(t, MessagePong, readMessage(t, conn).Type)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestClient_DashboardSurvivesFullBuffer(t *testing.T) {
	c := &client{
		id:      "c1",
		send:    make(chan Message, sendBuffer),
		pending: make(map[string]Message),
		wake:    make(chan struct{}, 1),
	}
	for i := 0; i < sendBuffer; i++ {
		c.enqueue(sl.Discard(), Message{Type: MessageHistory})
	}
	c.enqueue(sl.Discard(), Message{Type: MessageHistory})
	assert.Len(t, c.send, sendBuffer)

	c.pushDashboard(Message{Type: MessageDashboard, DeviceID: "xrgi-1", Data: dashboard.View{Generation: 1}})
	c.pushDashboard(Message{Type: MessageDashboard, DeviceID: "xrgi-2", Data: dashboard.View{Generation: 1}})
	c.pushDashboard(Message{Type: MessageDashboard, DeviceID: "xrgi-1", Data: dashboard.View{Generation: 2}})

	select {
	case <-c.wake:
	default:
		t.Fatal("writer was not woken")
	}

	got := c.takeDashboards()
	require.Len(t, got, 2)
	assert.Equal(t, "xrgi-1", got[0].DeviceID)
	assert.Equal(t, uint64(2), got[0].Data.(dashboard.View).Generation)
	assert.Equal(t, "xrgi-2", got[1].DeviceID)
	assert.Empty(t, c.takeDashboards())
}
