package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
	applogger "RiskPulse/pkg/logger"
)

type gaugeMetrics struct {
	clients int
}

func (m *gaugeMetrics) RecordTick(float64)           {}
func (m *gaugeMetrics) RecordAlert(string)           {}
func (m *gaugeMetrics) RecordRegime(string, float64) {}
func (m *gaugeMetrics) RecordPublish(string, error)  {}
func (m *gaugeMetrics) SetStreamClients(n int)       { m.clients = n }
func (m *gaugeMetrics) RecordError(string)           {}

func newTestHub(t *testing.T) (*Hub, *gaugeMetrics) {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	m := &gaugeMetrics{}
	return NewHub(l, m), m
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Timestamp: time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC),
		Phase:     models.PhaseCalm,
		Regime:    models.RegimeRiskOn,
		Ceiling:   1.0,
	}
}

func TestHubPublishFansOutToClients(t *testing.T) {
	hub, _ := newTestHub(t)
	c1 := &Client{hub: hub, send: make(chan []byte, 4)}
	c2 := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register(c1)
	hub.register(c2)

	require.NoError(t, hub.Publish(context.Background(), testSnapshot()))

	for _, c := range []*Client{c1, c2} {
		frame := <-c.send
		var env struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(frame, &env))
		assert.Equal(t, "snapshot", env.Event)

		var snap models.Snapshot
		require.NoError(t, json.Unmarshal(env.Data, &snap))
		assert.Equal(t, models.PhaseCalm, snap.Phase)
	}
}

func TestHubSendsLatestFrameOnConnect(t *testing.T) {
	hub, m := newTestHub(t)
	require.NoError(t, hub.Publish(context.Background(), testSnapshot()))

	c := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register(c)
	assert.Equal(t, 1, m.clients)

	select {
	case frame := <-c.send:
		assert.Contains(t, string(frame), `"event":"snapshot"`)
	default:
		t.Fatal("expected the latest frame immediately after connect")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, m := newTestHub(t)
	slow := &Client{hub: hub, send: make(chan []byte, 1)}
	fast := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register(slow)
	hub.register(fast)
	assert.Equal(t, 2, m.clients)

	// Fill the slow client's buffer so the next publish cannot queue.
	slow.send <- []byte("stale")
	require.NoError(t, hub.Publish(context.Background(), testSnapshot()))

	assert.Equal(t, 1, m.clients)
	// Dropped clients get their send channel closed.
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)

	// The healthy client still received the frame.
	assert.Len(t, fast.send, 1)
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub, m := newTestHub(t)
	c := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register(c)
	hub.unregister(c)
	hub.unregister(c)
	assert.Equal(t, 0, m.clients)
}

func TestHubCloseDisconnectsAndDiscardsPublishes(t *testing.T) {
	hub, m := newTestHub(t)
	c := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register(c)

	require.NoError(t, hub.Close())
	assert.Equal(t, 0, m.clients)
	_, open := <-c.send
	assert.False(t, open)

	require.NoError(t, hub.Publish(context.Background(), testSnapshot()))
	require.NoError(t, hub.Close())

	// Connects after close are refused.
	late := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register(late)
	_, open = <-late.send
	assert.False(t, open)
}
