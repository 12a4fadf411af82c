package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	applogger "RiskPulse/pkg/logger"
)

// Envelope wraps every frame sent to stream clients.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub fans snapshot frames out to connected websocket clients. It implements
// the snapshot bus, so the broadcaster treats it like any other sink.
type Hub struct {
	logger  *applogger.Logger
	metrics drepo.Metrics

	mu      sync.RWMutex
	clients map[*Client]struct{}
	latest  []byte // last marshaled frame, sent to clients on connect

	closed bool
}

func NewHub(logger *applogger.Logger, metrics drepo.Metrics) *Hub {
	return &Hub{
		logger:  logger,
		metrics: metrics,
		clients: make(map[*Client]struct{}),
	}
}

var _ drepo.SnapshotBus = (*Hub)(nil)

// Publish marshals the snapshot once and queues it on every client. Clients
// that cannot keep up are dropped rather than allowed to block the fan-out.
func (h *Hub) Publish(_ context.Context, snap *models.Snapshot) error {
	frame, err := json.Marshal(Envelope{Event: "snapshot", Data: snap})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.latest = frame

	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			h.dropLocked(c)
			h.logger.Warn("stream client dropped, send buffer full")
		}
	}
	return nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.send)
		return
	}
	h.clients[c] = struct{}{}
	if h.latest != nil {
		// New clients get the current state without waiting a full interval.
		select {
		case c.send <- h.latest:
		default:
		}
	}
	h.metrics.SetStreamClients(len(h.clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.metrics.SetStreamClients(len(h.clients))
}

// Close disconnects all clients. Further publishes are discarded.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.metrics.SetStreamClients(0)
	return nil
}
