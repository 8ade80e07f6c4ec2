// Package bus provides the room-scoped notification fan-out: every question
// is a room, WebSocket connections subscribe to the rooms of the questions
// they watch, and state-change events are delivered to every subscriber
// best effort.
package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/askbird/askbird/internal/domain"
	"github.com/askbird/askbird/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// envelope is the wire shape of every event pushed to clients.
type envelope struct {
	Event string       `json:"event"`
	Data  domain.Event `json:"data"`
}

// Conn is one WebSocket connection tracked by the hub. A connection may sit
// in any number of rooms at once; its ID is what exclude-self publishing
// matches against.
type Conn struct {
	ID         uuid.UUID
	connection *websocket.Conn
	writer     *clientWriter
	rooms      map[uuid.UUID]struct{}
}

// Send enqueues a frame on the connection's writer without blocking.
// Returns false when the buffer is full and the frame was dropped.
func (c *Conn) Send(payload []byte) bool {
	select {
	case c.writer.sendChannel <- payload:
		return true
	default:
		return false
	}
}

type room map[uuid.UUID]*Conn

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type subscribeCmd struct {
	baseHubCmd
	conn         *Conn
	questionID   uuid.UUID
	errorChannel chan error
}

type unsubscribeCmd struct {
	baseHubCmd
	conn       *Conn
	questionID uuid.UUID
}

type disconnectCmd struct {
	baseHubCmd
	conn *Conn
}

type publishCmd struct {
	baseHubCmd
	questionID uuid.UUID
	eventName  string
	payload    []byte
	exclude    uuid.UUID
}

type clientCountCmd struct {
	baseHubCmd
	questionID   uuid.UUID
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub is the room registry. A single goroutine owns the rooms and clients
// maps and processes commands in arrival order, so per-room delivery order
// matches publish order and no map is ever shared.
type Hub struct {
	cmdCh             chan hubCmd
	clock             clockwork.Clock
	rooms             map[uuid.UUID]room
	clients           map[uuid.UUID]*Conn
	maxClientsPerRoom int
	done              chan struct{}
}

// NewHub starts the hub actor. maxClientsPerRoom bounds room size; zero
// means unlimited.
func NewHub(clock clockwork.Clock, maxClientsPerRoom int) *Hub {
	h := &Hub{
		cmdCh:             make(chan hubCmd, 256),
		clock:             clock,
		rooms:             make(map[uuid.UUID]room),
		clients:           make(map[uuid.UUID]*Conn),
		maxClientsPerRoom: maxClientsPerRoom,
		done:              make(chan struct{}),
	}
	go h.run()
	return h
}

var _ domain.EventSink = (*Hub)(nil)

// Connect wraps a raw WebSocket connection for hub tracking. The returned
// Conn is not in any room until Subscribe.
func (h *Hub) Connect(connection *websocket.Conn) *Conn {
	return &Conn{
		ID:         uuid.New(),
		connection: connection,
		writer:     newClientWriter(connection, h.clock),
		rooms:      make(map[uuid.UUID]struct{}),
	}
}

// Subscribe adds the connection to a question's room. Subscribing to a room
// the connection is already in is a no-op.
func (h *Hub) Subscribe(conn *Conn, questionID uuid.UUID) error {
	errCh := make(chan error, 1)
	h.cmdCh <- subscribeCmd{conn: conn, questionID: questionID, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("subscribe command timed out after %v", commandTimeout)
	}
}

// Unsubscribe removes the connection from a question's room. The connection
// stays alive and keeps its other subscriptions.
func (h *Hub) Unsubscribe(conn *Conn, questionID uuid.UUID) {
	h.cmdCh <- unsubscribeCmd{conn: conn, questionID: questionID}
}

// Disconnect removes the connection from every room and stops its writer.
func (h *Hub) Disconnect(conn *Conn) {
	h.cmdCh <- disconnectCmd{conn: conn}
}

// Publish fans the event out to the question's room. exclude names a
// connection to skip (uuid.Nil for none). Publish never blocks on slow
// clients and never reports delivery failures.
func (h *Hub) Publish(questionID uuid.UUID, event domain.Event, exclude uuid.UUID) {
	payload, err := json.Marshal(envelope{Event: event.EventName(), Data: event})
	if err != nil {
		slog.Error("Failed to marshal event", "event", event.EventName(), "error", err)
		return
	}
	h.cmdCh <- publishCmd{questionID: questionID, eventName: event.EventName(), payload: payload, exclude: exclude}
}

// PublishRaw delivers an already-encoded envelope to the question's room.
// Used for events relayed from other instances.
func (h *Hub) PublishRaw(questionID uuid.UUID, eventName string, payload []byte) {
	h.cmdCh <- publishCmd{questionID: questionID, eventName: eventName, payload: payload, exclude: uuid.Nil}
}

// ClientCount returns the number of connections in a question's room.
// Returns -1 if the command times out.
func (h *Hub) ClientCount(questionID uuid.UUID) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{questionID: questionID, replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts the hub down, closing every client connection. Blocks until the
// actor goroutine has exited or the timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded, forcing exit", "timeout", stopTimeout)
		close(h.done)
	}
}

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			h.closeAllClients("hub failure")
		}
	}()
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case subscribeCmd:
			h.handleSubscribe(c)
		case unsubscribeCmd:
			h.handleUnsubscribe(c.conn, c.questionID)
		case disconnectCmd:
			h.handleDisconnect(c.conn)
		case publishCmd:
			h.handlePublish(c)
		case clientCountCmd:
			c.replyChannel <- len(h.rooms[c.questionID])
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleSubscribe(c subscribeCmd) {
	members, exists := h.rooms[c.questionID]
	if !exists {
		members = make(room)
		h.rooms[c.questionID] = members
	}

	if _, already := members[c.conn.ID]; already {
		c.errorChannel <- nil
		return
	}

	if h.maxClientsPerRoom > 0 && len(members) >= h.maxClientsPerRoom {
		metrics.HubRejectedSubscriptions.Inc()
		slog.Warn("Rejecting subscription: room full",
			"question_id", c.questionID.String(),
			"max_clients", h.maxClientsPerRoom)
		c.errorChannel <- fmt.Errorf("room is full (%d clients)", h.maxClientsPerRoom)
		return
	}

	if _, known := h.clients[c.conn.ID]; !known {
		h.clients[c.conn.ID] = c.conn
		metrics.HubConnectedClients.Set(float64(len(h.clients)))
	}

	members[c.conn.ID] = c.conn
	c.conn.rooms[c.questionID] = struct{}{}
	metrics.HubActiveRooms.Set(float64(len(h.rooms)))

	slog.Debug("Client subscribed",
		"question_id", c.questionID.String(),
		"conn_id", c.conn.ID.String(),
		"room_size", len(members))
	c.errorChannel <- nil
}

func (h *Hub) handleUnsubscribe(conn *Conn, questionID uuid.UUID) {
	members, exists := h.rooms[questionID]
	if !exists {
		return
	}
	if _, member := members[conn.ID]; !member {
		return
	}

	delete(members, conn.ID)
	delete(conn.rooms, questionID)

	if len(members) == 0 {
		delete(h.rooms, questionID)
		metrics.HubActiveRooms.Set(float64(len(h.rooms)))
	}
}

func (h *Hub) handleDisconnect(conn *Conn) {
	for questionID := range conn.rooms {
		h.handleUnsubscribe(conn, questionID)
	}

	if _, known := h.clients[conn.ID]; known {
		delete(h.clients, conn.ID)
		metrics.HubConnectedClients.Set(float64(len(h.clients)))
	}

	conn.writer.stop()
}

func (h *Hub) handlePublish(c publishCmd) {
	members, exists := h.rooms[c.questionID]
	if !exists {
		return
	}

	metrics.HubEventsPublished.WithLabelValues(c.eventName).Inc()

	var slow []*Conn
	for id, conn := range members {
		if id == c.exclude {
			continue
		}
		select {
		case conn.writer.sendChannel <- c.payload:
		default:
			slow = append(slow, conn)
		}
	}

	// A full send buffer means the client cannot keep up; dropping the
	// connection beats stalling the room.
	for _, conn := range slow {
		slog.Warn("Disconnecting slow client",
			"question_id", c.questionID.String(),
			"conn_id", conn.ID.String())
		metrics.HubSlowClientsEvicted.Inc()
		h.handleDisconnect(conn)
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "rooms", len(h.rooms), "clients", len(h.clients))
	h.closeAllClients("Server shutting down")
}

func (h *Hub) closeAllClients(reason string) {
	for id, conn := range h.clients {
		conn.writer.stopGraceful(reason)
		delete(h.clients, id)
	}
	h.rooms = make(map[uuid.UUID]room)
	metrics.HubActiveRooms.Set(0)
	metrics.HubConnectedClients.Set(0)
}
