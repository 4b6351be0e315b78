// Package realtime implements the Realtime Bus (§4.L): an authenticated,
// room-based pub/sub surface for WebSocket clients, backed by Redis so
// room membership works correctly across multiple process instances.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/vigilia-platform/iotcore/internal/logging"
)

const (
	channelPrefix  = "realtime:"
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Authenticator validates the bearer token a client presents on connect.
// A rejected connection carries no presence: the upgrade never completes.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (bool, error)
}

// message is the wire shape for every event carried on the bus.
type message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Bus is the shared manager: one per process, holding local WebSocket
// connections and fanning out Redis-published events to whichever of them
// have joined the target room.
type Bus struct {
	rdb      *redis.Client
	auth     Authenticator
	upgrader websocket.Upgrader
	log      *logging.Logger

	mu         sync.RWMutex
	rooms      map[string]map[*client]struct{}
	roomCancel map[string]context.CancelFunc
}

// New constructs a Bus. checkOrigin, if nil, allows every origin — the
// core sits behind a reverse proxy that is expected to enforce this.
func New(rdb *redis.Client, auth Authenticator, checkOrigin func(r *http.Request) bool, log *logging.Logger) *Bus {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Bus{
		rdb:  rdb,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		log:        log.WithComponent("realtime"),
		rooms:      make(map[string]map[*client]struct{}),
		roomCancel: make(map[string]context.CancelFunc),
	}
}

func channelName(room string) string { return channelPrefix + room }

// Publish marshals {event,payload} and hands it to Redis; every process
// instance with a local subscriber for room, including this one, delivers
// it to its WebSocket clients.
func (b *Bus) Publish(ctx context.Context, room, event string, payload any) error {
	data, err := json.Marshal(message{Event: event, Payload: payload})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelName(room), data).Err()
}

// ServeWS upgrades the connection, authenticates the bearer token, joins
// the default "authenticated" room, and runs the connection's pumps until
// it disconnects.
func (b *Bus) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	ok, err := b.auth.Authenticate(r.Context(), token)
	if err != nil || !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("realtime: websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		bus:   b,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		rooms: map[string]struct{}{},
		log:   b.log,
	}
	b.join(c, "authenticated")

	go c.writePump()
	c.readPump()
}

// join adds c to room's local membership, starting a Redis subscription
// for the room the first time any local client joins it.
func (b *Bus) join(c *client, room string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c.rooms[room] = struct{}{}
	members, ok := b.rooms[room]
	if !ok {
		members = make(map[*client]struct{})
		b.rooms[room] = members
		b.startRoomSubscription(room)
	}
	members[c] = struct{}{}
}

// leave removes c from room's local membership, stopping the Redis
// subscription once the last local client has left.
func (b *Bus) leave(c *client, room string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(c.rooms, room)
	members, ok := b.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(b.rooms, room)
		if cancel, ok := b.roomCancel[room]; ok {
			cancel()
			delete(b.roomCancel, room)
		}
	}
}

// leaveAll is called once a connection's pumps exit.
func (b *Bus) leaveAll(c *client) {
	b.mu.Lock()
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	b.mu.Unlock()

	for _, room := range rooms {
		b.leave(c, room)
	}
}

func (b *Bus) startRoomSubscription(room string) {
	ctx, cancel := context.WithCancel(context.Background())
	b.roomCancel[room] = cancel

	sub := b.rdb.Subscribe(ctx, channelName(room))
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.deliver(room, []byte(msg.Payload))
			}
		}
	}()
}

func (b *Bus) deliver(room string, data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for c := range b.rooms[room] {
		select {
		case c.send <- data:
		default:
			b.log.Warn("realtime: client send buffer full, dropping message", "room", room)
		}
	}
}

func bearerToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
