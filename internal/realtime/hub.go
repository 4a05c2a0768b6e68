package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxFrameSize      = 4096
	defaultSendBuffer = 32
)

type DiscussionFinder interface {
	Get(ctx context.Context, id string) (domain.Discussion, error)
}

// Hub tracks the sockets connected to this process and the rooms they joined.
type Hub struct {
	discussions DiscussionFinder
	logger      *slog.Logger
	sendBuffer  int
	upgrader    websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

type HubOptions struct {
	Discussions DiscussionFinder
	Logger      *slog.Logger
	// AllowedOrigins limits browser origins. Empty means same-origin only.
	AllowedOrigins []string
	SendBuffer     int
}

func NewHub(opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sendBuffer := opts.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	h := &Hub{
		discussions: opts.Discussions,
		logger:      logger,
		sendBuffer:  sendBuffer,
		rooms:       make(map[string]map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(opts.AllowedOrigins) > 0 {
		allowed := make(map[string]bool, len(opts.AllowedOrigins))
		for _, o := range opts.AllowedOrigins {
			allowed[strings.TrimRight(o, "/")] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		}
	}
	return h
}

// Publish delivers an event to the sockets in room held by this process.
func (h *Hub) Publish(_ context.Context, room, event string, data any) error {
	payload, err := encodeFrame(room, event, data)
	if err != nil {
		return err
	}
	h.deliver(room, payload)
	return nil
}

func (h *Hub) deliver(room string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for c := range h.rooms[room] {
		if c.enqueue(payload) {
			n++
			continue
		}
		h.logger.Warn("realtime: send buffer full, frame dropped", "room", room, "client_id", c.id, "user_id", c.userID)
	}
	return n
}

// RoomSize reports how many local sockets are subscribed to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ServeWS upgrades the request and serves the socket for an already
// authenticated user until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("realtime: upgrade failed", "err", err, "user_id", userID)
		return
	}

	c := &client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, h.sendBuffer),
		rooms:  make(map[string]struct{}),
	}
	h.logger.Debug("realtime: client connected", "client_id", c.id, "user_id", userID)

	go c.writePump()
	h.readPump(r.Context(), c)

	h.remove(c)
	h.logger.Debug("realtime: client disconnected", "client_id", c.id, "user_id", userID)
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("realtime: read failed", "err", err, "client_id", c.id)
			}
			return
		}
		h.handle(ctx, c, f)
	}
}

func (h *Hub) handle(ctx context.Context, c *client, f Frame) {
	var body struct {
		UserID       string `json:"userId"`
		DiscussionID string `json:"discussionId"`
	}
	if len(f.Data) > 0 {
		if err := json.Unmarshal(f.Data, &body); err != nil {
			h.reply(c, eventError, "", map[string]string{"message": "invalid payload"})
			return
		}
	}

	switch f.Event {
	case eventJoinNotifications:
		if body.UserID != c.userID {
			h.reply(c, eventError, "", map[string]string{"message": "You can only join your own notifications"})
			return
		}
		h.join(c, NotificationsRoom(c.userID))
	case eventLeaveNotifications:
		h.leave(c, NotificationsRoom(c.userID))
	case eventJoinDiscussion:
		if err := h.checkDiscussion(ctx, body.DiscussionID); err != nil {
			msg := "Discussion not found"
			if !errors.Is(err, domain.ErrNotFound) {
				h.logger.Error("realtime: discussion lookup failed", "err", err, "discussion_id", body.DiscussionID)
				msg = "Could not join discussion"
			}
			h.reply(c, eventError, "", map[string]string{"message": msg})
			return
		}
		h.join(c, DiscussionRoom(body.DiscussionID))
	case eventLeaveDiscussion:
		if body.DiscussionID != "" {
			h.leave(c, DiscussionRoom(body.DiscussionID))
		}
	default:
		h.reply(c, eventError, "", map[string]string{"message": "unknown event"})
	}
}

func (h *Hub) checkDiscussion(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrNotFound
	}
	if h.discussions == nil {
		return errors.New("discussions unavailable")
	}
	_, err := h.discussions.Get(ctx, id)
	return err
}

func (h *Hub) join(c *client, room string) {
	h.mu.Lock()
	members := h.rooms[room]
	if members == nil {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
	h.mu.Unlock()

	h.reply(c, eventJoined, room, nil)
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	h.unsubscribeLocked(c, room)
	h.mu.Unlock()

	h.reply(c, eventLeft, room, nil)
}

func (h *Hub) unsubscribeLocked(c *client, room string) {
	delete(c.rooms, room)
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// remove drops c from every room and stops its writer. Holding the write lock
// while closing send keeps deliver from writing to a closed channel.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	for room := range c.rooms {
		h.unsubscribeLocked(c, room)
	}
	close(c.send)
	h.mu.Unlock()
}

func (h *Hub) reply(c *client, event, room string, data any) {
	payload, err := encodeFrame(room, event, data)
	if err != nil {
		h.logger.Error("realtime: encode reply failed", "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !c.enqueue(payload) {
		h.logger.Warn("realtime: send buffer full, reply dropped", "client_id", c.id, "event", event)
	}
}
