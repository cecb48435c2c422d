package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"
	"tp_portal_backend/pkg/logger"
	"tp_portal_backend/pkg/monitoring"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
)

const (
	FrameSnapshot   = "SNAPSHOT"
	FramePopupShown = "POPUP_SHOWN"
	FrameMarkRead   = "MARK_READ"
	FrameError      = "ERROR"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type inboundMessage struct {
	Type string `json:"type"`
	Data struct {
		ID uint `json:"id"`
	} `json:"data"`
}

// Client is one WebSocket connection. A user may hold several, one per tab.
type Client struct {
	Hub     *NotificationHub
	Conn    *websocket.Conn
	Send    chan []byte
	Session model.Session
	Limiter *rate.Limiter

	stream *NotificationStream
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.stream.Close()
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.Session.UserID))
			}
			break
		}

		if !c.Limiter.Allow() {
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		c.handle(msg)
	}
}

// handle applies an inbound frame. The resulting change reaches this client
// through its own stream.
func (c *Client) handle(msg inboundMessage) {
	var err error
	switch msg.Type {
	case FramePopupShown:
		err = c.Hub.Notifications.MarkShown(c.ctx, c.Session, msg.Data.ID)
	case FrameMarkRead:
		err = c.Hub.Notifications.MarkRead(c.ctx, c.Session, msg.Data.ID)
	default:
		return
	}
	if err == nil {
		return
	}

	if util.StatusOf(err) == 0 {
		logger.Log.Error("WebSocket frame failed", zap.String("type", msg.Type), zap.Error(err))
	}
	c.push(WSMessage{Type: FrameError, Data: map[string]interface{}{"message": err.Error()}})
}

// streamPump turns stream snapshots into SNAPSHOT frames.
func (c *Client) streamPump() {
	for {
		snap, err := c.stream.Next(c.ctx)
		if err != nil {
			if !errors.Is(err, util.ErrStreamClosed) && !errors.Is(err, context.Canceled) {
				logger.Log.Error("Notification stream failed", zap.Uint("userId", c.Session.UserID), zap.Error(err))
				c.cancel()
			}
			return
		}
		c.push(WSMessage{Type: FrameSnapshot, Data: snap})
	}
}

func (c *Client) push(msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.Send <- payload:
	case <-c.ctx.Done():
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case <-c.ctx.Done():
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			// one frame per message: each is a complete JSON document
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if !c.Hub.accountActive(c.ctx, c.Session.UserID) {
				c.cancel()
				continue
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint]map[*Client]struct{}
	mu      sync.RWMutex
}

// AccountChecker reports whether a connected account may keep its stream.
type AccountChecker interface {
	CheckAccount(ctx context.Context, userID uint) error
}

// NotificationHub owns the live notification connections of this instance.
type NotificationHub struct {
	shards        [shardCount]*shard
	register      chan *Client
	unregister    chan *Client
	done          chan struct{}
	Notifications *NotificationService

	// Accounts, when set, is consulted every ping period. It closes streams
	// of accounts suspended through another instance.
	Accounts AccountChecker
}

func NewNotificationHub(notifications *NotificationService) *NotificationHub {
	h := &NotificationHub{
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		done:          make(chan struct{}),
		Notifications: notifications,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			clients: make(map[uint]map[*Client]struct{}),
		}
	}
	return h
}

func (h *NotificationHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

// Run tracks connections until ctx is done, then closes them all.
func (h *NotificationHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.Stop()
			return
		case client := <-h.register:
			s := h.getShard(client.Session.UserID)
			s.mu.Lock()
			if s.clients[client.Session.UserID] == nil {
				s.clients[client.Session.UserID] = make(map[*Client]struct{})
			}
			s.clients[client.Session.UserID][client] = struct{}{}
			s.mu.Unlock()
			monitoring.StreamConnections.Inc()

		case client := <-h.unregister:
			s := h.getShard(client.Session.UserID)
			s.mu.Lock()
			if conns, ok := s.clients[client.Session.UserID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					monitoring.StreamConnections.Dec()
				}
				if len(conns) == 0 {
					delete(s.clients, client.Session.UserID)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Stop cancels every connection of this instance.
func (h *NotificationHub) Stop() {
	logger.Log.Info("NotificationHub stopping: closing connections...")

	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, conns := range s.clients {
			for client := range conns {
				client.cancel()
				closed++
			}
			delete(s.clients, userID)
		}
		s.mu.Unlock()
	}

	monitoring.StreamConnections.Set(0)
	logger.Log.Info("NotificationHub stopped", zap.Int("closedConnections", closed))
}

func (h *NotificationHub) accountActive(ctx context.Context, userID uint) bool {
	if h.Accounts == nil {
		return true
	}
	err := h.Accounts.CheckAccount(ctx, userID)
	if err == nil {
		return true
	}
	if !errors.Is(err, util.ErrAccountSuspended) {
		// keep the stream on a store outage, the next tick retries
		logger.Log.Warn("Account check failed", zap.Uint("userId", userID), zap.Error(err))
		return true
	}
	return false
}

// Disconnect closes every connection userID holds on this instance and
// returns how many there were.
func (h *NotificationHub) Disconnect(userID uint) int {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns := s.clients[userID]
	for client := range conns {
		client.cancel()
	}
	return len(conns)
}

// ConnectionCount is the number of open connections of userID.
func (h *NotificationHub) ConnectionCount(userID uint) int {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID])
}

func ServeWs(hub *NotificationHub, w http.ResponseWriter, r *http.Request, session model.Session) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", session.UserID))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 16),
		Session: session,
		Limiter: rate.NewLimiter(rate.Limit(10), 20),
		stream:  hub.Notifications.Watch(session.UserID),
		ctx:     ctx,
		cancel:  cancel,
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		cancel()
		client.stream.Close()
		conn.Close()
		return
	}

	go client.writePump()
	go client.streamPump()
	go client.readPump()
}
