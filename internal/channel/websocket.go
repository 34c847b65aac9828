package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"calcbot/internal/domain"

	"github.com/gorilla/websocket"
)

// WSConfig configures the WebSocket channel.
type WSConfig struct {
	Port   int
	Path   string // endpoint path (default: /ws)
	Logger *slog.Logger
}

// WebSocketChannel serves a JSON-over-WebSocket surface for embedding a
// web calculator client. Each connection is its own private chat.
type WebSocketChannel struct {
	port   int
	path   string
	bus    domain.MessageBus
	logger *slog.Logger
	server *http.Server

	mu      sync.RWMutex
	clients map[string]*wsClient
}

type wsClient struct {
	conn   *websocket.Conn
	chatID string
	mu     sync.Mutex
}

// WSMessage is the JSON frame protocol.
type WSMessage struct {
	Type    string `json:"type"` // "message" | "status"
	Content string `json:"content,omitempty"`
	Kind    string `json:"kind,omitempty"` // result | error | reminder
	ChatID  string `json:"chat_id,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (configure CORS for production)
	},
}

func NewWebSocketChannel(cfg WSConfig) *WebSocketChannel {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if cfg.Port == 0 {
		cfg.Port = 8081
	}
	return &WebSocketChannel{
		port:    cfg.Port,
		path:    cfg.Path,
		logger:  cfg.Logger,
		clients: make(map[string]*wsClient),
	}
}

func (ws *WebSocketChannel) Name() string { return "websocket" }

// Start begins the WebSocket server.
func (ws *WebSocketChannel) Start(ctx context.Context, bus domain.MessageBus) error {
	ws.bus = bus

	mux := http.NewServeMux()
	mux.HandleFunc(ws.path, ws.handleUpgrade)

	ws.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", ws.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	bus.OnOutbound("websocket", func(msg domain.OutboundMessage) {
		ws.sendToChat(msg.ChatID, WSMessage{
			Type:    "message",
			Content: msg.Content,
			Kind:    msg.Kind,
			ChatID:  msg.ChatID,
		})
	})

	ws.logger.Info("websocket server starting", "port", ws.port, "path", ws.path)

	errCh := make(chan error, 1)
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ws.closeAllClients()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return ws.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (ws *WebSocketChannel) Stop() error {
	return nil
}

func (ws *WebSocketChannel) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	chatID := fmt.Sprintf("ws-%d", time.Now().UnixNano())
	client := &wsClient{conn: conn, chatID: chatID}

	ws.mu.Lock()
	ws.clients[chatID] = client
	ws.mu.Unlock()

	ws.logger.Info("websocket client connected", "chat_id", chatID)
	client.send(WSMessage{Type: "status", Content: "connected", ChatID: chatID})

	defer func() {
		ws.mu.Lock()
		delete(ws.clients, chatID)
		ws.mu.Unlock()
		conn.Close()
		ws.logger.Info("websocket client disconnected", "chat_id", chatID)
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.logger.Error("websocket read error", "err", err)
			}
			return
		}

		var wsMsg WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			ws.logger.Warn("invalid websocket message", "err", err)
			continue
		}
		if wsMsg.Type != "message" {
			continue
		}

		ws.bus.Publish(domain.InboundMessage{
			Channel:   "websocket",
			ChatID:    chatID,
			SenderID:  chatID,
			Content:   wsMsg.Content,
			Private:   true, // every connection is a one-to-one chat
			Timestamp: time.Now(),
		})
	}
}

func (ws *WebSocketChannel) sendToChat(chatID string, msg WSMessage) {
	ws.mu.RLock()
	client, ok := ws.clients[chatID]
	ws.mu.RUnlock()
	if !ok {
		ws.logger.Warn("websocket outbound for unknown chat", "chat_id", chatID)
		return
	}
	if err := client.send(msg); err != nil {
		ws.logger.Error("websocket write failed", "chat_id", chatID, "err", err)
	}
}

func (ws *WebSocketChannel) closeAllClients() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for id, client := range ws.clients {
		client.conn.Close()
		delete(ws.clients, id)
	}
}

func (c *wsClient) send(msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
