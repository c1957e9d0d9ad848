package controller

import (
	"net/http"
	"sync"
	"time"

	"coffee-backend/infra"
	"coffee-backend/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 25 * time.Second
)

// WebSocketController 以 WebSocket 推送杯數事件，連線為唯讀
type WebSocketController struct {
	logger        zerolog.Logger
	upgrader      websocket.Upgrader
	connections   map[string]*wsConnection
	connectionsMu sync.RWMutex
}

type wsConnection struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsConnection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func NewWebSocketController(logger zerolog.Logger) *WebSocketController {
	return &WebSocketController{
		logger: logger.With().Str("module", "websocket_controller").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允許跨域
			},
		},
		connections: make(map[string]*wsConnection),
	}
}

func (wsc *WebSocketController) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsc.logger.Error().Err(err).Msg("WebSocket升級失敗")
		return
	}

	c := &wsConnection{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 100),
		done: make(chan struct{}),
	}
	wsc.registerConnection(c)

	go wsc.handleSender(c)
	wsc.handleReader(c)
}

func (wsc *WebSocketController) registerConnection(c *wsConnection) {
	wsc.connectionsMu.Lock()
	wsc.connections[c.id] = c
	count := len(wsc.connections)
	wsc.connectionsMu.Unlock()

	middleware.SetEventStreamConnections("websocket", count)
	wsc.logger.Debug().Str("connection_id", c.id).Msg("WebSocket 已連線")
}

func (wsc *WebSocketController) unregisterConnection(c *wsConnection) {
	wsc.connectionsMu.Lock()
	delete(wsc.connections, c.id)
	count := len(wsc.connections)
	wsc.connectionsMu.Unlock()

	middleware.SetEventStreamConnections("websocket", count)
	wsc.logger.Debug().Str("connection_id", c.id).Msg("WebSocket 已斷線")
}

// handleReader 只處理 pong 與關閉，客戶端送來的訊息一律忽略
func (wsc *WebSocketController) handleReader(c *wsConnection) {
	defer func() {
		if r := recover(); r != nil {
			wsc.logger.Error().Interface("panic", r).Msg("handleReader 發生 panic")
		}
		wsc.unregisterConnection(c)
		c.close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				wsc.logger.Warn().Err(err).Str("connection_id", c.id).Msg("Websocket read error")
			}
			return
		}
	}
}

func (wsc *WebSocketController) handleSender(c *wsConnection) {
	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()
	defer c.close()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				wsc.logger.Debug().Err(err).Str("connection_id", c.id).Msg("發送訊息失敗")
				return
			}
		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// HandleCupEvent 將事件以 JSON 文字訊息送給所有連線
func (wsc *WebSocketController) HandleCupEvent(event *infra.CupEvent) {
	payload := []byte(event.ToJSON())

	wsc.connectionsMu.RLock()
	defer wsc.connectionsMu.RUnlock()

	for _, c := range wsc.connections {
		select {
		case c.send <- payload:
		default:
			middleware.RecordEventStreamDropped("websocket")
			wsc.logger.Warn().Str("connection_id", c.id).Msg("發送失敗：發送頻道已滿")
		}
	}
}

// ConnectionCount 目前連線數
func (wsc *WebSocketController) ConnectionCount() int {
	wsc.connectionsMu.RLock()
	defer wsc.connectionsMu.RUnlock()
	return len(wsc.connections)
}

// CloseAll 關閉所有連線，服務停止時使用
func (wsc *WebSocketController) CloseAll() {
	wsc.connectionsMu.RLock()
	conns := make([]*wsConnection, 0, len(wsc.connections))
	for _, c := range wsc.connections {
		conns = append(conns, c)
	}
	wsc.connectionsMu.RUnlock()

	for _, c := range conns {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		c.close()
	}
}

func (wsc *WebSocketController) GetWebSocketHandler() http.HandlerFunc {
	return wsc.handleWebSocket
}
