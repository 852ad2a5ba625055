// cmd/push-gateway/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"vivero/internal/pkg/bootstrap"
	"vivero/internal/pkg/config"
	"vivero/internal/pkg/logger"
	"vivero/internal/pkg/metrics"
	"vivero/internal/pkg/mq"
	"vivero/internal/pkg/redisx"
	orderdomain "vivero/internal/service/order/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	workerName = "push-gateway"
)

var (
	nodeID   = "push-gateway-" + uuid.NewString()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
)

// Hub 维护活跃连接，按 UserID 定向推送。
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			if old, ok := h.clients[client.userID]; ok {
				close(old.send)
			}
			h.clients[client.userID] = client
			h.lock.Unlock()
			log.Printf("client %s registered on node %s", client.userID, nodeID)
		case client := <-h.unregister:
			h.lock.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.lock.Unlock()
			log.Printf("client %s unregistered", client.userID)
		}
	}
}

// push 给指定用户投递消息，用户不在线直接丢弃。
func (h *Hub) push(userID string, payload []byte) bool {
	h.lock.RLock()
	client, ok := h.clients[userID]
	h.lock.RUnlock()
	if !ok {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// Client 单个 WebSocket 连接。
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// statusPush 推给客户端的消息体。
type statusPush struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number,omitempty"`
	FromState   string `json:"from_state,omitempty"`
	State       string `json:"state"`
	At          string `json:"at,omitempty"`
}

// serveWs 建连。带 order_id 时先从状态缓存回一条当前状态，
// 避免客户端在断线重连的窗口里错过迁移。
func serveWs(hub *Hub, rdb *redis.Client, w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), userID: userID}
	hub.register <- client
	go client.writePump()
	go client.readPump()

	if orderID := r.URL.Query().Get("order_id"); orderID != "" {
		state, err := rdb.Get(r.Context(), redisx.OrderStatusKey(orderID)).Result()
		if err == nil {
			payload, _ := json.Marshal(statusPush{OrderID: orderID, State: state})
			hub.push(userID, payload)
		}
	}
}

// consume 把 order.events 上的状态迁移推给在线用户。
// 推送本来就是尽力而为，位点直接自动提交。
func consume(ctx context.Context, reader *kafka.Reader, hub *Hub) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("failed to fetch order event")
			continue
		}
		msgCtx := mq.ExtractTraceContext(ctx, &msg)

		var event orderdomain.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).Msg("dropping malformed order event")
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		payload, _ := json.Marshal(statusPush{
			OrderID:     event.OrderID,
			OrderNumber: event.OrderNumber,
			FromState:   event.FromState,
			State:       event.ToState,
			At:          event.At.Format(time.RFC3339),
		})
		if hub.push(event.UserID, payload) {
			metrics.EventsConsumed.WithLabelValues(workerName, "pushed").Inc()
		} else {
			metrics.EventsConsumed.WithLabelValues(workerName, "offline").Inc()
		}
		_ = reader.CommitMessages(ctx, msg)
	}
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = workerName
	}
	logger.Init(cfg.Service.Name, cfg.Service.LogLevel)

	rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	reader := mq.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.OrderEventsTopic, cfg.Kafka.PushGroup)

	hub := newHub()
	go hub.run()

	consumeCtx, cancel := context.WithCancel(context.Background())
	go consume(consumeCtx, reader, hub)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.Service.Name,
		Port:        cfg.Service.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
				serveWs(hub, rdb, w, r)
			})
		},
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) { _ = rdb.Close() },
			func(ctx context.Context) { _ = reader.Close() },
			func(ctx context.Context) { cancel() },
		},
	})
}
