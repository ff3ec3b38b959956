package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Source 用户的消息来源
type Source interface {
	Subscribe(ctx context.Context, userId string) (<-chan []byte, func() error, error)
}

// Stream 把订阅到的消息写入 websocket
type Stream struct {
	source   Source
	upgrader websocket.Upgrader
}

// NewStream allowedOrigins 为空时允许任意来源
func NewStream(source Source, allowedOrigins []string) *Stream {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Stream{
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Serve 升级连接并推送，直到客户端断开
func (s *Stream) Serve(w http.ResponseWriter, r *http.Request, userId string) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	messages, closeSub, err := s.source.Subscribe(ctx, userId)
	if err != nil {
		logger.Error("Subscribe notifications for %s failed: %v", userId, err)
		http.Error(w, "realtime unavailable", http.StatusBadGateway)
		return
	}
	defer closeSub()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade for %s failed: %v", userId, err)
		return
	}
	defer conn.Close()

	// 读循环只处理 pong 与关闭
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
