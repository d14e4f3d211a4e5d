package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sellgrid/marketplace-backend/pkg/config"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
	pkgredis "github.com/sellgrid/marketplace-backend/pkg/redis"
)

// Streamer upgrades chat stream requests to WebSocket connections fed by the
// conversation's redis channel. Each connection only ever sees its own pair's
// messages; filtering happens server side through the channel key.
type Streamer struct {
	redis    *pkgredis.Client
	cfg      config.ChatConfig
	logg     *logger.Logger
	upgrader websocket.Upgrader
}

// NewStreamer builds the chat stream handler.
func NewStreamer(redisClient *pkgredis.Client, cfg config.ChatConfig, logg *logger.Logger) (*Streamer, error) {
	if redisClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "redis client required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Streamer{
		redis: redisClient,
		cfg:   cfg,
		logg:  logg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

// Stream serves one WebSocket connection subscribed to the caller's
// conversation with otherID. It returns once the client disconnects or the
// request context ends.
func (s *Streamer) Stream(w http.ResponseWriter, r *http.Request, userID, otherID uuid.UUID) {
	ctx := r.Context()
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"profile_id": userID.String(),
		"peer_id":    otherID.String(),
	})

	channel := s.redis.ChatChannelKey(userID.String(), otherID.String())
	sub, err := s.redis.Subscribe(ctx, channel)
	if err != nil {
		s.logg.Error(logCtx, "chat feed subscription failed", err)
		http.Error(w, "feed unavailable", http.StatusBadGateway)
		return
	}
	defer sub.Close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logg.Error(logCtx, "websocket upgrade failed", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go s.readLoop(conn, done)
	s.writeLoop(ctx, logCtx, conn, sub.Channel(), done)
}

// readLoop drains client frames so pings are answered and closure is noticed.
func (s *Streamer) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Streamer) writeLoop(ctx context.Context, logCtx context.Context, conn *websocket.Conn, feed <-chan *goredis.Message, done <-chan struct{}) {
	pings := time.NewTicker(s.cfg.PingInterval)
	defer pings.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case msg, ok := <-feed:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				s.logg.Error(logCtx, "chat stream write failed", err)
				return
			}
		case <-pings.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
