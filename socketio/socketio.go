package socketio

import (
	"context"
	"log/slog"
	"time"

	"office-chat/config"
	"office-chat/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/socket.io-go-redis/adapter"
	r_type "github.com/zishang520/socket.io-go-redis/types"
	"github.com/zishang520/socket.io/v2/socket"
)

// Server is the push channel. It implements chat.Pusher.
type Server struct {
	io     *socket.Server
	logger *slog.Logger
}

// Init mounts socket.io on app under /socket.io/. Handshakes must carry a valid
// access token signed with key. With a redis client, room emits reach sockets
// held by other processes too.
func Init(app *fiber.App, redisClient *redis.Client, key []byte, logger *slog.Logger) *Server {
	log.DEBUG = config.LogLevel() == slog.LevelDebug

	options := socket.DefaultServerOptions()
	options.SetServeClient(true)
	options.SetAllowEIO3(true)
	options.SetPingInterval(25 * time.Second)
	options.SetPingTimeout(20 * time.Second)
	options.SetMaxHttpBufferSize(1000000)
	options.SetConnectTimeout(10 * time.Second)
	if redisClient != nil {
		options.SetAdapter(&adapter.RedisAdapterBuilder{
			Redis: r_type.NewRedisClient(context.Background(), redisClient),
			Opts:  &adapter.RedisAdapterOptions{},
		})
		logger.Info("socket.io redis adapter enabled")
	}

	server := socket.NewServer(nil, nil)

	server.Use(func(client *socket.Socket, next func(*socket.ExtendedError)) {
		identity, err := utils.ParseToken(handshakeToken(client), key)
		if err != nil {
			logger.Debug("socket handshake rejected", "error", err)
			next(socket.NewExtendedError("unauthorized", nil))
			return
		}
		if identity.Otp {
			next(socket.NewExtendedError("2FA required", nil))
			return
		}

		client.SetData(identity)
		next(nil)
	})

	handler := adaptor.HTTPHandler(server.ServeHandler(options))
	app.Get("/socket.io/", handler)
	app.Post("/socket.io/", handler)

	return &Server{io: server, logger: logger}
}

// OnConnection calls fn for every authenticated connection.
func (s *Server) OnConnection(fn func(conn *Conn)) {
	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		conn, ok := newConn(client)
		if !ok {
			client.Disconnect(true)
			return
		}
		fn(conn)
	})
}

func (s *Server) Broadcast(event string, args ...any) {
	s.io.Emit(event, args...)
}

func (s *Server) EmitTo(room string, event string, args ...any) {
	if err := s.io.To(socket.Room(room)).Emit(event, args...); err != nil {
		s.logger.Warn("socket emit failed", "room", room, "event", event, "error", err)
	}
}

func (s *Server) Close() {
	s.io.Close(nil)
}

// handshakeToken reads the token from the query string or the handshake auth payload.
func handshakeToken(client *socket.Socket) string {
	if token, ok := client.Conn().Request().Query().Get("token"); ok && token != "" {
		return token
	}
	if auth, ok := client.Handshake().Auth.(map[string]any); ok {
		if token, ok := auth["token"].(string); ok {
			return token
		}
	}
	return ""
}
