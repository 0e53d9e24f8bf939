// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/menupick/internal/auth"
	"github.com/jason-s-yu/menupick/internal/cache"
	"github.com/jason-s-yu/menupick/internal/config"
	"github.com/jason-s-yu/menupick/internal/database"
	"github.com/jason-s-yu/menupick/internal/gateway"
	"github.com/jason-s-yu/menupick/internal/handlers"
	"github.com/jason-s-yu/menupick/internal/restaurant"
	"github.com/jason-s-yu/menupick/internal/room"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()
	state := cache.NewRoomState(rdb, cfg.RoomTTL)

	rooms, closeRooms, err := openRoomStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("room store: %v", err)
	}
	defer closeRooms()

	sessions, err := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		logger.Fatalf("sessions: %v", err)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("SESSION_SECRET is empty, sessions will not survive a restart")
	}
	if cfg.KakaoRestKey == "" {
		logger.Warn("KAKAO_REST_KEY is empty, room creation will fail")
	}

	provider := restaurant.NewKakaoProvider(cfg.KakaoBaseURL, cfg.KakaoPlaceURL, cfg.KakaoRestKey, cfg.ProviderRPS)
	manager := room.NewManager(provider, rooms, state, logger, cfg.ProviderConcurrency)
	gw := gateway.New(rooms, state, logger)

	server := &http.Server{
		Handler: handlers.NewRouter(logger, manager, gw, sessions, handlers.RouterOptions{
			AllowedOrigins: cfg.CORSOrigins,
			CookieSecure:   cfg.CookieSecure,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	l, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		logger.Fatalf("failed to listen: %v", err)
	}
	logger.Infof("listening on %s (room store: %s)", l.Addr(), cfg.RoomStore)

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("failed to serve: %v", err)
		}
	case <-ctx.Done():
		logger.Info("terminating")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
}

func configureLogger(logger *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

// openRoomStore connects the durable room backend selected by ROOM_STORE.
func openRoomStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (database.RoomStore, func(), error) {
	switch cfg.RoomStore {
	case "postgres":
		pool, err := database.ConnectDB(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return database.NewPostgresRoomStore(pool), pool.Close, nil
	case "mongo":
		client, err := database.ConnectMongo(ctx, cfg.MongoURL)
		if err != nil {
			return nil, nil, err
		}
		store := database.NewMongoRoomStore(client.Database(cfg.MongoDatabase))
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return store, func() { _ = client.Disconnect(context.Background()) }, nil
	case "memory":
		logger.Warn("using in-memory room store, rooms are lost on restart")
		return database.NewMemoryRoomStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported room store %q", cfg.RoomStore)
}
