// internal/handlers/router.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/menupick/internal/auth"
	"github.com/jason-s-yu/menupick/internal/gateway"
	"github.com/jason-s-yu/menupick/internal/middleware"
	"github.com/sirupsen/logrus"
)

type RouterOptions struct {
	AllowedOrigins []string
	CookieSecure   bool
}

// NewRouter wires the HTTP API and the room channel.
func NewRouter(logger *logrus.Logger, rooms RoomService, gw *gateway.Gateway, sessions *auth.Sessions, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(middleware.LogMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Session(sessions, opts.CookieSecure, logger))

	rh := NewRoomHandler(rooms)
	r.Route("/api/room", func(r chi.Router) {
		r.Post("/", WrapHandler(logger, rh.CreateRoom))
		r.Get("/valid", WrapHandler(logger, rh.ValidRoom))
	})

	r.Get("/room/ws", RoomWSHandler(gw, logger, originPatterns(opts.AllowedOrigins)))
	return r
}

// originPatterns turns CORS origins ("https://a.example") into the host
// patterns websocket.Accept expects ("a.example").
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		if o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}
