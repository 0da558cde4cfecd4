package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/field-portal/auth"
	"github.com/jrsteele09/field-portal/feedback"
	"github.com/jrsteele09/field-portal/internal/config"
	"github.com/jrsteele09/field-portal/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Services are the domain services the HTTP layer exposes.
type Services struct {
	Auth     *auth.Service
	Users    *users.Service
	Feedback *feedback.Service
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	auth     *auth.Service
	users    *users.Service
	feedback *feedback.Service
}

func New(config config.Config, services Services) (*Server, error) {
	if services.Auth == nil || services.Users == nil || services.Feedback == nil {
		return nil, errors.New("[Server New] auth, users and feedback services are required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		auth:     services.Auth,
		users:    services.Users,
		feedback: services.Feedback,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}
