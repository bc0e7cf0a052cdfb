// Package server is a local stand-in for the timetrack REST backend. It
// serves login, profile, task and screenshot upload routes for development
// and for tests of the client packages.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-timetrack-client/internal/config"
	"github.com/jrsteele09/go-timetrack-client/server/taskrepo"
	"github.com/jrsteele09/go-timetrack-client/server/uploadrepo"
	"github.com/jrsteele09/go-timetrack-client/token"
	"github.com/jrsteele09/go-timetrack-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Repos bundles the storage the server runs on.
type Repos struct {
	Users   users.UserRepo
	Tasks   taskrepo.Repo
	Uploads uploadrepo.Repo
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	repos     Repos
	tokens    *token.Creator
	maxUpload int64
	logger    zerolog.Logger

	// DevPassword is set when the seeded user's password was generated.
	DevPassword string
}

func New(config config.Config, repos Repos) (*Server, error) {
	if repos.Users == nil || repos.Tasks == nil || repos.Uploads == nil {
		return nil, fmt.Errorf("[Server New] users, tasks and uploads repos are required")
	}

	s := &Server{
		env:       config.GetEnv(),
		mux:       http.NewServeMux(),
		config:    config,
		repos:     repos,
		maxUpload: config.GetDevMaxUploadBytes(),
		tokens: token.NewCreator(config.GetDevJWTSecret(),
			token.WithExpiry(config.GetDevAccessTokenExpiry())),
		logger: log.With().Str("component", "server").Logger(),
	}

	password, err := s.InitialiseSystem(config)
	if err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}
	s.DevPassword = password

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// Tokens returns the creator used to mint and verify access tokens.
func (s *Server) Tokens() *token.Creator {
	return s.tokens
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	s.logger.Info().Msgf("[%-19s] %s", displayMethod, path)
}
