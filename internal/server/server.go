// Package server exposes the outreach workflow as a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/outrage-civic/outrage-api/internal/apperr"
	"github.com/outrage-civic/outrage-api/internal/drafts"
	"github.com/outrage-civic/outrage-api/internal/formmap"
	"github.com/outrage-civic/outrage-api/internal/model"
	"github.com/outrage-civic/outrage-api/internal/moderation"
	"github.com/outrage-civic/outrage-api/internal/selector"
	"github.com/outrage-civic/outrage-api/internal/store"
)

// Resolver resolves an address to representatives.
type Resolver interface {
	Resolve(ctx context.Context, address string) ([]model.Representative, bool, error)
}

// RepSelector runs AI representative selection.
type RepSelector interface {
	Select(ctx context.Context, demands []string, candidates []model.Representative, preselectedIDs []string) (selector.Result, error)
}

// DraftGenerator produces a single draft or revision.
type DraftGenerator interface {
	Generate(ctx context.Context, req drafts.Request) (*model.Draft, error)
}

// FormMapper analyzes a contact page's form.
type FormMapper interface {
	Analyze(ctx context.Context, pageURL string, userData map[string]string) (*formmap.Analysis, bool, error)
}

// Moderator screens campaign submissions.
type Moderator interface {
	Check(ctx context.Context, title, message string, demands []string) error
}

// Server holds the wired workflow components. Nil components respond with
// 503, which is how a missing provider credential surfaces.
type Server struct {
	store          store.Store
	resolver       Resolver
	selector       RepSelector
	generator      DraftGenerator
	mapper         FormMapper
	moderator      Moderator
	allowedOrigins []string
}

// Deps carries the components the server wires into routes.
type Deps struct {
	Store          store.Store
	Resolver       Resolver
	Selector       RepSelector
	Generator      DraftGenerator
	Mapper         FormMapper
	Moderator      Moderator
	AllowedOrigins []string
}

func New(deps Deps) *Server {
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		store:          deps.Store,
		resolver:       deps.Resolver,
		selector:       deps.Selector,
		generator:      deps.Generator,
		mapper:         deps.Mapper,
		moderator:      deps.Moderator,
		allowedOrigins: origins,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.Get("/health", s.handleHealth)

	// The extension injects form analysis calls from arbitrary pages, so
	// this route cannot restrict origins.
	r.Group(func(g chi.Router) {
		g.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}))
		g.Post("/analyze-form", s.handleAnalyzeForm)
	})

	r.Group(func(g chi.Router) {
		g.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
		}))

		g.Post("/lookup-representatives", s.handleLookupRepresentatives)
		g.Post("/select-representatives", s.handleSelectRepresentatives)
		g.Post("/generate-representative-draft", s.handleGenerateDraft)

		g.Route("/campaigns", func(c chi.Router) {
			c.Post("/", s.handleCreateCampaign)
			c.Get("/", s.handleListCampaigns)
			c.Get("/{id}", s.handleGetCampaign)
			c.Post("/{id}/sent", s.handleCampaignSent)
			c.Post("/{id}/view", s.handleCampaignView)
		})
	})

	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Retriable bool   `json:"retriable,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var nf *store.NotFoundError
	if errors.As(err, &nf) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: nf.Error()})
		return
	}

	var rej *moderation.RejectedError
	if errors.As(err, &rej) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: rej.Error()})
		return
	}

	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		Retriable: apperr.Retriable(err),
	})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "server: decode request body")
	}
	return nil
}
