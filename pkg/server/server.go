// Package server exposes the shared access-control and retrieval operations
// over HTTP. Handlers stay thin: request-shape checks, a call into the ACL
// resolver or the store, and a JSON response.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/juanma-plia/PLIA-SHARED/internal/middleware/requestid"
	"github.com/juanma-plia/PLIA-SHARED/pkg/acl"
	"github.com/juanma-plia/PLIA-SHARED/pkg/logger"
	serverErrors "github.com/juanma-plia/PLIA-SHARED/pkg/server/errors"
	"github.com/juanma-plia/PLIA-SHARED/pkg/storage"
)

type Server struct {
	store          storage.DocumentStore
	resolver       *acl.Resolver
	logger         logger.Logger
	requestTimeout time.Duration
}

func New(store storage.DocumentStore, resolver *acl.Resolver, log logger.Logger, requestTimeout time.Duration) *Server {
	return &Server{
		store:          store,
		resolver:       resolver,
		logger:         log,
		requestTimeout: requestTimeout,
	}
}

// Handler builds the full route tree. The health endpoint sits outside authn
// so orchestrators can probe without a credential; everything under /v1 runs
// through the supplied middlewares in order.
func (s *Server) Handler(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		for _, mw := range middlewares {
			r.Use(mw)
		}
		r.Use(s.timeout)

		r.Get("/profiles/{profileID}", s.getProfile)
		r.Get("/profiles/{profileID}/series", s.listSeries)
		r.Get("/profiles/{profileID}/access/{seriesID}", s.checkAccess)

		r.Get("/series/{seriesID}", s.getSeries)
		r.Post("/series", s.createSeries)
		r.Patch("/series/{seriesID}", s.updateSeries)
		r.Delete("/series/{seriesID}", s.deleteSeries)
	})

	return r
}

func (s *Server) timeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.requestTimeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Unauthenticated writes the 401 response for requests whose shared-secret
// credential is missing or unknown.
func (s *Server) Unauthenticated(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, serverErrors.ErrMissingAPIKey)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ready, err := s.store.IsReady(r.Context())
	if err != nil || !ready {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"healthy": false})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"healthy": true})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	doc, access, err := s.resolver.ResolveProfileAccess(r.Context(), profileID)
	if err != nil {
		s.writeError(w, r, serverErrors.HandleError("", err))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"profile_id": doc.ID,
		"profile":    doc.Data,
		"series_acl": access.IDs(),
	})
}

func (s *Server) listSeries(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	docs, err := s.resolver.ListAccessibleSeries(r.Context(), profileID)
	if err != nil {
		s.writeError(w, r, serverErrors.HandleError("", err))
		return
	}

	series := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		series = append(series, doc.Data)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"series": series,
		"total":  len(series),
	})
}

func (s *Server) checkAccess(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	seriesID := chi.URLParam(r, "seriesID")

	allowed, err := s.resolver.HasAccess(r.Context(), profileID, seriesID)
	if err != nil {
		s.writeError(w, r, serverErrors.HandleError("", err))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"profile_id": profileID,
		"series_id":  seriesID,
		"allowed":    allowed,
	})
}

func (s *Server) getSeries(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "seriesID")
	profileID := r.URL.Query().Get("profile_id")
	if profileID == "" {
		s.writeError(w, r, status.Error(codes.InvalidArgument, "missing 'profile_id' query parameter"))
		return
	}

	allowed, err := s.resolver.HasAccess(r.Context(), profileID, seriesID)
	if err != nil {
		s.writeError(w, r, serverErrors.HandleError("", err))
		return
	}
	if !allowed {
		// Denied before existence is checked, so a caller can't probe for
		// series it has no access to.
		s.writeError(w, r, serverErrors.SeriesAccessDenied(seriesID))
		return
	}

	doc, err := s.store.GetDocument(r.Context(), acl.CollectionSeries, seriesID)
	if err != nil {
		if status.Code(serverErrors.HandleError("", err)) == codes.NotFound {
			s.writeError(w, r, serverErrors.SeriesNotFound(seriesID))
			return
		}
		s.writeError(w, r, serverErrors.HandleError("", err))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"series_id": doc.ID,
		"series":    doc.Data,
	})
}

func (s *Server) createSeries(w http.ResponseWriter, r *http.Request) {
	data, ok := s.decodeBody(w, r)
	if !ok {
		return
	}

	id, _ := data[acl.FieldSeriesID].(string)
	if id == "" {
		id = ulid.Make().String()
		data[acl.FieldSeriesID] = id
	}

	if err := s.store.CreateDocument(r.Context(), acl.CollectionSeries, id, data); err != nil {
		s.writeError(w, r, serverErrors.HandleError("", err))
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"series_id": id})
}

func (s *Server) updateSeries(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "seriesID")
	data, ok := s.decodeBody(w, r)
	if !ok {
		return
	}

	if err := s.store.UpdateDocument(r.Context(), acl.CollectionSeries, seriesID, data); err != nil {
		if status.Code(serverErrors.HandleError("", err)) == codes.NotFound {
			s.writeError(w, r, serverErrors.SeriesNotFound(seriesID))
			return
		}
		s.writeError(w, r, serverErrors.HandleError("", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"series_id": seriesID})
}

func (s *Server) deleteSeries(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "seriesID")

	if err := s.store.DeleteDocument(r.Context(), acl.CollectionSeries, seriesID); err != nil {
		s.writeError(w, r, serverErrors.HandleError("", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		s.writeError(w, r, status.Error(codes.InvalidArgument, "request body must be a JSON object"))
		return nil, false
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, true
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var internal serverErrors.InternalError
	if errors.As(err, &internal) {
		s.logger.ErrorWithContext(r.Context(), "request failed",
			zap.String("request_id", requestid.FromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(internal.Internal()),
		)
	}

	code := serverErrors.HTTPStatusCode(err)
	s.writeJSON(w, code, map[string]any{
		"error": status.Convert(err).Message(),
		"code":  code,
	})
}
