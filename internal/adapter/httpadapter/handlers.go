package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const maxBodyBytes = 1 << 16

// combinedDataRequest is the body of POST /combined-data.
type combinedDataRequest struct {
	domain.Address
	Distance   *float64 `json:"distance,omitempty"`
	Indicators bool     `json:"indicators,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCombinedData(w http.ResponseWriter, r *http.Request) {
	var req combinedDataRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	opts := domain.EnrichOptions{Indicators: req.Indicators}
	if req.Distance != nil {
		if *req.Distance <= 0 {
			sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "distance must be positive"})
			return
		}
		opts.RadiusMeters = *req.Distance
	}

	res, err := s.handlers.Enricher.Enrich(r.Context(), req.Address, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleBatch(persist bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.handlers.Batch.Run(r.Context(), persist)
		if err != nil {
			s.logger.Error("batch enrichment failed", "persist", persist, "error", err)
			sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	report, err := s.handlers.Seeder.Seed(r.Context())
	if err != nil {
		s.logger.Error("reference seeding failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

// writeError maps a classified enrichment error to its status code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("enrichment failed", "path", r.URL.Path, "error", err)
	}
	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Msg
	}
	sharedobs.WriteJSON(w, status, errorResponse{Error: msg})
}
