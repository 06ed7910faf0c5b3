package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/cl-postal-codes/internal/browser"
	"github.com/JakeFAU/cl-postal-codes/internal/lookup"
	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

// search resolves one address:
// GET /v1/postal-codes/search?commune=&street=&number=
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	addr, err := s.lookup.FindOrScrape(r.Context(), lookup.Query{
		Commune: q.Get("commune"),
		Street:  q.Get("street"),
		Number:  q.Get("number"),
	})
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addr)
}

// findByCode lists every stored address of a postal code:
// GET /v1/postal-codes/{code}
func (s *Server) findByCode(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.lookup.FindByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addrs)
}

// listAddresses pages through stored addresses:
// GET /v1/postal-codes?page=&limit=
func (s *Server) listAddresses(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePageLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.lookup.List(r.Context(), page, limit)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeLookupError maps service errors onto HTTP statuses. Failed scrapes
// surface their outcome message verbatim.
func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	var scrapeErr *lookup.ScrapeError
	switch {
	case errors.As(err, &scrapeErr):
		writeError(w, http.StatusBadRequest, scrapeErr.Outcome.Error)
	case errors.Is(err, lookup.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), lookup.ErrInvalidInput.Error()+": "))
	case errors.Is(err, postal.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, browser.ErrLaunch), errors.Is(err, browser.ErrLaunchWait):
		s.logger.Error("browser unavailable", zap.String("request_id", requestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "browser unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "lookup timed out")
	default:
		s.logger.Error("lookup failed", zap.String("request_id", requestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parsePageLimit(r *http.Request) (int, int, error) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	limit, err := intParam(r, "limit", lookup.DefaultLimit)
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
