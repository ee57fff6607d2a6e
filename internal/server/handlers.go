package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
	"github.com/vanshika/internet-atlas/backend/internal/export"
	"github.com/vanshika/internet-atlas/backend/internal/repository"
	"github.com/vanshika/internet-atlas/backend/internal/service"
	"github.com/vanshika/internet-atlas/backend/internal/store"
)

// GraphQueries is the graph-database read side. It is optional.
type GraphQueries interface {
	EdgesBetween(ctx context.Context, websites []domain.Domain, users []int64) ([]domain.AggregatedEdge, error)
	TopDomains(ctx context.Context, limit int) ([]repository.DomainRank, error)
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	queries *service.QueryService
	graph   GraphQueries
}

// NewAPIHandlers constructs an APIHandlers instance. graph may be nil.
func NewAPIHandlers(logger *slog.Logger, queries *service.QueryService, graph GraphQueries) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		queries: queries,
		graph:   graph,
	}
}

type resultsResponse[T any] struct {
	ResultsCount int `json:"results_count"`
	Results      []T `json:"results"`
}

func newResults[T any](results []T) resultsResponse[T] {
	if results == nil {
		results = []T{}
	}
	return resultsResponse[T]{ResultsCount: len(results), Results: results}
}

type domainRankResponse struct {
	Domain     string `json:"domain"`
	VisitCount int    `json:"visit_count"`
	Degree     int    `json:"degree"`
}

func (h *APIHandlers) handleEdges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	websites := listParam(query["websites"])
	users, err := parseUserIDs(query["users"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var edges []domain.AggregatedEdge
	if len(websites) == 0 && len(users) == 0 {
		edges, err = h.queries.Edges(r.Context())
	} else {
		edges, err = h.queries.EdgesBetween(r.Context(), websites, users)
	}
	if err != nil {
		h.storeError(w, err, "failed to load edges")
		return
	}

	respondJSON(w, http.StatusOK, export.NewEdgeList(edges))
}

func (h *APIHandlers) handleTargetEdge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	origin := strings.TrimSpace(query.Get("website1"))
	target := strings.TrimSpace(query.Get("website2"))
	if origin == "" || target == "" {
		writeError(w, http.StatusBadRequest, "website1 and website2 are required")
		return
	}
	users, err := parseUserIDs(query["users"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	matched, err := h.queries.EdgeUsers(r.Context(), origin, target, users)
	if err != nil {
		h.storeError(w, err, "failed to load edge users")
		return
	}

	respondJSON(w, http.StatusOK, newResults(matched))
}

func (h *APIHandlers) handleUserEdges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	raw := r.URL.Query().Get("user_id")
	if rest, ok := strings.CutPrefix(r.URL.Path, "/user-edges/"); ok && strings.Trim(rest, "/") != "" {
		raw = strings.Trim(rest, "/")
	}
	if raw == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID < 0 {
		writeError(w, http.StatusBadRequest, "user ID must be a non-negative integer")
		return
	}

	edges, err := h.queries.UserEdges(r.Context(), userID, listParam(r.URL.Query()["websites"]))
	if err != nil {
		h.storeError(w, err, "failed to load user edges")
		return
	}

	respondJSON(w, http.StatusOK, export.NewUserEdgeList(edges))
}

func (h *APIHandlers) handleNodeStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	stats, err := h.queries.NodeStats(r.Context())
	if err != nil {
		h.storeError(w, err, "failed to load node stats")
		return
	}

	respondJSON(w, http.StatusOK, export.NewNodeStatsView(stats))
}

func (h *APIHandlers) handleGraphEdges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	users, err := parseUserIDs(query["users"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rawSites := listParam(query["websites"])
	var websites []domain.Domain
	for _, raw := range rawSites {
		if d, ok := service.NormalizeDomain(raw); ok {
			websites = append(websites, d)
		}
	}
	if len(rawSites) > 0 && len(websites) == 0 {
		respondJSON(w, http.StatusOK, export.NewEdgeList(nil))
		return
	}

	edges, err := h.graph.EdgesBetween(r.Context(), websites, users)
	if err != nil {
		h.logger.Error("graph edges query failed", "error", err)
		writeError(w, http.StatusBadGateway, "graph query failed")
		return
	}

	respondJSON(w, http.StatusOK, export.NewEdgeList(edges))
}

func (h *APIHandlers) handleTopDomains(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ranks, err := h.graph.TopDomains(r.Context(), parseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		h.logger.Error("top domains query failed", "error", err)
		writeError(w, http.StatusBadGateway, "graph query failed")
		return
	}

	results := make([]domainRankResponse, 0, len(ranks))
	for _, rank := range ranks {
		results = append(results, domainRankResponse{
			Domain:     rank.Domain.String(),
			VisitCount: rank.VisitCount,
			Degree:     rank.Degree,
		})
	}
	respondJSON(w, http.StatusOK, newResults(results))
}

func (h *APIHandlers) storeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

// listParam accepts repeated parameters and comma separated values.
func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseUserIDs(values []string) ([]int64, error) {
	raw := listParam(values)
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			return nil, errors.New("users must be non-negative integers")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
