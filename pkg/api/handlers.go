package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"slices"
	"strconv"

	"graph_bwt/pkg/gbwt"
	"graph_bwt/pkg/paths"
)

// Handlers holds the HTTP handlers and their dependencies. The locator is
// optional; without it the near endpoint reports the node index as missing.
type Handlers struct {
	index   *gbwt.DynamicGBWT
	locator *paths.Locator
}

// NewHandlers creates handlers serving queries over the given index.
func NewHandlers(index *gbwt.DynamicGBWT, locator *paths.Locator) *Handlers {
	return &Handlers{index: index, locator: locator}
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	s := h.index.Stats()
	writeJSON(w, StatsResponse{
		Sequences:    s.Sequences,
		TotalLength:  s.Size,
		AlphabetSize: s.Sigma,
		Effective:    s.Effective,
		Runs:         s.Runs,
		Samples:      s.Samples,
	})
}

// HandleCount handles GET /api/v1/count?node=N.
func (h *Handlers) HandleCount(w http.ResponseWriter, r *http.Request) {
	node, err := strconv.ParseUint(r.URL.Query().Get("node"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "node")
		return
	}
	writeJSON(w, CountResponse{Node: node, Count: h.index.Count(node)})
}

// HandlePaths handles GET /api/v1/paths?node=N&start=S&end=E. Start and end
// default to the whole record of the node.
func (h *Handlers) HandlePaths(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	node, err := strconv.ParseUint(q.Get("node"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "node")
		return
	}

	count := h.index.Count(node)
	if count == 0 {
		writeError(w, http.StatusNotFound, "node_not_found", "node")
		return
	}

	start, end := uint64(0), count-1
	if s := q.Get("start"); s != "" {
		if start, err = strconv.ParseUint(s, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "start")
			return
		}
	}
	if s := q.Get("end"); s != "" {
		if end, err = strconv.ParseUint(s, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "end")
			return
		}
	}
	if end >= count || start > end {
		writeError(w, http.StatusBadRequest, "range_out_of_bounds", "")
		return
	}

	seqs := h.index.Locate(gbwt.SearchState{Node: node, Start: start, End: end})
	writeJSON(w, PathsResponse{Node: node, Start: start, End: end, Sequences: emptyNotNil(seqs)})
}

// HandleNear handles GET /api/v1/near?lat=L&lng=G: snaps the point to the
// nearest indexed node and returns the sequences passing through it in
// either orientation.
func (h *Handlers) HandleNear(w http.ResponseWriter, r *http.Request) {
	if h.locator == nil {
		writeError(w, http.StatusNotFound, "node_index_not_loaded", "")
		return
	}

	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || !validCoord(lat, 90) {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "lat")
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil || !validCoord(lng, 180) {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "lng")
		return
	}

	id, dist, err := h.locator.Nearest(lat, lng)
	if err != nil {
		if errors.Is(err, paths.ErrPointTooFar) {
			writeError(w, http.StatusUnprocessableEntity, "point_too_far", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	node := gbwt.EncodeNode(id, false)
	seqs := h.locateAll(node)
	seqs = append(seqs, h.locateAll(gbwt.Reverse(node))...)
	slices.Sort(seqs)
	seqs = slices.Compact(seqs)

	writeJSON(w, NearResponse{
		NodeID:         id,
		Node:           node,
		DistanceMeters: dist,
		Sequences:      emptyNotNil(seqs),
	})
}

// locateAll returns the sequences through every occurrence of node.
func (h *Handlers) locateAll(node uint64) []uint64 {
	count := h.index.Count(node)
	if count == 0 {
		return nil
	}
	return h.index.Locate(gbwt.SearchState{Node: node, Start: 0, End: count - 1})
}

func validCoord(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

func emptyNotNil(s []uint64) []uint64 {
	if s == nil {
		return []uint64{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
