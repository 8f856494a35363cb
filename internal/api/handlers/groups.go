package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tmarcus/lookalike/internal/scan"
)

// GroupsHandler serves the duplicate groups of the most recent completed
// scan. Groups live only in memory; a restart clears them.
type GroupsHandler struct {
	Manager *scan.Manager
}

type groupItem struct {
	Key   string   `json:"key"`
	Size  int      `json:"size"`
	Paths []string `json:"paths"`
}

type groupListResponse struct {
	Method     string      `json:"method"`
	ScannedAt  time.Time   `json:"scanned_at"`
	Directory  string      `json:"directory"`
	GroupCount int         `json:"group_count"`
	Groups     []groupItem `json:"groups"`
}

// List handles GET /api/groups.
func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	last, ok := h.lastDone(w)
	if !ok {
		return
	}

	items := make([]groupItem, 0, len(last.Outcome.Groups))
	for key, paths := range last.Outcome.Groups {
		items = append(items, groupItem{Key: key, Size: len(paths), Paths: paths})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })

	writeJSON(w, http.StatusOK, groupListResponse{
		Method:     last.Request.Method,
		ScannedAt:  last.FinishedAt.UTC(),
		Directory:  last.Request.Directory,
		GroupCount: len(items),
		Groups:     items,
	})
}

// Get handles GET /api/groups/{key}.
func (h *GroupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	last, ok := h.lastDone(w)
	if !ok {
		return
	}

	key := chi.URLParam(r, "key")
	paths, ok := last.Outcome.Groups[key]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Group not found: "+key)
		return
	}
	writeJSON(w, http.StatusOK, groupItem{Key: key, Size: len(paths), Paths: paths})
}

// lastDone fetches the latest completed scan, writing the error response
// itself when there is none.
func (h *GroupsHandler) lastDone(w http.ResponseWriter) (*scan.Result, bool) {
	last := h.Manager.Last()
	if last == nil || last.Outcome.State != scan.StateDone {
		writeError(w, http.StatusNotFound, "NO_RESULTS", "No completed scan results are available")
		return nil, false
	}
	return last, true
}
