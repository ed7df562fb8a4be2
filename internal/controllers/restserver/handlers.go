package restserver

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/JashanChopra/Summit/internal/constants"
	"github.com/JashanChopra/Summit/internal/standards"
	"github.com/JashanChopra/Summit/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, nil); err != nil {
		h.controller.logger.Errorf("error encoding response for %s: %v", req.URL.Path, err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, req *http.Request, status int, message string) {
	if err := h.formatter.WriteError(w, req, status, message); err != nil {
		h.controller.logger.Errorf("error encoding error response for %s: %v", req.URL.Path, err)
	}
}

// parseLimit reads the optional limit query parameter; zero means no limit
func parseLimit(req *http.Request) (int, bool) {
	raw := req.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, false
	}
	return limit, true
}

func parseID(req *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// GetStatus returns row counts for every entity
func (h *Handlers) GetStatus(w http.ResponseWriter, req *http.Request) {
	counts, err := h.controller.store.Counts(req.Context())
	if err != nil {
		h.controller.logger.Errorf("error counting rows: %v", err)
		h.fail(w, req, http.StatusInternalServerError, "error fetching status")
		return
	}

	h.write(w, req, StatusResponse{Version: constants.Version, Counts: counts})
}

// GetFiles returns every registered data file
func (h *Handlers) GetFiles(w http.ResponseWriter, req *http.Request) {
	files, err := h.controller.store.ListFiles(req.Context())
	if err != nil {
		h.controller.logger.Errorf("error listing files: %v", err)
		h.fail(w, req, http.StatusInternalServerError, "error fetching files")
		return
	}

	resp := make([]FileResponse, 0, len(files))
	for _, f := range files {
		resp = append(resp, transformFile(f))
	}
	h.write(w, req, resp)
}

// GetCalEvents returns calibration events, newest first, optionally
// filtered by standard and limited in number
func (h *Handlers) GetCalEvents(w http.ResponseWriter, req *http.Request) {
	limit, ok := parseLimit(req)
	if !ok {
		h.fail(w, req, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	cat := standards.Category(req.URL.Query().Get("standard"))
	if cat != "" && !cat.IsStandard() && cat != standards.Dump {
		h.fail(w, req, http.StatusBadRequest, "unknown standard: "+string(cat))
		return
	}

	events, err := h.controller.store.ListCalEvents(req.Context(), cat, limit)
	if err != nil {
		h.controller.logger.Errorf("error listing calibration events: %v", err)
		h.fail(w, req, http.StatusInternalServerError, "error fetching calibration events")
		return
	}

	resp := make([]CalEventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, transformCalEvent(ev))
	}
	h.write(w, req, resp)
}

// GetCalEvent returns a single calibration event
func (h *Handlers) GetCalEvent(w http.ResponseWriter, req *http.Request) {
	id, ok := parseID(req)
	if !ok {
		h.fail(w, req, http.StatusBadRequest, "invalid id")
		return
	}

	ev, err := h.controller.store.GetCalEvent(req.Context(), id)
	if err != nil {
		h.controller.logger.Errorf("error fetching calibration event %d: %v", id, err)
		h.fail(w, req, http.StatusInternalServerError, "error fetching calibration event")
		return
	}
	if ev == nil {
		h.fail(w, req, http.StatusNotFound, "calibration event not found")
		return
	}

	h.write(w, req, transformCalEvent(*ev))
}

// GetCalEventData returns the member measurements of a calibration event
func (h *Handlers) GetCalEventData(w http.ResponseWriter, req *http.Request) {
	id, ok := parseID(req)
	if !ok {
		h.fail(w, req, http.StatusBadRequest, "invalid id")
		return
	}

	ev, err := h.controller.store.GetCalEvent(req.Context(), id)
	if err != nil {
		h.controller.logger.Errorf("error fetching calibration event %d: %v", id, err)
		h.fail(w, req, http.StatusInternalServerError, "error fetching calibration event")
		return
	}
	if ev == nil {
		h.fail(w, req, http.StatusNotFound, "calibration event not found")
		return
	}

	data, err := h.controller.store.DataForEvent(req.Context(), id)
	if err != nil {
		h.controller.logger.Errorf("error fetching data for calibration event %d: %v", id, err)
		h.fail(w, req, http.StatusInternalServerError, "error fetching calibration event data")
		return
	}

	resp := make([]DatumResponse, 0, len(data))
	for _, d := range data {
		resp = append(resp, transformDatum(d))
	}
	h.write(w, req, resp)
}

// GetMasterCals returns master calibrations, newest first
func (h *Handlers) GetMasterCals(w http.ResponseWriter, req *http.Request) {
	limit, ok := parseLimit(req)
	if !ok {
		h.fail(w, req, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	mcs, err := h.controller.store.ListMasterCals(req.Context(), limit)
	if err != nil {
		h.controller.logger.Errorf("error listing master calibrations: %v", err)
		h.fail(w, req, http.StatusInternalServerError, "error fetching master calibrations")
		return
	}

	resp := make([]MasterCalResponse, 0, len(mcs))
	for _, mc := range mcs {
		resp = append(resp, transformMasterCal(mc))
	}
	h.write(w, req, resp)
}

// GetMasterCal returns a single master calibration
func (h *Handlers) GetMasterCal(w http.ResponseWriter, req *http.Request) {
	id, ok := parseID(req)
	if !ok {
		h.fail(w, req, http.StatusBadRequest, "invalid id")
		return
	}

	mc, err := h.controller.store.GetMasterCal(req.Context(), id)
	if err != nil {
		h.controller.logger.Errorf("error fetching master calibration %d: %v", id, err)
		h.fail(w, req, http.StatusInternalServerError, "error fetching master calibration")
		return
	}
	if mc == nil {
		h.fail(w, req, http.StatusNotFound, "master calibration not found")
		return
	}

	h.write(w, req, transformMasterCal(*mc))
}
