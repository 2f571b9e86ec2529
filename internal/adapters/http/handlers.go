package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"gymops/internal/adapters/calendar"
	scheduleStore "gymops/internal/adapters/storage/schedule"
	"gymops/internal/application/orchestrators"
	"gymops/internal/application/projections"
	"gymops/internal/domain/recurrence"
	"gymops/internal/domain/schedule"
)

func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode_response_failed", "error", err)
	}
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, schedule.ErrDuplicateID):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, recurrence.ErrNoOccurrences),
		errors.Is(err, recurrence.ErrEmptySelection),
		errors.Is(err, recurrence.ErrHorizonTooFar):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, schedule.ErrInvalidRange),
		errors.Is(err, schedule.ErrInvalidDay),
		errors.Is(err, schedule.ErrInvalidTime),
		errors.Is(err, schedule.ErrInvalidType),
		errors.Is(err, schedule.ErrMissingAnchor),
		errors.Is(err, schedule.ErrEmptyDate),
		errors.Is(err, projections.ErrMissingDay),
		errors.Is(err, orchestrators.ErrSlotIDRequired),
		errors.Is(err, scheduleStore.ErrInvalidBranch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		internalError(w, err)
	}
}

// inputLayouts are the accepted date and date-time forms, most precise first.
var inputLayouts = []string{"2006-01-02T15:04:05", schedule.DateTimeLayout, schedule.DateLayout}

// parseDate accepts a date or a date-time, with or without seconds; empty
// yields the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a YYYY-MM-DD date or YYYY-MM-DDTHH:MM[:SS] date-time", s)
}

// branchStore resolves the :branch parameter, writing a 400 on failure.
func (h *handlers) branchStore(w http.ResponseWriter, ps httprouter.Params) (string, scheduleStore.Store, bool) {
	branch := ps.ByName("branch")
	store, err := h.cfg.Registry.For(branch)
	if err != nil {
		writeError(w, err)
		return "", nil, false
	}
	return branch, store, true
}

// --- Health & perf ---

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"branches": len(h.cfg.Registry.Branches()),
	})
}

// handlePerf serves the perf snapshot for the last ?minutes= (default 15).
func (h *handlers) handlePerf(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.cfg.Collector == nil {
		http.Error(w, "perf collection disabled", http.StatusNotFound)
		return
	}
	minutes := 15
	if v := r.URL.Query().Get("minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "minutes must be a positive integer", http.StatusBadRequest)
			return
		}
		minutes = n
	}
	since := h.cfg.Now().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, h.cfg.Collector.Snapshot(since, 10))
}

// --- Slots ---

// slotRequest is the JSON body of slot create and update.
type slotRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	Type        string `json:"type"`
	Color       string `json:"color"`
	StartDay    string `json:"start_day"`
	StartTime   string `json:"start_time"`
	EndDay      string `json:"end_day"`
	EndTime     string `json:"end_time"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	AnyTime     bool   `json:"any_time"`
}

func (req slotRequest) input() (orchestrators.SlotInput, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return orchestrators.SlotInput{}, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return orchestrators.SlotInput{}, err
	}
	return orchestrators.SlotInput{
		Title:       req.Title,
		Description: req.Description,
		Notes:       req.Notes,
		Type:        req.Type,
		Color:       req.Color,
		StartDay:    req.StartDay,
		StartTime:   req.StartTime,
		EndDay:      req.EndDay,
		EndTime:     req.EndTime,
		StartDate:   start,
		EndDate:     end,
		AnyTime:     req.AnyTime,
	}, nil
}

func decodeSlot(w http.ResponseWriter, r *http.Request) (orchestrators.SlotInput, bool) {
	var req slotRequest
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return orchestrators.SlotInput{}, false
	}
	in, err := req.input()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return orchestrators.SlotInput{}, false
	}
	return in, true
}

// handleListSlots lists every slot, or filters by ?day=, ?date= or ?week=.
func (h *handlers) handleListSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, store, ok := h.branchStore(w, ps)
	if !ok {
		return
	}
	deps := projections.SlotsDeps{Store: store}
	q := r.URL.Query()

	if week := q.Get("week"); week != "" {
		start, err := parseDate(week)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		view, err := projections.QuerySlotsForWeek(r.Context(), start, deps)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	if q.Has("day") || q.Has("date") {
		date, err := parseDate(q.Get("date"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slots, err := projections.QuerySlotsForDay(r.Context(), projections.SlotsForDayQuery{Day: q.Get("day"), Date: date}, deps)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, slots)
		return
	}

	slots, err := projections.QueryAllSlots(r.Context(), deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *handlers) handleGetSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, store, ok := h.branchStore(w, ps)
	if !ok {
		return
	}
	s, err := store.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projections.NewSlotView(s))
}

func (h *handlers) handleCreateSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branch, store, ok := h.branchStore(w, ps)
	if !ok {
		return
	}
	in, ok := decodeSlot(w, r)
	if !ok {
		return
	}
	s, err := orchestrators.ExecuteCreateSlot(r.Context(),
		orchestrators.CreateSlotInput{Branch: branch, Slot: in},
		orchestrators.CreateSlotDeps{Store: store})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, projections.NewSlotView(s))
}

func (h *handlers) handleUpdateSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branch, store, ok := h.branchStore(w, ps)
	if !ok {
		return
	}
	in, ok := decodeSlot(w, r)
	if !ok {
		return
	}
	s, err := orchestrators.ExecuteUpdateSlot(r.Context(),
		orchestrators.UpdateSlotInput{Branch: branch, ID: ps.ByName("id"), Slot: in},
		orchestrators.UpdateSlotDeps{Store: store})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projections.NewSlotView(s))
}

func (h *handlers) handleDeleteSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branch, store, ok := h.branchStore(w, ps)
	if !ok {
		return
	}
	err := orchestrators.ExecuteDeleteSlot(r.Context(),
		orchestrators.DeleteSlotInput{Branch: branch, ID: ps.ByName("id")},
		orchestrators.DeleteSlotDeps{Store: store})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Recurrence ---

// recurrenceRequest is the JSON body of preview and commit.
type recurrenceRequest struct {
	WeekStart             string   `json:"week_start"`
	Horizon               string   `json:"horizon"`
	ExcludedSourceIDs     []string `json:"excluded_source_ids"`
	ExcludedOccurrenceIDs []string `json:"excluded_occurrence_ids"`
}

func decodeRecurrence(w http.ResponseWriter, r *http.Request) (recurrenceRequest, time.Time, time.Time, bool) {
	var req recurrenceRequest
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return req, time.Time{}, time.Time{}, false
	}
	if req.WeekStart == "" || req.Horizon == "" {
		http.Error(w, "week_start and horizon are required", http.StatusBadRequest)
		return req, time.Time{}, time.Time{}, false
	}
	weekStart, err := parseDate(req.WeekStart)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, time.Time{}, time.Time{}, false
	}
	horizon, err := parseDate(req.Horizon)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, time.Time{}, time.Time{}, false
	}
	return req, weekStart, horizon, true
}

func (h *handlers) handlePreviewRecurrence(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, store, ok := h.branchStore(w, ps)
	if !ok {
		return
	}
	req, weekStart, horizon, ok := decodeRecurrence(w, r)
	if !ok {
		return
	}
	result, err := projections.QueryPreviewRecurrence(r.Context(), projections.PreviewRecurrenceQuery{
		WeekStart:             weekStart,
		Horizon:               horizon,
		ExcludedSourceIDs:     req.ExcludedSourceIDs,
		ExcludedOccurrenceIDs: req.ExcludedOccurrenceIDs,
	}, projections.PreviewRecurrenceDeps{Store: store, MaxWeeks: h.cfg.MaxWeeks})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// commitResponse reports the slots written by a commit.
type commitResponse struct {
	Created  int                    `json:"created"`
	Slots    []projections.SlotView `json:"slots"`
	Notified bool                   `json:"notified"`
}

func (h *handlers) handleCommitRecurrence(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branch, store, ok := h.branchStore(w, ps)
	if !ok {
		return
	}
	req, weekStart, horizon, ok := decodeRecurrence(w, r)
	if !ok {
		return
	}
	result, err := orchestrators.ExecuteCommitRecurrence(r.Context(), orchestrators.CommitRecurrenceInput{
		Branch:                branch,
		WeekStart:             weekStart,
		Horizon:               horizon,
		ExcludedSourceIDs:     req.ExcludedSourceIDs,
		ExcludedOccurrenceIDs: req.ExcludedOccurrenceIDs,
	}, orchestrators.CommitRecurrenceDeps{
		Store:      store,
		MaxWeeks:   h.cfg.MaxWeeks,
		Sender:     h.cfg.Sender,
		Recipients: h.cfg.Recipients,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	resp := commitResponse{Created: len(result.Created), Notified: result.Notified, Slots: make([]projections.SlotView, len(result.Created))}
	for i, s := range result.Created {
		resp.Slots[i] = projections.NewSlotView(s)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// --- Calendar export ---

func (h *handlers) handleScheduleICS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branch, store, ok := h.branchStore(w, ps)
	if !ok {
		return
	}
	slots, err := store.All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	name := h.cfg.CalendarName
	if name == "" {
		name = branch + " schedule"
	}
	var buf bytes.Buffer
	if err := (calendar.Export{Name: name, Branch: branch, Now: h.cfg.Now()}).Write(&buf, slots); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.ics"`, branch))
	w.Write(buf.Bytes())
}
