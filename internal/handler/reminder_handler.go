package handler

import (
	"encoding/json"
	"net/http"

	"diet-scheduler/internal/middleware"
	"diet-scheduler/internal/model"
)

func (h *Handler) listReminders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.reminders.List(ctx, middleware.UserID(ctx))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if list == nil {
		list = []model.Reminder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": list})
}

type reminderRequest struct {
	ID           string `json:"id,omitempty"`
	Message      string `json:"message"`
	Time         string `json:"time"`
	SelectedDays []int  `json:"selectedDays"`
}

func (h *Handler) putReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	ctx := r.Context()
	rem := &model.Reminder{
		ID:           req.ID,
		Message:      req.Message,
		Time:         req.Time,
		SelectedDays: req.SelectedDays,
		Source:       model.SourceCustom,
	}
	saved, err := h.reminders.Put(ctx, middleware.UserID(ctx), rem)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) deleteReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.reminders.Delete(ctx, middleware.UserID(ctx), r.PathValue("id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type supersedeRequest struct {
	Reminders []reminderRequest `json:"reminders"`
}

// supersedeReminders is invoked after a new diet document was processed
// upstream: the extracted set replaces every previous diet-sourced
// reminder, custom ones untouched.
func (h *Handler) supersedeReminders(w http.ResponseWriter, r *http.Request) {
	var req supersedeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	ctx := r.Context()
	extracted := make([]*model.Reminder, 0, len(req.Reminders))
	for _, in := range req.Reminders {
		extracted = append(extracted, &model.Reminder{
			Message:      in.Message,
			Time:         in.Time,
			SelectedDays: in.SelectedDays,
		})
	}
	if err := h.reminders.Supersede(ctx, middleware.UserID(ctx), extracted); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"scheduled": len(extracted)})
}
