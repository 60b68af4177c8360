// Package handler is the thin HTTP/JSON layer over the scheduling
// engine. All scheduling rules live in the managers; this layer parses,
// authenticates, and maps errors to statuses.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"diet-scheduler/internal/booking"
	"diet-scheduler/internal/breaks"
	"diet-scheduler/internal/metrics"
	"diet-scheduler/internal/middleware"
	"diet-scheduler/internal/reminder"
	"diet-scheduler/internal/store"
)

type Handler struct {
	booking   *booking.Manager
	breaks    *breaks.Manager
	reminders *reminder.Set
	st        store.Store
	log       *zap.Logger
}

func New(bm *booking.Manager, bkm *breaks.Manager, rs *reminder.Set, st store.Store, log *zap.Logger) *Handler {
	return &Handler{booking: bm, breaks: bkm, reminders: rs, st: st, log: log}
}

// Routes wires every endpoint behind the middleware chain.
func (h *Handler) Routes(secret string, rl *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/schedule/week", h.weekView)
	mux.HandleFunc("GET /api/v1/schedule/week.ics", h.weekCalendar)
	mux.HandleFunc("GET /api/v1/schedule/events", h.scheduleEvents)

	mux.HandleFunc("POST /api/v1/appointments", h.book)
	mux.HandleFunc("DELETE /api/v1/appointments/{id}", h.cancel)

	mux.Handle("POST /api/v1/breaks", middleware.RequireDietician(http.HandlerFunc(h.addBreak)))
	mux.Handle("POST /api/v1/breaks/toggle", middleware.RequireDietician(http.HandlerFunc(h.toggleBreak)))
	mux.Handle("DELETE /api/v1/breaks/{id}", middleware.RequireDietician(http.HandlerFunc(h.removeBreak)))

	mux.HandleFunc("GET /api/v1/reminders", h.listReminders)
	mux.HandleFunc("PUT /api/v1/reminders", h.putReminder)
	mux.HandleFunc("DELETE /api/v1/reminders/{id}", h.deleteReminder)
	mux.HandleFunc("POST /api/v1/reminders/supersede", h.supersedeReminders)

	mux.HandleFunc("GET /api/v1/notices", h.listNotices)
	mux.HandleFunc("POST /api/v1/notices/{id}/read", h.markNoticeRead)

	var out http.Handler = mux
	out = middleware.Auth(secret)(out)
	out = middleware.RateLimit(rl)(out)
	out = middleware.Prometheus(out)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps engine errors onto statuses. Every error is
// dismissible; nothing here is fatal to the process.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var pf *breaks.PartialFailure
	switch {
	case errors.As(err, &pf):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":            "slot preempt incomplete",
			"bookingCancelled": pf.BookingCancelled,
			"noticeWritten":    pf.NoticeWritten,
			"breakCreated":     pf.BreakCreated,
		})
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot unavailable")
	case errors.Is(err, booking.ErrAlreadyBooked):
		writeError(w, http.StatusConflict, "you already have an upcoming appointment")
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "not your appointment")
	case errors.Is(err, booking.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, "invalid slot")
	case errors.Is(err, breaks.ErrOverlap):
		writeError(w, http.StatusConflict, "overlaps an existing daily break")
	case errors.Is(err, breaks.ErrBadTimeRange):
		writeError(w, http.StatusBadRequest, "break end must be after start")
	case errors.Is(err, breaks.ErrBadDate):
		writeError(w, http.StatusBadRequest, "bad break date")
	case errors.Is(err, reminder.ErrRegistrationFailed):
		writeError(w, http.StatusConflict, "could not register the reminder; it was left unscheduled")
	case errors.Is(err, reminder.ErrMessageTooLong), errors.Is(err, reminder.ErrBadDay):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
