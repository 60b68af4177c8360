package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"diet-scheduler/internal/export"
	"diet-scheduler/internal/middleware"
	"diet-scheduler/internal/model"
)

func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.Local)
}

func (h *Handler) weekView(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	if start == "" {
		writeError(w, http.StatusBadRequest, "start date required")
		return
	}
	weekStart, err := parseDay(start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad start date")
		return
	}
	days, err := h.booking.WeekView(r.Context(), weekStart)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

func (h *Handler) weekCalendar(w http.ResponseWriter, r *http.Request) {
	weekStart, err := parseDay(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad start date")
		return
	}
	from := weekStart
	to := from.AddDate(0, 0, 7)
	appts, err := h.st.ListAppointments(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	brks, err := h.st.ListBreaks(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	buf, filename, err := export.WeekCalendar(weekStart, appts, brks)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(buf.Bytes())
}

// scheduleEvents streams store changes to the client as server-sent
// events so every open grid re-renders without polling.
func (h *Handler) scheduleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ch, err := h.st.Subscribe(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

type bookRequest struct {
	Date string `json:"date"` // "2006-01-02"
	Hour int    `json:"hour"`
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	day, err := parseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad date")
		return
	}
	ctx := r.Context()
	a, err := h.booking.Book(ctx, middleware.UserID(ctx), middleware.UserName(ctx), day, req.Hour)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	ctx := r.Context()
	if err := h.booking.Cancel(ctx, id, middleware.UserID(ctx), middleware.Role(ctx)); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type breakRequest struct {
	FromTime     string `json:"fromTime"`
	ToTime       string `json:"toTime"`
	SpecificDate string `json:"specificDate,omitempty"`
}

func (h *Handler) addBreak(w http.ResponseWriter, r *http.Request) {
	var req breakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	b, err := h.breaks.AddBreak(r.Context(), req.FromTime, req.ToTime, req.SpecificDate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

type toggleRequest struct {
	Date string `json:"date"`
	Hour int    `json:"hour"`
}

func (h *Handler) toggleBreak(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	day, err := parseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad date")
		return
	}
	ctx := r.Context()
	res, err := h.breaks.ToggleSlotBreak(ctx, middleware.UserID(ctx), day, req.Hour)
	if err != nil {
		h.log.Warn("slot toggle failed",
			zap.String("date", req.Date),
			zap.Int("hour", req.Hour),
			zap.Error(err))
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) removeBreak(w http.ResponseWriter, r *http.Request) {
	if err := h.breaks.RemoveBreak(r.Context(), r.PathValue("id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) listNotices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notices, err := h.st.ListNotices(ctx, middleware.UserID(ctx))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if notices == nil {
		notices = []model.Notice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notices": notices})
}

func (h *Handler) markNoticeRead(w http.ResponseWriter, r *http.Request) {
	if err := h.st.MarkNoticeRead(r.Context(), r.PathValue("id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
