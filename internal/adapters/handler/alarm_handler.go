package handler

import (
	"encoding/json"
	"net/http"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/adapters/middleware"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
)

type AlarmHandler struct {
	alarmService ports.AlarmService
}

func NewAlarmHandler(alarmService ports.AlarmService) *AlarmHandler {
	return &AlarmHandler{alarmService: alarmService}
}

type triggerRequest struct {
	RoomID string `json:"room_id"`
}

func (h *AlarmHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	var status *domain.AlarmStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.AlarmStatus(s)
		status = &st
	}

	alarms, err := h.alarmService.List(r.Context(), caller, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", alarms)
}

func (h *AlarmHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid request payload"))
		return
	}

	alarm, err := h.alarmService.Trigger(r.Context(), caller, req.RoomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Alarm triggered successfully", alarm)
}

func (h *AlarmHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	alarm, err := h.alarmService.Acknowledge(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Alarm acknowledged successfully", alarm)
}

func (h *AlarmHandler) Reset(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	alarm, err := h.alarmService.Reset(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Alarm reset successfully", alarm)
}

func (h *AlarmHandler) ActiveForCaretaker(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	alarms, err := h.alarmService.ActiveForCaretaker(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", alarms)
}
