package handler

import (
	"encoding/json"
	"net/http"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/adapters/middleware"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
)

type RoomHandler struct {
	roomService ports.RoomService
}

func NewRoomHandler(roomService ports.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

type createRoomRequest struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	ParentID         string   `json:"parent_id"`
	CustomAlarmSound string   `json:"custom_alarm_sound"`
	CaretakerIDs     []string `json:"caretaker_ids"`
}

// updateRoomRequest uses pointer fields so an omitted key and an explicit
// zero value stay distinguishable; only present keys are applied.
type updateRoomRequest struct {
	Name             *string   `json:"name"`
	Description      *string   `json:"description"`
	ParentID         *string   `json:"parent_id"`
	IsActive         *bool     `json:"is_active"`
	CustomAlarmSound *string   `json:"custom_alarm_sound"`
	CaretakerIDs     *[]string `json:"caretaker_ids"`
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	rooms, err := h.roomService.List(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", rooms)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid request payload"))
		return
	}

	room, err := h.roomService.Create(r.Context(), caller, ports.CreateRoomInput{
		Name:             req.Name,
		Description:      req.Description,
		ParentID:         req.ParentID,
		CustomAlarmSound: req.CustomAlarmSound,
		CaretakerIDs:     req.CaretakerIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Room created successfully", room)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	room, err := h.roomService.Get(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", room)
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	var req updateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid request payload"))
		return
	}

	room, err := h.roomService.Update(r.Context(), caller, r.PathValue("id"), domain.RoomPatch{
		Name:             req.Name,
		Description:      req.Description,
		ParentID:         req.ParentID,
		IsActive:         req.IsActive,
		CustomAlarmSound: req.CustomAlarmSound,
		CaretakerIDs:     req.CaretakerIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Room updated successfully", room)
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	if err := h.roomService.Delete(r.Context(), caller, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Room deleted successfully", nil)
}
