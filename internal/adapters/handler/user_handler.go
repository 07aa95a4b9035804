package handler

import (
	"encoding/json"
	"net/http"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/adapters/middleware"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
)

type UserHandler struct {
	userService ports.UserService
	roomService ports.RoomService
}

func NewUserHandler(userService ports.UserService, roomService ports.RoomService) *UserHandler {
	return &UserHandler{
		userService: userService,
		roomService: roomService,
	}
}

type assignRoomsRequest struct {
	RoomIDs []string `json:"room_ids"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	users, err := h.userService.List(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", users)
}

func (h *UserHandler) AssignRooms(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	var req assignRoomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid request payload"))
		return
	}
	if req.RoomIDs == nil {
		writeError(w, domain.NewValidationError("room_ids", "room_ids is required"))
		return
	}

	user, err := h.roomService.AssignRooms(r.Context(), caller, r.PathValue("id"), req.RoomIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Rooms assigned successfully", user)
}
