package matching

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/quartet-app/quartet-backend/internal/common/utils"
)

type Handler struct {
	service Service
	loc     *time.Location
}

func NewHandler(service Service, loc *time.Location) *Handler {
	return &Handler{service: service, loc: loc}
}

// GetGroupPage resolves a token to the shared group page
func (h *Handler) GetGroupPage(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	page, err := h.service.ResolveGroupPage(r.Context(), token)
	if err != nil {
		if err == ErrGroupNotFound {
			utils.RespondWithError(w, http.StatusNotFound, "Group not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to resolve group")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, page)
}

// TriggerRunDTO is the manual run trigger payload
type TriggerRunDTO struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// TriggerRun runs the daily orchestrator for the requested date
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var dto TriggerRunDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := time.ParseInLocation("2006-01-02", dto.Date, h.loc)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	summary, err := h.service.RunDaily(r.Context(), date)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Match run failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, summary)
}
