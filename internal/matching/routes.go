package matching

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// Public group page, resolved by access token
	api.HandleFunc("/groups/{token}", handler.GetGroupPage).Methods("GET")

	// Manual trigger for the daily run
	api.HandleFunc("/admin/match-runs", handler.TriggerRun).Methods("POST")
}
