package controllers

import (
	"encoding/json"
	"net/http"

	"arceus-fleet/backend/app/updater"
)

type UpdateController struct{ Service *updater.Service }

func NewUpdateController(service *updater.Service) *UpdateController {
	return &UpdateController{Service: service}
}

// Manifest serves the published self-update document the desktop shell
// polls at launch.
func (c *UpdateController) Manifest(w http.ResponseWriter, r *http.Request) {
	m := c.Service.Manifest()
	if m == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m)
}

// Status reports the current self-update phase.
func (c *UpdateController) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.Service.Machine().Current())
}
