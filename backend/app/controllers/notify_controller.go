package controllers

import (
	"encoding/json"
	"net/http"

	"arceus-fleet/backend/app/notify"
)

type NotifyController struct{ Center *notify.Center }

func NewNotifyController(center *notify.Center) *NotifyController {
	return &NotifyController{Center: center}
}

func (c *NotifyController) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"entries": c.Center.Entries(),
		"unread":  c.Center.Unread(),
		"open":    c.Center.IsOpen(),
	})
}

func (c *NotifyController) Toggle(w http.ResponseWriter, r *http.Request) {
	c.Center.Toggle()
	w.WriteHeader(http.StatusNoContent)
}

func (c *NotifyController) Clear(w http.ResponseWriter, r *http.Request) {
	c.Center.Clear()
	w.WriteHeader(http.StatusNoContent)
}
