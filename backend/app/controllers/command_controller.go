package controllers

import (
	"encoding/json"
	"net/http"

	"arceus-fleet/backend/app/commands"
	"arceus-fleet/backend/app/dto"
	"arceus-fleet/backend/app/middleware"
	"arceus-fleet/backend/app/repo"
	"arceus-fleet/backend/app/socket"
	"arceus-fleet/backend/global"
)

type CommandController struct {
	Client *commands.Client
	Hub    *socket.Hub
	Repo   *repo.FleetCommandRepository
}

func NewCommandController(client *commands.Client, hub *socket.Hub, r *repo.FleetCommandRepository) *CommandController {
	return &CommandController{Client: client, Hub: hub, Repo: r}
}

// Post accepts one command for a set of devices. 202 means accepted by
// the backend, not completed by any device; completion arrives on the
// event feed.
func (c *CommandController) Post(w http.ResponseWriter, r *http.Request) {
	var req dto.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Command == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	acc, err := c.Client.Dispatch(r.Context(), req.Command, req.DeviceIDs, req.Argument)
	if err != nil {
		// validation failure only: offline targets are not an error
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	// audit trail: who pushed what
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		global.Logger.Info().Str("operator", claims.Username).Str("command", req.Command).Int("targets", len(acc.DeviceIDs)).Msg("command dispatched")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(acc)
}

func (c *CommandController) Online(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("deviceid")
	w.Header().Set("Content-Type", "application/json")
	if id != "" {
		_ = json.NewEncoder(w).Encode(map[string]bool{"online": c.Hub.IsOnline(id)})
		return
	}
	list := c.Hub.OnlineDevices()
	_ = json.NewEncoder(w).Encode(map[string]any{
		"online_devices": list,
		"count":          len(list),
	})
}

// Queue trả về danh sách command trong queue của 1 device.
// GET /admin/command/queue?deviceid=...&include_sent=true|false
func (c *CommandController) Queue(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("deviceid")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	includeSent := r.URL.Query().Get("include_sent") == "true"
	cmds, err := c.Repo.ListByDevice(id, includeSent)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	out := make([]dto.QueuedCommand, 0, len(cmds))
	for _, q := range cmds {
		out = append(out, dto.QueuedCommand{
			ID:          q.ID,
			Command:     q.Command,
			Payload:     q.Payload,
			OperationID: q.OperationID,
			Status:      q.Status,
			LastError:   q.LastError,
			CreatedAt:   q.CreatedAt.Unix(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
