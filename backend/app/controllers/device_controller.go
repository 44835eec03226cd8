package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"arceus-fleet/backend/app/bus"
	"arceus-fleet/backend/app/commands"
	"arceus-fleet/backend/app/dto"
	"arceus-fleet/backend/app/events"
	"arceus-fleet/backend/app/fleet"
	jwtutil "arceus-fleet/backend/app/jwt"
	"arceus-fleet/backend/app/models"
	"arceus-fleet/backend/app/services"
)

type DeviceController struct {
	Devices   *services.DeviceService
	Projector *fleet.Projector
	Client    *commands.Client
	Bus       *bus.Bus
	Signer    *jwtutil.Signer
}

func NewDeviceController(devices *services.DeviceService, projector *fleet.Projector, client *commands.Client, b *bus.Bus, signer *jwtutil.Signer) *DeviceController {
	return &DeviceController{Devices: devices, Projector: projector, Client: client, Bus: b, Signer: signer}
}

// List serves the bulk fetch: the full live snapshot the UI resyncs from.
func (c *DeviceController) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.Projector.Snapshot())
}

// Get serves one device snapshot by id.
func (c *DeviceController) Get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	d, ok := c.Projector.Get(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d)
}

// Register provisions a device identity and token ahead of the first
// socket login. Agents enroll with serial/model/firmware only; the
// backend mints the id and keeps it stable across re-enrollment of the
// same serial.
func (c *DeviceController) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.DeviceRegisterRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Serial == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	deviceID := req.DeviceID
	if deviceID == "" {
		if d, err := c.Devices.FindBySerial(req.Serial); err == nil {
			deviceID = d.UUID
		} else {
			deviceID = uuid.NewString()
		}
	}
	if err := c.Devices.UpsertDevice(&models.Device{
		UUID:     deviceID,
		Serial:   req.Serial,
		Model:    req.Model,
		Firmware: req.Firmware,
	}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	token, err := c.Signer.SignDevice(deviceID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(dto.DeviceRegisterResponse{DeviceID: deviceID, DeviceToken: token})
}

// Rename updates the registry name for a serial, announces the change
// and pushes it to the device when connected. The empty-name fallback to
// model stays a render concern; storage keeps what the operator set.
func (c *DeviceController) Rename(w http.ResponseWriter, r *http.Request) {
	var req dto.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Serial == "" || req.Name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	d, err := c.Devices.FindBySerial(req.Serial)
	if err != nil {
		if services.IsNotFound(err) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := c.Devices.Rename(req.Serial, req.Name); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	c.Bus.Publish(&events.DeviceNameChanged{Serial: req.Serial, Name: req.Name})
	// best effort: offline devices pick the name up at next login
	_, _ = c.Client.SetDeviceName(r.Context(), d.UUID, req.Name)
	w.WriteHeader(http.StatusNoContent)
}
