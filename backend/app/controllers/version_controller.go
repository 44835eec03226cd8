package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"arceus-fleet/backend/app/dto"
	"arceus-fleet/backend/app/models"
	"arceus-fleet/backend/app/services"
)

type VersionController struct{ Versions *services.VersionService }

func NewVersionController(versions *services.VersionService) *VersionController {
	return &VersionController{Versions: versions}
}

// Games handles GET (list) and POST (publish) on the game catalog.
func (c *VersionController) Games(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		vs, err := c.Versions.ListGames()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(vs)
	case http.MethodPost:
		var req dto.GameVersionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		v := models.GameVersion{
			PackageName: req.PackageName,
			Version:     req.Version,
			Label:       req.Label,
			APKURL:      req.APKURL,
			Signature:   req.Signature,
			Notes:       req.Notes,
			Channel:     req.Channel,
		}
		if err := c.Versions.PublishGame(&v); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(v)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DeleteGame removes one published game version by id.
func (c *VersionController) DeleteGame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 32)
	if err != nil || id == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := c.Versions.DeleteGame(uint(id)); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Firmware handles GET (list) and POST (publish) on firmware builds.
func (c *VersionController) Firmware(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		vs, err := c.Versions.ListFirmware()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(vs)
	case http.MethodPost:
		var req dto.FirmwareVersionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		v := models.FirmwareVersion{
			Model:      req.Model,
			Version:    req.Version,
			ArchiveURL: req.ArchiveURL,
			Signature:  req.Signature,
			Notes:      req.Notes,
		}
		if err := c.Versions.PublishFirmware(&v); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(v)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (c *VersionController) DeleteFirmware(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 32)
	if err != nil || id == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := c.Versions.DeleteFirmware(uint(id)); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
