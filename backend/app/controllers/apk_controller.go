package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"arceus-fleet/backend/app/apk"
)

type APKController struct{ Store *apk.Store }

func NewAPKController(store *apk.Store) *APKController { return &APKController{Store: store} }

// Upload receives a multipart APK and stores it for install_local_apk.
func (c *APKController) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("missing file"))
		return
	}
	defer file.Close()

	artifact, err := c.Store.Save(header.Filename, file)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(artifact)
}

// Download streams a stored artifact to a device.
func (c *APKController) Download(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	path, err := c.Store.Path(name)
	if err != nil {
		if errors.Is(err, apk.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.android.package-archive")
	http.ServeFile(w, r, path)
}

func (c *APKController) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.Store.List())
}
