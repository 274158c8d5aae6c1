package handlers

import "net/http"

// UploadConfig exposes what a browser needs for direct unsigned uploads to
// the image host; the API secret never leaves the server.
type UploadConfig struct {
	CloudName    string
	APIKey       string
	UploadPreset string
}

func (h *UploadConfig) Get(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, "", map[string]string{
		"cloud_name":    h.CloudName,
		"api_key":       h.APIKey,
		"upload_preset": h.UploadPreset,
	})
}
