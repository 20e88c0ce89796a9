package utils

import (
	"encoding/json"
	"net/http"

	"storefront/models"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// RespondWithNotices sends an error body that also carries the notices
// raised while handling the request.
func RespondWithNotices(w http.ResponseWriter, code int, msg string, notices []models.Notice) {
	if notices == nil {
		notices = []models.Notice{}
	}
	RespondWithJSON(w, code, M{"error": msg, "notices": notices})
}

// RespondWithFile sends raw bytes as a download.
func RespondWithFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type M map[string]interface{}
