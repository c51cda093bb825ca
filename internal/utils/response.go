package utils

import (
	"encoding/json"
	"net/http"
)

// JSON encodes payload to the response with the given status. A nil payload
// writes the status line only.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// JSONError wraps message in the {"error": ...} shape every handler uses.
func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
