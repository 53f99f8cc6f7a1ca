package handler

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, reason string) {
	body := map[string]string{"error": code}
	if reason != "" {
		body["reason"] = reason
	}
	writeJSON(w, status, body)
}
