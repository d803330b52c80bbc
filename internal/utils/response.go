package utils

import (
	"encoding/json"
	"net/http"
)

type Payload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSONResponse sends a JSON response with given status, success flag, and payload
func JSONResponse(w http.ResponseWriter, status int, payload Payload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// JSONError is the shorthand for failure responses; Error doubles as Message
// so legacy clients reading the "error" field keep working.
func JSONError(w http.ResponseWriter, status int, msg string) {
	JSONResponse(w, status, Payload{
		Success: false,
		Message: msg,
		Error:   msg,
	})
}
