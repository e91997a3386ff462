package response

import (
	"encoding/json"
	"net/http"
)

// MessageBody is the success shape: {"message": "..."}.
type MessageBody struct {
	Message string `json:"message"`
}

// WriteJSON writes v as JSON with the given status code.
// It sets Content-Type to application/json; charset=utf-8 if not already set.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Created writes a 201 with {"message": msg}.
func Created(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusCreated, MessageBody{Message: msg})
}

// OK writes a 200 with v as the body.
func OK(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, v)
}
