package handlers

import (
	"encoding/json"
	"net/http"
)

// response is the body of every JSON reply: {"message": ..., "data": ...}.
type response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, response{Message: message, Data: data})
}
