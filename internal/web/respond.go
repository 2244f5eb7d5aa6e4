package web

import (
	"encoding/json"
	"net/http"
)

// FieldError is one entry of the ordered error list returned for
// validation failures. Field order follows the form declaration order.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type successEnvelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

type errorEnvelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      any    `json:"error"`
}

func Success(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successEnvelope{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

func Error(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{
		Success:    false,
		StatusCode: status,
		Message:    message,
		Error:      nil,
	})
}

// ValidationFailed writes the field-tagged validation contract: a fixed
// message tag per form plus the ordered field errors.
func ValidationFailed(w http.ResponseWriter, tag string, errs []FieldError) {
	writeJSON(w, http.StatusBadRequest, errorEnvelope{
		Success:    false,
		StatusCode: http.StatusBadRequest,
		Message:    tag,
		Error:      errs,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
