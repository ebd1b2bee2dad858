// pkg/middleware/validation.go

package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

const maxBodySize = 1 << 20

// ValidateRequest rejects POST/PUT requests that are not JSON or carry no body.
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				writeError(w, http.StatusUnsupportedMediaType, ErrorResponse{Error: "Invalid Content-Type, expected application/json"})
				return
			}

			if r.ContentLength == 0 {
				writeError(w, http.StatusBadRequest, ErrorResponse{Error: "Request body cannot be empty"})
				return
			}
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

		next.ServeHTTP(w, r)
	})
}

// HandleValidationError writes a 400 describing which field failed.
func HandleValidationError(w http.ResponseWriter, err error, field, value string) {
	log.Printf("Validation error: %v", err)

	writeError(w, http.StatusBadRequest, ErrorResponse{
		Error: err.Error(),
		Field: field,
		Value: value,
	})
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
