// internal/common/utils/response.go
// JSON envelope helpers shared by every handler

package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
)

// Response is the standard API envelope
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Results *int        `json:"results,omitempty"`
	Total   *int        `json:"total,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// SuccessResponse sends a single entity
func SuccessResponse(w http.ResponseWriter, code int, data interface{}) {
	writeJSON(w, code, Response{Status: "success", Data: data})
}

// ListResponse sends a page of entities with the page-independent total
func ListResponse(w http.ResponseWriter, total int, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Status: "success", Total: &total, Data: data})
}

// ResultsResponse sends a page with both the page size and the total
func ResultsResponse(w http.ResponseWriter, results, total int, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Status:  "success",
		Results: &results,
		Total:   &total,
		Data:    data,
	})
}

// MessageResponse sends a bare confirmation
func MessageResponse(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, Response{Status: "success", Message: message})
}

// ErrorResponse maps an application error to its HTTP status and a
// stable reason code. Internal causes are logged, never returned.
func ErrorResponse(w http.ResponseWriter, err error) {
	appErr := apperrors.From(err)
	if appErr.Kind == apperrors.KindInternal {
		log.Printf("internal error: %v", appErr)
	}
	writeJSON(w, appErr.HTTPStatus(), Response{
		Status:  "error",
		Reason:  appErr.Reason,
		Message: appErr.Message,
	})
}
