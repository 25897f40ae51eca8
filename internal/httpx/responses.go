package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error codes carried in the error envelope.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeDuplicateISBN        = "DUPLICATE_ISBN"
	CodeEnrichmentFailed     = "ENRICHMENT_FAILED"
	CodeInternal             = "INTERNAL_ERROR"
	CodeTooLarge             = "REQUEST_TOO_LARGE"
	CodeRateLimited          = "RATE_LIMIT_EXCEEDED"
	CodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
)

type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   ErrorResponseBody `json:"error"`
}

type ErrorResponseBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes v as the whole response body.
func JSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func JSONError(w http.ResponseWriter, statusCode int, code string, message string, details []ErrorDetail) {
	JSON(w, statusCode, ErrorResponse{
		Success: false,
		Error: ErrorResponseBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

var ErrTrailingData = errors.New("unexpected data after JSON body")

// DecodeJSON decodes the request body into dst. Trailing data is rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return ErrTrailingData
	}
	return nil
}
