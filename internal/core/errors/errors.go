package errors

const (
	HttpInternalError         = "internal_error"
	HttpInvalidJsonError      = "invalid_json"
	HttpValidationError       = "validation_failed"
	HttpInvalidParameterError = "invalid_parameter"
	HttpPayloadTooLargeError  = "payload_too_large"
	HttpNotFoundError         = "not_found"
	HttpStoreUnavailableError = "store_unavailable"
)

// ErrorResponse is the error response body for every API error.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
