// Package types declares the wire envelopes shared by every HTTP response.
package types

// SuccessEnvelope wraps every 2xx body under a data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error shape. Details carries field-level
// validation messages when present.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx body under an error key.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
