// Package types holds the wire envelopes shared by every HTTP endpoint.
package types

// SuccessEnvelope wraps every 2xx payload under a data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public face of a pkg/errors code: the machine-readable
// code, a display message, and optional validation details.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope carries an APIError on non-2xx responses.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
