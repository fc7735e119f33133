package types

// SuccessEnvelope wraps every successful API response body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape. Message is always safe to show to the
// caller; Details carries field-level validation errors when allowed.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every error API response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
