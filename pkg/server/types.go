package server

// ExplainRequest is the body of POST /v1/explain.
type ExplainRequest struct {
	// Identity is the caller's user identifier. Admission control,
	// conversation context, and usage accounting all key on it.
	Identity string `json:"identity"`

	// Question is the news text or question to explain.
	Question string `json:"question"`
}

// ExplainResponse is the body of a successful explain call.
type ExplainResponse struct {
	// Answer is the explanation text.
	Answer string `json:"answer"`

	// Model is the model that produced the answer.
	Model string `json:"model"`

	// Cached is true when the answer was served from cache without a
	// provider call.
	Cached bool `json:"cached"`

	// RequestID correlates the response with server logs.
	RequestID string `json:"request_id,omitempty"`
}

// Answer is the cached unit: one explanation and the model that
// produced it.
type Answer struct {
	Text  string
	Model string
}

// errorBody is the JSON error envelope returned on failures.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Error types used in responses.
const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeRateLimit      = "rate_limit_error"
	errTypeUpstream       = "upstream_error"
	errTypeServer         = "server_error"
)
