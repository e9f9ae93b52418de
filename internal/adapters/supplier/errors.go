package supplier

import "fmt"

// AuthError is returned when the supplier rejects credentials or a token
// refresh fails.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("supplier auth failed (status %d): %s", e.StatusCode, e.Message)
}

// RateLimitError is returned when the shared quota could not be acquired
// within the bounded attempts, or the supplier keeps answering 429.
type RateLimitError struct {
	Attempts int
	Message  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("supplier rate limit exhausted after %d attempts: %s", e.Attempts, e.Message)
}

// ServerError is returned when a batch keeps failing with 5xx responses
// after retries.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("supplier server error (status %d): %s", e.StatusCode, e.Message)
}

// ClientError is returned on non-retryable 4xx responses.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("supplier client error (status %d): %s", e.StatusCode, e.Message)
}

// PayloadError is returned when a response body cannot be decoded.
type PayloadError struct {
	Message string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("supplier payload error: %s", e.Message)
}
