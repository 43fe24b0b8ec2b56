package gemini

import "errors"

var (
	ErrGeminiUnavailable = errors.New("gemini service unavailable")
	ErrInvalidResponse   = errors.New("invalid response from gemini")
	ErrEmptyResponse     = errors.New("no text in gemini response")
	ErrRequestRejected   = errors.New("gemini rejected the request")
)
