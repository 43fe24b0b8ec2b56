package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code, so errors.Is works across WithError copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrFileTooLarge = &AppError{
		Code:       "FILE_TOO_LARGE",
		Message:    "Image exceeds the 5MB upload limit",
		StatusCode: 413,
	}

	ErrUnsupportedImageType = &AppError{
		Code:       "UNSUPPORTED_IMAGE_TYPE",
		Message:    "Image must be JPEG, PNG or WebP",
		StatusCode: 422,
	}

	ErrNoImageSelected = &AppError{
		Code:       "NO_IMAGE_SELECTED",
		Message:    "Select an image before requesting analysis",
		StatusCode: 409,
	}

	ErrPaymentRequired = &AppError{
		Code:       "PAYMENT_REQUIRED",
		Message:    "Free analysis used, payment required to continue",
		StatusCode: 402,
	}

	ErrGatewayInit = &AppError{
		Code:       "GATEWAY_INIT_FAILED",
		Message:    "Could not start the payment checkout",
		StatusCode: 502,
	}

	ErrGatewayVerify = &AppError{
		Code:       "GATEWAY_VERIFY_FAILED",
		Message:    "Payment verification failed",
		StatusCode: 502,
	}

	ErrTransport = &AppError{
		Code:       "ANALYSIS_UNAVAILABLE",
		Message:    "The analysis service is unreachable, please try again",
		StatusCode: 503,
	}

	ErrIncompleteAnalysis = &AppError{
		Code:       "INCOMPLETE_ANALYSIS",
		Message:    "The analysis response is missing required fields, retry with a clearer photo",
		StatusCode: 422,
	}

	ErrNoStructuredData = &AppError{
		Code:       "NO_STRUCTURED_DATA",
		Message:    "No usable analysis could be extracted, retry with a clearer photo",
		StatusCode: 422,
	}

	ErrAnalysisInFlight = &AppError{
		Code:       "ANALYSIS_IN_FLIGHT",
		Message:    "An analysis is already in progress for this session",
		StatusCode: 409,
	}

	ErrAnalysisSuperseded = &AppError{
		Code:       "ANALYSIS_SUPERSEDED",
		Message:    "The analysis was reset before it completed",
		StatusCode: 409,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrMultipleFaces = &AppError{
		Code:       "MULTIPLE_FACES",
		Message:    "Multiple faces detected, please provide a photo with a single face",
		StatusCode: 422,
	}

	ErrAnalysisNotFound = &AppError{
		Code:       "ANALYSIS_NOT_FOUND",
		Message:    "Analysis not found",
		StatusCode: 404,
	}

	ErrNoProfileAvailable = &AppError{
		Code:       "NO_PROFILE_AVAILABLE",
		Message:    "No skin profile found, analyze a photo first",
		StatusCode: 404,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}
)
