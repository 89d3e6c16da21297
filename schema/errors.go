package schema

import "errors"

var (
	// ErrTabNotFound indicates a referenced tab id does not resolve.
	ErrTabNotFound = errors.New("tab not found")
	// ErrFieldNotFound indicates a referenced field id does not resolve.
	ErrFieldNotFound = errors.New("field not found")
	// ErrIndexOutOfRange indicates a positional index outside the field list.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNoImage indicates an analysis request without an image.
	ErrNoImage = errors.New("No image file provided")
	// ErrNotImage indicates the uploaded content is not an image.
	ErrNotImage = errors.New("uploaded file is not an image")
	// ErrMissingAPIKey indicates the vision provider credential is absent.
	ErrMissingAPIKey = errors.New("OpenAI API key not configured")
	// ErrAnalysisBusy indicates an analysis is already running for the upload slot.
	ErrAnalysisBusy = errors.New("analysis already running for this upload")
	// ErrInvalidSnapshot indicates a snapshot document failed validation.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrSinkUnavailable indicates a save sink is not configured.
	ErrSinkUnavailable = errors.New("save sink not configured")
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
)
