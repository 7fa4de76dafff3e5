package core

import "errors"

var (
	// ErrFileRead indicates the uploaded file could not be read.
	ErrFileRead = errors.New("failed to read uploaded file")

	// ErrMissingInput indicates generation was attempted without an uploaded image.
	ErrMissingInput = errors.New("no image has been uploaded")

	// ErrBusy indicates a generation request is already in flight.
	ErrBusy = errors.New("a generation request is already in progress")

	// ErrGenerationFailed covers both transport failures and responses
	// without image data; the UI reports both the same way.
	ErrGenerationFailed = errors.New("image generation failed")

	// ErrNoResult indicates an export was attempted with no stylized result present.
	ErrNoResult = errors.New("no stylized image is available")
)
