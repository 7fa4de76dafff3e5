package core

import (
	"sync"
	"time"
)

// Phase enumerates the states of the generation workflow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseFailure
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseFailure:
		return "failure"
	}
	return "unknown"
}

// UploadedImage is the single active source image for generation.
type UploadedImage struct {
	MimeType string
	Data     []byte
}

// StylizedResult is the outcome of a successful generation attempt.
// It is overwritten on each attempt.
type StylizedResult struct {
	MimeType  string
	Data      []byte
	Style     string
	CreatedAt time.Time
}

// Snapshot is a point-in-time copy of the workflow state for handlers.
type Snapshot struct {
	Phase   Phase
	Upload  *UploadedImage
	Result  *StylizedResult
	LastErr error
}

// Workflow owns the upload slot and the generation lifecycle
// (idle -> loading -> success/failure -> idle). The trigger exclusion
// during loading is an explicit in-flight flag rather than a UI
// convention: Begin fails with ErrBusy while a request is outstanding.
type Workflow struct {
	mu       sync.Mutex
	phase    Phase
	inFlight bool
	upload   *UploadedImage
	result   *StylizedResult
	lastErr  error
}

func NewWorkflow() *Workflow {
	return &Workflow{phase: PhaseIdle}
}

// SetUpload replaces any prior uploaded image. At most one upload is
// active at a time.
func (w *Workflow) SetUpload(mimeType string, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.upload = &UploadedImage{MimeType: mimeType, Data: data}
}

// Upload returns the active uploaded image, or nil if none is set.
func (w *Workflow) Upload() *UploadedImage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.upload
}

// Begin transitions the workflow into the loading phase and returns the
// image to send. It fails with ErrMissingInput when no upload is active
// (the loading phase is never entered) and with ErrBusy when a request
// is already in flight.
func (w *Workflow) Begin() (*UploadedImage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight {
		return nil, ErrBusy
	}
	if w.upload == nil {
		w.phase = PhaseFailure
		w.lastErr = ErrMissingInput
		return nil, ErrMissingInput
	}

	w.inFlight = true
	w.phase = PhaseLoading
	w.result = nil
	w.lastErr = nil
	return w.upload, nil
}

// Complete ends the in-flight request successfully. The previous result,
// if any, is replaced.
func (w *Workflow) Complete(result *StylizedResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	w.phase = PhaseSuccess
	w.result = result
	w.lastErr = nil
}

// Fail ends the in-flight request with an error.
func (w *Workflow) Fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	w.phase = PhaseFailure
	w.result = nil
	w.lastErr = err
}

// Result returns the current stylized result, or nil if the last attempt
// did not succeed.
func (w *Workflow) Result() *StylizedResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// State returns a point-in-time copy of the workflow state.
func (w *Workflow) State() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		Phase:   w.phase,
		Upload:  w.upload,
		Result:  w.result,
		LastErr: w.lastErr,
	}
}
