package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAssetType      = errors.New("invalid asset type")
	ErrTransport             = errors.New("transport failure")
	ErrMissingPrimaryAsset   = errors.New("missing primary asset")
	ErrMissingAuxiliaryAsset = errors.New("missing auxiliary asset")
	ErrEmptyInstruction      = errors.New("empty instruction")
	ErrInvalidParameter      = errors.New("invalid parameter")
	ErrMalformedResult       = errors.New("malformed result")
	ErrJobFailed             = errors.New("job failed")
	ErrNothingToRevert       = errors.New("nothing to revert")
	ErrPollExhausted         = errors.New("poll attempts exhausted")
	ErrJobInFlight           = errors.New("job already in flight")
)

// Kind classifies a failure for presentation.
type Kind string

const (
	KindInvalidAssetType      Kind = "InvalidAssetType"
	KindTransportFailure      Kind = "TransportFailure"
	KindMissingPrimaryAsset   Kind = "MissingPrimaryAsset"
	KindMissingAuxiliaryAsset Kind = "MissingAuxiliaryAsset"
	KindEmptyInstruction      Kind = "EmptyInstruction"
	KindInvalidParameter      Kind = "InvalidParameter"
	KindMalformedResult       Kind = "MalformedResult"
	KindJobFailed             Kind = "JobFailed"
	KindNothingToRevert       Kind = "NothingToRevert"
	KindPollExhausted         Kind = "PollExhausted"
	KindJobInFlight           Kind = "JobInFlight"
	KindCanceled              Kind = "Canceled"
	KindInternal              Kind = "Internal"
)

var kindMarkers = []struct {
	marker error
	kind   Kind
}{
	{ErrInvalidAssetType, KindInvalidAssetType},
	{ErrMissingPrimaryAsset, KindMissingPrimaryAsset},
	{ErrMissingAuxiliaryAsset, KindMissingAuxiliaryAsset},
	{ErrEmptyInstruction, KindEmptyInstruction},
	{ErrInvalidParameter, KindInvalidParameter},
	{ErrMalformedResult, KindMalformedResult},
	{ErrJobFailed, KindJobFailed},
	{ErrNothingToRevert, KindNothingToRevert},
	{ErrPollExhausted, KindPollExhausted},
	{ErrJobInFlight, KindJobInFlight},
	{ErrTransport, KindTransportFailure},
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf maps an error to the failure kind reported to the presentation layer.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, entry := range kindMarkers {
		if errors.Is(err, entry.marker) {
			return entry.kind
		}
	}
	if IsCanceled(err) {
		return KindCanceled
	}
	return KindInternal
}

// IsLocal reports whether the failure was raised by client-side validation
// before any network call.
func IsLocal(err error) bool {
	switch KindOf(err) {
	case KindInvalidAssetType, KindMissingPrimaryAsset, KindMissingAuxiliaryAsset,
		KindEmptyInstruction, KindInvalidParameter, KindNothingToRevert, KindJobInFlight:
		return true
	default:
		return false
	}
}

// JobError carries the server-supplied reason for a failed job.
type JobError struct {
	JobID  string
	Reason string
}

func (e *JobError) Error() string {
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		reason = "no reason given"
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, reason)
}

func (e *JobError) Unwrap() error { return ErrJobFailed }

// UserMessage renders a failure for display. Job failures surface the server
// reason verbatim; everything else uses the wrapped error text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var jobErr *JobError
	if errors.As(err, &jobErr) && strings.TrimSpace(jobErr.Reason) != "" {
		return jobErr.Reason
	}
	return err.Error()
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
