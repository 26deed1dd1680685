package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common validation errors for models.
var (
	// ErrNameRequired indicates a required name field is empty.
	ErrNameRequired = errors.New("name is required")

	// ErrChannelNumberRequired indicates a channel's number is missing or non-positive.
	ErrChannelNumberRequired = errors.New("channel number must be positive")

	// ErrChannelDurationRequired indicates a channel's duration is missing or non-positive.
	ErrChannelDurationRequired = errors.New("channel duration_ms must be positive")

	// ErrProgramKeyRequired indicates a program's (source_type, external_source_id, external_key) key is incomplete.
	ErrProgramKeyRequired = errors.New("program source_type, external_source_id, and external_key are required")

	// ErrProgramDurationRequired indicates a program's duration is missing or non-positive.
	ErrProgramDurationRequired = errors.New("program duration_ms must be positive")

	// ErrProgramInvalidType indicates a program's type is not movie, episode, or track.
	ErrProgramInvalidType = errors.New("program type must be movie, episode, or track")

	// ErrLineupItemInvalidType indicates a lineup item's type is not content, redirect, or offline.
	ErrLineupItemInvalidType = errors.New("lineup item type must be content, redirect, or offline")

	// ErrLineupItemDurationRequired indicates a lineup item's duration is missing or non-positive.
	ErrLineupItemDurationRequired = errors.New("lineup item duration_ms must be positive")

	// ErrLineupItemContentRefRequired indicates a content item has no program reference.
	ErrLineupItemContentRefRequired = errors.New("content lineup item requires a program_id")

	// ErrLineupItemRedirectRefRequired indicates a redirect item has no target channel.
	ErrLineupItemRedirectRefRequired = errors.New("redirect lineup item requires a target_channel_id")

	// ErrFillerShowNameRequired indicates a filler show's name is empty.
	ErrFillerShowNameRequired = errors.New("filler show name is required")

	// ErrEncodingProfileNameRequired indicates a required profile name field is empty.
	ErrEncodingProfileNameRequired = errors.New("encoding profile name is required")

	// ErrEncodingProfileInvalidVideoCodec indicates an invalid target video codec.
	ErrEncodingProfileInvalidVideoCodec = errors.New("invalid target video codec")

	// ErrEncodingProfileInvalidAudioCodec indicates an invalid target audio codec.
	ErrEncodingProfileInvalidAudioCodec = errors.New("invalid target audio codec")

	// ErrEncodingProfileInvalidQualityPreset indicates an invalid quality preset.
	ErrEncodingProfileInvalidQualityPreset = errors.New("invalid quality preset")

	// ErrEncodingProfileInvalidHWAccel indicates an invalid hardware acceleration type.
	ErrEncodingProfileInvalidHWAccel = errors.New("invalid hardware acceleration type")
)

// StreamErrorKind classifies a failure per the error taxonomy: it decides
// whether StreamController answers with an HTTP status, substitutes an
// in-stream offline item, or silently retries.
type StreamErrorKind string

const (
	KindBadRequest             StreamErrorKind = "bad_request"
	KindNotFound               StreamErrorKind = "not_found"
	KindEncoderMissing         StreamErrorKind = "encoder_missing"
	KindLineupEmpty            StreamErrorKind = "lineup_empty"
	KindLineupDurationMismatch StreamErrorKind = "lineup_duration_mismatch"
	KindRedirectCycle          StreamErrorKind = "redirect_cycle"
	KindFillerExhausted        StreamErrorKind = "filler_exhausted"
	KindEncoderCrash           StreamErrorKind = "encoder_crash"
	KindTooManyAttempts        StreamErrorKind = "too_many_attempts"
)

// StreamError is the typed error every core component returns when a
// failure needs to be distinguished by kind at the StreamController
// boundary, rather than by type-switching on a sentinel deep inside a
// component.
type StreamError struct {
	Kind   StreamErrorKind
	Detail string
	// Err, if set, is the underlying cause (wrapped for %w/errors.Is).
	Err error
}

// NewStreamError builds a StreamError with no wrapped cause.
func NewStreamError(kind StreamErrorKind, detail string) *StreamError {
	return &StreamError{Kind: kind, Detail: detail}
}

// WrapStreamError builds a StreamError wrapping an underlying cause.
func WrapStreamError(kind StreamErrorKind, detail string, err error) *StreamError {
	return &StreamError{Kind: kind, Detail: detail, Err: err}
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps a StreamError's Kind onto the HTTP status §7 assigns
// it. Kinds that are never surfaced as an HTTP error (RedirectCycle,
// FillerExhausted, EncoderCrash, TooManyAttempts — these are contained
// within a lineup item and substituted in-stream instead) return 0.
func (e *StreamError) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return 400
	case KindNotFound:
		return 404
	case KindEncoderMissing, KindLineupEmpty, KindLineupDurationMismatch:
		return 500
	default:
		return 0
	}
}

// Sentinel errors for the §7 error taxonomy, for callers that only need
// errors.Is and don't need StreamError's Detail/Kind fields.
var (
	ErrBadRequest             = errors.New("bad request")
	ErrNotFound               = errors.New("not found")
	ErrEncoderMissing         = errors.New("encoder executable not found")
	ErrLineupEmpty            = errors.New("lineup has no items")
	ErrLineupDurationMismatch = errors.New("lineup item durations do not sum to channel duration")
	ErrRedirectCycle          = errors.New("redirect cycle detected")
	ErrFillerExhausted        = errors.New("no eligible filler candidate")
	ErrEncoderCrash           = errors.New("encoder process exited abnormally")
	ErrTooManyAttempts        = errors.New("too many failed attempts on this session")
)
