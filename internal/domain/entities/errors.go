package entities

import "errors"

// Domain errors
var (
	ErrNoteNotFound      = errors.New("note not found")
	ErrRecordingNotFound = errors.New("recording not found")
	ErrPersonNotFound    = errors.New("person not found")
	ErrSpeakerNotFound   = errors.New("no segments for speaker")
	ErrSegmentNotFound   = errors.New("segment not found")
	ErrInvalidRequest    = errors.New("invalid request")
)
