package editor

import (
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrInvalidChild  = errors.New("node kind not accepted by parent")
	ErrNotImage      = errors.New("node is not an image")
	ErrUploadSettled = errors.New("image upload already settled")
	ErrNoSelection   = errors.New("no selection")
	ErrRootRemoval   = errors.New("root node cannot be removed or moved")
	ErrUnknownKind   = errors.New("unknown node kind")
)

// MalformedDocumentError is returned when a serialized document cannot be
// turned into a valid tree.
type MalformedDocumentError struct {
	Reason string
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed document: %s: %v", e.Reason, e.Err)
	}
	return "malformed document: " + e.Reason
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// TransactionError reports a transaction that was rolled back, either
// because its function returned an error or because it panicked.
type TransactionError struct {
	Err       error
	Recovered any
}

func (e *TransactionError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("transaction panicked: %v", e.Recovered)
	}
	return "transaction failed: " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error { return e.Err }
