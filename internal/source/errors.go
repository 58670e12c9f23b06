package source

import "fmt"

// SnapshotLoadError reports a failed bootstrap fetch. It is never fatal to a session.
type SnapshotLoadError struct {
	Op  string
	Err error
}

func (e *SnapshotLoadError) Error() string {
	return fmt.Sprintf("snapshot load: %s: %v", e.Op, e.Err)
}

func (e *SnapshotLoadError) Unwrap() error { return e.Err }

// StreamTransportError ends a live subscription: handshake failure, read failure,
// server-side close or an undecodable event.
type StreamTransportError struct {
	Op  string
	Err error
}

func (e *StreamTransportError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
}

func (e *StreamTransportError) Unwrap() error { return e.Err }

// CommandSubmissionError reports a failed evaluation request to its caller only.
// Status is zero when no HTTP response was received.
type CommandSubmissionError struct {
	Status int
	Err    error
}

func (e *CommandSubmissionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("submit evaluation (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("submit evaluation: %v", e.Err)
}

func (e *CommandSubmissionError) Unwrap() error { return e.Err }
