// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is returned when no campaign or progress row
// exists for the requested id.
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrInvalidState is returned when a control operation is not legal
// from the campaign's current status.
type ErrInvalidState struct {
	CampaignID int
	Operation  string
	Current    string
}

func (e *ErrInvalidState) Error() string {
	return fmt.Sprintf("cannot %s campaign %d in status %q", e.Operation, e.CampaignID, e.Current)
}

func NewInvalidState(id int, op, current string) error {
	return &ErrInvalidState{CampaignID: id, Operation: op, Current: current}
}

// SendError is a single-recipient transport failure. It is recorded on
// the message log entry and never aborts the batch.
type SendError struct {
	Recipient string
	Cause     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s failed: %v", e.Recipient, e.Cause)
}

func (e *SendError) Unwrap() error { return e.Cause }

func NewSendError(recipient string, cause error) error {
	return &SendError{Recipient: recipient, Cause: cause}
}

// ExecutionError is a loop-level fault that aborts a run and marks the
// campaign failed.
type ExecutionError struct {
	CampaignID int
	Cause      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("campaign %d execution failed: %v", e.CampaignID, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

func NewExecutionError(id int, cause error) error {
	return &ExecutionError{CampaignID: id, Cause: cause}
}

// ErrTrackingDecode is a malformed tracking token. Handlers swallow it
// at the boundary; it never reaches the pixel or redirect caller.
type ErrTrackingDecode struct {
	Reason string
}

func (e *ErrTrackingDecode) Error() string {
	return fmt.Sprintf("invalid tracking token: %s", e.Reason)
}

func NewTrackingDecode(reason string) error {
	return &ErrTrackingDecode{Reason: reason}
}
