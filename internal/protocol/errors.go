package protocol

import (
	"errors"
	"fmt"
)

// ErrUnknownCommand is returned by Parse for command names outside the protocol.
var ErrUnknownCommand = errors.New("unknown command")

func unknownCommand(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// ParseError reports a malformed line for a known command.
type ParseError struct {
	Command string
	Msg     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Command, e.Msg)
}

// Line is the reply sent to the client for this parse failure.
func (e *ParseError) Line() string {
	return ErrorLine(e.Command, e.Msg)
}

func parseErr(cmd, msg string) error {
	return &ParseError{Command: cmd, Msg: msg}
}

// Kind classifies a ReplyError for logging and metrics.
type Kind int

const (
	// KindInvalid is a request the server refuses on its own terms.
	KindInvalid Kind = iota
	// KindConflict is a named domain outcome such as a duplicate.
	KindConflict
	// KindFailure is a storage or internal failure.
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindConflict:
		return "conflict"
	default:
		return "failure"
	}
}

// ReplyError is a command outcome that is answered with a single line.
type ReplyError struct {
	Line string
	Kind Kind
	Err  error
}

func (e *ReplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Line, e.Err)
	}
	return e.Line
}

func (e *ReplyError) Unwrap() error { return e.Err }

// Conflict answers with a fixed line such as REGISTER_DUP or JOIN_ERR|USER_NOT_FOUND.
func Conflict(line string, cause error) *ReplyError {
	return &ReplyError{Line: line, Kind: KindConflict, Err: cause}
}

// Invalid answers with <CMD>_ERR|msg.
func Invalid(cmd, msg string) *ReplyError {
	return &ReplyError{Line: ErrorLine(cmd, msg), Kind: KindInvalid}
}

// Failure answers with <CMD>_ERR|<cause>.
func Failure(cmd string, cause error) *ReplyError {
	return &ReplyError{Line: ErrorLine(cmd, cause.Error()), Kind: KindFailure, Err: cause}
}
