package core

// # Error Codes Reference
//
// Users quote these codes to support staff. Codes are grouped by category.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: file exceeds the configured size limit
//	FILE002 - Invalid CSV: rows do not have the same number of fields
//	FILE003 - Encoding error: file is not UTF-8
//	FILE004 - No file: no file name was given
//	FILE005 - Empty file: file has no header row
//	FILE006 - Bad header: duplicate or blank column names
//	FILE007 - Not found: file does not exist
//	FILE008 - Invalid name: name is not a .csv file inside the data directory
//	FILE009 - IO failure: file could not be read or written
//	FILE010 - Read-only: destination file may not be overwritten
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Unknown column: column is not part of the table
//	VAL002 - Schema mismatch: a new row does not have exactly the table's columns
//	VAL003 - Invalid query: filter or sort could not be understood
//	VAL004 - Invalid request: request body is malformed
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - Out of range: row number does not exist
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - No table: nothing is loaded yet
//	TBL002 - No schema: rows cannot be added before a file is loaded
//	TBL003 - Stale table: the table was reloaded since the page was rendered
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default (ERR000)
//
//	ERR000 - Unexpected error; check server logs for the technical error
//
// Rules are tried in order and the first match wins, so specific causes
// (ErrFileTooLarge, *EncodingError) come before the generic failure kinds
// that wrap them.

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/JonMunkholm/suppliers/internal/dataset"
)

// Adapter-level failures. The engine never returns these.
var (
	ErrNoFileSelected  = errors.New("no file selected")
	ErrInvalidFileName = errors.New("invalid file name")
	ErrBadRequest      = errors.New("invalid request")
	ErrStaleTable      = errors.New("table changed since it was rendered")
	ErrRateLimited     = errors.New("rate limit exceeded")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorRule struct {
	match func(error) bool
	msg   UserMessage
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

func isEncodingError(err error) bool {
	var ee *dataset.EncodingError
	return errors.As(err, &ee)
}

var errorRules = []errorRule{
	// File errors
	{is(dataset.ErrFileTooLarge), UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}},
	{isEncodingError, UserMessage{
		Message: "File contains characters that are not valid UTF-8",
		Action:  "Save the file with UTF-8 encoding and load it again",
		Code:    "FILE003",
	}},
	{is(ErrNoFileSelected), UserMessage{
		Message: "No file was selected",
		Action:  "Choose a CSV file",
		Code:    "FILE004",
	}},
	{is(dataset.ErrEmptyFile), UserMessage{
		Message: "The file is empty",
		Action:  "Load a CSV file with a header row",
		Code:    "FILE005",
	}},
	{is(dataset.ErrDuplicateColumn), UserMessage{
		Message: "The header has a duplicate column name",
		Action:  "Give every column a unique name",
		Code:    "FILE006",
	}},
	{is(dataset.ErrBlankColumn), UserMessage{
		Message: "The header has a blank column name",
		Action:  "Name every column in the header row",
		Code:    "FILE006",
	}},
	{is(dataset.ErrParseFailure), UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated and every row has the same number of fields",
		Code:    "FILE002",
	}},
	{is(fs.ErrNotExist), UserMessage{
		Message: "File not found",
		Action:  "Check the file name and try again",
		Code:    "FILE007",
	}},
	{is(ErrInvalidFileName), UserMessage{
		Message: "Invalid file name",
		Action:  "Use the name of a .csv file in the data directory",
		Code:    "FILE008",
	}},
	{is(fs.ErrPermission), UserMessage{
		Message: "The file is read-only",
		Action:  "Save under another name or make the file writable",
		Code:    "FILE010",
	}},
	{is(dataset.ErrIOFailure), UserMessage{
		Message: "The file could not be read or written",
		Action:  "Check that the file is not open elsewhere and that you have permission",
		Code:    "FILE009",
	}},

	// Validation errors
	{is(dataset.ErrUnknownColumn), UserMessage{
		Message: "Column does not exist in this table",
		Action:  "Pick one of the table's columns",
		Code:    "VAL001",
	}},
	{is(dataset.ErrSchemaMismatch), UserMessage{
		Message: "New rows must have exactly the table's columns",
		Action:  "Fill in every column and remove unknown ones",
		Code:    "VAL002",
	}},
	{is(dataset.ErrInvalidQuery), UserMessage{
		Message: "The filter or sort could not be understood",
		Action:  "Use column=operator:value, for example Material=contains:M-1",
		Code:    "VAL003",
	}},
	{is(ErrBadRequest), UserMessage{
		Message: "The request could not be understood",
		Action:  "Check the submitted values and try again",
		Code:    "VAL004",
	}},

	// Row errors
	{is(dataset.ErrOutOfRange), UserMessage{
		Message: "Row does not exist",
		Action:  "Refresh the listing and pick a row number shown in it",
		Code:    "ROW001",
	}},

	// Table errors
	{is(dataset.ErrNoData), UserMessage{
		Message: "No table is loaded",
		Action:  "Load a CSV file first",
		Code:    "TBL001",
	}},
	{is(dataset.ErrNoSchema), UserMessage{
		Message: "Rows cannot be added before a table is loaded",
		Action:  "Load a CSV file to define the columns",
		Code:    "TBL002",
	}},
	{is(ErrStaleTable), UserMessage{
		Message: "The table changed since this page was shown",
		Action:  "Refresh the page and repeat the change",
		Code:    "TBL003",
	}},

	{is(ErrRateLimited), UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
	{is(context.DeadlineExceeded), UserMessage{
		Message: "Request timed out",
		Action:  "Please try again",
		Code:    "ERR001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, rule := range errorRules {
		if rule.match(err) {
			return rule.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as a single line for terminals and logs:
// "Message (Code: X). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s (Code: %s)", e.User.Message, e.User.Code)
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError wraps err with its mapped message. Returns nil for nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
