// Package core provides the business logic for coordinate-data import operations.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// Every import failure is terminal for that attempt and is shown to the operator
// as one message; the code lets support staff find the cause quickly.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Empty input: Nothing was pasted or the file has no text
//	         Action: Paste or load some coordinate rows first
//	         Sentinel: ErrEmptyInput
//
//	IMP002 - No valid rows: Every row was blank after column mapping
//	         Action: Check the column mapping; at least one column must be imported
//	         Sentinel: ErrNoValidRows
//
//	IMP003 - Invalid mapping: A column was assigned to a field that does not exist
//	         Action: Reload the mapping controls and choose the fields again
//	         Sentinel: ErrInvalidMapping
//
//	IMP004 - Import in progress: Another import is running against the same table
//	         Action: Wait for the running import to finish
//	         Sentinel: ErrImportInProgress
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Unreadable file: The file could not be read or decoded
//	          Action: Save the file as UTF-8 text (.txt, .csv, .dat)
//	          Sentinel: ErrFileUnreadable
//
//	FILE002 - File too large: File exceeds the configured size limit
//	          Action: Split the file into smaller chunks
//	          Sentinel: ErrFileTooLarge
//
//	FILE004 - No file: No file was selected
//	          Patterns: "no file provided"
//
// # Session and Capacity Errors
//
//	WS001   - Workspace not found (expired or never created)
//	SCH001  - Unknown record type
//	UPL002  - Too many imports running (ErrTooManyImports)
//	UPL004  - Request cancelled ("context canceled")
//	UPL005  - Request timed out ("context deadline exceeded")
//	RMT001  - Remote transform failed (ErrTransformFailed)
//	RMT002  - Remote transform not configured (ErrTransformUnavailable)
//	RATE001 - Rate limited ("rate limit")
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the technical error.
//
// # Matching
//
// Sentinel errors are matched first with errors.Is, in declaration order.
// Remaining errors are matched case-insensitively against text patterns with
// strings.Contains; the first matching pattern wins.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorSentinel maps a sentinel error to its user message.
type errorSentinel struct {
	err error
	msg UserMessage
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorSentinels = []errorSentinel{
	// =========================================================================
	// Import Errors (IMP001-IMP004)
	// =========================================================================
	{
		err: ErrEmptyInput,
		msg: UserMessage{
			Message: "Nothing to import",
			Action:  "Paste or load some coordinate rows first",
			Code:    "IMP001",
		},
	},
	{
		err: ErrNoValidRows,
		msg: UserMessage{
			Message: "No valid rows were found",
			Action:  "Check the column mapping; at least one column must be imported",
			Code:    "IMP002",
		},
	},
	{
		err: ErrInvalidMapping,
		msg: UserMessage{
			Message: "The column mapping refers to an unknown field",
			Action:  "Reload the mapping controls and choose the fields again",
			Code:    "IMP003",
		},
	},
	{
		err: ErrImportInProgress,
		msg: UserMessage{
			Message: "Another import is running for this table",
			Action:  "Wait for the running import to finish",
			Code:    "IMP004",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE002)
	// =========================================================================
	{
		err: ErrFileTooLarge,
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE002",
		},
	},
	{
		err: ErrFileUnreadable,
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Save the file as UTF-8 text (.txt, .csv, .dat) and try again",
			Code:    "FILE001",
		},
	},

	// =========================================================================
	// Session, Schema and Capacity Errors
	// =========================================================================
	{
		err: ErrWorkspaceNotFound,
		msg: UserMessage{
			Message: "Workspace not found",
			Action:  "The session may have expired. Please start a new one",
			Code:    "WS001",
		},
	},
	{
		err: ErrUnknownSchema,
		msg: UserMessage{
			Message: "Unknown record type",
			Action:  "Use one of: common, point, result",
			Code:    "SCH001",
		},
	},
	{
		err: ErrTooManyImports,
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		err: context.Canceled,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		err: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Remote Transform Errors (RMT001-RMT002)
	// =========================================================================
	{
		err: ErrTransformUnavailable,
		msg: UserMessage{
			Message: "The transform service is not configured",
			Action:  "Ask an administrator to set REMOTE_TRANSFORM_URL",
			Code:    "RMT002",
		},
	},
	{
		err: ErrTransformFailed,
		msg: UserMessage{
			Message: "The transform service returned an error",
			Action:  "Check the transform parameters and try again",
			Code:    "RMT001",
		},
	},
}

// errorPatterns catches errors that arrive as plain text (from the HTTP layer
// or third-party code) and cannot be matched with errors.Is.
var errorPatterns = []errorPattern{
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a .txt, .csv or .dat file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid import mode",
		msg: UserMessage{
			Message: "Unknown import mode",
			Action:  "Use merge or replace",
			Code:    "IMP005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	err := &ImportError{Err: ErrNoValidRows, Attempted: 3}
//	msg := MapError(err)
//	// msg.Code == "IMP002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, es := range errorSentinels {
		if errors.Is(err, es.err) {
			return es.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
