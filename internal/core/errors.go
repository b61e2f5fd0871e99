// Package core provides the business logic for the resume search
// application: login sessions, the upload/ingest pipeline, search
// orchestration, and result export. This package has no UI dependencies and
// is shared by the HTTP server and the CLI.
package core

import (
	"errors"
	"strings"
)

// Sentinel errors surfaced at the upload and search boundaries.
var (
	// ErrFileTooLarge indicates the upload exceeded the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoFile indicates an upload request without file content.
	ErrNoFile = errors.New("no file provided")

	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotLoggedIn indicates a request without a valid session.
	ErrNotLoggedIn = errors.New("not logged in")
)

// UserMessage provides user-friendly error information with actionable
// guidance. The code is quoted by users when contacting support.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Patterns are matched with strings.Contains and the first match
// wins, so more specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// File errors (FILE001-FILE099)
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload a .csv, .xlsx, or .xls file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "parse error",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check that the file is a valid CSV or spreadsheet and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The file exceeds the upload size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file has no data",
			Action:  "Upload a file with a header row and at least one data row",
			Code:    "FILE005",
		},
	},

	// Ingestion errors (ING001-ING099)
	{
		pattern: "no data ingested",
		msg: UserMessage{
			Message: "No data has been uploaded yet",
			Action:  "Upload a file before searching",
			Code:    "ING001",
		},
	},
	{
		pattern: "read upload",
		msg: UserMessage{
			Message: "The uploaded file could not be stored",
			Action:  "Please try the upload again",
			Code:    "ING002",
		},
	},

	// Filter errors (FLT001-FLT099)
	{
		pattern: "no search criteria",
		msg: UserMessage{
			Message: "No search criteria were set",
			Action:  "Add at least one filter before searching",
			Code:    "FLT001",
		},
	},
	{
		pattern: "duplicate filter",
		msg: UserMessage{
			Message: "A column was filtered twice",
			Action:  "Use one filter per column",
			Code:    "FLT002",
		},
	},

	// Auth errors (AUTH001-AUTH099)
	{
		pattern: "invalid credentials",
		msg: UserMessage{
			Message: "Invalid username or password",
			Action:  "Check your credentials and try again",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "not logged in",
		msg: UserMessage{
			Message: "You are not logged in",
			Action:  "Log in to continue",
			Code:    "AUTH002",
		},
	},

	// Database errors (DB001-DB099)
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB002",
		},
	},

	// Request lifecycle (REQ001-REQ099)
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "REQ002",
		},
	},
}

// defaultMessage is the fallback when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error into a user-friendly message with an
// actionable suggestion and support code.
func MapError(err error) UserMessage {
	if err == nil {
		return defaultMessage
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}
