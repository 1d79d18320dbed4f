package core

// Error codes, grouped by category. Patterns are matched case-insensitively
// against the technical error text; the first match wins.
//
// # Query Errors (QRY)
//
//	QRY001 - Unsupported statement        "unsupported statement"
//	QRY002 - DELETE without WHERE         "requires a where clause"
//	QRY003 - Invalid WHERE clause         "invalid where clause", "filter syntax error"
//
// # Table Errors (TBL)
//
//	TBL001 - Table not found              "table not found"
//	TBL002 - Table already exists         "table already exists"
//	TBL003 - Invalid table name           "invalid table name"
//	TBL004 - Workspace full               "table limit reached"
//	TBL005 - Too many rows                "too many rows"
//	TBL006 - Nothing to undo              "nothing to undo"
//
// # Input Errors (FILE)
//
//	FILE001 - Input too large             "input too large", "request body too large"
//	FILE002 - Empty input                 "empty input"
//	FILE003 - Invalid JSON records        "invalid records"
//
// # Import Errors (DB)
//
//	DB001 - Import unavailable            "import unavailable"
//	DB002 - Import query failed           "import query"
//	DB003 - Database unreachable          "connection refused", "connection reset"
//
// # Throttling (RATE)
//
//	RATE001 - Rate limited                "rate limit"
//	RATE002 - Too many loads              "too many concurrent loads"
//
// # Request Errors (REQ)
//
//	REQ001 - Request cancelled            "context canceled"
//	REQ002 - Request timed out            "context deadline exceeded"
//	REQ003 - Malformed request            "bad request"
//
// Anything else maps to ERR000; check the logs for the technical error.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Reference for support
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is ordered specific before general.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Query Errors
	// =========================================================================
	{
		pattern: "unsupported statement",
		msg: UserMessage{
			Message: "This statement is not supported",
			Action:  "Use SELECT, UPDATE SET, DELETE WHERE or INSERT VALUES",
			Code:    "QRY001",
		},
	},
	{
		pattern: "requires a where clause",
		msg: UserMessage{
			Message: "DELETE needs a WHERE clause",
			Action:  "Add a WHERE clause naming the rows to delete",
			Code:    "QRY002",
		},
	},
	{
		pattern: "invalid where clause",
		msg: UserMessage{
			Message: "The WHERE clause could not be parsed",
			Action:  "Check quotes, parentheses and AND/OR placement",
			Code:    "QRY003",
		},
	},
	{
		pattern: "filter syntax error",
		msg: UserMessage{
			Message: "The filter could not be parsed",
			Action:  "Check quotes, parentheses and AND/OR placement",
			Code:    "QRY003",
		},
	},

	// =========================================================================
	// Table Errors
	// =========================================================================
	{
		pattern: "table not found",
		msg: UserMessage{
			Message: "Table not found",
			Action:  "Verify the table name or load the data first",
			Code:    "TBL001",
		},
	},
	{
		pattern: "table already exists",
		msg: UserMessage{
			Message: "A table with this name already exists",
			Action:  "Choose another name or replace the existing table",
			Code:    "TBL002",
		},
	},
	{
		pattern: "invalid table name",
		msg: UserMessage{
			Message: "Invalid table name",
			Action:  "Use up to 64 letters, digits, '_', '-' or '.'",
			Code:    "TBL003",
		},
	},
	{
		pattern: "table limit reached",
		msg: UserMessage{
			Message: "The workspace is full",
			Action:  "Drop a table you no longer need",
			Code:    "TBL004",
		},
	},
	{
		pattern: "too many rows",
		msg: UserMessage{
			Message: "The data has more rows than allowed",
			Action:  "Split the data into smaller tables",
			Code:    "TBL005",
		},
	},
	{
		pattern: "nothing to undo",
		msg: UserMessage{
			Message: "There is no change to undo",
			Action:  "Only UPDATE, DELETE, INSERT and replace can be undone",
			Code:    "TBL006",
		},
	},

	// =========================================================================
	// Input Errors
	// =========================================================================
	{
		pattern: "input too large",
		msg: UserMessage{
			Message: "The data exceeds the upload size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The request body exceeds the upload size limit",
			Action:  "Split the data into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "empty input",
		msg: UserMessage{
			Message: "The data is empty",
			Action:  "Send CSV or TSV text with at least one row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid records",
		msg: UserMessage{
			Message: "The records are not a JSON array of objects",
			Action:  "Send a body like [{\"id\": 1, \"name\": \"Ann\"}]",
			Code:    "FILE003",
		},
	},

	// =========================================================================
	// Import Errors
	// =========================================================================
	{
		pattern: "import unavailable",
		msg: UserMessage{
			Message: "Database import is not configured",
			Action:  "Set DATABASE_URL to enable imports",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "import query",
		msg: UserMessage{
			Message: "The import query failed",
			Action:  "Check the SQL and that it returns rows",
			Code:    "DB002",
		},
	},

	// =========================================================================
	// Throttling
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "too many concurrent loads",
		msg: UserMessage{
			Message: "System is busy loading other tables",
			Action:  "Please wait a moment and try again",
			Code:    "RATE002",
		},
	},

	// =========================================================================
	// Request Errors
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller table or a narrower query",
			Code:    "REQ002",
		},
	},
	{
		pattern: "bad request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send a JSON body with the documented fields",
			Code:    "REQ003",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. A nil
// error maps to the zero UserMessage.
//
//	msg := MapError(fmt.Errorf("query: %w", query.ErrWhereRequired))
//	// msg.Code == "QRY002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logs, with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
