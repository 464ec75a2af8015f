package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Transfer error categories
const (
	CategoryAuth     = "auth"
	CategoryFragment = "fragment"
	CategoryNetwork  = "network"
	CategoryFormat   = "format"
	CategoryNotFound = "not_found"
	CategoryUnknown  = "unknown"
)

// TransferError is a failed fetch with a categorized cause
type TransferError struct {
	Category string
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed (%s): %v", e.Category, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// categoryPatterns are matched in order against lower-cased error text
var categoryPatterns = []struct {
	category string
	patterns []string
}{
	{CategoryAuth, []string{"http error 401", "http error 403", "401 unauthorized", "403 forbidden", "sign in", "login", "cookies", "members-only", "private video", "age-restricted"}},
	{CategoryFragment, []string{"fragment", "did not get any data blocks", "unexpected eof"}},
	{CategoryNotFound, []string{"http error 404", "404 not found", "video unavailable", "does not exist", "not found"}},
	{CategoryFormat, []string{"requested format is not available", "no video formats", "unsupported url", "ffmpeg", "merging"}},
	{CategoryNetwork, []string{"timed out", "timeout", "connection", "network", "no such host", "unable to download webpage", "reset by peer", "eof"}},
}

// Classify wraps err in a TransferError with a category derived from its text.
// Errors that already are TransferErrors are returned unchanged.
func Classify(err error) *TransferError {
	if err == nil {
		return nil
	}

	var te *TransferError
	if errors.As(err, &te) {
		return te
	}

	msg := strings.ToLower(err.Error())
	for _, c := range categoryPatterns {
		for _, p := range c.patterns {
			if strings.Contains(msg, p) {
				return &TransferError{Category: c.category, Err: err}
			}
		}
	}
	return &TransferError{Category: CategoryUnknown, Err: err}
}

// statusCategory maps an HTTP status code to a transfer category
func statusCategory(code int) string {
	switch {
	case code == 401 || code == 403:
		return CategoryAuth
	case code == 404 || code == 410:
		return CategoryNotFound
	case code == 416:
		return CategoryFragment
	case code >= 500:
		return CategoryNetwork
	default:
		return CategoryUnknown
	}
}
