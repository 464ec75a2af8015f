package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg      string
		expected string
	}{
		{"ERROR: [chzzk] 123: HTTP Error 403: Forbidden", CategoryAuth},
		{"ERROR: This video is only available for registered users. Sign in", CategoryAuth},
		{"ERROR: [generic] HTTP Error 404: Not Found", CategoryNotFound},
		{"ERROR: fragment 12 not found, unable to continue", CategoryFragment},
		{"ERROR: Requested format is not available", CategoryFormat},
		{"ERROR: Unable to download webpage: <urlopen error timed out>", CategoryNetwork},
		{"dial tcp: lookup example.invalid: no such host", CategoryNetwork},
		{"something odd happened", CategoryUnknown},
	}

	for _, test := range tests {
		te := Classify(errors.New(test.msg))
		if te.Category != test.expected {
			t.Errorf("Classify(%q) = %s, expected %s", test.msg, te.Category, test.expected)
		}
	}
}

func TestClassify_KeepsTransferError(t *testing.T) {
	orig := &TransferError{Category: CategoryFormat, Err: errors.New("HTTP Error 403")}
	wrapped := fmt.Errorf("attempt 1: %w", orig)

	if got := Classify(wrapped); got != orig {
		t.Errorf("expected the wrapped TransferError to be returned, got %v", got)
	}
	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestTransferError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&TransferError{Category: CategoryNetwork, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("TransferError should unwrap to its cause")
	}
	if err.Error() != "transfer failed (network): boom" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestStatusCategory(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{401, CategoryAuth},
		{403, CategoryAuth},
		{404, CategoryNotFound},
		{410, CategoryNotFound},
		{416, CategoryFragment},
		{502, CategoryNetwork},
		{418, CategoryUnknown},
	}

	for _, test := range tests {
		if got := statusCategory(test.code); got != test.expected {
			t.Errorf("statusCategory(%d) = %s, expected %s", test.code, got, test.expected)
		}
	}
}
