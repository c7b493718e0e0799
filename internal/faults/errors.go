// Package faults defines the error markers shared by the scan pipeline.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnreadable marks a per-file stat, read, or decode failure.
	ErrUnreadable = errors.New("unreadable file")
	// ErrStore marks a fingerprint store failure.
	ErrStore = errors.New("store error")
	// ErrConfiguration marks invalid settings rejected before a scan starts.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification with errors.Is.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Class names the marker carried by err: "unreadable", "store",
// "configuration", or "other".
func Class(err error) string {
	switch {
	case errors.Is(err, ErrUnreadable):
		return "unreadable"
	case errors.Is(err, ErrStore):
		return "store"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "other"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "scan failure"
	}
	return strings.Join(parts, ": ")
}
