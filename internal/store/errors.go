package store

import (
	"errors"
	"strings"
)

var errClosed = errors.New("fingerprint store is closed")

func validateRecord(rec Record) error {
	if strings.TrimSpace(rec.Identity.Path) == "" {
		return errors.New("record path is required")
	}
	if rec.Identity.Size < 0 {
		return errors.New("record size must be >= 0")
	}
	return nil
}
