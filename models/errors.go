package models

import (
	"errors"
	"fmt"
)

// Processing errors. Each is fatal for the series it was raised on.
var (
	// ErrDataIntegrity is returned when a series or reference table holds
	// inconsistent or missing required fields.
	ErrDataIntegrity = errors.New("data integrity error")

	// ErrNotFound is returned when an instrument has no calibration record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCalibration is returned when a calibration record would
	// produce a division by zero or other invalid arithmetic.
	ErrInvalidCalibration = errors.New("invalid calibration")
)

// NewDataIntegrityError wraps ErrDataIntegrity with the subject and a formatted reason
func NewDataIntegrityError(subject, format string, args ...interface{}) error {
	reason := fmt.Sprintf(format, args...)
	if subject == "" {
		return fmt.Errorf("%w: %s", ErrDataIntegrity, reason)
	}
	return fmt.Errorf("%w: %s: %s", ErrDataIntegrity, subject, reason)
}

// NewNotFoundError wraps ErrNotFound for a missing calibration record
func NewNotFoundError(instrumentID string) error {
	return fmt.Errorf("%w: no calibration record for instrument %q", ErrNotFound, instrumentID)
}

// NewInvalidCalibrationError wraps ErrInvalidCalibration for one instrument
func NewInvalidCalibrationError(instrumentID, reason string) error {
	return fmt.Errorf("%w: instrument %q: %s", ErrInvalidCalibration, instrumentID, reason)
}
