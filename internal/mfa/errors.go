package mfa

import "errors"

// ErrNotEnabled is returned when an operation requires an active enrollment.
var ErrNotEnabled = errors.New("multi-factor authentication is not enabled")
