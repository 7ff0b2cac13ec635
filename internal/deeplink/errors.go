package deeplink

import "errors"

// ErrInvalidInput is returned when a product id is empty or a
// configuration lacks a usable web fallback URL.
var ErrInvalidInput = errors.New("invalid input")
