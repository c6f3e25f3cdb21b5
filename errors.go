// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd2004

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/display"
)

var (
	// ErrOutOfBounds is returned for coordinates or CGRAM slots outside the
	// display geometry. The check happens before any bus traffic; a rejected
	// call has no side effects.
	ErrOutOfBounds = errors.New("lcd2004: out of range")

	// ErrInvalidBitmap is returned by CreateChar for bitmaps that are not
	// exactly 8 rows of 5-bit values.
	ErrInvalidBitmap = errors.New("lcd2004: bitmap must be 8 rows of 5-bit values")

	// ErrNotImplemented is returned for display.TextDisplay operations this
	// controller cannot perform.
	ErrNotImplemented = fmt.Errorf("lcd2004: %w", display.ErrNotImplemented)
)

// HardwareInitError reports that the cold start handshake failed: no device
// acknowledged at the configured or probed address, or the init sequence
// could not be transmitted. Construction fails; there is no Dev to retry on.
type HardwareInitError struct {
	// Addr is the address that was configured. Zero when the default
	// addresses were probed.
	Addr uint16
	Err  error
}

func (e *HardwareInitError) Error() string {
	if e.Addr == 0 {
		return fmt.Sprintf("lcd2004: no PCF8574 backpack found: %v", e.Err)
	}
	return fmt.Sprintf("lcd2004: init failed at %#02x: %v", e.Addr, e.Err)
}

func (e *HardwareInitError) Unwrap() error {
	return e.Err
}

// BusError reports a failed I²C transaction after initialization. The driver
// never retries; retry policy, if any, belongs to the bus layer. The
// framebuffer keeps the intended content and stays marked dirty, so a later
// Flush repaints the display without the caller resending anything.
type BusError struct {
	Op  string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("lcd2004: %s: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}
