// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd2004

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

// This file adapts Dev to periph.io/x/conn/v3/display.TextDisplay so it is
// interchangeable with the other character displays in the ecosystem. The
// interface uses 1-based coordinates in (row, col) order; the native API is
// 0-based (col, row).

// MinCol returns the minimum column position.
func (d *Dev) MinCol() int {
	return 1
}

// MinRow returns the minimum row position.
func (d *Dev) MinRow() int {
	return 1
}

// MoveTo moves the cursor to an arbitrary 1-based position.
func (d *Dev) MoveTo(row, col int) error {
	if row < d.MinRow() || row > d.rows || col < d.MinCol() || col > d.cols {
		return fmt.Errorf("%w: MoveTo(%d, %d)", ErrOutOfBounds, row, col)
	}
	return d.SetCursor(col-1, row-1)
}

// Move moves the cursor one cell forward or backward. Up and Down are not
// supported by the controller.
func (d *Dev) Move(dir display.CursorDirection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch dir {
	case display.Forward:
		if d.row >= d.rows {
			return nil
		}
		d.col++
		if d.col == d.cols {
			d.col = 0
			d.row++
		}
	case display.Backward:
		if d.col == 0 && d.row == 0 {
			return nil
		}
		if d.row >= d.rows {
			d.col, d.row = d.cols-1, d.rows-1
		} else if d.col == 0 {
			d.col, d.row = d.cols-1, d.row-1
		} else {
			d.col--
		}
	default:
		return ErrNotImplemented
	}
	d.queueCursor()
	if d.autoFlush {
		return d.transmit()
	}
	return nil
}

// Cursor sets the cursor rendering mode. Multiple modes can be combined:
// Cursor(display.CursorUnderline, display.CursorBlink).
func (d *Dev) Cursor(modes ...display.CursorMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			d.cursor = false
			d.blink = false
		case display.CursorUnderline:
			d.cursor = true
		case display.CursorBlink:
			d.blink = true
		case display.CursorBlock:
			d.cursor = true
			d.blink = true
		default:
			return fmt.Errorf("lcd2004: unexpected cursor mode: %d", mode)
		}
	}
	return d.applyDisplayCtrl()
}

// Display shows or hides the display content. Alias of SetDisplay for the
// TextDisplay interface.
func (d *Dev) Display(on bool) error {
	return d.SetDisplay(on)
}

// AutoScroll is not supported by this driver. Returns ErrNotImplemented.
func (d *Dev) AutoScroll(enabled bool) error {
	return ErrNotImplemented
}

// Backlight turns the backlight on for any non-zero intensity. The backpack
// transistor is binary; there is no dimming.
func (d *Dev) Backlight(intensity display.Intensity) error {
	return d.SetBacklight(intensity > 0)
}

// Halt clears the display and turns the backlight and the display off.
func (d *Dev) Halt() error {
	_ = d.Clear()
	_ = d.SetBacklight(false)
	return d.SetDisplay(false)
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
