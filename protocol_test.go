// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd2004_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/display/displaytest"

	"github.com/GermanBionicSystems/lcd2004"
	"github.com/GermanBionicSystems/lcd2004/termlcd"
)

// These tests clock the real driver through the full 4-bit protocol and let
// the termlcd emulator decode it, strobe by strobe. If the nibble sequencing,
// the DDRAM row addressing or the CGRAM upload were wrong, the decoded
// screen would not match the framebuffer.

var liveDevice = false

func getPair(t *testing.T, autoFlush bool) (*lcd2004.Dev, *termlcd.Dev) {
	t.Helper()
	term := termlcd.New(&termlcd.Opts{W: &bytes.Buffer{}})
	dev, err := lcd2004.New(term, &lcd2004.Opts{Backlight: true, AutoFlush: autoFlush})
	if err != nil {
		t.Fatal(err)
	}
	return dev, term
}

func TestInitLeavesBlankLitScreen(t *testing.T) {
	dev, term := getPair(t, true)
	t.Cleanup(func() { _ = dev.Halt() })
	for r, row := range term.Screen() {
		if row != strings.Repeat(" ", 20) {
			t.Errorf("row %d = %q after init, want blank", r, row)
		}
	}
	if !term.DisplayOn() {
		t.Error("display off after init")
	}
	if !term.BacklightOn() {
		t.Error("backlight off after init")
	}
	if term.CursorOn() || term.BlinkOn() {
		t.Error("cursor or blink on after init")
	}
}

func TestWriteReachesHardware(t *testing.T) {
	dev, term := getPair(t, true)
	if _, err := dev.WriteString("Hello, World!"); err != nil {
		t.Fatal(err)
	}
	if got := term.Screen()[0]; !strings.HasPrefix(got, "Hello, World!") {
		t.Errorf("row 0 = %q", got)
	}
	if err := dev.SetCursor(8, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := dev.WriteString("Bottom right"); err != nil {
		t.Fatal(err)
	}
	if got := term.Screen()[3][8:]; got != "Bottom right" {
		t.Errorf("row 3 tail = %q, want \"Bottom right\"", got)
	}
}

func TestBatchedWritesArriveOnFlush(t *testing.T) {
	dev, term := getPair(t, false)
	if _, err := dev.WriteString("later"); err != nil {
		t.Fatal(err)
	}
	if got := term.Screen()[0]; strings.HasPrefix(got, "later") {
		t.Error("batched write reached the hardware before Flush")
	}
	if err := dev.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := term.Screen()[0]; !strings.HasPrefix(got, "later") {
		t.Errorf("row 0 = %q after Flush", got)
	}
}

func TestCreateCharRoundTrip(t *testing.T) {
	dev, term := getPair(t, true)
	deg := []byte{0x06, 0x09, 0x06, 0x00, 0x00, 0x00, 0x00, 0x00}
	if err := dev.CreateChar(3, deg); err != nil {
		t.Fatal(err)
	}
	if got := term.CGRAM(3); !bytes.Equal(got[:], deg) {
		t.Errorf("CGRAM slot 3 = % x, want % x", got, deg)
	}
	// The upload must not divert the following write into CGRAM.
	if _, err := dev.WriteString("23"); err != nil {
		t.Fatal(err)
	}
	if err := dev.WriteChar(lcd2004.CustomGlyph(3)); err != nil {
		t.Fatal(err)
	}
	if got := term.Cell(2, 0); got != 3 {
		t.Errorf("cell(2,0) = %d, want CGRAM code 3", got)
	}
	if got := term.CGRAM(3); !bytes.Equal(got[:], deg) {
		t.Errorf("CGRAM slot 3 = % x after write, bitmap was altered", got)
	}
}

func TestFlagsReachHardware(t *testing.T) {
	dev, term := getPair(t, true)
	if err := dev.SetCursorVisible(true); err != nil {
		t.Fatal(err)
	}
	if err := dev.SetBlink(true); err != nil {
		t.Fatal(err)
	}
	if !term.CursorOn() || !term.BlinkOn() {
		t.Error("cursor/blink flags did not reach the hardware")
	}
	if err := dev.SetDisplay(false); err != nil {
		t.Fatal(err)
	}
	if term.DisplayOn() {
		t.Error("display still on")
	}
	if err := dev.SetBacklight(false); err != nil {
		t.Fatal(err)
	}
	if term.BacklightOn() {
		t.Error("backlight still on")
	}
}

func TestShiftMovesVisibleWindow(t *testing.T) {
	dev, term := getPair(t, true)
	if _, err := dev.WriteString("shifty"); err != nil {
		t.Fatal(err)
	}
	if err := dev.ShiftDisplay(lcd2004.ShiftLeft); err != nil {
		t.Fatal(err)
	}
	if got := term.Screen()[0]; !strings.HasPrefix(got, "hifty") {
		t.Errorf("row 0 = %q after shift left", got)
	}
	// Coordinates stay framebuffer-relative: a rewrite at (0,0) followed by
	// a flush repaints the same DDRAM cells, not the shifted view.
	if err := dev.ShiftDisplay(lcd2004.ShiftRight); err != nil {
		t.Fatal(err)
	}
	if got := term.Screen()[0]; !strings.HasPrefix(got, "shifty") {
		t.Errorf("row 0 = %q after shifting back", got)
	}
}

func TestClearBlanksHardware(t *testing.T) {
	dev, term := getPair(t, true)
	if _, err := dev.WriteString("garbage"); err != nil {
		t.Fatal(err)
	}
	if err := dev.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := term.Screen()[0]; got != strings.Repeat(" ", 20) {
		t.Errorf("row 0 = %q after Clear", got)
	}
}

func TestTextDisplayConformance(t *testing.T) {
	dev, _ := getPair(t, true)
	t.Cleanup(func() { _ = dev.Halt() })
	for _, err := range displaytest.TestTextDisplay(dev, liveDevice) {
		if !errors.Is(err, display.ErrNotImplemented) {
			t.Error(err)
		}
	}
}
