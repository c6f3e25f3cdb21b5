// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcd2004 controls HD44780-compatible character LCD modules attached
// through a PCF8574 I²C GPIO expander, the ubiquitous "I2C backpack" sold
// with LCD2004 (20x4) and LCD1602 (16x2) modules.
//
// The driver keeps an in-memory framebuffer of the character grid. Writes
// mutate the framebuffer and the model cursor only; Flush transmits the whole
// grid to the module, row by row, and is elided when nothing changed. With
// Opts.AutoFlush set, every mutating call flushes immediately.
//
// The backpack wires the expander to the LCD's 4-bit interface, so every LCD
// byte becomes two 4-bit transfers, and every transfer is a pair of expander
// writes toggling the E strobe. R/W is tied to ground on these backpacks: the
// busy flag cannot be read and fixed delays are used where the controller
// requires them.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
//
// A good description of the I2C LCD backpack usage can be found here:
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
package lcd2004

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// HD44780 instruction set.
const (
	cmdClear       byte = 0x01
	cmdHome        byte = 0x02
	cmdEntryMode   byte = 0x04
	cmdDisplayCtrl byte = 0x08
	cmdShift       byte = 0x10
	cmdFunctionSet byte = 0x20
	cmdSetCGRAM    byte = 0x40
	cmdSetDDRAM    byte = 0x80

	entryIncrement byte = 0x02

	dispOn   byte = 0x04
	cursorOn byte = 0x02
	blinkOn  byte = 0x01

	funcTwoLine byte = 0x08

	shiftDisplay byte = 0x08
	shiftRight   byte = 0x04
)

// PCF8574 bit assignment on the common backpack: data on the high nibble,
// control lines on the low one.
const (
	maskRS byte = 0x01
	maskRW byte = 0x02
	maskE  byte = 0x04
	maskBL byte = 0x08
)

const (
	// Power on reset needs >40ms after Vcc stabilizes.
	delayPowerOn = 50 * time.Millisecond
	// First function-set retry needs >4.1ms, the next ones >100us.
	delayWake1 = 4100 * time.Microsecond
	delayWake2 = 150 * time.Microsecond
	// Clear and Home are the two slow instructions (~1.52ms).
	delaySettle = 2 * time.Millisecond

	// I²C transfers are chunked to reduce the risk of a NACK mid-stream on
	// marginal wiring. 8 expander bytes is 2 LCD bytes.
	txChunk = 8
)

// DDRAM base address of each row on 20-column modules.
var rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

// DefaultAddresses are probed in order when Opts.Addr is zero. 0x27 (PCF8574)
// and 0x3f (PCF8574A) cover nearly all backpacks in circulation.
var DefaultAddresses = []uint16{0x27, 0x3f}

// ShiftDirection selects the direction for ShiftDisplay.
type ShiftDirection int

const (
	ShiftLeft ShiftDirection = iota
	ShiftRight
)

// Opts holds the configuration for a display.
type Opts struct {
	// Addr is the I²C address of the PCF8574. Zero probes DefaultAddresses.
	Addr uint16
	// Freq, when non-zero, is applied to the bus with SetSpeed before the
	// first transaction.
	Freq physic.Frequency
	// Rows and Cols default to 4x20.
	Rows, Cols int
	// Backlight is the initial backlight state.
	Backlight bool
	// AutoFlush makes every mutating call transmit immediately. Leave it
	// false to batch updates and call Flush explicitly.
	AutoFlush bool
}

// DefaultOpts is the recommended configuration for a 20x4 module.
var DefaultOpts = Opts{Backlight: true, AutoFlush: true}

// Dev is a handle to an HD44780 behind a PCF8574 backpack.
//
// Dev is safe for use from a single goroutine; the mutex only protects
// against accidental concurrent use corrupting the framebuffer mid-flush.
type Dev struct {
	rows, cols int
	autoFlush  bool

	mu        sync.Mutex
	d         *i2c.Dev
	fb        []byte
	col, row  int
	dirty     bool
	backlight byte
	on        bool
	cursor    bool
	blink     bool
	queue     []byte
}

// New initializes the display and returns a Dev ready for use.
//
// The bus must already be open; its lifecycle belongs to the caller. New
// performs the documented HD44780 cold start sequence and fails with
// *HardwareInitError when no expander acknowledges at the configured (or any
// probed) address.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	dev := &Dev{
		rows:      opts.Rows,
		cols:      opts.Cols,
		autoFlush: opts.AutoFlush,
		on:        true,
	}
	if dev.rows == 0 {
		dev.rows = 4
	}
	if dev.cols == 0 {
		dev.cols = 20
	}
	if opts.Backlight {
		dev.backlight = maskBL
	}
	dev.fb = make([]byte, dev.rows*dev.cols)
	for ix := range dev.fb {
		dev.fb[ix] = ' '
	}

	if opts.Freq != 0 {
		if err := bus.SetSpeed(opts.Freq); err != nil {
			return nil, fmt.Errorf("lcd2004: SetSpeed: %w", err)
		}
	}

	addr, err := probe(bus, opts.Addr, dev.backlight)
	if err != nil {
		return nil, err
	}
	dev.d = &i2c.Dev{Bus: bus, Addr: addr}

	if err := dev.init(); err != nil {
		return nil, &HardwareInitError{Addr: addr, Err: err}
	}
	return dev, nil
}

// probe finds the expander. A bare write of the idle backlight state doubles
// as the handshake: the PCF8574 has no identification register, an ACK is all
// there is.
func probe(bus i2c.Bus, addr uint16, idle byte) (uint16, error) {
	candidates := DefaultAddresses
	if addr != 0 {
		candidates = []uint16{addr}
	}
	var err error
	for _, a := range candidates {
		if err = bus.Tx(a, []byte{idle}, nil); err == nil {
			return a, nil
		}
	}
	return 0, &HardwareInitError{Addr: addr, Err: err}
}

// init runs the 4-bit mode cold start sequence from the datasheet, then
// configures entry mode and display control and blanks the module.
func (d *Dev) init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	time.Sleep(delayPowerOn)

	// The controller powers up in 8-bit mode. Three function-set writes of
	// 0x30 resynchronize it regardless of the state it was left in, then
	// 0x20 switches to 4-bit transfers.
	wake := []struct {
		nibble byte
		wait   time.Duration
	}{
		{0x30, delayWake1},
		{0x30, delayWake2},
		{0x30, delayWake2},
		{0x20, 0},
	}
	for _, step := range wake {
		d.queueNibble(step.nibble, false)
		if err := d.transmit(); err != nil {
			return err
		}
		time.Sleep(step.wait)
	}

	fn := cmdFunctionSet
	if d.rows > 1 {
		fn |= funcTwoLine
	}
	d.queueByte(fn, false)
	d.queueByte(cmdDisplayCtrl, false) // display off while clearing
	if err := d.transmit(); err != nil {
		return err
	}
	if err := d.clearLocked(); err != nil {
		return err
	}
	d.queueByte(cmdEntryMode|entryIncrement, false)
	d.queueByte(d.displayCtrl(), false)
	if err := d.transmit(); err != nil {
		return err
	}
	return d.applyBacklight()
}

// Rows returns the number of rows the display supports.
func (d *Dev) Rows() int {
	return d.rows
}

// Cols returns the number of columns the display supports.
func (d *Dev) Cols() int {
	return d.cols
}

func (d *Dev) String() string {
	return fmt.Sprintf("LCD2004_%x - Rows: %d, Cols: %d", d.d.Addr, d.rows, d.cols)
}

// Clear blanks the framebuffer and the module and moves the cursor to (0,0).
//
// Clear always transmits, regardless of AutoFlush: the hardware clear
// instruction is the only full refresh the controller offers.
func (d *Dev) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clearLocked()
}

func (d *Dev) clearLocked() error {
	for ix := range d.fb {
		d.fb[ix] = ' '
	}
	d.col, d.row = 0, 0
	d.dirty = false
	d.queueByte(cmdClear, false)
	if err := d.transmit(); err != nil {
		// Hardware state is unknown; force the next Flush to repaint.
		d.dirty = true
		return err
	}
	time.Sleep(delaySettle)
	return nil
}

// Home moves the cursor to (0,0) and undoes any display shift, without
// blanking the display.
func (d *Dev) Home() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.col, d.row = 0, 0
	d.queueByte(cmdHome, false)
	if err := d.transmit(); err != nil {
		return err
	}
	time.Sleep(delaySettle)
	return nil
}

// SetCursor moves the cursor to an absolute position. Coordinates are
// zero-based: (0,0) is top-left, (Cols-1,Rows-1) bottom-right. Out of range
// coordinates are rejected with ErrOutOfBounds, never wrapped.
func (d *Dev) SetCursor(col, row int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if col < 0 || col >= d.cols || row < 0 || row >= d.rows {
		return fmt.Errorf("%w: SetCursor(%d, %d)", ErrOutOfBounds, col, row)
	}
	d.col, d.row = col, row
	d.queueCursor()
	if d.autoFlush {
		return d.transmit()
	}
	return nil
}

// Write stores characters in the framebuffer at the cursor, advancing it.
// The cursor wraps to the next row at the end of a line; characters past the
// end of the last row are silently dropped, matching what the bare hardware
// does. Values 0-7 select the corresponding CGRAM glyph (see CreateChar);
// all other values pass through to the controller's character ROM without
// validation.
//
// With AutoFlush set the framebuffer is transmitted before returning,
// otherwise nothing reaches the hardware until Flush.
func (d *Dev) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range p {
		if d.row >= d.rows {
			break
		}
		d.fb[d.row*d.cols+d.col] = b
		d.dirty = true
		d.col++
		if d.col == d.cols {
			d.col = 0
			d.row++
		}
	}
	if d.autoFlush {
		if err := d.flushLocked(); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// WriteString writes a string at the current cursor position.
func (d *Dev) WriteString(text string) (int, error) {
	return d.Write([]byte(text))
}

// SetBacklight switches the backpack's backlight transistor. This is
// independent of SetDisplay, which blanks the controller's output while
// preserving its memory.
func (d *Dev) SetBacklight(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backlight = 0
	if on {
		d.backlight = maskBL
	}
	return d.applyBacklight()
}

// SetDisplay shows or hides the display content. Contents are preserved
// while hidden.
func (d *Dev) SetDisplay(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.on = on
	return d.applyDisplayCtrl()
}

// SetCursorVisible shows or hides the underline cursor.
func (d *Dev) SetCursorVisible(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = on
	return d.applyDisplayCtrl()
}

// SetBlink enables or disables the blinking block at the cursor position.
// Independent of the underline cursor; either, both or neither can be on.
func (d *Dev) SetBlink(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blink = on
	return d.applyDisplayCtrl()
}

// ShiftDisplay shifts the visible window of the whole display one column
// left or right in hardware. DDRAM contents, the framebuffer and the cursor
// address are unchanged: subsequent SetCursor/Write coordinates stay
// framebuffer-relative. Clear and Home reset the shift.
func (d *Dev) ShiftDisplay(dir ShiftDirection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cmd := cmdShift | shiftDisplay
	if dir == ShiftRight {
		cmd |= shiftRight
	}
	d.queueByte(cmd, false)
	return d.transmit()
}

// CreateChar uploads a custom 5x8 glyph to one of the 8 CGRAM slots. bitmap
// must hold exactly 8 rows, each using only the low 5 bits. The glyph
// persists in the controller until rewritten or power loss; write the byte
// value of the slot (0-7) to render it.
//
// The upload moves the controller's address counter into CGRAM; the DDRAM
// address is restored to the model cursor before returning so a following
// Write lands where expected.
func (d *Dev) CreateChar(slot int, bitmap []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slot < 0 || slot > 7 {
		return fmt.Errorf("%w: CGRAM slot %d", ErrOutOfBounds, slot)
	}
	if len(bitmap) != 8 {
		return fmt.Errorf("%w: got %d rows", ErrInvalidBitmap, len(bitmap))
	}
	for ix, row := range bitmap {
		if row > 0x1f {
			return fmt.Errorf("%w: row %d is 0x%02x", ErrInvalidBitmap, ix, row)
		}
	}
	d.queueByte(cmdSetCGRAM|byte(slot)<<3, false)
	for _, row := range bitmap {
		d.queueByte(row, true)
	}
	d.queueCursor()
	return d.transmit()
}

// Flush transmits the framebuffer to the module, row by row, then restores
// the hardware cursor to the model cursor. It is a no-op when the
// framebuffer already matches the hardware.
func (d *Dev) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushLocked()
}

func (d *Dev) flushLocked() error {
	if !d.dirty {
		return nil
	}
	for row := 0; row < d.rows; row++ {
		d.queueByte(cmdSetDDRAM|rowOffsets[row], false)
		for _, b := range d.fb[row*d.cols : (row+1)*d.cols] {
			d.queueByte(b, true)
		}
	}
	d.queueCursor()
	if err := d.transmit(); err != nil {
		return err
	}
	d.dirty = false
	return nil
}

// displayCtrl assembles the display control byte from the flag latches.
// Every flag setter transmits this one byte, never one write per flag.
func (d *Dev) displayCtrl() byte {
	ctrl := cmdDisplayCtrl
	if d.on {
		ctrl |= dispOn
	}
	if d.cursor {
		ctrl |= cursorOn
	}
	if d.blink {
		ctrl |= blinkOn
	}
	return ctrl
}

func (d *Dev) applyDisplayCtrl() error {
	d.queueByte(d.displayCtrl(), false)
	return d.transmit()
}

// applyBacklight writes the bare backlight bit. The bit also rides along on
// every queued byte, so this only matters when nothing else is pending.
func (d *Dev) applyBacklight() error {
	if err := d.d.Tx([]byte{d.backlight}, nil); err != nil {
		return &BusError{Op: "backlight", Err: err}
	}
	return nil
}

// queueCursor queues the DDRAM address command for the model cursor. Nothing
// is queued when the cursor has run off the end of the last row.
func (d *Dev) queueCursor() {
	if d.row >= d.rows {
		return
	}
	d.queueByte(cmdSetDDRAM|rowOffsets[d.row]+byte(d.col), false)
}

// queueNibble queues one 4-bit transfer: the high nibble of b plus control
// bits, strobed with E high then E low.
func (d *Dev) queueNibble(b byte, rs bool) {
	data := (b & 0xf0) | d.backlight
	if rs {
		data |= maskRS
	}
	d.queue = append(d.queue, data|maskE, data)
}

// queueByte queues a full LCD byte as two 4-bit transfers.
func (d *Dev) queueByte(b byte, rs bool) {
	d.queueNibble(b, rs)
	d.queueNibble(b<<4, rs)
}

// transmit drains the queue onto the bus. The queue is dropped on failure as
// well: a partially clocked stream cannot be meaningfully resumed, and the
// framebuffer dirty flag lets the caller repaint with Flush.
//
// No inter-byte delays are needed here. Each LCD byte costs four expander
// bytes on the wire (~90us at 400kHz), comfortably above the 37us the
// controller needs per instruction; only Clear and Home need explicit waits.
func (d *Dev) transmit() error {
	defer func() {
		d.queue = d.queue[:0]
	}()
	for ix := 0; ix < len(d.queue); ix += txChunk {
		end := ix + txChunk
		if end > len(d.queue) {
			end = len(d.queue)
		}
		if err := d.d.Tx(d.queue[ix:end], nil); err != nil {
			return &BusError{Op: "write", Err: err}
		}
	}
	return nil
}
