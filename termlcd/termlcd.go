// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package termlcd implements a software HD44780+PCF8574 pair that renders to
// a terminal (stdout) using ANSI color codes.
//
// It implements i2c.Bus, so the real lcd2004 driver runs against it
// unmodified: the backpack byte stream is decoded strobe by strobe, commands
// are interpreted, and the resulting 20x4 character grid is drawn in place
// after every transaction. Useful while you are waiting for your display
// module to come by mail, and as a full-protocol test double.
package termlcd

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// PCF8574 backpack bit assignment, mirrored from the driver.
const (
	maskRS byte = 0x01
	maskE  byte = 0x04
	maskBL byte = 0x08
)

// DDRAM base address of each row on 20-column modules. Rows 0/2 live in the
// 0x00-0x27 block, rows 1/3 in 0x40-0x67; each block is a 40-cell ring the
// display shift rotates over.
var rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

const (
	rows      = 4
	cols      = 20
	lineCells = 40
)

// Opts represents the options available for the emulated display.
type Opts struct {
	// Addr is the I²C address the emulator answers at. Defaults to 0x27.
	// Transactions to any other address fail, which lets the driver's
	// address probing work.
	Addr uint16
	// W is where frames are rendered. Defaults to a colorable stdout.
	W io.Writer
	// Palette selects the ANSI palette. Defaults to ansi256.Default.
	Palette *ansi256.Palette

	_ struct{}
}

// Dev is the emulated display. It decodes the expander byte stream the same
// way the silicon does: a nibble is latched on the falling edge of E, two
// nibbles make an instruction or data byte.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	addr    uint16

	mu        sync.Mutex
	ddram     [128]byte
	cgram     [64]byte
	ac        byte
	cgramMode bool
	increment bool
	shift     int
	fourBit   bool
	havePrev  bool
	prevE     bool
	prevData  byte
	haveHigh  bool
	high      byte
	highRS    bool

	on        bool
	cursor    bool
	blink     bool
	backlight bool

	frames int
	buf    bytes.Buffer
}

// New returns a Dev that draws the decoded display at the console.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	addr := opts.Addr
	if addr == 0 {
		addr = 0x27
	}
	d := &Dev{
		w:         w,
		palette:   *p,
		addr:      addr,
		increment: true,
	}
	for ix := range d.ddram {
		d.ddram[ix] = ' '
	}
	return d
}

func (d *Dev) String() string {
	return fmt.Sprintf("TermLCD_%x", d.addr)
}

// SetSpeed implements i2c.Bus. The emulator is as fast as your terminal.
func (d *Dev) SetSpeed(f physic.Frequency) error {
	return nil
}

// Tx implements i2c.Bus. Reads fail: the real backpack has R/W grounded and
// is write-only.
func (d *Dev) Tx(addr uint16, w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr != d.addr {
		return fmt.Errorf("termlcd: no device at %#02x", addr)
	}
	if len(r) != 0 {
		return fmt.Errorf("termlcd: device is write-only")
	}
	for _, b := range w {
		d.step(b)
	}
	return d.render()
}

// step consumes one expander byte and latches a nibble when E falls.
func (d *Dev) step(b byte) {
	d.backlight = b&maskBL != 0
	e := b&maskE != 0
	if d.havePrev && d.prevE && !e {
		d.latch(d.prevData&0xf0, d.prevData&maskRS != 0)
	}
	d.havePrev = true
	d.prevE = e
	d.prevData = b
}

// latch accepts one 4-bit transfer. Until the function-set that switches to
// 4-bit mode arrives, each nibble is a full instruction high nibble, which is
// exactly how the cold start handshake drives the chip.
func (d *Dev) latch(nibble byte, rs bool) {
	if !d.fourBit {
		if !rs && nibble == 0x20 {
			d.fourBit = true
			d.haveHigh = false
		}
		// 0x30 resync writes and anything else in 8-bit era: no state.
		return
	}
	if !d.haveHigh {
		d.haveHigh = true
		d.high = nibble
		d.highRS = rs
		return
	}
	d.haveHigh = false
	b := d.high | nibble>>4
	if d.highRS {
		d.data(b)
	} else {
		d.command(b)
	}
}

// command interprets one instruction byte, highest set bit first, the way
// the instruction decoder does.
func (d *Dev) command(b byte) {
	switch {
	case b&0x80 != 0: // set DDRAM address
		d.cgramMode = false
		d.ac = b & 0x7f
	case b&0x40 != 0: // set CGRAM address
		d.cgramMode = true
		d.ac = b & 0x3f
	case b&0x20 != 0: // function set; interface width only
		if b&0x10 != 0 {
			d.fourBit = false
		}
	case b&0x10 != 0: // cursor/display shift
		if b&0x08 != 0 {
			if b&0x04 != 0 {
				d.shift--
			} else {
				d.shift++
			}
			d.shift = ((d.shift % lineCells) + lineCells) % lineCells
		} else {
			d.moveAC(b&0x04 != 0)
		}
	case b&0x08 != 0: // display control
		d.on = b&0x04 != 0
		d.cursor = b&0x02 != 0
		d.blink = b&0x01 != 0
	case b&0x04 != 0: // entry mode
		d.increment = b&0x02 != 0
	case b&0x02 != 0: // home
		d.ac = 0
		d.shift = 0
		d.cgramMode = false
	case b&0x01 != 0: // clear
		for ix := range d.ddram {
			d.ddram[ix] = ' '
		}
		d.ac = 0
		d.shift = 0
		d.cgramMode = false
		d.increment = true
	}
}

// data stores one data byte at the address counter and advances it.
func (d *Dev) data(b byte) {
	if d.cgramMode {
		d.cgram[d.ac&0x3f] = b
		d.ac = (d.ac + 1) & 0x3f
		return
	}
	d.ddram[d.ac&0x7f] = b
	d.moveAC(d.increment)
}

// moveAC steps the DDRAM address counter with the two-line wrap the chip
// uses: 0x27 chains to 0x40 and 0x67 back to 0x00.
func (d *Dev) moveAC(forward bool) {
	if d.cgramMode {
		if forward {
			d.ac = (d.ac + 1) & 0x3f
		} else {
			d.ac = (d.ac - 1) & 0x3f
		}
		return
	}
	if forward {
		switch d.ac {
		case 0x27:
			d.ac = 0x40
		case 0x67:
			d.ac = 0x00
		default:
			d.ac++
		}
	} else {
		switch d.ac {
		case 0x00:
			d.ac = 0x67
		case 0x40:
			d.ac = 0x27
		default:
			d.ac--
		}
	}
}

// cell returns the DDRAM byte visible at (col, row), shift applied.
func (d *Dev) cell(col, row int) byte {
	base := rowOffsets[row]
	block := base & 0x40
	offset := (int(base&0x3f) + col + d.shift) % lineCells
	return d.ddram[int(block)+offset]
}

// Screen returns the visible text, one string per row. CGRAM codes 0-7 show
// as the digits '0'-'7', other non-printable codes as spaces. Blank when the
// display is switched off.
func (d *Dev) Screen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, rows)
	row := make([]byte, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			row[c] = printable(d.visible(c, r))
		}
		out[r] = string(row)
	}
	return out
}

// Cell returns the raw visible byte at (col, row), before any placeholder
// substitution. This is what a round-trip test wants to look at.
func (d *Dev) Cell(col, row int) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cell(col, row)
}

// CGRAM returns the stored bitmap for a glyph slot.
func (d *Dev) CGRAM(slot int) [8]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	var bm [8]byte
	copy(bm[:], d.cgram[(slot&7)*8:])
	return bm
}

// DisplayOn reports the display control flag.
func (d *Dev) DisplayOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

// CursorOn reports the underline cursor flag.
func (d *Dev) CursorOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// BlinkOn reports the blink flag.
func (d *Dev) BlinkOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blink
}

// BacklightOn reports the state of the backpack backlight bit.
func (d *Dev) BacklightOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backlight
}

// Shift returns the current display shift in columns, positive to the left.
func (d *Dev) Shift() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shift
}

// Halt implements conn.Resource. It drops below the drawn frame and resets
// the terminal attributes so the shell prompt is not corrupted.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

func (d *Dev) visible(col, row int) byte {
	if !d.on {
		return ' '
	}
	return d.cell(col, row)
}

func printable(b byte) byte {
	switch {
	case b < 8:
		return '0' + b
	case b < 0x20 || b > 0x7e:
		return ' '
	default:
		return b
	}
}

// Backlit and dark shades of the classic yellow-green STN panel.
var (
	litColor  = color.NRGBA{154, 189, 44, 255}
	darkColor = color.NRGBA{42, 48, 24, 255}
)

// render redraws the frame in place: the first frame prints rows+2 bordered
// lines, later frames move the terminal cursor back up and overwrite them.
// This code is designed to minimize the amount of memory allocated per call.
func (d *Dev) render() error {
	bezel := litColor
	if !d.backlight {
		bezel = darkColor
	}
	edge := d.palette.Block(bezel)

	d.buf.Reset()
	if d.frames > 0 {
		fmt.Fprintf(&d.buf, "\033[%dA", rows+2)
	}
	d.frames++

	_, _ = d.buf.WriteString("\r\033[0m")
	for c := 0; c < cols+2; c++ {
		_, _ = d.buf.WriteString(edge)
	}
	_, _ = d.buf.WriteString("\033[0m\n")
	for r := 0; r < rows; r++ {
		_, _ = d.buf.WriteString(edge)
		_, _ = d.buf.WriteString("\033[0m")
		for c := 0; c < cols; c++ {
			_ = d.buf.WriteByte(printable(d.visible(c, r)))
		}
		_, _ = d.buf.WriteString(edge)
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	_, _ = d.buf.WriteString("\r\033[0m")
	for c := 0; c < cols+2; c++ {
		_, _ = d.buf.WriteString(edge)
	}
	_, _ = d.buf.WriteString("\033[0m\n")
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ i2c.Bus = &Dev{}
var _ fmt.Stringer = &Dev{}
