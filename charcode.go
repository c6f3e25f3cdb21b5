// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd2004

// CharCode is a single character cell value as the controller sees it:
// values 0-7 address the CGRAM glyph slots, 0x20 and up index the character
// ROM. The constructors make the two uses explicit instead of relying on
// magic byte values.
type CharCode byte

// Printable returns the cell value for a ROM character. Only the low byte of
// r is meaningful; the controller's ROM covers ASCII plus a vendor-specific
// extended page, and codes the ROM has no glyph for produce whatever the
// module ships there. The hardware does not report writes it disagrees with,
// so neither does the driver.
func Printable(r rune) CharCode {
	return CharCode(byte(r))
}

// CustomGlyph returns the cell value rendering CGRAM slot 0-7. The slot is
// masked to the valid range the way the controller itself decodes it.
func CustomGlyph(slot int) CharCode {
	return CharCode(slot & 0x07)
}

// WriteChar writes a single cell at the cursor position.
func (d *Dev) WriteChar(c CharCode) error {
	_, err := d.Write([]byte{byte(c)})
	return err
}
