// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package glyph builds 5x8 CGRAM bitmaps for custom LCD characters.
//
// The HD44780 holds up to 8 user glyphs of 5x8 pixels, one byte per row with
// the low 5 bits significant. Bitmaps can be written by hand as 8 binary
// literals; this package generates them instead, from an image, from a
// drawing callback, or by rasterizing a rune from a font face. All three
// return bitmaps accepted by lcd2004.Dev.CreateChar.
package glyph

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Glyph cell dimensions of the controller's CGRAM.
const (
	Width  = 5
	Height = 8
)

// FromImage thresholds the top-left 5x8 block of img into a bitmap: pixels
// brighter than 50% luminance become set pixels. The image must be at least
// 5x8.
func FromImage(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() < Width || b.Dy() < Height {
		return nil, fmt.Errorf("glyph: image must be at least %dx%d, got %dx%d", Width, Height, b.Dx(), b.Dy())
	}
	bm := make([]byte, Height)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if (r+g+bl)/3 > 0x7fff {
				bm[y] |= 1 << (Width - 1 - x)
			}
		}
	}
	return bm, nil
}

// Draw hands a blank 5x8 canvas to fn and thresholds the result. Draw in
// white on the black background; coordinates are pixels.
//
//	heart := glyph.Draw(func(gc *gg.Context) {
//		gc.DrawCircle(1.5, 2.5, 1.5)
//		gc.DrawCircle(3.5, 2.5, 1.5)
//		gc.Fill()
//		gc.DrawRectangle(0, 3, 5, 2)
//		gc.Fill()
//	})
func Draw(fn func(gc *gg.Context)) []byte {
	gc := gg.NewContext(Width, Height)
	gc.SetRGB(0, 0, 0)
	gc.Clear()
	gc.SetRGB(1, 1, 1)
	fn(gc)
	bm, _ := FromImage(gc.Image())
	return bm
}

// NewFace parses TTF font data and returns a face sized for rasterizing into
// a glyph cell. 8 points at 72 DPI fills the cell height for most fonts.
func NewFace(ttf []byte, points float64) (font.Face, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("glyph: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    points,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// Rasterize draws r with face into the glyph cell and thresholds it. A 5x8
// cell is a brutal target for any font; expect an approximation, not
// typography.
func Rasterize(face font.Face, r rune) []byte {
	img := image.NewGray(image.Rect(0, 0, Width, Height))
	d := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(0, Height-1),
	}
	d.DrawString(string(r))
	bm, _ := FromImage(img)
	return bm
}
