// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd2004_test

import (
	"log"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/lcd2004"
	"github.com/GermanBionicSystems/lcd2004/termlcd"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Open default I²C bus.
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer bus.Close()

	// Zero Addr probes 0x27 then 0x3f.
	lcd, err := lcd2004.New(bus, &lcd2004.DefaultOpts)
	if err != nil {
		log.Fatal(err)
	}
	defer lcd.Halt()

	_, _ = lcd.WriteString("Hello, World!")
	_ = lcd.SetCursor(0, 1)
	_, _ = lcd.WriteString("LCD2004 Demo")
	time.Sleep(2 * time.Second)

	_ = lcd.SetCursorVisible(true)
	_ = lcd.SetBlink(true)
	time.Sleep(time.Second)
	_ = lcd.SetBlink(false)
	_ = lcd.SetCursorVisible(false)

	for range 5 {
		_ = lcd.ShiftDisplay(lcd2004.ShiftLeft)
		time.Sleep(200 * time.Millisecond)
	}
	for range 5 {
		_ = lcd.ShiftDisplay(lcd2004.ShiftRight)
		time.Sleep(200 * time.Millisecond)
	}
	_ = lcd.Clear()
}

func ExampleDev_CreateChar() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()
	lcd, err := lcd2004.New(bus, &lcd2004.Opts{
		Addr:      0x27,
		Freq:      400 * physic.KiloHertz,
		Backlight: true,
		AutoFlush: true,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer lcd.Halt()

	// Degree symbol in slot 0.
	deg := []byte{
		0b00110,
		0b01001,
		0b00110,
		0b00000,
		0b00000,
		0b00000,
		0b00000,
		0b00000,
	}
	if err := lcd.CreateChar(0, deg); err != nil {
		log.Fatal(err)
	}
	_, _ = lcd.WriteString("Temp: 23")
	_ = lcd.WriteChar(lcd2004.CustomGlyph(0))
	_, _ = lcd.WriteString("C")
}

// No hardware at hand: the termlcd emulator implements i2c.Bus and draws the
// decoded display in the terminal.
func ExampleNew_emulated() {
	term := termlcd.New(nil)
	defer term.Halt()
	lcd, err := lcd2004.New(term, &lcd2004.DefaultOpts)
	if err != nil {
		log.Fatal(err)
	}
	_, _ = lcd.WriteString("No soldering needed")
	time.Sleep(2 * time.Second)
}
