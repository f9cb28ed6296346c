package mmio

import "github.com/pkg/errors"

// Pin is a global GPIO number as the kernel counts them (bank*32 + bit).
// The P8/P9 header constants in pins.go translate the printed header
// positions to these numbers.
type Pin int

// Line is a resolved pin: a cached bank mapping plus the bit mask of one
// GPIO inside it. Obtain one through Pin.Line.
type Line struct {
	bank *bank
	mask uint32
}

func splitPin(p Pin) (bankIndex, bit int, err error) {
	bankIndex = int(p) / bankPins
	bit = int(p) % bankPins

	if p < 0 || bankIndex >= bankCount {
		err = errors.Wrapf(ErrArgument, "pin %d decodes to bank %d", p, bankIndex)
	}

	return
}

// Line resolves the pin into its controller bank, mapping the bank on first
// use. The returned Line stays valid for the life of the process (or until
// Unmap).
func (p Pin) Line() (*Line, error) {
	bankIndex, bit, err := splitPin(p)
	if err != nil {
		return nil, err
	}

	b, err := getBank(bankIndex)
	if err != nil {
		return nil, err
	}

	return &Line{bank: b, mask: 1 << uint(bit)}, nil
}

// Output makes the pin an output by clearing its bit in the output-enable
// register. Read-modify-write, serialized on the package mutex.
func (l *Line) Output() {
	mu.Lock()
	l.bank.words[regOutputEnable] &^= l.mask
	mu.Unlock()
}

// Input makes the pin an input by setting its output-enable bit.
func (l *Line) Input() {
	mu.Lock()
	l.bank.words[regOutputEnable] |= l.mask
	mu.Unlock()
}

// High drives the pin high through the dedicated set-data register, so the
// write cannot race other bits of the same bank.
func (l *Line) High() {
	l.bank.words[regSetDataOut] = l.mask
}

// Low drives the pin low through the dedicated clear-data register.
func (l *Line) Low() {
	l.bank.words[regClearDataOut] = l.mask
}

// Read samples the input-data register.
func (l *Line) Read() bool {
	return l.bank.words[regDataIn]&l.mask != 0
}
