// Package spibus owns the shared SPI bus of the sensor backplane: the open
// spidev handle, the negotiated transfer profile, and the chip-select and
// strobe GPIO lines. On top of the raw bus it implements the parity-checked
// module addressing protocol and the framed write/read transaction
// sequences the downstream decoder hardware expects.
package spibus

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/hubertat/buskit/mmio"
)

var (
	ErrArgument        = errors.New("argument out of range")
	ErrBusFailure      = errors.New("bus open or negotiation failed")
	ErrTransferFailure = errors.New("bus transfer failed")
)

const (
	defaultDevice  = "/dev/spidev0.0"
	defaultMode    = 3
	defaultBits    = 8
	defaultSpeedHz = 500000
)

// Line is a GPIO output the session toggles: the chip-select line framing
// write payloads and the strobe line bracketing addressing bytes.
// *mmio.Line satisfies it; tests substitute recorders.
type Line interface {
	High()
	Low()
}

type Config struct {
	Device  string
	Mode    uint8
	Bits    uint8
	SpeedHz uint32
	DelayUs uint16

	ChipSelectPin mmio.Pin
	StrobePin     mmio.Pin
}

func (cfg *Config) applyDefaults() {
	if cfg.Device == "" {
		cfg.Device = defaultDevice
	}
	if cfg.Mode == 0 {
		cfg.Mode = defaultMode
	}
	if cfg.Bits == 0 {
		cfg.Bits = defaultBits
	}
	if cfg.SpeedHz == 0 {
		cfg.SpeedHz = defaultSpeedHz
	}
	if cfg.ChipSelectPin == 0 {
		cfg.ChipSelectPin = mmio.P9_17
	}
	if cfg.StrobePin == 0 {
		cfg.StrobePin = mmio.P9_14
	}
}

// Session is the single owner of the bus handle and its profile state.
// Every exported operation takes the session mutex for its whole duration,
// so an addressing byte and the payload it frames can never be interleaved
// by another transaction on the same session.
type Session struct {
	mu         sync.Mutex
	dev        device
	negotiated Profile
	cs         Line
	strobe     Line
}

// Open opens the bus device, negotiates the transfer profile and configures
// the chip-select and strobe pins as outputs. Only one session should be
// open per process.
func Open(cfg Config) (*Session, error) {
	cfg.applyDefaults()

	dev, err := openSpidev(cfg.Device)
	if err != nil {
		return nil, errors.Wrapf(ErrBusFailure, "open %s: %v", cfg.Device, err)
	}

	requested := Profile{Mode: cfg.Mode, Bits: cfg.Bits, SpeedHz: cfg.SpeedHz, DelayUs: cfg.DelayUs}
	negotiated, err := dev.negotiate(requested)
	if err != nil {
		dev.close()
		return nil, errors.Wrapf(ErrBusFailure, "negotiate profile on %s: %v", cfg.Device, err)
	}

	cs, err := cfg.ChipSelectPin.Line()
	if err != nil {
		dev.close()
		return nil, errors.Wrap(err, "resolve chip-select pin")
	}
	strobe, err := cfg.StrobePin.Line()
	if err != nil {
		dev.close()
		return nil, errors.Wrap(err, "resolve strobe pin")
	}

	cs.Output()
	strobe.Output()

	return newSession(dev, cs, strobe, negotiated), nil
}

func newSession(dev device, cs, strobe Line, negotiated Profile) *Session {
	return &Session{
		dev:        dev,
		negotiated: negotiated,
		cs:         cs,
		strobe:     strobe,
	}
}

// Profile returns the negotiated profile the session always falls back to.
func (s *Session) Profile() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.negotiated
}

// Transfer performs one full-duplex fixed-length transfer using the
// negotiated profile. tx and rx must have equal length; they may alias.
func (s *Session) Transfer(tx, rx []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferLocked(tx, rx)
}

func (s *Session) transferLocked(tx, rx []byte) error {
	if len(tx) != len(rx) {
		return errors.Wrapf(ErrArgument, "transfer buffer lengths differ (%d vs %d)", len(tx), len(rx))
	}
	if len(tx) == 0 {
		return nil
	}

	if err := s.dev.transfer(tx, rx, s.negotiated); err != nil {
		return errors.Wrapf(ErrTransferFailure, "transfer of %d bytes: %v", len(tx), err)
	}
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.close()
}
