// Package muxtree routes a two-level channel id to one of many sensor
// boards sharing the I2C bus: a local 1-of-4 demultiplexer driven by two
// GPIO lines, and SPI-addressed extender boards selected through the
// module addressing protocol for the channels behind them.
package muxtree

import (
	"github.com/pkg/errors"

	"github.com/hubertat/buskit/mmio"
	"github.com/hubertat/buskit/spibus"
)

var ErrArgument = errors.New("invalid channel or extender address")

const (
	maxLocalChannel    = 3
	maxExtenderAddress = 15
)

// Selector is the slice of the bus session the tree needs to reach the
// extender boards. *spibus.Session satisfies it.
type Selector interface {
	SelectModule(address spibus.ModuleAddress, sub spibus.SubCommand) error
	TransferRaw(data []byte) error
}

// Line matches the two driven demux lines; *mmio.Line satisfies it.
type Line interface {
	High()
	Low()
}

// Channel identifies one sensor board position: the local demux output and,
// for boards behind an extender, the sub-channel forwarded to it.
type Channel struct {
	Local    uint8
	Extended *uint8 `json:",omitempty"`
}

type Tree struct {
	// PinA carries bit 0 of the local channel id, PinB bit 1.
	PinA mmio.Pin
	PinB mmio.Pin

	bus Selector

	acquire func(mmio.Pin) (Line, error)

	lineA      Line
	lineB      Line
	configured bool

	extender uint8
}

// New builds a tree over the given bus session, with the demux lines on
// their default header pins.
func New(bus Selector) *Tree {
	return &Tree{
		PinA: mmio.P9_15,
		PinB: mmio.P9_16,
		bus:  bus,
		acquire: func(p mmio.Pin) (Line, error) {
			line, err := p.Line()
			if err != nil {
				return nil, err
			}
			line.Output()
			return line, nil
		},
	}
}

// ConfigureLocalMuxPins resolves both demux lines and switches them to
// outputs. The work happens once per tree; repeated calls after a success
// are no-ops, a failed attempt is retried on the next call.
func (t *Tree) ConfigureLocalMuxPins() error {
	if t.configured {
		return nil
	}

	lineA, err := t.acquire(t.PinA)
	if err != nil {
		return errors.Wrapf(err, "configure mux line A (pin %d)", t.PinA)
	}
	lineB, err := t.acquire(t.PinB)
	if err != nil {
		return errors.Wrapf(err, "configure mux line B (pin %d)", t.PinB)
	}

	t.lineA = lineA
	t.lineB = lineB
	t.configured = true

	return nil
}

// SetLocalChannel drives the two demux lines with the low bits of id,
// selecting one of the four local outputs. No bus traffic is involved.
func (t *Tree) SetLocalChannel(id uint8) error {
	if id > maxLocalChannel {
		return errors.Wrapf(ErrArgument, "local channel %d exceeds %d", id, maxLocalChannel)
	}

	if err := t.ConfigureLocalMuxPins(); err != nil {
		return err
	}

	if id&1 != 0 {
		t.lineA.High()
	} else {
		t.lineA.Low()
	}

	if id>>1&1 != 0 {
		t.lineB.High()
	} else {
		t.lineB.Low()
	}

	return nil
}

// SetExtenderAddress records the board address of the channel extender.
// Zero is the broadcast-reset value and not a valid board address.
func (t *Tree) SetExtenderAddress(address uint8) error {
	if address == 0 || address > maxExtenderAddress {
		return errors.Wrapf(ErrArgument, "extender address %d outside 1..%d", address, maxExtenderAddress)
	}

	t.extender = address
	return nil
}

// SetExtendedChannel selects a sub-channel on the extender board: the board
// is addressed with the read-request sub-command, which it treats as
// "latch the next byte", then the channel id follows raw.
func (t *Tree) SetExtendedChannel(id uint8) error {
	if t.extender == 0 {
		return errors.Wrap(ErrArgument, "extender address not set")
	}

	if err := t.bus.SelectModule(spibus.ModuleAddress(t.extender), spibus.SubReadRequest); err != nil {
		return errors.Wrapf(err, "select extender board %d", t.extender)
	}

	if err := t.bus.TransferRaw([]byte{id}); err != nil {
		return errors.Wrapf(err, "forward channel id %d to extender", id)
	}

	return nil
}

// ResetExtender broadcasts the reserved all-zero byte, deselecting every
// extender board on the bus. Used before rerouting to clear stale state.
func (t *Tree) ResetExtender() error {
	if err := t.bus.TransferRaw([]byte{0x00}); err != nil {
		return errors.Wrap(err, "broadcast extender reset")
	}
	return nil
}

// Select routes both multiplexing layers to the given channel.
func (t *Tree) Select(ch Channel) error {
	if err := t.SetLocalChannel(ch.Local); err != nil {
		return err
	}

	if ch.Extended != nil {
		if err := t.SetExtendedChannel(*ch.Extended); err != nil {
			return err
		}
	}

	return nil
}
