package spibus

import "github.com/pkg/errors"

// ModuleAddress identifies one physical module on the backplane, 0-15.
type ModuleAddress uint8

// SubCommand is the 3-bit operation class of an address frame.
type SubCommand uint8

const (
	// SubSelectWrite arms the addressed module for an incoming payload.
	SubSelectWrite SubCommand = 1
	// SubReadRequest and SubReadCommit are the two phases of the read
	// handshake. SubReadRequest doubles as the "latch next byte" signal
	// the channel extender boards listen for.
	SubReadRequest SubCommand = 2
	SubReadCommit  SubCommand = 3
)

const (
	maxModuleAddress = 15
	maxSubCommand    = 7
)

// Parity folds the bits of v down to a single bit: 1 when the population
// count is odd, 0 when even.
func Parity(v uint32) uint8 {
	v ^= v >> 16
	v ^= v >> 8
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return uint8(v & 1)
}

// Frame builds the wire-level addressing byte: bit 7 carries even parity
// over the address, bits 6-3 the address, bits 2-0 the sub-command.
func Frame(address ModuleAddress, sub SubCommand) (byte, error) {
	if address > maxModuleAddress {
		return 0, errors.Wrapf(ErrArgument, "module address %d exceeds %d", address, maxModuleAddress)
	}
	if sub > maxSubCommand {
		return 0, errors.Wrapf(ErrArgument, "sub-command %d exceeds %d", sub, maxSubCommand)
	}

	return Parity(uint32(address))<<7 | byte(address)<<3 | byte(sub), nil
}

// SelectModule transmits the address frame for (address, sub) as a single
// strobe-bracketed byte.
func (s *Session) SelectModule(address ModuleAddress, sub SubCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectModuleLocked(address, sub)
}

func (s *Session) selectModuleLocked(address ModuleAddress, sub SubCommand) error {
	frame, err := Frame(address, sub)
	if err != nil {
		return err
	}

	buf := []byte{frame}
	return s.addressedTransferLocked(buf, buf)
}

// TransferRaw pushes data through the strobe-bracketed addressing path
// without building a frame. Used to hand a channel id to an extender board
// that is already selected, and to broadcast the all-zero reset byte.
// The response overwrites data.
func (s *Session) TransferRaw(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addressedTransferLocked(data, data)
}

// addressedTransferLocked is the strobe-bracketed primitive: switch to the
// fixed addressing profile if the negotiated one differs, pull the strobe
// low for the duration of the transfer, then restore. The strobe pulse is
// what makes the decoder hardware latch these bytes as addresses instead
// of payload.
func (s *Session) addressedTransferLocked(tx, rx []byte) error {
	if len(tx) == 0 {
		return nil
	}

	ap := s.addressingProfile()

	sw, err := s.enterAddressing()
	if err != nil {
		return errors.Wrapf(ErrBusFailure, "switch to addressing profile: %v", err)
	}

	s.strobe.Low()
	transferErr := s.dev.transfer(tx, rx, ap)
	s.strobe.High()

	restoreErr := s.restoreNegotiated(sw)

	if transferErr != nil {
		return errors.Wrapf(ErrTransferFailure, "addressing transfer: %v", transferErr)
	}
	if restoreErr != nil {
		return errors.Wrapf(ErrBusFailure, "restore negotiated profile: %v", restoreErr)
	}

	return nil
}
