package spibus

import "github.com/pkg/errors"

// WriteData performs a framed write: select the module for writing, switch
// to the addressing profile, pulse chip-select to give the downstream shift
// register a clean rising edge, stream the payload, then release the line
// and restore the negotiated profile. Returns the number of bytes written.
func (s *Session) WriteData(address ModuleAddress, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.selectModuleLocked(address, SubSelectWrite); err != nil {
		return 0, errors.Wrapf(err, "select module %d for write", address)
	}

	sw, err := s.enterAddressing()
	if err != nil {
		return 0, errors.Wrapf(ErrBusFailure, "switch to addressing profile: %v", err)
	}

	s.cs.High()
	s.cs.Low()

	s.cs.High()
	n, writeErr := s.dev.writeBytes(data)
	s.cs.Low()

	restoreErr := s.restoreNegotiated(sw)

	if writeErr != nil {
		return n, errors.Wrapf(ErrTransferFailure, "write %d bytes to module %d: %v", len(data), address, writeErr)
	}
	if restoreErr != nil {
		return n, errors.Wrapf(ErrBusFailure, "restore negotiated profile: %v", restoreErr)
	}

	return n, nil
}

// ReadData performs the two-phase read handshake: arm the module with
// sub-command 2, commit with sub-command 3 (each followed by a one-byte
// dummy transfer the hardware uses to settle), then stream len(buf) bytes
// back under the addressing profile. Returns the number of bytes read.
//
// Unlike the original controller firmware, a failed handshake step aborts
// the sequence instead of silently continuing.
func (s *Session) ReadData(address ModuleAddress, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dummy := make([]byte, 1)

	if err := s.selectModuleLocked(address, SubReadRequest); err != nil {
		return 0, errors.Wrapf(err, "arm module %d for read", address)
	}
	if err := s.transferLocked(dummy, dummy); err != nil {
		return 0, errors.Wrap(err, "read handshake settle transfer")
	}

	if err := s.selectModuleLocked(address, SubReadCommit); err != nil {
		return 0, errors.Wrapf(err, "commit read on module %d", address)
	}
	if err := s.transferLocked(dummy, dummy); err != nil {
		return 0, errors.Wrap(err, "read handshake settle transfer")
	}

	sw, err := s.enterAddressing()
	if err != nil {
		return 0, errors.Wrapf(ErrBusFailure, "switch to addressing profile: %v", err)
	}

	n, readErr := s.dev.readBytes(buf)

	restoreErr := s.restoreNegotiated(sw)

	if readErr != nil {
		return n, errors.Wrapf(ErrTransferFailure, "read %d bytes from module %d: %v", len(buf), address, readErr)
	}
	if restoreErr != nil {
		return n, errors.Wrapf(ErrBusFailure, "restore negotiated profile: %v", restoreErr)
	}

	return n, nil
}
