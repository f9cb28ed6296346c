package spibus

// Profile is one set of bus transfer parameters. A session keeps two of
// them: the profile negotiated at open time for ordinary sensor payloads,
// and the fixed profile the address-decoder hardware requires.
type Profile struct {
	Mode    uint8
	Bits    uint8
	SpeedHz uint32
	DelayUs uint16
}

const (
	addressingMode = 3
	addressingBits = 8
)

// addressingProfile is the fixed profile used for every addressing-protocol
// transfer: mode 3, 8-bit words, no inter-transfer delay. The clock speed
// stays at whatever was negotiated.
func (s *Session) addressingProfile() Profile {
	return Profile{
		Mode:    addressingMode,
		Bits:    addressingBits,
		SpeedHz: s.negotiated.SpeedHz,
	}
}

// switched records which parameters were changed when entering the
// addressing profile, so that only those get restored afterwards.
type switched struct {
	mode bool
	bits bool
}

// enterAddressing switches the device to the addressing profile. On failure
// any parameter already switched is rolled back, so the device never stays
// half way between the two profiles.
func (s *Session) enterAddressing() (sw switched, err error) {
	if s.negotiated.Mode != addressingMode {
		if err = s.dev.setMode(addressingMode); err != nil {
			return
		}
		sw.mode = true
	}
	if s.negotiated.Bits != addressingBits {
		if err = s.dev.setBits(addressingBits); err != nil {
			s.restoreNegotiated(sw)
			sw = switched{}
			return
		}
		sw.bits = true
	}
	return
}

func (s *Session) restoreNegotiated(sw switched) error {
	if sw.mode {
		if err := s.dev.setMode(s.negotiated.Mode); err != nil {
			return err
		}
	}
	if sw.bits {
		if err := s.dev.setBits(s.negotiated.Bits); err != nil {
			return err
		}
	}
	return nil
}
