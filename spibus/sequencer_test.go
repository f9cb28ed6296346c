package spibus

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestWriteDataSequence(t *testing.T) {
	s, _, rec := mockSession(Profile{Mode: 3, Bits: 8, SpeedHz: 500000})

	n, err := s.WriteData(3, []byte{0xAA, 0xBB})
	if err != nil {
		t.Fatalf("WriteData returned error: %v", err)
	}
	if n != 2 {
		t.Errorf("WriteData wrote %d bytes, want 2", n)
	}

	assertEvents(t, rec.events, []string{
		"strobe low",
		"transfer 19 mode=3 bits=8",
		"strobe high",
		"cs high",
		"cs low",
		"cs high",
		"write aabb mode=3 bits=8",
		"cs low",
	})
}

func TestWriteDataSwitchesProfile(t *testing.T) {
	s, dev, rec := mockSession(Profile{Mode: 0, Bits: 16, SpeedHz: 500000})

	if _, err := s.WriteData(3, []byte{0xAA}); err != nil {
		t.Fatalf("WriteData returned error: %v", err)
	}

	assertEvents(t, rec.events, []string{
		"set mode 3",
		"set bits 8",
		"strobe low",
		"transfer 19 mode=3 bits=8",
		"strobe high",
		"set mode 0",
		"set bits 16",
		"set mode 3",
		"set bits 8",
		"cs high",
		"cs low",
		"cs high",
		"write aa mode=3 bits=8",
		"cs low",
		"set mode 0",
		"set bits 16",
	})

	if dev.mode != 0 || dev.bits != 16 {
		t.Errorf("device left in mode=%d bits=%d, want negotiated 0/16", dev.mode, dev.bits)
	}
}

func TestReadDataSequence(t *testing.T) {
	s, dev, rec := mockSession(Profile{Mode: 3, Bits: 8, SpeedHz: 500000})
	dev.readPayload = []byte{0x11, 0x22, 0x33, 0x44}

	buf := make([]byte, 4)
	n, err := s.ReadData(5, buf)
	if err != nil {
		t.Fatalf("ReadData returned error: %v", err)
	}
	if n != 4 {
		t.Errorf("ReadData read %d bytes, want 4", n)
	}
	if !bytes.Equal(buf, dev.readPayload) {
		t.Errorf("ReadData buffer = %x, want %x", buf, dev.readPayload)
	}

	assertEvents(t, rec.events, []string{
		"strobe low",
		"transfer 2a mode=3 bits=8",
		"strobe high",
		"transfer 00 mode=3 bits=8",
		"strobe low",
		"transfer 2b mode=3 bits=8",
		"strobe high",
		"transfer 00 mode=3 bits=8",
		"read 4 mode=3 bits=8",
	})
}

func TestReadDataHandshakeFailureAborts(t *testing.T) {
	s, dev, rec := mockSession(Profile{Mode: 3, Bits: 8, SpeedHz: 500000})
	dev.transferErr = errors.New("no ack")

	_, err := s.ReadData(5, make([]byte, 2))
	if !errors.Is(err, ErrTransferFailure) {
		t.Fatalf("ReadData error = %v, want ErrTransferFailure", err)
	}

	for _, event := range rec.events {
		if strings.HasPrefix(event, "read") {
			t.Errorf("raw read issued after failed handshake, events: %v", rec.events)
		}
	}
}

func TestWriteDataReleasesChipSelectOnFailure(t *testing.T) {
	s, dev, rec := mockSession(Profile{Mode: 3, Bits: 8, SpeedHz: 500000})
	dev.writeErr = errors.New("device gone")

	_, err := s.WriteData(3, []byte{0xAA})
	if !errors.Is(err, ErrTransferFailure) {
		t.Fatalf("WriteData error = %v, want ErrTransferFailure", err)
	}

	last := rec.events[len(rec.events)-1]
	if last != "cs low" {
		t.Errorf("chip-select not released after failed write, events: %v", rec.events)
	}
}
