package spibus

import (
	"encoding/hex"
	"fmt"
	"testing"
)

// recorder collects bus and GPIO events in the order they happen, so tests
// can check the exact wire sequence of a transaction.
type recorder struct {
	events []string
}

func (r *recorder) add(event string) {
	r.events = append(r.events, event)
}

type mockLine struct {
	name string
	rec  *recorder
}

func (l *mockLine) High() { l.rec.add(l.name + " high") }
func (l *mockLine) Low()  { l.rec.add(l.name + " low") }

type mockDevice struct {
	rec *recorder

	mode uint8
	bits uint8

	readPayload []byte

	transferErr error
	writeErr    error
	readErr     error
	setModeErr  error
	setBitsErr  error
}

func (d *mockDevice) transfer(tx, rx []byte, p Profile) error {
	d.rec.add(fmt.Sprintf("transfer %s mode=%d bits=%d", hex.EncodeToString(tx), d.mode, d.bits))
	return d.transferErr
}

func (d *mockDevice) writeBytes(data []byte) (int, error) {
	d.rec.add(fmt.Sprintf("write %s mode=%d bits=%d", hex.EncodeToString(data), d.mode, d.bits))
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	return len(data), nil
}

func (d *mockDevice) readBytes(buf []byte) (int, error) {
	d.rec.add(fmt.Sprintf("read %d mode=%d bits=%d", len(buf), d.mode, d.bits))
	if d.readErr != nil {
		return 0, d.readErr
	}
	copy(buf, d.readPayload)
	return len(buf), nil
}

func (d *mockDevice) setMode(mode uint8) error {
	if d.setModeErr != nil {
		return d.setModeErr
	}
	d.mode = mode
	d.rec.add(fmt.Sprintf("set mode %d", mode))
	return nil
}

func (d *mockDevice) setBits(bits uint8) error {
	if d.setBitsErr != nil {
		return d.setBitsErr
	}
	d.bits = bits
	d.rec.add(fmt.Sprintf("set bits %d", bits))
	return nil
}

func (d *mockDevice) close() error {
	d.rec.add("close")
	return nil
}

// mockSession builds a session over recording fakes, starting out in the
// given negotiated profile.
func mockSession(negotiated Profile) (*Session, *mockDevice, *recorder) {
	rec := &recorder{}
	dev := &mockDevice{rec: rec, mode: negotiated.Mode, bits: negotiated.Bits}
	s := newSession(dev, &mockLine{name: "cs", rec: rec}, &mockLine{name: "strobe", rec: rec}, negotiated)
	return s, dev, rec
}

func assertEvents(t testing.TB, got, want []string) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("event count mismatch\ngot:  %v\nwant: %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}
