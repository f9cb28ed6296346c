package muxtree

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hubertat/buskit/mmio"
	"github.com/hubertat/buskit/spibus"
)

type fakeLine struct {
	name   string
	events *[]string
}

func (l *fakeLine) High() { *l.events = append(*l.events, l.name+" high") }
func (l *fakeLine) Low()  { *l.events = append(*l.events, l.name+" low") }

type fakeBus struct {
	events    []string
	selectErr error
}

func (b *fakeBus) SelectModule(address spibus.ModuleAddress, sub spibus.SubCommand) error {
	b.events = append(b.events, fmt.Sprintf("select %d sub %d", address, sub))
	return b.selectErr
}

func (b *fakeBus) TransferRaw(data []byte) error {
	b.events = append(b.events, fmt.Sprintf("raw %x", data))
	return nil
}

func fakeTree(bus *fakeBus) (*Tree, *[]string, *int) {
	events := &[]string{}
	acquired := 0

	t := New(bus)
	t.acquire = func(p mmio.Pin) (Line, error) {
		acquired++
		name := "a"
		if p == t.PinB {
			name = "b"
		}
		return &fakeLine{name: name, events: events}, nil
	}

	return t, events, &acquired
}

func TestSetLocalChannelBits(t *testing.T) {
	cases := []struct {
		id    uint8
		wantA string
		wantB string
	}{
		{0, "a low", "b low"},
		{1, "a high", "b low"},
		{2, "a low", "b high"},
		{3, "a high", "b high"},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("channel_%d", c.id), func(t *testing.T) {
			tree, events, _ := fakeTree(&fakeBus{})

			if err := tree.SetLocalChannel(c.id); err != nil {
				t.Fatalf("SetLocalChannel(%d) returned error: %v", c.id, err)
			}

			got := *events
			if len(got) != 2 || got[0] != c.wantA || got[1] != c.wantB {
				t.Errorf("SetLocalChannel(%d) events = %v, want [%s %s]", c.id, got, c.wantA, c.wantB)
			}
		})
	}
}

func TestSetLocalChannelOutOfRange(t *testing.T) {
	tree, _, _ := fakeTree(&fakeBus{})

	if err := tree.SetLocalChannel(4); !errors.Is(err, ErrArgument) {
		t.Errorf("SetLocalChannel(4) error = %v, want ErrArgument", err)
	}
}

func TestConfigureLocalMuxPinsOnce(t *testing.T) {
	tree, _, acquired := fakeTree(&fakeBus{})

	if err := tree.ConfigureLocalMuxPins(); err != nil {
		t.Fatalf("ConfigureLocalMuxPins returned error: %v", err)
	}
	if err := tree.ConfigureLocalMuxPins(); err != nil {
		t.Fatalf("second ConfigureLocalMuxPins returned error: %v", err)
	}

	if *acquired != 2 {
		t.Errorf("pins acquired %d times, want exactly once per line (2)", *acquired)
	}
}

func TestConfigureLocalMuxPinsRetriesAfterFailure(t *testing.T) {
	tree, _, _ := fakeTree(&fakeBus{})

	calls := 0
	failing := errors.New("bank mapping failed")
	inner := tree.acquire
	tree.acquire = func(p mmio.Pin) (Line, error) {
		calls++
		if calls == 1 {
			return nil, failing
		}
		return inner(p)
	}

	if err := tree.ConfigureLocalMuxPins(); err == nil {
		t.Fatal("first ConfigureLocalMuxPins did not surface the failure")
	}
	if err := tree.ConfigureLocalMuxPins(); err != nil {
		t.Fatalf("retry after failure returned error: %v", err)
	}
}

func TestSetExtenderAddress(t *testing.T) {
	tree, _, _ := fakeTree(&fakeBus{})

	for _, invalid := range []uint8{0, 16, 200} {
		if err := tree.SetExtenderAddress(invalid); !errors.Is(err, ErrArgument) {
			t.Errorf("SetExtenderAddress(%d) error = %v, want ErrArgument", invalid, err)
		}
	}

	for address := uint8(1); address <= 15; address++ {
		if err := tree.SetExtenderAddress(address); err != nil {
			t.Errorf("SetExtenderAddress(%d) returned error: %v", address, err)
		}
	}
}

func TestSetExtendedChannel(t *testing.T) {
	bus := &fakeBus{}
	tree, _, _ := fakeTree(bus)

	if err := tree.SetExtendedChannel(5); !errors.Is(err, ErrArgument) {
		t.Fatalf("SetExtendedChannel without address error = %v, want ErrArgument", err)
	}

	if err := tree.SetExtenderAddress(9); err != nil {
		t.Fatalf("SetExtenderAddress returned error: %v", err)
	}
	if err := tree.SetExtendedChannel(5); err != nil {
		t.Fatalf("SetExtendedChannel returned error: %v", err)
	}

	want := []string{"select 9 sub 2", "raw 05"}
	if len(bus.events) != 2 || bus.events[0] != want[0] || bus.events[1] != want[1] {
		t.Errorf("extended channel events = %v, want %v", bus.events, want)
	}
}

func TestResetExtenderBroadcastsZero(t *testing.T) {
	bus := &fakeBus{}
	tree, _, _ := fakeTree(bus)

	if err := tree.ResetExtender(); err != nil {
		t.Fatalf("ResetExtender returned error: %v", err)
	}

	if len(bus.events) != 1 || bus.events[0] != "raw 00" {
		t.Errorf("reset events = %v, want [raw 00]", bus.events)
	}
}

func TestSelectComposesBothLayers(t *testing.T) {
	bus := &fakeBus{}
	tree, events, _ := fakeTree(bus)

	if err := tree.SetExtenderAddress(3); err != nil {
		t.Fatalf("SetExtenderAddress returned error: %v", err)
	}

	ext := uint8(6)
	if err := tree.Select(Channel{Local: 2, Extended: &ext}); err != nil {
		t.Fatalf("Select returned error: %v", err)
	}

	gotLines := *events
	if len(gotLines) != 2 || gotLines[0] != "a low" || gotLines[1] != "b high" {
		t.Errorf("local layer events = %v, want [a low, b high]", gotLines)
	}

	wantBus := []string{"select 3 sub 2", "raw 06"}
	if len(bus.events) != 2 || bus.events[0] != wantBus[0] || bus.events[1] != wantBus[1] {
		t.Errorf("extender events = %v, want %v", bus.events, wantBus)
	}
}

func TestSelectLocalOnly(t *testing.T) {
	bus := &fakeBus{}
	tree, _, _ := fakeTree(bus)

	if err := tree.Select(Channel{Local: 1}); err != nil {
		t.Fatalf("Select returned error: %v", err)
	}

	if len(bus.events) != 0 {
		t.Errorf("local-only select produced bus traffic: %v", bus.events)
	}
}
