// Package mmio gives direct, memory-mapped access to the AM335x GPIO
// controller banks through /dev/mem. Each of the four banks is mapped
// lazily on first use and the mapping is cached for the rest of the
// process lifetime; Unmap exists for callers that need a clean shutdown.
package mmio

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var (
	ErrArgument     = errors.New("pin number out of range")
	ErrDeviceAccess = errors.New("cannot open memory device")
	ErrMapping      = errors.New("register page mapping failed")
)

const (
	bankCount  = 4
	bankLength = 4096
	bankPins   = 32
)

// Word offsets into a mapped bank page.
const (
	regOutputEnable = 0x134 / 4
	regDataIn       = 0x138 / 4
	regDataOut      = 0x13C / 4
	regClearDataOut = 0x190 / 4
	regSetDataOut   = 0x194 / 4
)

var bankAddresses = [bankCount]int64{0x44E07000, 0x4804C000, 0x481AC000, 0x481AF000}

var devMemPath = "/dev/mem"

type bank struct {
	mem   []byte
	words []uint32
}

var (
	mu    sync.Mutex
	banks [bankCount]*bank
)

// getBank returns the cached mapping for a bank, creating it on first use.
// Callers hold no lock; the bank cache and all direction register
// read-modify-writes are serialized on the package mutex.
func getBank(index int) (*bank, error) {
	mu.Lock()
	defer mu.Unlock()

	if banks[index] != nil {
		return banks[index], nil
	}

	fd, err := unix.Open(devMemPath, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceAccess, "open %s: %v", devMemPath, err)
	}
	defer unix.Close(fd)

	mem, err := unix.Mmap(fd, bankAddresses[index], bankLength, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(ErrMapping, "mmap gpio bank %d at %#x: %v", index, bankAddresses[index], err)
	}

	banks[index] = &bank{
		mem:   mem,
		words: unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), bankLength/4),
	}

	return banks[index], nil
}

// Unmap releases every cached bank mapping. Pins resolved earlier must not
// be used afterwards. Most processes never call this and keep the mappings
// until exit.
func Unmap() (err error) {
	mu.Lock()
	defer mu.Unlock()

	for index, b := range banks {
		if b == nil {
			continue
		}
		unmapErr := unix.Munmap(b.mem)
		if unmapErr != nil {
			err = errors.Wrapf(unmapErr, "munmap gpio bank %d", index)
		}
		banks[index] = nil
	}

	return
}
