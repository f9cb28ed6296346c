// Package i2cbus drives the I2C side of the shared sensor bus. One Bus
// wraps a single character device node and keeps one kernel handle per
// downstream device address, opened lazily and reused for the rest of the
// process (the sensor boards sit behind the multiplexing tree, so the same
// address reappears on every channel).
package i2cbus

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const i2cSlaveIoctl = 0x0703

const DefaultDevice = "/dev/i2c-2"

type Bus struct {
	path string

	mu      sync.Mutex
	devices map[uint8]io.ReadWriteCloser

	openDevice func(path string, address uint8) (io.ReadWriteCloser, error)
}

// Open prepares a bus over the given device node. The node itself is not
// touched until the first transfer. An empty path selects DefaultDevice.
func Open(path string) *Bus {
	if path == "" {
		path = DefaultDevice
	}
	return &Bus{
		path:       path,
		devices:    make(map[uint8]io.ReadWriteCloser),
		openDevice: openSlave,
	}
}

func openSlave(path string, address uint8) (io.ReadWriteCloser, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	_, _, errNo := unix.Syscall(unix.SYS_IOCTL, file.Fd(), i2cSlaveIoctl, uintptr(address))
	if errNo != 0 {
		file.Close()
		return nil, errors.Wrapf(errNo, "bind %s to device address %#02x", path, address)
	}

	return file, nil
}

func (b *Bus) device(address uint8) (io.ReadWriteCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dev, found := b.devices[address]; found {
		return dev, nil
	}

	dev, err := b.openDevice(b.path, address)
	if err != nil {
		return nil, err
	}
	b.devices[address] = dev

	return dev, nil
}

// ReadReg reads len(buf) bytes from a device register. A zero register
// address means the payload is pre-framed by the caller and the read starts
// without a register write first.
func (b *Bus) ReadReg(address, register uint8, buf []byte) error {
	dev, err := b.device(address)
	if err != nil {
		return errors.Wrapf(err, "read register %#02x", register)
	}

	if register != 0 {
		if _, err := dev.Write([]byte{register}); err != nil {
			return errors.Wrapf(err, "select register %#02x on %#02x", register, address)
		}
	}

	n, err := dev.Read(buf)
	if err != nil {
		return errors.Wrapf(err, "read register %#02x on %#02x", register, address)
	}
	if n < len(buf) {
		return errors.Errorf("short read from %#02x: got %d of %d bytes", address, n, len(buf))
	}

	return nil
}

// WriteReg writes data to a device register. As with ReadReg, a zero
// register address means data already carries its own framing.
func (b *Bus) WriteReg(address, register uint8, data []byte) error {
	dev, err := b.device(address)
	if err != nil {
		return errors.Wrapf(err, "write register %#02x", register)
	}

	payload := data
	if register != 0 {
		payload = make([]byte, 0, len(data)+1)
		payload = append(payload, register)
		payload = append(payload, data...)
	}

	n, err := dev.Write(payload)
	if err != nil {
		return errors.Wrapf(err, "write register %#02x on %#02x", register, address)
	}
	if n < len(payload) {
		return errors.Errorf("short write to %#02x: wrote %d of %d bytes", address, n, len(payload))
	}

	return nil
}

// Close releases every cached device handle.
func (b *Bus) Close() (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for address, dev := range b.devices {
		closeErr := dev.Close()
		if closeErr != nil {
			err = errors.Wrapf(closeErr, "close handle for %#02x", address)
		}
		delete(b.devices, address)
	}

	return
}

// DelayMicroseconds is the delay primitive handed to vendor sensor drivers.
func DelayMicroseconds(period uint32) {
	time.Sleep(time.Duration(period) * time.Microsecond)
}
