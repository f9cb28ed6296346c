package spibus

import (
	"os"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// spidev ioctl request numbers, linux/spi/spidev.h.
const (
	spiIocWrMode        = 0x40016B01
	spiIocRdMode        = 0x80016B01
	spiIocWrBitsPerWord = 0x40016B03
	spiIocRdBitsPerWord = 0x80016B03
	spiIocWrMaxSpeedHz  = 0x40046B04
	spiIocRdMaxSpeedHz  = 0x80046B04
	spiIocMessage1      = 0x40206B00
)

// device is the raw transport under a Session. The spidev implementation
// talks to the kernel; tests substitute a recording fake.
type device interface {
	transfer(tx, rx []byte, p Profile) error
	writeBytes(data []byte) (int, error)
	readBytes(buf []byte) (int, error)
	setMode(mode uint8) error
	setBits(bits uint8) error
	close() error
}

type spidev struct {
	file *os.File
}

func openSpidev(path string) (*spidev, error) {
	file, err := os.OpenFile(path, unix.O_RDWR|unix.O_NOCTTY, 0600)
	if err != nil {
		return nil, err
	}
	return &spidev{file: file}, nil
}

func (d *spidev) ioctl(request uintptr, ptr unsafe.Pointer) error {
	_, _, errNo := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), request, uintptr(ptr))
	if errNo != 0 {
		return errNo
	}
	return nil
}

// negotiate writes the requested parameters and reads back what the driver
// accepted, which may differ from what was asked for.
func (d *spidev) negotiate(requested Profile) (Profile, error) {
	agreed := requested

	if err := d.ioctl(spiIocWrMode, unsafe.Pointer(&agreed.Mode)); err != nil {
		return agreed, errors.Wrap(err, "set spi mode")
	}
	if err := d.ioctl(spiIocRdMode, unsafe.Pointer(&agreed.Mode)); err != nil {
		return agreed, errors.Wrap(err, "read back spi mode")
	}

	if err := d.ioctl(spiIocWrBitsPerWord, unsafe.Pointer(&agreed.Bits)); err != nil {
		return agreed, errors.Wrap(err, "set bits per word")
	}
	if err := d.ioctl(spiIocRdBitsPerWord, unsafe.Pointer(&agreed.Bits)); err != nil {
		return agreed, errors.Wrap(err, "read back bits per word")
	}

	if err := d.ioctl(spiIocWrMaxSpeedHz, unsafe.Pointer(&agreed.SpeedHz)); err != nil {
		return agreed, errors.Wrap(err, "set clock speed")
	}
	if err := d.ioctl(spiIocRdMaxSpeedHz, unsafe.Pointer(&agreed.SpeedHz)); err != nil {
		return agreed, errors.Wrap(err, "read back clock speed")
	}

	return agreed, nil
}

func (d *spidev) setMode(mode uint8) error {
	return d.ioctl(spiIocWrMode, unsafe.Pointer(&mode))
}

func (d *spidev) setBits(bits uint8) error {
	return d.ioctl(spiIocWrBitsPerWord, unsafe.Pointer(&bits))
}

func (d *spidev) transfer(tx, rx []byte, p Profile) error {
	// Layout of struct spi_ioc_transfer; the trailing pad covers the
	// tx/rx_nbits and word_delay fields this driver never sets.
	type iocTransferRaw struct {
		TxBuf       uint64
		RxBuf       uint64
		Len         uint32
		SpeedHz     uint32
		DelayUsecs  uint16
		BitsPerWord uint8
		CsChange    uint8
		Pad         uint32
	}

	tr := iocTransferRaw{
		TxBuf:       uint64(uintptr(unsafe.Pointer(&tx[0]))),
		RxBuf:       uint64(uintptr(unsafe.Pointer(&rx[0]))),
		Len:         uint32(len(tx)),
		SpeedHz:     p.SpeedHz,
		DelayUsecs:  p.DelayUs,
		BitsPerWord: p.Bits,
	}

	err := d.ioctl(spiIocMessage1, unsafe.Pointer(&tr))

	runtime.KeepAlive(tx)
	runtime.KeepAlive(rx)

	return err
}

func (d *spidev) writeBytes(data []byte) (int, error) {
	return d.file.Write(data)
}

func (d *spidev) readBytes(buf []byte) (int, error) {
	return d.file.Read(buf)
}

func (d *spidev) close() error {
	return d.file.Close()
}
