package gps

import (
	"io"

	serial "github.com/jacobsa/go-serial/serial"
)

// openGoSerial opens the port through go-serial, which also works on darwin.
func openGoSerial(path string, baud int) (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:              path,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	})
}
