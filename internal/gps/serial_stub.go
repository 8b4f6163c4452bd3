//go:build !linux

package gps

import (
	"fmt"
	"os"
)

// openSerial is only implemented with termios on linux; use backend "goserial" elsewhere.
func openSerial(path string, baud int) (*os.File, error) {
	return nil, fmt.Errorf("termios serial backend not supported on this platform (path=%s baud=%d)", path, baud)
}
