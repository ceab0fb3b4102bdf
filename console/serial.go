package console

import (
	"fmt"

	"go.bug.st/serial"
)

const DefaultBaudRate = 115200

// OpenPort opens the serial device the console runs on, 8N1.
func OpenPort(device string, baudRate int) (Port, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open console port %s: %w", device, err)
	}

	return port, nil
}
