package printer

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tarm/serial"
	"github.com/thereceipt/ticket-engine/internal/registry"
	bugserial "go.bug.st/serial"
)

const defaultBaud = 9600

// Ports that are never printers, mostly macOS system devices
var serialSkipPatterns = []string{"Bluetooth", "Modem", "SPP", "DialIn", "Callout", "KeySerial", "debug-console"}

// listSerialPorts returns the candidate serial ports of the host, sorted
func listSerialPorts() ([]string, error) {
	ports, err := bugserial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	var result []string
	for _, port := range ports {
		if !skipSerialPort(port) {
			result = append(result, port)
		}
	}
	sort.Strings(result)
	return result, nil
}

func skipSerialPort(port string) bool {
	for _, pattern := range serialSkipPatterns {
		if strings.Contains(port, pattern) {
			return true
		}
	}
	return false
}

// detectSerial reports every serial port that can be opened
func (m *Manager) detectSerial() ([]*Printer, error) {
	ports, err := listSerialPorts()
	if err != nil {
		return nil, err
	}

	var printers []*Printer
	for _, portPath := range ports {
		port, err := serial.OpenPort(&serial.Config{Name: portPath, Baud: defaultBaud})
		if err != nil {
			continue
		}
		port.Close()

		description := fmt.Sprintf("Serial: %s", filepath.Base(portPath))
		id := m.registry.GetPrinterID(registry.PrinterInfo{
			Type:        "serial",
			Device:      portPath,
			Description: description,
		})

		printers = append(printers, &Printer{
			ID:          id,
			Type:        "serial",
			Description: description,
			Device:      portPath,
		})
	}

	return printers, nil
}
