package printer

import (
	"fmt"

	"github.com/google/gousb"
	"github.com/thereceipt/ticket-engine/internal/registry"
)

// detectUSB reports USB devices of the printer class using libusb
func (m *Manager) detectUSB() ([]*Printer, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devices, err := ctx.OpenDevices(isPrinterClass)
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	// OpenDevices can fail on unrelated devices and still return the printers

	var printers []*Printer
	for _, dev := range devices {
		desc := dev.Desc
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()
		dev.Close()

		description := fmt.Sprintf("USB: %04X:%04X", desc.Vendor, desc.Product)
		if manufacturer != "" || product != "" {
			description = fmt.Sprintf("USB: %s %s (%04X:%04X)", manufacturer, product, desc.Vendor, desc.Product)
		}

		id := m.registry.GetPrinterID(registry.PrinterInfo{
			Type:        "usb",
			VID:         uint16(desc.Vendor),
			PID:         uint16(desc.Product),
			Description: description,
		})

		printers = append(printers, &Printer{
			ID:          id,
			Type:        "usb",
			Description: description,
			VID:         uint16(desc.Vendor),
			PID:         uint16(desc.Product),
		})
	}

	return printers, nil
}

// isPrinterClass matches devices with the printer class on the device or any interface
func isPrinterClass(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}
