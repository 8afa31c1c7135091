package registry

import (
	"path/filepath"
	"testing"

	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "printer_registry.json")
	reg, err := New(path, nil)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	return reg, path
}

func TestNew(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if reg == nil {
		t.Fatal("Registry is nil")
	}
}

func TestGetPrinterID_USB(t *testing.T) {
	reg, _ := newTestRegistry(t)

	info := PrinterInfo{
		Type:        "usb",
		VID:         0x04B8,
		PID:         0x0E15,
		Description: "Epson TM-T20",
	}

	id1 := reg.GetPrinterID(info)
	if id1 == "" {
		t.Error("Expected non-empty printer ID")
	}

	id2 := reg.GetPrinterID(info)
	if id1 != id2 {
		t.Errorf("Expected same ID for same printer: %s != %s", id1, id2)
	}
}

func TestGetPrinterID_Network(t *testing.T) {
	reg, _ := newTestRegistry(t)

	a := reg.GetPrinterID(PrinterInfo{Type: "network", Host: "192.168.1.100", Port: 9100})
	b := reg.GetPrinterID(PrinterInfo{Type: "network", Host: "192.168.1.101", Port: 9100})

	if a == "" || b == "" {
		t.Fatal("Expected non-empty printer IDs")
	}
	if a == b {
		t.Error("Expected different IDs for different hosts")
	}
}

func TestGetPrinterID_FallbackHash(t *testing.T) {
	reg, _ := newTestRegistry(t)

	a := reg.GetPrinterID(PrinterInfo{Type: "serial", Description: "Unknown"})
	b := reg.GetPrinterID(PrinterInfo{Type: "serial", Description: "Unknown"})

	if a != b {
		t.Errorf("Expected description hash to give a stable ID: %s != %s", a, b)
	}
}

func TestSetAndGetPrinterName(t *testing.T) {
	reg, _ := newTestRegistry(t)

	id := reg.GetPrinterID(PrinterInfo{Type: "usb", VID: 0x04B8, PID: 0x0E15})

	if !reg.SetPrinterName(id, "Kitchen Printer") {
		t.Error("Expected successful name set")
	}

	if name := reg.GetPrinterName(id); name != "Kitchen Printer" {
		t.Errorf("Expected 'Kitchen Printer', got '%s'", name)
	}

	if reg.SetPrinterName("missing", "x") {
		t.Error("Expected unknown printer to fail")
	}
}

func TestDepartmentAssignment(t *testing.T) {
	reg, _ := newTestRegistry(t)

	grill := reg.GetPrinterID(PrinterInfo{Type: "network", Host: "10.0.0.5", Port: 9100})
	bar := reg.GetPrinterID(PrinterInfo{Type: "network", Host: "10.0.0.6", Port: 9100})
	hot := reg.GetPrinterID(PrinterInfo{Type: "network", Host: "10.0.0.7", Port: 9100})

	reg.SetDepartment(grill, ticketformat.DepartmentKitchen)
	reg.SetDepartment(bar, ticketformat.DepartmentBeverage)
	reg.SetDepartment(hot, ticketformat.DepartmentKitchen)

	if got := reg.GetDepartment(bar); got != ticketformat.DepartmentBeverage {
		t.Errorf("Expected beverage, got '%s'", got)
	}

	kitchen := reg.FindByDepartment(ticketformat.DepartmentKitchen)
	if len(kitchen) != 2 {
		t.Fatalf("Expected 2 kitchen printers, got %d", len(kitchen))
	}
	if kitchen[0] > kitchen[1] {
		t.Error("Expected sorted IDs")
	}

	if len(reg.FindByDepartment(ticketformat.DepartmentDessert)) != 0 {
		t.Error("Expected no dessert printers")
	}

	if reg.SetDepartment("missing", ticketformat.DepartmentKitchen) {
		t.Error("Expected unknown printer to fail")
	}
}

func TestSettings(t *testing.T) {
	reg, _ := newTestRegistry(t)

	id := reg.GetPrinterID(PrinterInfo{Type: "serial", Device: "/dev/ttyUSB0"})

	if reg.GetSettings(id) != nil {
		t.Error("Expected no settings before they are stored")
	}

	s := ticketformat.PrintSettings{Copies: 2, PaperWidth: 58, Buzzer: true}
	if !reg.SetSettings(id, s) {
		t.Fatal("Expected settings to be stored")
	}

	got := reg.GetSettings(id)
	if got == nil || got.PaperWidth != 58 || !got.Buzzer || got.Copies != 2 {
		t.Errorf("Unexpected settings: %+v", got)
	}

	got.PaperWidth = 80
	if reg.GetSettings(id).PaperWidth != 58 {
		t.Error("Expected GetSettings to return a copy")
	}
}

func TestGetPrinterInfo(t *testing.T) {
	reg, _ := newTestRegistry(t)

	id := reg.GetPrinterID(PrinterInfo{Type: "usb", VID: 0x04B8, PID: 0x0E15, Description: "Test Printer"})
	reg.SetPrinterName(id, "Front Counter")

	entry := reg.GetPrinterInfo(id)
	if entry == nil {
		t.Fatal("Expected printer info, got nil")
	}

	if entry.Type != "usb" {
		t.Errorf("Expected type 'usb', got '%s'", entry.Type)
	}
	if entry.VID != 0x04B8 {
		t.Errorf("Expected VID 0x04B8, got 0x%04X", entry.VID)
	}
	if entry.Name != "Front Counter" {
		t.Errorf("Expected name 'Front Counter', got '%s'", entry.Name)
	}
}

func TestRemovePrinter(t *testing.T) {
	reg, _ := newTestRegistry(t)

	id := reg.GetPrinterID(PrinterInfo{Type: "usb", VID: 0x1234, PID: 0x5678})

	if !reg.RemovePrinter(id) {
		t.Error("Expected successful removal")
	}

	if reg.GetPrinterInfo(id) != nil {
		t.Error("Expected nil after removal")
	}
}

func TestPersistence(t *testing.T) {
	reg1, path := newTestRegistry(t)

	info := PrinterInfo{Type: "usb", VID: 0xAAAA, PID: 0xBBBB, Description: "Persistent Printer"}
	id1 := reg1.GetPrinterID(info)
	reg1.SetPrinterName(id1, "Persistent Name")
	reg1.SetDepartment(id1, ticketformat.DepartmentDessert)
	reg1.SetSettings(id1, ticketformat.PrintSettings{Copies: 1, PaperWidth: 58})

	// Simulates a restart
	reg2, err := New(path, nil)
	if err != nil {
		t.Fatalf("Failed to reload registry: %v", err)
	}

	id2 := reg2.GetPrinterID(info)
	if id1 != id2 {
		t.Errorf("Expected same ID after reload: %s != %s", id1, id2)
	}

	if name := reg2.GetPrinterName(id2); name != "Persistent Name" {
		t.Errorf("Expected name to persist, got '%s'", name)
	}
	if dept := reg2.GetDepartment(id2); dept != ticketformat.DepartmentDessert {
		t.Errorf("Expected department to persist, got '%s'", dept)
	}
	if s := reg2.GetSettings(id2); s == nil || s.PaperWidth != 58 {
		t.Errorf("Expected settings to persist, got %+v", s)
	}
}

func TestGetAll(t *testing.T) {
	reg, _ := newTestRegistry(t)

	reg.GetPrinterID(PrinterInfo{Type: "usb", VID: 0x1111, PID: 0x2222})
	reg.GetPrinterID(PrinterInfo{Type: "serial", Device: "/dev/tty1"})

	if all := reg.GetAll(); len(all) != 2 {
		t.Errorf("Expected 2 printers, got %d", len(all))
	}
}
