// Package printer handles printer detection, connection, and ticket delivery
package printer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/thereceipt/ticket-engine/internal/registry"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
	"go.uber.org/zap"
)

var (
	ErrPrinterNotFound = errors.New("printer not found")
	ErrJobNotFound     = errors.New("job not found")

	// ErrConnectionClosed is returned by writes racing a disconnect
	ErrConnectionClosed = errors.New("printer connection closed")
)

// Manager handles printer detection and management
type Manager struct {
	registry  *registry.Registry
	printers  map[string]*Printer
	network   map[string]*Printer // added by hand, survive detection
	detectors []detector
	mu        sync.RWMutex
	logger    *zap.Logger

	onPrinterAdded   func(*Printer)
	onPrinterRemoved func(string)
}

type detector struct {
	name string
	fn   func() ([]*Printer, error)
}

// Printer represents a known printer
type Printer struct {
	ID          string                  `json:"id"`
	Type        string                  `json:"type"` // usb, serial, network
	Description string                  `json:"description"`
	Device      string                  `json:"device,omitempty"`
	VID         uint16                  `json:"vid,omitempty"`
	PID         uint16                  `json:"pid,omitempty"`
	Host        string                  `json:"host,omitempty"`
	Port        int                     `json:"port,omitempty"`
	Name        string                  `json:"name,omitempty"`
	Department  ticketformat.Department `json:"department,omitempty"`
}

// DisplayName prefers the custom name over the description
func (p *Printer) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Description != "" {
		return p.Description
	}
	return p.ID
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithoutHardwareDetection disables USB and serial scanning. Network printers still work.
func WithoutHardwareDetection() ManagerOption {
	return func(m *Manager) {
		m.detectors = nil
	}
}

// NewManager creates a new printer manager
func NewManager(registryPath string, logger *zap.Logger, opts ...ManagerOption) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg, err := registry.New(registryPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	m := &Manager{
		registry: reg,
		printers: make(map[string]*Printer),
		network:  make(map[string]*Printer),
		logger:   logger.Named("printer"),
	}
	m.detectors = []detector{
		{name: "usb", fn: m.detectUSB},
		{name: "serial", fn: m.detectSerial},
	}

	for _, opt := range opts {
		opt(m)
	}

	// Network printers cannot be discovered, restore them from the registry
	for _, entry := range reg.GetAll() {
		if entry.Type != "network" {
			continue
		}
		p := &Printer{
			ID:          entry.ID,
			Type:        "network",
			Description: entry.Description,
			Host:        entry.Host,
			Port:        entry.Port,
			Name:        entry.Name,
			Department:  entry.Department,
		}
		m.network[p.ID] = p
		m.printers[p.ID] = p
	}

	return m, nil
}

// DetectPrinters scans for all available printers
func (m *Manager) DetectPrinters() ([]*Printer, error) {
	var detected []*Printer

	for _, d := range m.detectors {
		found, err := d.fn()
		if err != nil {
			m.logger.Warn("printer detection failed", zap.String("source", d.name), zap.Error(err))
			continue
		}
		detected = append(detected, found...)
	}

	m.mu.Lock()
	m.printers = make(map[string]*Printer, len(detected)+len(m.network))
	for _, p := range detected {
		m.printers[p.ID] = p
	}
	for id, p := range m.network {
		m.printers[id] = p
	}
	for _, p := range m.printers {
		p.Name = m.registry.GetPrinterName(p.ID)
		p.Department = m.registry.GetDepartment(p.ID)
	}
	m.mu.Unlock()

	return m.GetAllPrinters(), nil
}

// GetPrinter returns a copy of the printer with the given ID, or nil
func (m *Manager) GetPrinter(id string) *Printer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.printers[id]
	if !ok {
		return nil
	}
	pc := *p
	return &pc
}

// GetAllPrinters returns copies of all known printers sorted by ID
func (m *Manager) GetAllPrinters() []*Printer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Printer, 0, len(m.printers))
	for _, p := range m.printers {
		pc := *p
		result = append(result, &pc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// SetPrinterName sets a custom name for a printer
func (m *Manager) SetPrinterName(id string, name string) bool {
	if !m.registry.SetPrinterName(id, name) {
		return false
	}

	m.mu.Lock()
	if p, exists := m.printers[id]; exists {
		p.Name = name
	}
	m.mu.Unlock()

	return true
}

// SetPrinterDepartment routes tickets for dept to the printer
func (m *Manager) SetPrinterDepartment(id string, dept ticketformat.Department) bool {
	if !m.registry.SetDepartment(id, dept) {
		return false
	}

	m.mu.Lock()
	if p, exists := m.printers[id]; exists {
		p.Department = dept
	}
	m.mu.Unlock()

	return true
}

// SetPrinterSettings stores the print settings used for the printer
func (m *Manager) SetPrinterSettings(id string, settings ticketformat.PrintSettings) bool {
	return m.registry.SetSettings(id, settings)
}

// SettingsFor returns the stored settings of a printer, or nil when none are stored
func (m *Manager) SettingsFor(id string) *ticketformat.PrintSettings {
	return m.registry.GetSettings(id)
}

// PrintersForDepartment returns the known printers assigned to dept
func (m *Manager) PrintersForDepartment(dept ticketformat.Department) []*Printer {
	var result []*Printer
	for _, id := range m.registry.FindByDepartment(dept) {
		if p := m.GetPrinter(id); p != nil {
			result = append(result, p)
		}
	}
	return result
}

// AddNetworkPrinter manually adds a network printer
func (m *Manager) AddNetworkPrinter(host string, port int, description string) string {
	id := m.registry.GetPrinterID(registry.PrinterInfo{
		Type:        "network",
		Host:        host,
		Port:        port,
		Description: description,
	})

	p := &Printer{
		ID:          id,
		Type:        "network",
		Description: description,
		Host:        host,
		Port:        port,
		Name:        m.registry.GetPrinterName(id),
		Department:  m.registry.GetDepartment(id),
	}

	m.mu.Lock()
	m.network[id] = p
	m.printers[id] = p
	m.mu.Unlock()

	return id
}

// OnPrinterAdded sets a callback for when a printer is added
func (m *Manager) OnPrinterAdded(callback func(*Printer)) {
	m.onPrinterAdded = callback
}

// OnPrinterRemoved sets a callback for when a printer is removed
func (m *Manager) OnPrinterRemoved(callback func(string)) {
	m.onPrinterRemoved = callback
}
