// Package registry manages persistent printer IDs, names and department assignments
package registry

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
	"go.uber.org/zap"
)

// Registry manages printer identities and their ticket configuration
type Registry struct {
	filePath string
	data     map[string]*PrinterEntry
	mu       sync.RWMutex
	logger   *zap.Logger
}

// PrinterEntry stores persistent information about a printer
type PrinterEntry struct {
	ID          string                      `json:"id"`
	IdentityKey string                      `json:"identity_key"`
	Type        string                      `json:"type"` // usb, serial, network
	VID         uint16                      `json:"vid,omitempty"`
	PID         uint16                      `json:"pid,omitempty"`
	Device      string                      `json:"device,omitempty"`
	Host        string                      `json:"host,omitempty"`
	Port        int                         `json:"port,omitempty"`
	Description string                      `json:"description"`
	Name        string                      `json:"name,omitempty"`
	Department  ticketformat.Department     `json:"department,omitempty"`
	Settings    *ticketformat.PrintSettings `json:"settings,omitempty"`
}

// PrinterInfo represents basic printer information for detection
type PrinterInfo struct {
	Type        string
	Description string
	Device      string
	VID         uint16
	PID         uint16
	Host        string
	Port        int
}

// New creates a new Registry
func New(filePath string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		filePath: filePath,
		data:     make(map[string]*PrinterEntry),
		logger:   logger.Named("registry"),
	}

	if err := r.load(); err != nil {
		// Created on first save
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load registry: %w", err)
		}
	}

	return r, nil
}

// GetPrinterID gets or creates a persistent ID for a printer
func (r *Registry) GetPrinterID(info PrinterInfo) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	identityKey := generateIdentityKey(info)

	if entry, exists := r.data[identityKey]; exists {
		return entry.ID
	}

	printerID := uuid.New().String()

	r.data[identityKey] = &PrinterEntry{
		ID:          printerID,
		IdentityKey: identityKey,
		Type:        info.Type,
		VID:         info.VID,
		PID:         info.PID,
		Device:      info.Device,
		Host:        info.Host,
		Port:        info.Port,
		Description: info.Description,
	}

	r.saveLocked()

	return printerID
}

// GetPrinterName gets the custom name for a printer, or empty string if not set
func (r *Registry) GetPrinterName(printerID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry := r.findLocked(printerID); entry != nil {
		return entry.Name
	}
	return ""
}

// SetPrinterName sets a custom name for a printer
func (r *Registry) SetPrinterName(printerID string, name string) bool {
	return r.update(printerID, func(e *PrinterEntry) { e.Name = name })
}

// GetDepartment returns the department a printer is assigned to
func (r *Registry) GetDepartment(printerID string) ticketformat.Department {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry := r.findLocked(printerID); entry != nil {
		return entry.Department
	}
	return ""
}

// SetDepartment assigns a printer to a department. An empty tag clears the assignment.
func (r *Registry) SetDepartment(printerID string, dept ticketformat.Department) bool {
	return r.update(printerID, func(e *PrinterEntry) { e.Department = dept })
}

// GetSettings returns the stored print settings for a printer, or nil
func (r *Registry) GetSettings(printerID string) *ticketformat.PrintSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.findLocked(printerID)
	if entry == nil || entry.Settings == nil {
		return nil
	}
	s := *entry.Settings
	return &s
}

// SetSettings stores print settings for a printer
func (r *Registry) SetSettings(printerID string, settings ticketformat.PrintSettings) bool {
	return r.update(printerID, func(e *PrinterEntry) { e.Settings = &settings })
}

// FindByDepartment returns the IDs of printers assigned to dept, sorted
func (r *Registry) FindByDepartment(dept ticketformat.Department) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for _, entry := range r.data {
		if entry.Department == dept {
			ids = append(ids, entry.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// GetPrinterInfo gets all stored information for a printer
func (r *Registry) GetPrinterInfo(printerID string) *PrinterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry := r.findLocked(printerID); entry != nil {
		entryCopy := *entry
		return &entryCopy
	}
	return nil
}

// RemovePrinter removes a printer from the registry
func (r *Registry) RemovePrinter(printerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, entry := range r.data {
		if entry.ID == printerID {
			delete(r.data, key)
			r.saveLocked()
			return true
		}
	}
	return false
}

// GetAll returns all registered printers
func (r *Registry) GetAll() map[string]*PrinterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*PrinterEntry, len(r.data))
	for k, v := range r.data {
		entryCopy := *v
		result[k] = &entryCopy
	}
	return result
}

func (r *Registry) update(printerID string, fn func(*PrinterEntry)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.findLocked(printerID)
	if entry == nil {
		return false
	}
	fn(entry)
	r.saveLocked()
	return true
}

func (r *Registry) findLocked(printerID string) *PrinterEntry {
	for _, entry := range r.data {
		if entry.ID == printerID {
			return entry
		}
	}
	return nil
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &r.data)
}

// saveLocked persists the registry. A failed write is logged and retried on the next change.
func (r *Registry) saveLocked() {
	if err := r.save(); err != nil {
		r.logger.Warn("failed to save registry", zap.String("path", r.filePath), zap.Error(err))
	}
}

func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(r.filePath, data, 0644)
}

// generateIdentityKey creates a unique key for a printer based on its characteristics
func generateIdentityKey(info PrinterInfo) string {
	switch info.Type {
	case "usb":
		if info.VID != 0 && info.PID != 0 {
			return fmt.Sprintf("usb:%04X:%04X", info.VID, info.PID)
		}
	case "serial":
		if info.Device != "" {
			return fmt.Sprintf("serial:%s", info.Device)
		}
	case "network":
		if info.Host != "" {
			return fmt.Sprintf("network:%s:%d", info.Host, info.Port)
		}
	}

	hash := md5.Sum([]byte(info.Description))
	return fmt.Sprintf("hash:%x", hash)
}
