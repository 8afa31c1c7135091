package ticketformat

import (
	"encoding/json"
	"fmt"
	"os"
)

// Parse parses a print request from a byte slice
func Parse(data []byte) (*PrintRequest, error) {
	var req PrintRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse ticket: %w", err)
	}

	// A bare ticket without the envelope is accepted too
	if req.Ticket.Order.Number == "" && len(req.Ticket.Items) == 0 {
		var ticket TicketData
		if err := json.Unmarshal(data, &ticket); err == nil && ticket.Order.Number != "" {
			req.Ticket = ticket
		}
	}

	if err := Validate(&req); err != nil {
		return nil, err
	}

	return &req, nil
}

// ParseFile parses a print request from disk
func ParseFile(path string) (*PrintRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticket file: %w", err)
	}

	return Parse(data)
}

// ToJSON converts a PrintRequest to JSON bytes
func (r *PrintRequest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// SaveToFile saves a PrintRequest to a file
func (r *PrintRequest) SaveToFile(path string) error {
	data, err := r.ToJSON()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Resolve merges the layers of settings. The first non-nil layer wins, missing fields fall back to defaults.
func Resolve(layers ...*PrintSettings) PrintSettings {
	s := DefaultSettings()
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		s = *layer
		break
	}

	if s.Copies < 1 {
		s.Copies = 1
	}
	if s.PaperWidth == 0 {
		s.PaperWidth = PaperWidth80
	}
	if s.FontSize == "" {
		s.FontSize = FontNormal
	}

	return s
}
