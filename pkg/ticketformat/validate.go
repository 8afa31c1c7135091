package ticketformat

import (
	"fmt"
	"strings"
)

// MaxCopies bounds the copy count accepted at the boundary
const MaxCopies = 10

// Validate validates a PrintRequest. The formatter itself never validates;
// this runs where requests enter the server.
func Validate(r *PrintRequest) error {
	if r == nil {
		return fmt.Errorf("print request is required")
	}

	if err := ValidateTicket(&r.Ticket); err != nil {
		return err
	}

	if r.Settings != nil {
		if err := ValidateSettings(r.Settings); err != nil {
			return fmt.Errorf("settings: %w", err)
		}
	}

	return nil
}

// ValidateTicket checks the fields the order subsystem is required to fill
func ValidateTicket(t *TicketData) error {
	if strings.TrimSpace(t.Order.Number) == "" {
		return fmt.Errorf("order_info.number is required")
	}

	if err := checkText(map[string]string{
		"order_info.number":           t.Order.Number,
		"customer_info.name":          t.Customer.Name,
		"customer_info.phone":         t.Customer.Phone,
		"customer_info.table":         t.Customer.Table,
		"department_info.assigned_to": t.Department.AssignedTo,
	}); err != nil {
		return err
	}

	for i, item := range t.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("items[%d]: name is required", i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("items[%d] '%s': quantity must be positive, got %d", i, item.Name, item.Quantity)
		}

		fields := map[string]string{
			"name":           item.Name,
			"name_secondary": item.NameSecondary,
			"note":           item.Note,
		}
		for j, c := range item.Customizations {
			fields[fmt.Sprintf("customizations[%d]", j)] = c
		}
		if err := checkText(fields); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}

	if t.Department.EstimatedMinutes < 0 {
		return fmt.Errorf("department_info.estimated_minutes cannot be negative")
	}

	return nil
}

// checkText rejects control characters other than newline. Text is sent to
// the printer verbatim, so an ESC or GS byte would be read as a command.
func checkText(fields map[string]string) error {
	for name, value := range fields {
		for _, r := range value {
			if r == '\n' {
				continue
			}
			if r < 0x20 || r == 0x7F {
				return fmt.Errorf("%s contains control character 0x%02X", name, r)
			}
		}
	}
	return nil
}

// ValidateSettings checks paper width and copy count
func ValidateSettings(s *PrintSettings) error {
	if s.PaperWidth != 0 && s.PaperWidth != PaperWidth58 && s.PaperWidth != PaperWidth80 {
		return fmt.Errorf("invalid paper_width: %d (must be 58 or 80)", s.PaperWidth)
	}

	if s.Copies < 0 || s.Copies > MaxCopies {
		return fmt.Errorf("invalid copies: %d (must be 0 to %d, 0 means 1)", s.Copies, MaxCopies)
	}

	switch s.FontSize {
	case "", FontSmall, FontNormal, FontLarge:
	default:
		return fmt.Errorf("invalid font_size '%s' (must be small, normal, or large)", s.FontSize)
	}

	return nil
}
