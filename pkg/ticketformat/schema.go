// Package ticketformat defines the types for order tickets and their print settings
package ticketformat

import (
	"time"

	"github.com/shopspring/decimal"
)

// Department selects the printed title and the printers a ticket is routed to
type Department string

const (
	DepartmentKitchen  Department = "kitchen"
	DepartmentBeverage Department = "beverage"
	DepartmentDessert  Department = "dessert"
	DepartmentCashier  Department = "cashier"
)

// Departments lists every known department tag
var Departments = []Department{
	DepartmentKitchen,
	DepartmentBeverage,
	DepartmentDessert,
	DepartmentCashier,
}

// Known reports whether d is one of the fixed department tags
func (d Department) Known() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

// FontSize is a size hint carried with the settings. No printer command is emitted for it.
type FontSize string

const (
	FontSmall  FontSize = "small"
	FontNormal FontSize = "normal"
	FontLarge  FontSize = "large"
)

// Supported paper widths
const (
	PaperWidth58 = 58
	PaperWidth80 = 80
)

// TicketData is one order slip as handed over by the order subsystem
type TicketData struct {
	Items      []Item         `json:"items"`
	Customer   CustomerInfo   `json:"customer_info"`
	Order      OrderInfo      `json:"order_info"`
	Department DepartmentInfo `json:"department_info"`
}

// Item is a single ordered line. LineTotal is taken as given.
type Item struct {
	Name           string          `json:"name"`
	NameSecondary  string          `json:"name_secondary,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	Customizations []string        `json:"customizations,omitempty"`
	Note           string          `json:"note,omitempty"`
}

// CustomerInfo fields are all optional
type CustomerInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Table string `json:"table,omitempty"`
}

// OrderInfo carries the order identity and amounts
type OrderInfo struct {
	Number      string          `json:"number"`
	PlacedAt    time.Time       `json:"placed_at,omitempty"` // zero means absent
	TotalAmount decimal.Decimal `json:"total_amount"`
	Tax         *TaxInfo        `json:"tax,omitempty"`
}

// TaxInfo is present only when tax is itemized separately from prices
type TaxInfo struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Rate     decimal.Decimal `json:"rate"` // percentage, e.g. 15
	Amount   decimal.Decimal `json:"amount"`
}

// DepartmentInfo describes who prepares the ticket
type DepartmentInfo struct {
	Tag              Department `json:"tag"`
	AssignedTo       string     `json:"assigned_to,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes,omitempty"`
}

// PrintSettings configures one formatting session, typically one per printer
type PrintSettings struct {
	Copies        int      `json:"copies"`
	IncludeLogo   bool     `json:"include_logo"` // reserved
	IncludeQRCode bool     `json:"include_qr_code"`
	FontSize      FontSize `json:"font_size,omitempty"` // reserved
	PaperCut      bool     `json:"paper_cut"`
	Buzzer        bool     `json:"buzzer"`
	PaperWidth    int      `json:"paper_width"` // 58 or 80
}

// DefaultSettings returns the settings used when neither the request nor the printer supplies any
func DefaultSettings() PrintSettings {
	return PrintSettings{
		Copies:        1,
		IncludeQRCode: true,
		FontSize:      FontNormal,
		PaperCut:      true,
		PaperWidth:    PaperWidth80,
	}
}

// PrintRequest is the envelope accepted over HTTP, WebSocket and NATS
type PrintRequest struct {
	Ticket   TicketData     `json:"ticket"`
	Settings *PrintSettings `json:"settings,omitempty"`
}
