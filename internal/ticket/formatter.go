// Package ticket assembles ESC/POS order tickets
package ticket

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
)

// Formatter turns ticket data into a printer buffer. It holds only immutable
// settings and is safe for concurrent use.
type Formatter struct {
	settings ticketformat.PrintSettings
	brand    string
}

// Option configures a Formatter
type Option func(*Formatter)

// WithBrand sets the name printed at the top of every ticket
func WithBrand(brand string) Option {
	return func(f *Formatter) {
		if brand != "" {
			f.brand = brand
		}
	}
}

// New creates a formatter for one settings value
func New(settings ticketformat.PrintSettings, opts ...Option) *Formatter {
	f := &Formatter{
		settings: settings,
		brand:    DefaultBrand,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Settings returns the settings the formatter was built with
func (f *Formatter) Settings() ticketformat.PrintSettings {
	return f.settings
}

// Format returns the complete command stream for one ticket
func (f *Formatter) Format(data ticketformat.TicketData) []byte {
	width := f.settings.PaperWidth

	sections := [][][]byte{
		Initialize(),
		Header(f.brand, data.Department.Tag, width),
		OrderInfo(data.Order, data.Customer, data.Department, width),
		Items(data.Items, width),
		Totals(data.Order),
		Footer(data.Order.Number, f.settings.IncludeQRCode, width),
		Finish(f.settings.PaperCut, f.settings.Buzzer),
	}

	var buf bytes.Buffer
	for _, section := range sections {
		for _, fragment := range section {
			buf.Write(fragment)
		}
	}
	return buf.Bytes()
}

// FormatSelfTest formats the self-test ticket for the current time
func (f *Formatter) FormatSelfTest() []byte {
	data, _ := SelfTest(time.Now())
	return f.Format(data)
}

// SelfTest builds a minimal ticket that exercises every section
func SelfTest(now time.Time) (ticketformat.TicketData, ticketformat.PrintSettings) {
	data := ticketformat.TicketData{
		Items: []ticketformat.Item{
			{
				Name:          "Test item",
				NameSecondary: "صنف تجريبي",
				Quantity:      1,
				UnitPrice:     decimal.Zero,
				LineTotal:     decimal.Zero,
			},
		},
		Order: ticketformat.OrderInfo{
			Number:      fmt.Sprintf("TEST-%d", now.UnixMilli()),
			PlacedAt:    now,
			TotalAmount: decimal.Zero,
		},
		Department: ticketformat.DepartmentInfo{
			Tag: ticketformat.DepartmentKitchen,
		},
	}

	return data, ticketformat.DefaultSettings()
}
