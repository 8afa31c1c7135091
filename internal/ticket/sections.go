package ticket

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/thereceipt/ticket-engine/internal/escpos"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
)

// Printed labels
const (
	DefaultBrand   = "RESTAURANT"
	genericTitle   = "ORDER TICKET"
	itemsHeading   = "ITEMS"
	thankYouLatin  = "Thank you for your order!"
	thankYouArabic = "شكراً لزيارتكم"
	timeLayout     = "2006-01-02 15:04"
	itemIndent     = "   "
	bulletIndent   = "     - "
)

const finishFeeds = 3

var departmentTitles = map[ticketformat.Department]string{
	ticketformat.DepartmentKitchen:  "KITCHEN ORDER",
	ticketformat.DepartmentBeverage: "BEVERAGE ORDER",
	ticketformat.DepartmentDessert:  "DESSERT ORDER",
	ticketformat.DepartmentCashier:  "CUSTOMER RECEIPT",
}

// Title returns the printed title for a department tag
func Title(d ticketformat.Department) string {
	if title, ok := departmentTitles[d]; ok {
		return title
	}
	return genericTitle
}

// SeparatorWidth is the number of separator characters for a paper width.
// The divisor is kept at 8 to match existing printed tickets.
func SeparatorWidth(paperWidth int) int {
	if paperWidth <= 0 {
		return 0
	}
	return paperWidth / 8
}

// Separator returns a full-width rule followed by a line feed
func Separator(char byte, paperWidth int) []byte {
	return escpos.Line(strings.Repeat(string(char), SeparatorWidth(paperWidth)))
}

// Money renders an amount with exactly two decimals
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Initialize resets the printer and selects the line spacing
func Initialize() [][]byte {
	return [][]byte{
		escpos.Initialize(),
		escpos.LineSpacing(),
	}
}

// Header prints the brand in double size and the department title
func Header(brand string, dept ticketformat.Department, paperWidth int) [][]byte {
	return [][]byte{
		escpos.Align(escpos.AlignCenter),
		escpos.DoubleSize(),
		escpos.Line(brand),
		escpos.StyleReset(),
		escpos.Line(Title(dept)),
		Separator('=', paperWidth),
		escpos.Align(escpos.AlignLeft),
	}
}

// OrderInfo prints the order metadata. Only the order number is unconditional.
func OrderInfo(order ticketformat.OrderInfo, customer ticketformat.CustomerInfo, dept ticketformat.DepartmentInfo, paperWidth int) [][]byte {
	out := [][]byte{escpos.Line("Order #: " + order.Number)}

	if !order.PlacedAt.IsZero() {
		out = append(out, escpos.Line("Date: "+order.PlacedAt.Format(timeLayout)))
	}
	if customer.Name != "" {
		out = append(out, escpos.Line("Customer: "+customer.Name))
	}
	if customer.Phone != "" {
		out = append(out, escpos.Line("Phone: "+customer.Phone))
	}
	if customer.Table != "" {
		out = append(out, escpos.Line("Table: "+customer.Table))
	}
	if dept.AssignedTo != "" {
		out = append(out, escpos.Line("Assigned to: "+dept.AssignedTo))
	}
	if dept.EstimatedMinutes > 0 {
		out = append(out, escpos.Line(fmt.Sprintf("Est. time: %d min", dept.EstimatedMinutes)))
	}

	return append(out, Separator('=', paperWidth))
}

// Items prints the numbered item list
func Items(items []ticketformat.Item, paperWidth int) [][]byte {
	out := [][]byte{
		escpos.Line(itemsHeading),
		Separator('=', paperWidth),
	}

	for i, item := range items {
		if i > 0 {
			out = append(out, Separator('-', paperWidth))
		}
		out = append(out, itemLines(i+1, item)...)
	}

	return append(out, Separator('=', paperWidth))
}

func itemLines(index int, item ticketformat.Item) [][]byte {
	out := [][]byte{escpos.Line(fmt.Sprintf("%d. %s", index, item.Name))}

	if item.NameSecondary != "" {
		out = append(out, escpos.Line(itemIndent+item.NameSecondary))
	}

	out = append(out,
		escpos.Line(fmt.Sprintf("%sQty: %d x %s", itemIndent, item.Quantity, Money(item.UnitPrice))),
		escpos.Line(itemIndent+"Total: "+Money(item.LineTotal)),
	)

	if len(item.Customizations) > 0 {
		out = append(out, escpos.Line(itemIndent+"Customizations:"))
		for _, c := range item.Customizations {
			out = append(out, escpos.Line(bulletIndent+c))
		}
	}

	if item.Note != "" {
		out = append(out, escpos.Line(itemIndent+"Note: "+item.Note))
	}

	return out
}

// Totals prints the optional tax breakdown and the bold grand total.
// The total is printed as given and never recomputed.
func Totals(order ticketformat.OrderInfo) [][]byte {
	var out [][]byte

	if order.Tax != nil {
		out = append(out,
			escpos.Line("Subtotal: "+Money(order.Tax.Subtotal)),
			escpos.Line(fmt.Sprintf("Tax (%s%%): %s", order.Tax.Rate.String(), Money(order.Tax.Amount))),
		)
	}

	return append(out,
		escpos.BoldOn(),
		escpos.Line("TOTAL: "+Money(order.TotalAmount)),
		escpos.BoldOff(),
	)
}

// Footer prints the thank-you lines and, when enabled, a QR code of the order number
func Footer(orderNumber string, includeQR bool, paperWidth int) [][]byte {
	out := [][]byte{
		Separator('=', paperWidth),
		escpos.Align(escpos.AlignCenter),
		escpos.Line(thankYouLatin),
		escpos.Line(thankYouArabic),
	}

	if includeQR {
		out = append(out, escpos.QR(escpos.Text(orderNumber)))
	}

	return append(out, escpos.Align(escpos.AlignLeft))
}

// Finish feeds the paper out, then cuts and sounds the buzzer when enabled
func Finish(cut, buzzer bool) [][]byte {
	out := [][]byte{escpos.Feed(finishFeeds)}
	if cut {
		out = append(out, escpos.Cut())
	}
	if buzzer {
		out = append(out, escpos.Buzzer())
	}
	return out
}
