package ticket

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereceipt/ticket-engine/internal/escpos"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func join(fragments [][]byte) []byte {
	return bytes.Join(fragments, nil)
}

func sampleTicket() ticketformat.TicketData {
	return ticketformat.TicketData{
		Items: []ticketformat.Item{
			{
				Name:           "Chicken Shawarma",
				NameSecondary:  "شاورما دجاج",
				Quantity:       2,
				UnitPrice:      money("12.5"),
				LineTotal:      money("25"),
				Customizations: []string{"No garlic", "Extra pickles"},
				Note:           "Cut in half",
			},
			{Name: "Fries", Quantity: 1, UnitPrice: money("4"), LineTotal: money("4")},
			{Name: "Lemonade", Quantity: 3, UnitPrice: money("3.25"), LineTotal: money("9.75")},
		},
		Customer: ticketformat.CustomerInfo{Name: "Sara", Phone: "0500000000", Table: "7"},
		Order: ticketformat.OrderInfo{
			Number:      "A-1024",
			PlacedAt:    time.Date(2024, 5, 1, 18, 45, 0, 0, time.UTC),
			TotalAmount: money("38.75"),
		},
		Department: ticketformat.DepartmentInfo{
			Tag:              ticketformat.DepartmentKitchen,
			AssignedTo:       "Omar",
			EstimatedMinutes: 15,
		},
	}
}

func settings(width int, cut, buzzer, qr bool) ticketformat.PrintSettings {
	return ticketformat.PrintSettings{
		Copies:        1,
		IncludeQRCode: qr,
		FontSize:      ticketformat.FontNormal,
		PaperCut:      cut,
		Buzzer:        buzzer,
		PaperWidth:    width,
	}
}

func TestFormat_Deterministic(t *testing.T) {
	f := New(settings(80, true, true, true))

	first := f.Format(sampleTicket())
	second := f.Format(sampleTicket())

	assert.Equal(t, first, second)
}

func TestFormat_ConcurrentCallsAgree(t *testing.T) {
	f := New(settings(58, true, false, true))
	want := f.Format(sampleTicket())

	var wg sync.WaitGroup
	results := make([][]byte, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.Format(sampleTicket())
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestFormat_StartsWithInitialize(t *testing.T) {
	buf := New(settings(80, false, false, false)).Format(sampleTicket())

	assert.True(t, bytes.HasPrefix(buf, []byte{0x1B, 0x40, 0x1B, 0x33, 0x18}))
}

func TestFormat_EndsWithFeeds(t *testing.T) {
	buf := New(settings(80, false, false, false)).Format(sampleTicket())

	assert.True(t, bytes.HasSuffix(buf, []byte{0x1B, 0x61, 0x00, 0x0A, 0x0A, 0x0A}))
}

func TestFormat_FinishOrder(t *testing.T) {
	buf := New(settings(80, true, true, false)).Format(sampleTicket())

	assert.True(t, bytes.HasSuffix(buf, []byte{0x0A, 0x0A, 0x0A, 0x1D, 0x56, 0x00, 0x1B, 0x42, 0x05, 0x05}))
}

func TestFormat_SectionOrder(t *testing.T) {
	buf := string(New(settings(80, true, false, true)).Format(sampleTicket()))

	markers := []string{
		"RESTAURANT\n",
		"KITCHEN ORDER\n",
		"Order #: A-1024\n",
		"ITEMS\n",
		"1. Chicken Shawarma\n",
		"TOTAL: 38.75\n",
		"Thank you for your order!\n",
		escpos.CmdQRPrint,
		escpos.CmdCutFull,
	}

	last := -1
	for _, m := range markers {
		idx := strings.Index(buf, m)
		require.GreaterOrEqual(t, idx, 0, "missing %q", m)
		assert.Greater(t, idx, last, "%q out of order", m)
		last = idx
	}
}

func TestFormat_FlagGating(t *testing.T) {
	for _, cut := range []bool{false, true} {
		for _, buzzer := range []bool{false, true} {
			for _, qr := range []bool{false, true} {
				buf := New(settings(80, cut, buzzer, qr)).Format(sampleTicket())

				assert.Equal(t, cut, bytes.Contains(buf, escpos.Cut()), "cut=%v", cut)
				assert.Equal(t, buzzer, bytes.Contains(buf, escpos.Buzzer()), "buzzer=%v", buzzer)
				assert.Equal(t, qr, bytes.Contains(buf, []byte(escpos.CmdQRStorePrefix)), "qr=%v", qr)
			}
		}
	}
}

func TestFormat_ReservedSettingsEmitNothing(t *testing.T) {
	base := settings(80, true, false, true)
	withReserved := base
	withReserved.IncludeLogo = true
	withReserved.FontSize = ticketformat.FontLarge
	withReserved.Copies = 4

	assert.Equal(t, New(base).Format(sampleTicket()), New(withReserved).Format(sampleTicket()))
}

func TestFormat_WithBrand(t *testing.T) {
	buf := New(settings(80, false, false, false), WithBrand("BAYT AL SHAWARMA")).Format(sampleTicket())

	assert.Contains(t, string(buf), escpos.CmdDoubleSize+"BAYT AL SHAWARMA\n"+escpos.CmdStyleReset)
	assert.NotContains(t, string(buf), DefaultBrand)
}

func TestSeparatorWidth(t *testing.T) {
	assert.Equal(t, 7, SeparatorWidth(58))
	assert.Equal(t, 10, SeparatorWidth(80))
	assert.Equal(t, []byte("=======\n"), Separator('=', 58))
	assert.Equal(t, []byte("----------\n"), Separator('-', 80))
}

func TestItems_SeparatorCount(t *testing.T) {
	item := ticketformat.Item{Name: "Soup", Quantity: 1, UnitPrice: money("5"), LineTotal: money("5")}
	rule := string(Separator('-', 58))

	for n := 0; n <= 4; n++ {
		items := make([]ticketformat.Item, n)
		for i := range items {
			items[i] = item
		}

		got := string(join(Items(items, 58)))

		want := n - 1
		if n == 0 {
			want = 0
		}
		assert.Equal(t, want, strings.Count(got, rule), "items=%d", n)
		assert.Equal(t, 2, strings.Count(got, string(Separator('=', 58))), "items=%d", n)
	}
}

func TestHeader(t *testing.T) {
	got := join(Header("RESTAURANT", ticketformat.DepartmentKitchen, 80))

	want := "\x1b\x61\x01" + "\x1b\x21\x30" + "RESTAURANT\n" + "\x1b\x21\x00" +
		"KITCHEN ORDER\n" + "==========\n" + "\x1b\x61\x00"
	assert.Equal(t, want, string(got))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "KITCHEN ORDER", Title(ticketformat.DepartmentKitchen))
	assert.Equal(t, "BEVERAGE ORDER", Title(ticketformat.DepartmentBeverage))
	assert.Equal(t, "DESSERT ORDER", Title(ticketformat.DepartmentDessert))
	assert.Equal(t, "CUSTOMER RECEIPT", Title(ticketformat.DepartmentCashier))
	assert.Equal(t, "ORDER TICKET", Title("grill"))
	assert.Equal(t, "ORDER TICKET", Title(""))
}

func TestOrderInfo_AllFields(t *testing.T) {
	tk := sampleTicket()

	got := string(join(OrderInfo(tk.Order, tk.Customer, tk.Department, 58)))

	want := "Order #: A-1024\n" +
		"Date: 2024-05-01 18:45\n" +
		"Customer: Sara\n" +
		"Phone: 0500000000\n" +
		"Table: 7\n" +
		"Assigned to: Omar\n" +
		"Est. time: 15 min\n" +
		"=======\n"
	assert.Equal(t, want, got)
}

func TestOrderInfo_OmitsAbsentFields(t *testing.T) {
	order := ticketformat.OrderInfo{Number: "B-2"}

	got := string(join(OrderInfo(order, ticketformat.CustomerInfo{Table: "3"}, ticketformat.DepartmentInfo{}, 80)))

	assert.Equal(t, "Order #: B-2\nTable: 3\n==========\n", got)
}

func TestOrderInfo_EmptyOrderNumberIsPrinted(t *testing.T) {
	got := string(join(OrderInfo(ticketformat.OrderInfo{}, ticketformat.CustomerInfo{}, ticketformat.DepartmentInfo{}, 80)))

	assert.True(t, strings.HasPrefix(got, "Order #: \n"))
}

func TestItems_FullItem(t *testing.T) {
	tk := sampleTicket()

	got := string(join(Items(tk.Items[:1], 80)))

	want := "ITEMS\n" +
		"==========\n" +
		"1. Chicken Shawarma\n" +
		"   شاورما دجاج\n" +
		"   Qty: 2 x 12.50\n" +
		"   Total: 25.00\n" +
		"   Customizations:\n" +
		"     - No garlic\n" +
		"     - Extra pickles\n" +
		"   Note: Cut in half\n" +
		"==========\n"
	assert.Equal(t, want, got)
}

// Scenario D: no secondary name, customizations or note yields three lines.
func TestItems_MinimalItemHasThreeLines(t *testing.T) {
	item := ticketformat.Item{Name: "Water", Quantity: 1, UnitPrice: money("1"), LineTotal: money("1")}

	lines := itemLines(1, item)

	require.Len(t, lines, 3)
	assert.Equal(t, "1. Water\n", string(lines[0]))
	assert.Equal(t, "   Qty: 1 x 1.00\n", string(lines[1]))
	assert.Equal(t, "   Total: 1.00\n", string(lines[2]))
}

func TestItems_LineTotalIsNotRecomputed(t *testing.T) {
	item := ticketformat.Item{Name: "Odd", Quantity: 2, UnitPrice: money("3"), LineTotal: money("7")}

	got := string(join(itemLines(1, item)))

	assert.Contains(t, got, "Total: 7.00\n")
}

// Scenario A
func TestFormat_SingleItemNoTax(t *testing.T) {
	data := ticketformat.TicketData{
		Items: []ticketformat.Item{
			{Name: "Burger", Quantity: 1, UnitPrice: money("10"), LineTotal: money("10")},
		},
		Order:      ticketformat.OrderInfo{Number: "A-1", TotalAmount: money("10")},
		Department: ticketformat.DepartmentInfo{Tag: ticketformat.DepartmentKitchen},
	}

	buf := New(settings(58, true, true, false)).Format(data)

	boldTotal := []byte(escpos.CmdBoldOn + "TOTAL: 10.00\n" + escpos.CmdStyleReset)
	assert.Equal(t, 1, bytes.Count(buf, boldTotal))
	assert.Equal(t, 1, bytes.Count(buf, escpos.Cut()))
	assert.Equal(t, 1, bytes.Count(buf, escpos.Buzzer()))
	assert.Equal(t, 0, bytes.Count(buf, []byte(escpos.CmdQRStorePrefix)))
	assert.NotContains(t, string(buf), "Subtotal:")
}

// Scenario B
func TestTotals_WithTax(t *testing.T) {
	order := ticketformat.OrderInfo{
		Number:      "B-1",
		TotalAmount: money("115"),
		Tax: &ticketformat.TaxInfo{
			Subtotal: money("100"),
			Rate:     money("15"),
			Amount:   money("15"),
		},
	}

	got := string(join(Totals(order)))

	want := "Subtotal: 100.00\n" +
		"Tax (15%): 15.00\n" +
		escpos.CmdBoldOn + "TOTAL: 115.00\n" + escpos.CmdStyleReset
	assert.Equal(t, want, got)
}

func TestTotals_TrustsStatedTotal(t *testing.T) {
	order := ticketformat.OrderInfo{
		TotalAmount: money("999"),
		Tax:         &ticketformat.TaxInfo{Subtotal: money("100"), Rate: money("7.5"), Amount: money("7.5")},
	}

	got := string(join(Totals(order)))

	assert.Contains(t, got, "Tax (7.5%): 7.50\n")
	assert.Contains(t, got, "TOTAL: 999.00\n")
}

func TestTotals_NegativeAmount(t *testing.T) {
	got := string(join(Totals(ticketformat.OrderInfo{TotalAmount: money("-3.5")})))

	assert.Contains(t, got, "TOTAL: -3.50\n")
}

// Scenario C
func TestFooter_QRLengthPrefix(t *testing.T) {
	orderNumber := "TEST-1700000000000"

	got := join(Footer(orderNumber, true, 80))

	store := []byte(escpos.CmdQRStorePrefix)
	idx := -1
	for i := 0; i+len(store)+5 <= len(got); i++ {
		if bytes.Equal(got[i:i+len(store)], store) && bytes.Equal(got[i+5:i+8], []byte(escpos.CmdQRStoreFunction)) {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0)

	n := int(got[idx+3]) | int(got[idx+4])<<8
	assert.Equal(t, len(orderNumber)+3, n)
	assert.Equal(t, 21, n)
	assert.Equal(t, orderNumber, string(got[idx+8:idx+8+len(orderNumber)]))
}

func TestFooter(t *testing.T) {
	got := string(join(Footer("X", false, 58)))

	want := "=======\n" + escpos.CmdAlignCenter +
		"Thank you for your order!\n" + "شكراً لزيارتكم\n" +
		escpos.CmdAlignLeft
	assert.Equal(t, want, got)
}

func TestFinish(t *testing.T) {
	assert.Equal(t, []byte{0x0A, 0x0A, 0x0A}, join(Finish(false, false)))
	assert.Equal(t, []byte{0x0A, 0x0A, 0x0A, 0x1D, 0x56, 0x00}, join(Finish(true, false)))
	assert.Equal(t, []byte{0x0A, 0x0A, 0x0A, 0x1B, 0x42, 0x05, 0x05}, join(Finish(false, true)))
}

func TestSelfTest(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	data, s := SelfTest(now)

	assert.Equal(t, "TEST-1700000000000", data.Order.Number)
	assert.True(t, data.Order.TotalAmount.IsZero())
	assert.Equal(t, ticketformat.DepartmentKitchen, data.Department.Tag)
	require.NoError(t, ticketformat.ValidateTicket(&data))
	require.NoError(t, ticketformat.ValidateSettings(&s))

	buf := New(s).Format(data)
	assert.Contains(t, string(buf), "TOTAL: 0.00\n")
	assert.Contains(t, string(buf), "KITCHEN ORDER\n")
}

func TestFormatSelfTest(t *testing.T) {
	buf := New(ticketformat.DefaultSettings()).FormatSelfTest()

	assert.True(t, bytes.HasPrefix(buf, escpos.Initialize()))
	assert.Contains(t, string(buf), "Order #: TEST-")
}
