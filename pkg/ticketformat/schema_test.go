package ticketformat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *PrintRequest {
	return &PrintRequest{
		Ticket: TicketData{
			Items: []Item{
				{Name: "Shawarma", Quantity: 2, UnitPrice: decimal.NewFromInt(12), LineTotal: decimal.NewFromInt(24)},
			},
			Order:      OrderInfo{Number: "A-100", TotalAmount: decimal.NewFromInt(24)},
			Department: DepartmentInfo{Tag: DepartmentKitchen},
		},
	}
}

func TestValidate_ValidRequest(t *testing.T) {
	assert.NoError(t, Validate(validRequest()))
}

func TestValidate_MissingOrderNumber(t *testing.T) {
	req := validRequest()
	req.Ticket.Order.Number = "  "

	assert.Error(t, Validate(req))
}

func TestValidate_NonPositiveQuantity(t *testing.T) {
	req := validRequest()
	req.Ticket.Items[0].Quantity = 0

	err := Validate(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items[0]")
}

func TestValidate_PaperWidth(t *testing.T) {
	req := validRequest()
	req.Settings = &PrintSettings{Copies: 1, PaperWidth: 112}

	assert.Error(t, Validate(req))

	req.Settings.PaperWidth = PaperWidth58
	assert.NoError(t, Validate(req))
}

func TestValidate_Copies(t *testing.T) {
	req := validRequest()
	req.Settings = &PrintSettings{Copies: MaxCopies + 1, PaperWidth: PaperWidth80}

	assert.Error(t, Validate(req))
}

func TestValidate_CopiesZeroMeansOne(t *testing.T) {
	req := validRequest()
	req.Settings = &PrintSettings{Copies: -1}

	err := Validate(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 means 1")

	req.Settings.Copies = 0
	assert.NoError(t, Validate(req))
}

func TestValidate_ControlCharacters(t *testing.T) {
	req := validRequest()
	req.Ticket.Items[0].Note = "no\x1bsugar"

	err := Validate(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items[0]: note")
	assert.Contains(t, err.Error(), "0x1B")

	req = validRequest()
	req.Ticket.Items[0].Customizations = []string{"extra garlic", "\x1dV\x00"}
	err = Validate(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customizations[1]")

	req = validRequest()
	req.Ticket.Customer.Table = "T\a4"
	assert.Error(t, Validate(req))

	req = validRequest()
	req.Ticket.Items[0].Note = "no onions\nsauce on side"
	req.Ticket.Items[0].NameSecondary = "شاورما"
	assert.NoError(t, Validate(req))
}

func TestValidate_FontSize(t *testing.T) {
	req := validRequest()
	req.Settings = &PrintSettings{Copies: 1, FontSize: "huge"}

	assert.Error(t, Validate(req))
}

func TestParse_Envelope(t *testing.T) {
	data := []byte(`{
		"ticket": {
			"items": [{"name": "Tea", "quantity": 1, "unit_price": 2.5, "line_total": "2.50"}],
			"order_info": {"number": "B-7", "total_amount": 2.5, "placed_at": "2024-03-01T12:30:00Z"},
			"department_info": {"tag": "beverage", "estimated_minutes": 5}
		},
		"settings": {"copies": 2, "paper_width": 58, "paper_cut": true}
	}`)

	req, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "B-7", req.Ticket.Order.Number)
	assert.Equal(t, DepartmentBeverage, req.Ticket.Department.Tag)
	assert.Equal(t, "2.50", req.Ticket.Items[0].UnitPrice.StringFixed(2))
	assert.True(t, req.Ticket.Items[0].LineTotal.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, 12, req.Ticket.Order.PlacedAt.Hour())
	require.NotNil(t, req.Settings)
	assert.Equal(t, 58, req.Settings.PaperWidth)
	assert.Equal(t, 2, req.Settings.Copies)
}

func TestParse_BareTicket(t *testing.T) {
	data := []byte(`{"items": [], "order_info": {"number": "C-1", "total_amount": 0}}`)

	req, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "C-1", req.Ticket.Order.Number)
	assert.Nil(t, req.Settings)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"ticket":`))
	assert.Error(t, err)
}

func TestSaveAndParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticket.json")

	req := validRequest()
	require.NoError(t, req.SaveToFile(path))

	loaded, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, req.Ticket.Order.Number, loaded.Ticket.Order.Number)
	assert.True(t, loaded.Ticket.Items[0].LineTotal.Equal(decimal.NewFromInt(24)))

	_, err = ParseFile(filepath.Join(os.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	s := Resolve(nil, nil)
	assert.Equal(t, DefaultSettings(), s)

	printer := &PrintSettings{PaperWidth: PaperWidth58, Buzzer: true}
	s = Resolve(nil, printer)
	assert.Equal(t, PaperWidth58, s.PaperWidth)
	assert.True(t, s.Buzzer)
	assert.Equal(t, 1, s.Copies)
	assert.Equal(t, FontNormal, s.FontSize)

	request := &PrintSettings{Copies: 3}
	s = Resolve(request, printer)
	assert.Equal(t, 3, s.Copies)
	assert.Equal(t, PaperWidth80, s.PaperWidth)
	assert.False(t, s.Buzzer)
}

func TestDepartmentKnown(t *testing.T) {
	assert.True(t, DepartmentDessert.Known())
	assert.False(t, Department("bar").Known())
}
