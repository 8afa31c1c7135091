package service

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereceipt/ticket-engine/internal/printer"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
)

type nopConn struct{}

func (nopConn) Write(data []byte) (int, error) { return len(data), nil }
func (nopConn) Close() error                   { return nil }

type fixture struct {
	svc     *Service
	manager *printer.Manager
	queue   *printer.PrintQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	manager, err := printer.NewManager(filepath.Join(t.TempDir(), "registry.json"), nil, printer.WithoutHardwareDetection())
	require.NoError(t, err)

	pool := printer.NewConnectionPool(nil, printer.WithConnector(func(*printer.Printer) (printer.PrinterConnection, error) {
		return nopConn{}, nil
	}))
	// Jobs stay queued so they can be inspected
	queue := printer.NewPrintQueue(pool, manager, 1, printer.WithInterval(time.Hour))
	t.Cleanup(queue.Stop)

	svc := New(manager, queue, "BAYT", nil)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	return &fixture{svc: svc, manager: manager, queue: queue}
}

func request(dept ticketformat.Department) *ticketformat.PrintRequest {
	return &ticketformat.PrintRequest{
		Ticket: ticketformat.TicketData{
			Items: []ticketformat.Item{
				{Name: "Falafel", Quantity: 3, UnitPrice: decimal.RequireFromString("1.50"), LineTotal: decimal.RequireFromString("4.50")},
			},
			Order:      ticketformat.OrderInfo{Number: "B-9", TotalAmount: decimal.RequireFromString("4.50")},
			Department: ticketformat.DepartmentInfo{Tag: dept},
		},
	}
}

func TestRender(t *testing.T) {
	f := newFixture(t)

	buf, settings, err := f.svc.Render(request(ticketformat.DepartmentKitchen))
	require.NoError(t, err)

	assert.Equal(t, ticketformat.DefaultSettings(), settings)
	assert.True(t, bytes.HasPrefix(buf, []byte("\x1b\x40\x1b\x33\x18")))
	assert.Contains(t, string(buf), "BAYT\n")
	assert.Contains(t, string(buf), "KITCHEN ORDER\n")
}

func TestRender_Invalid(t *testing.T) {
	f := newFixture(t)

	req := request(ticketformat.DepartmentKitchen)
	req.Ticket.Order.Number = " "

	_, _, err := f.svc.Render(req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)

	png, err := f.svc.Preview(request(ticketformat.DepartmentBeverage))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestPrint_UnknownPrinter(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Print(context.Background(), "missing", request(ticketformat.DepartmentKitchen))
	assert.ErrorIs(t, err, printer.ErrPrinterNotFound)
}

func TestPrint_CanceledContext(t *testing.T) {
	f := newFixture(t)
	id := f.manager.AddNetworkPrinter("10.0.0.1", 9100, "Grill")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Print(ctx, id, request(ticketformat.DepartmentKitchen))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.queue.GetAllJobs())
}

func TestPrint_UsesPrinterSettings(t *testing.T) {
	f := newFixture(t)
	id := f.manager.AddNetworkPrinter("10.0.0.1", 9100, "Grill")
	f.manager.SetPrinterSettings(id, ticketformat.PrintSettings{Copies: 2, PaperWidth: 58, IncludeQRCode: false, PaperCut: true})

	jobID, err := f.svc.Print(context.Background(), id, request(ticketformat.DepartmentKitchen))
	require.NoError(t, err)

	job, err := f.queue.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, 2, job.Copies)
	assert.Equal(t, "B-9", job.OrderNumber)
	assert.Contains(t, string(job.Data), "=======\n")
	assert.NotContains(t, string(job.Data), "========")
	assert.NotContains(t, string(job.Data), "\x1d\x28\x6b")
}

func TestPrint_RequestSettingsWin(t *testing.T) {
	f := newFixture(t)
	id := f.manager.AddNetworkPrinter("10.0.0.1", 9100, "Grill")
	f.manager.SetPrinterSettings(id, ticketformat.PrintSettings{Copies: 2, PaperWidth: 58})

	req := request(ticketformat.DepartmentKitchen)
	override := ticketformat.DefaultSettings()
	override.Copies = 3
	req.Settings = &override

	jobID, err := f.svc.Print(context.Background(), id, req)
	require.NoError(t, err)

	job, err := f.queue.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, 3, job.Copies)
	assert.Contains(t, string(job.Data), "==========\n")
}

func TestPrintForDepartment(t *testing.T) {
	f := newFixture(t)
	grill := f.manager.AddNetworkPrinter("10.0.0.1", 9100, "Grill")
	fryer := f.manager.AddNetworkPrinter("10.0.0.2", 9100, "Fryer")
	bar := f.manager.AddNetworkPrinter("10.0.0.3", 9100, "Bar")
	f.manager.SetPrinterDepartment(grill, ticketformat.DepartmentKitchen)
	f.manager.SetPrinterDepartment(fryer, ticketformat.DepartmentKitchen)
	f.manager.SetPrinterDepartment(bar, ticketformat.DepartmentBeverage)

	dispatches, err := f.svc.PrintForDepartment(context.Background(), request(ticketformat.DepartmentKitchen))
	require.NoError(t, err)
	require.Len(t, dispatches, 2)

	var printers []string
	for _, d := range dispatches {
		printers = append(printers, d.PrinterID)
		assert.NotEmpty(t, d.JobID)
	}
	assert.ElementsMatch(t, []string{grill, fryer}, printers)
	assert.Len(t, f.queue.GetAllJobs(), 2)
}

func TestPrintForDepartment_NoPrinter(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PrintForDepartment(context.Background(), request(ticketformat.DepartmentDessert))
	assert.ErrorIs(t, err, ErrNoDepartmentPrinter)
}

func TestSelfTest(t *testing.T) {
	f := newFixture(t)
	id := f.manager.AddNetworkPrinter("10.0.0.1", 9100, "Grill")

	jobID, err := f.svc.SelfTest(context.Background(), id)
	require.NoError(t, err)

	job, err := f.queue.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, "TEST-1700000000000", job.OrderNumber)
	assert.True(t, strings.Contains(string(job.Data), "Order #: TEST-1700000000000\n"))
}
