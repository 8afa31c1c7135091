// Package service connects the ticket formatter to the printers
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thereceipt/ticket-engine/internal/preview"
	"github.com/thereceipt/ticket-engine/internal/printer"
	"github.com/thereceipt/ticket-engine/internal/ticket"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
	"go.uber.org/zap"
)

var (
	ErrInvalidRequest      = errors.New("invalid print request")
	ErrNoDepartmentPrinter = errors.New("no printer assigned to department")
)

// Dispatch records the job created for one printer
type Dispatch struct {
	PrinterID string `json:"printer_id"`
	JobID     string `json:"job_id"`
}

// Service validates print requests, formats them and queues the buffers
type Service struct {
	manager *printer.Manager
	queue   *printer.PrintQueue
	brand   string
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a print service
func New(manager *printer.Manager, queue *printer.PrintQueue, brand string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		manager: manager,
		queue:   queue,
		brand:   brand,
		logger:  logger.Named("service"),
		now:     time.Now,
	}
}

func (s *Service) formatter(settings ticketformat.PrintSettings) *ticket.Formatter {
	return ticket.New(settings, ticket.WithBrand(s.brand))
}

func validate(req *ticketformat.PrintRequest) error {
	if err := ticketformat.Validate(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Render formats a request with its own settings, or the defaults
func (s *Service) Render(req *ticketformat.PrintRequest) ([]byte, ticketformat.PrintSettings, error) {
	if err := validate(req); err != nil {
		return nil, ticketformat.PrintSettings{}, err
	}

	settings := ticketformat.Resolve(req.Settings)
	return s.formatter(settings).Format(req.Ticket), settings, nil
}

// Preview renders a request as a PNG image
func (s *Service) Preview(req *ticketformat.PrintRequest) ([]byte, error) {
	buf, settings, err := s.Render(req)
	if err != nil {
		return nil, err
	}

	img, err := preview.Render(buf, settings.PaperWidth)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := preview.EncodePNG(&out, img); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return out.Bytes(), nil
}

// Print formats a request for one printer and queues it. Settings come from
// the request, then the printer, then the defaults.
func (s *Service) Print(ctx context.Context, printerID string, req *ticketformat.PrintRequest) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}
	return s.enqueue(ctx, printerID, req)
}

// PrintForDepartment queues the request on every printer assigned to its department tag
func (s *Service) PrintForDepartment(ctx context.Context, req *ticketformat.PrintRequest) ([]Dispatch, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	dept := req.Ticket.Department.Tag
	printers := s.manager.PrintersForDepartment(dept)
	if len(printers) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoDepartmentPrinter, dept)
	}

	dispatches := make([]Dispatch, 0, len(printers))
	for _, p := range printers {
		jobID, err := s.enqueue(ctx, p.ID, req)
		if err != nil {
			return dispatches, err
		}
		dispatches = append(dispatches, Dispatch{PrinterID: p.ID, JobID: jobID})
	}

	return dispatches, nil
}

// SelfTest queues the self-test ticket with the printer's stored settings
func (s *Service) SelfTest(ctx context.Context, printerID string) (string, error) {
	data, _ := ticket.SelfTest(s.now())
	return s.enqueue(ctx, printerID, &ticketformat.PrintRequest{Ticket: data})
}

func (s *Service) enqueue(ctx context.Context, printerID string, req *ticketformat.PrintRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.manager.GetPrinter(printerID) == nil {
		return "", fmt.Errorf("%w: %s", printer.ErrPrinterNotFound, printerID)
	}

	settings := ticketformat.Resolve(req.Settings, s.manager.SettingsFor(printerID))
	buf := s.formatter(settings).Format(req.Ticket)

	jobID := s.queue.Enqueue(printerID, req.Ticket.Order.Number, buf, settings.Copies)

	s.logger.Info("ticket queued",
		zap.String("job_id", jobID),
		zap.String("printer_id", printerID),
		zap.String("order", req.Ticket.Order.Number),
		zap.String("department", string(req.Ticket.Department.Tag)),
		zap.Int("copies", settings.Copies),
		zap.Int("paper_width", settings.PaperWidth))

	return jobID, nil
}
