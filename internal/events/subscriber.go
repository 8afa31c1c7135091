// Package events consumes print requests published on NATS by the order subsystem
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/thereceipt/ticket-engine/internal/service"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
	"go.uber.org/zap"
)

const handleTimeout = 30 * time.Second

// TicketPrinter queues formatted tickets
type TicketPrinter interface {
	Print(ctx context.Context, printerID string, req *ticketformat.PrintRequest) (string, error)
	PrintForDepartment(ctx context.Context, req *ticketformat.PrintRequest) ([]service.Dispatch, error)
}

// Message is a print request as published on the subject. Without
// printer_id the ticket is routed by its department tag.
type Message struct {
	PrinterID string `json:"printer_id,omitempty"`
	ticketformat.PrintRequest
}

// Reply is sent back when the publisher used request/reply
type Reply struct {
	Success bool               `json:"success"`
	JobID   string             `json:"job_id,omitempty"`
	Jobs    []service.Dispatch `json:"jobs,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Subscriber feeds NATS messages into the print service
type Subscriber struct {
	conn    *nats.Conn
	printer TicketPrinter
	logger  *zap.Logger
}

// NewSubscriber connects to the NATS server at url
func NewSubscriber(url string, printer TicketPrinter, logger *zap.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("events")

	conn, err := nats.Connect(url,
		nats.Name("ticket-engine"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Subscriber{conn: conn, printer: printer, logger: logger}, nil
}

// Subscribe joins the queue group on subject so replicas share the load
func (s *Subscriber) Subscribe(subject, queue string) error {
	if _, err := s.conn.QueueSubscribe(subject, queue, s.onMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.logger.Info("subscribed", zap.String("subject", subject), zap.String("queue", queue))
	return nil
}

func (s *Subscriber) onMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	reply := s.handle(ctx, msg.Data)
	if msg.Reply == "" {
		return
	}

	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Error("failed to encode reply", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to send reply", zap.Error(err))
	}
}

func (s *Subscriber) handle(ctx context.Context, data []byte) Reply {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Warn("dropping malformed print request", zap.Error(err))
		return Reply{Error: fmt.Sprintf("invalid message: %v", err)}
	}

	if m.PrinterID != "" {
		jobID, err := s.printer.Print(ctx, m.PrinterID, &m.PrintRequest)
		if err != nil {
			s.logger.Warn("print request failed", zap.String("order", m.Ticket.Order.Number), zap.Error(err))
			return Reply{Error: err.Error()}
		}
		return Reply{Success: true, JobID: jobID}
	}

	jobs, err := s.printer.PrintForDepartment(ctx, &m.PrintRequest)
	if err != nil {
		s.logger.Warn("print request failed", zap.String("order", m.Ticket.Order.Number), zap.Error(err))
		return Reply{Error: err.Error(), Jobs: jobs}
	}
	return Reply{Success: true, Jobs: jobs}
}

// Close drains the subscription and closes the connection
func (s *Subscriber) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Drain()
	if err != nil {
		s.conn.Close()
	}
	return err
}
