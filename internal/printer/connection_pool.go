package printer

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// PrinterConnection is a unified interface for all printer types
type PrinterConnection interface {
	Write(data []byte) (int, error)
	Close() error
}

// Connector opens a connection to a printer
type Connector func(p *Printer) (PrinterConnection, error)

// ConnectionPool manages connections to printers
type ConnectionPool struct {
	connections map[string]PrinterConnection
	connect     Connector
	mu          sync.RWMutex
	logger      *zap.Logger
}

// PoolOption configures a ConnectionPool
type PoolOption func(*ConnectionPool)

// WithConnector replaces the hardware connector
func WithConnector(c Connector) PoolOption {
	return func(p *ConnectionPool) {
		p.connect = c
	}
}

// NewConnectionPool creates a new connection pool
func NewConnectionPool(logger *zap.Logger, opts ...PoolOption) *ConnectionPool {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &ConnectionPool{
		connections: make(map[string]PrinterConnection),
		connect:     DialPrinter,
		logger:      logger.Named("pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DialPrinter opens the hardware connection matching the printer type
func DialPrinter(printer *Printer) (PrinterConnection, error) {
	switch printer.Type {
	case "usb":
		conn, err := ConnectUSB(printer.VID, printer.PID)
		if err == nil {
			return conn, nil
		}
		// macOS often exposes USB printers as serial ports only
		if runtime.GOOS == "darwin" {
			ports, _ := listSerialPorts()
			for _, port := range ports {
				if serialConn, serialErr := ConnectSerial(port, defaultBaud); serialErr == nil {
					return serialConn, nil
				}
			}
		}
		return nil, err
	case "serial":
		return ConnectSerial(printer.Device, defaultBaud)
	case "network":
		return ConnectNetwork(printer.Host, printer.Port)
	default:
		return nil, fmt.Errorf("unsupported printer type: %s", printer.Type)
	}
}

// Connect establishes a connection to a printer
func (p *ConnectionPool) Connect(printer *Printer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.connections[printer.ID]; exists {
		return nil
	}

	conn, err := p.connect(printer)
	if err != nil {
		return err
	}

	p.connections[printer.ID] = conn
	p.logger.Debug("printer connected", zap.String("printer_id", printer.ID), zap.String("type", printer.Type))
	return nil
}

// Print writes a whole ticket to a connected printer. A failed write drops the
// connection so the next attempt reconnects.
func (p *ConnectionPool) Print(printerID string, data []byte) error {
	p.mu.RLock()
	conn, exists := p.connections[printerID]
	p.mu.RUnlock()

	if !exists {
		return fmt.Errorf("printer not connected: %s", printerID)
	}

	n, err := conn.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		p.Disconnect(printerID)
		return fmt.Errorf("failed to write to printer %s: %w", printerID, err)
	}
	return nil
}

// Disconnect closes a printer connection
func (p *ConnectionPool) Disconnect(printerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, exists := p.connections[printerID]
	if !exists {
		return nil
	}

	delete(p.connections, printerID)
	return conn.Close()
}

// DisconnectAll closes all connections
func (p *ConnectionPool) DisconnectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, conn := range p.connections {
		if err := conn.Close(); err != nil {
			p.logger.Warn("failed to close printer connection", zap.String("printer_id", id), zap.Error(err))
		}
		delete(p.connections, id)
	}
}

// IsConnected checks if a printer is connected
func (p *ConnectionPool) IsConnected(printerID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, exists := p.connections[printerID]
	return exists
}
