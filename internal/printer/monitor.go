package printer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Monitor continuously monitors for printer changes
type Monitor struct {
	manager  *Manager
	interval time.Duration
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewMonitor creates a new printer monitor
func NewMonitor(manager *Manager, interval time.Duration) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		manager:  manager,
		interval: interval,
		logger:   manager.logger.Named("monitor"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins monitoring. Printers known at start are not reported as added.
func (m *Monitor) Start() {
	previous := make(map[string]*Printer)
	for _, p := range m.manager.GetAllPrinters() {
		previous[p.ID] = p
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.checkChanges(previous)
			}
		}
	}()
}

// Stop stops the monitor and waits for the running check to finish
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Monitor) checkChanges(previous map[string]*Printer) {
	current, err := m.manager.DetectPrinters()
	if err != nil {
		m.logger.Warn("printer detection failed", zap.Error(err))
		return
	}

	currentMap := make(map[string]*Printer, len(current))
	for _, p := range current {
		currentMap[p.ID] = p
	}

	for id, p := range currentMap {
		if _, exists := previous[id]; !exists {
			m.logger.Info("printer added", zap.String("printer_id", id), zap.String("description", p.Description))
			if m.manager.onPrinterAdded != nil {
				m.manager.onPrinterAdded(p)
			}
		}
	}

	for id, p := range previous {
		if _, exists := currentMap[id]; !exists {
			m.logger.Info("printer removed", zap.String("printer_id", id), zap.String("description", p.Description))
			if m.manager.onPrinterRemoved != nil {
				m.manager.onPrinterRemoved(id)
			}
		}
	}

	for id := range previous {
		delete(previous, id)
	}
	for id, p := range currentMap {
		previous[id] = p
	}
}
