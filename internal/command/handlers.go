package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
)

// handlePrint handles print commands
// Usage: print <printer-id> <ticket-path|url>
func (e *Executor) handlePrint(ctx context.Context, args []string) *Result {
	if len(args) < 2 {
		return failure("usage: print <printer-id> <ticket-path|url>")
	}

	printerID := args[0]

	req, err := LoadRequest(args[1])
	if err != nil {
		return failure("failed to load ticket: %v", err)
	}

	jobID, err := e.service.Print(ctx, printerID, req)
	if err != nil {
		return failure("%v", err)
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Print job queued: %s", jobID),
		Data: map[string]interface{}{
			"job_id":     jobID,
			"printer_id": printerID,
		},
	}
}

// handleRoute sends a ticket to the printers of its department
// Usage: route <ticket-path|url>
func (e *Executor) handleRoute(ctx context.Context, args []string) *Result {
	if len(args) < 1 {
		return failure("usage: route <ticket-path|url>")
	}

	req, err := LoadRequest(args[0])
	if err != nil {
		return failure("failed to load ticket: %v", err)
	}

	dispatches, err := e.service.PrintForDepartment(ctx, req)
	if err != nil {
		return failure("%v", err)
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Queued %d job(s) for %s", len(dispatches), req.Ticket.Department.Tag),
		Data: map[string]interface{}{
			"jobs": dispatches,
		},
	}
}

// handleTest prints the self-test ticket
// Usage: test <printer-id>
func (e *Executor) handleTest(ctx context.Context, args []string) *Result {
	if len(args) < 1 {
		return failure("usage: test <printer-id>")
	}

	jobID, err := e.service.SelfTest(ctx, args[0])
	if err != nil {
		return failure("%v", err)
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Test ticket queued: %s", jobID),
		Data: map[string]interface{}{
			"job_id":     jobID,
			"printer_id": args[0],
		},
	}
}

// handlePrinter handles printer commands
// Usage: printer list | add-network <host> [port] | rename <id> <name> | assign <id> <department> | configure <id> key=value...
func (e *Executor) handlePrinter(args []string) *Result {
	if len(args) == 0 {
		return failure("usage: printer <list|add-network|rename|assign|configure>")
	}

	switch args[0] {
	case "list":
		printers := e.manager.GetAllPrinters()
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d printer(s)", len(printers)),
			Data: map[string]interface{}{
				"printers": printers,
			},
		}

	case "add-network":
		if len(args) < 2 {
			return failure("usage: printer add-network <host> [port]")
		}
		host := args[1]
		port := 9100
		if len(args) >= 3 {
			var err error
			port, err = strconv.Atoi(args[2])
			if err != nil || port <= 0 || port > 65535 {
				return failure("invalid port: %s", args[2])
			}
		}
		description := fmt.Sprintf("Network: %s:%d", host, port)
		printerID := e.manager.AddNetworkPrinter(host, port, description)
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Added network printer: %s", description),
			Data: map[string]interface{}{
				"printer_id": printerID,
				"printer":    e.manager.GetPrinter(printerID),
			},
		}

	case "rename":
		if len(args) < 3 {
			return failure("usage: printer rename <id> <name>")
		}
		if !e.manager.SetPrinterName(args[1], args[2]) {
			return failure("printer not found: %s", args[1])
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Renamed printer %s to %s", args[1], args[2]),
		}

	case "assign":
		if len(args) < 3 {
			return failure("usage: printer assign <id> <kitchen|beverage|dessert|cashier|none>")
		}
		dept := ticketformat.Department(strings.ToLower(args[2]))
		if dept == "none" {
			dept = ""
		} else if !dept.Known() {
			return failure("unknown department: %s", args[2])
		}
		if !e.manager.SetPrinterDepartment(args[1], dept) {
			return failure("printer not found: %s", args[1])
		}
		if dept == "" {
			return &Result{Success: true, Message: fmt.Sprintf("Cleared department of printer %s", args[1])}
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Printer %s now prints %s tickets", args[1], dept),
		}

	case "configure":
		if len(args) < 3 {
			return failure("usage: printer configure <id> key=value... (copies, width, qr, cut, buzzer, logo, font)")
		}
		return e.configurePrinter(args[1], args[2:])

	default:
		return failure("unknown printer subcommand: %s. Use: list, add-network, rename, assign, configure", args[0])
	}
}

func (e *Executor) configurePrinter(printerID string, pairs []string) *Result {
	if e.manager.GetPrinter(printerID) == nil {
		return failure("printer not found: %s", printerID)
	}

	settings := ticketformat.Resolve(e.manager.SettingsFor(printerID))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return failure("expected key=value, got %s", pair)
		}
		if err := applySetting(&settings, strings.ToLower(key), value); err != nil {
			return failure("%v", err)
		}
	}

	if err := ticketformat.ValidateSettings(&settings); err != nil {
		return failure("%v", err)
	}

	e.manager.SetPrinterSettings(printerID, settings)

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Updated settings of printer %s", printerID),
		Data: map[string]interface{}{
			"settings": settings,
		},
	}
}

func applySetting(s *ticketformat.PrintSettings, key, value string) error {
	switch key {
	case "copies", "width":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %s", key, value)
		}
		if key == "copies" {
			s.Copies = n
		} else {
			s.PaperWidth = n
		}
	case "font":
		s.FontSize = ticketformat.FontSize(strings.ToLower(value))
	case "qr", "cut", "buzzer", "logo":
		b, err := parseSwitch(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %s", key, value)
		}
		switch key {
		case "qr":
			s.IncludeQRCode = b
		case "cut":
			s.PaperCut = b
		case "buzzer":
			s.Buzzer = b
		case "logo":
			s.IncludeLogo = b
		}
	default:
		return fmt.Errorf("unknown setting: %s", key)
	}
	return nil
}

func parseSwitch(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(value)
}

// handleJob handles job commands
// Usage: job list | status <id> | clear
func (e *Executor) handleJob(args []string) *Result {
	if len(args) == 0 {
		return failure("usage: job <list|status|clear>")
	}

	switch args[0] {
	case "list":
		jobs := e.queue.GetAllJobs()
		jobList := make([]map[string]interface{}, len(jobs))
		for i, job := range jobs {
			jobList[i] = job.Summary()
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d job(s)", len(jobs)),
			Data: map[string]interface{}{
				"jobs": jobList,
			},
		}

	case "status":
		if len(args) < 2 {
			return failure("usage: job status <id>")
		}
		job, err := e.queue.GetJob(args[1])
		if err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Job %s is %s", job.ID, job.Status),
			Data:    job.Summary(),
		}

	case "clear":
		removed := e.queue.ClearCompleted()
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Cleared %d completed job(s)", removed),
		}

	default:
		return failure("unknown job subcommand: %s. Use: list, status, clear", args[0])
	}
}

// handleDetect rescans for printers
// Usage: detect
func (e *Executor) handleDetect(args []string) *Result {
	printers, err := e.manager.DetectPrinters()
	if err != nil {
		return failure("detection failed: %v", err)
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("Detected %d printer(s)", len(printers)),
		Data: map[string]interface{}{
			"count":    len(printers),
			"printers": printers,
		},
	}
}

// handleHelp handles help command
func (e *Executor) handleHelp(args []string) *Result {
	helpText := `Available Commands:

  print <printer-id> <ticket-path|url>
    Format a ticket and print it on the specified printer

  route <ticket-path|url>
    Print a ticket on every printer assigned to its department

  test <printer-id>
    Print the self-test ticket

  printer list
    List all known printers

  printer add-network <host> [port]
    Add a network printer (default port: 9100)

  printer rename <id> <name>
    Set a custom name for a printer

  printer assign <id> <kitchen|beverage|dessert|cashier|none>
    Route a department's tickets to a printer

  printer configure <id> key=value...
    Store print settings: copies, width (58|80), qr, cut, buzzer, logo (on|off), font

  job list
    List all print jobs

  job status <id>
    Get status of a specific job

  job clear
    Clear completed jobs from the queue

  detect
    Detect/scan for printers

  help
    Show this help message

Examples:
  print 4f1c... ./order-1042.json
  route https://pos.local/orders/1042/ticket
  printer add-network 192.168.1.100 9100
  printer assign 4f1c... kitchen
  printer configure 4f1c... width=58 copies=2 buzzer=on
`

	return &Result{
		Success: true,
		Message: helpText,
	}
}
