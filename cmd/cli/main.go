package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/thereceipt/ticket-engine/internal/command"
	"github.com/thereceipt/ticket-engine/internal/preview"
	"github.com/thereceipt/ticket-engine/internal/ticket"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
)

const (
	defaultServerURL = "http://localhost:12212"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

func main() {
	var serverURL string
	flag.StringVar(&serverURL, "server", defaultServerURL, "Server URL")
	flag.StringVar(&serverURL, "s", defaultServerURL, "Server URL (short)")
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(1)
	}

	args := flag.Args()

	var result *CommandResult
	switch args[0] {
	case "render":
		result = renderLocal(args[1:])
	case "preview":
		result = previewLocal(args[1:])
	case "print", "route":
		result = executeCommand(serverURL, quoteArgs(absPaths(args)))
	default:
		result = executeCommand(serverURL, quoteArgs(args))
	}

	if result.Success {
		printSuccess(result)
		os.Exit(0)
	}
	printError(result)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `%s

Usage:
  ticket-cli [flags] <command>

Flags:
  -s, -server <url>    Server URL (default: %s)

Server commands:
  print <printer-id> <ticket-path|url>
    Format a ticket and print it on the specified printer

  route <ticket-path|url>
    Print a ticket on every printer assigned to its department

  test <printer-id>
    Print the self-test ticket

  printer list | add-network <host> [port] | rename <id> <name>
  printer assign <id> <kitchen|beverage|dessert|cashier|none>
  printer configure <id> key=value...

  job list | status <id> | clear

  detect
  help

Local commands (no server needed):
  render <ticket.json> <out.bin> [58|80]
    Write the printer bytes for a ticket to a file

  preview <ticket.json> <out.png> [58|80]
    Write a PNG preview of a ticket

Examples:
  ticket-cli route ./order-1042.json
  ticket-cli printer assign 4f1c... kitchen
  ticket-cli render ./order-1042.json ./order.bin 58
  ticket-cli -s http://localhost:8080 printer list

`, headerStyle.Render("Ticket Engine CLI"), defaultServerURL)
}

// CommandResult is the response of the /command endpoint
type CommandResult struct {
	Success bool
	Message string
	Error   string
	Data    map[string]interface{}
}

// quoteArgs re-quotes arguments containing spaces so the server splits them the same way
func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t") {
			if strings.Contains(a, `"`) {
				a = "'" + a + "'"
			} else {
				a = `"` + a + `"`
			}
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

// absPaths makes local ticket paths absolute since the server resolves them from its own directory
func absPaths(args []string) []string {
	out := append([]string(nil), args...)
	for i, a := range out {
		if strings.HasSuffix(strings.ToLower(a), ".json") && !strings.Contains(a, "://") {
			if abs, err := filepath.Abs(a); err == nil {
				out[i] = abs
			}
		}
	}
	return out
}

func executeCommand(serverURL, cmd string) *CommandResult {
	url := strings.TrimSuffix(serverURL, "/") + "/command"

	jsonData, err := json.Marshal(map[string]string{"command": cmd})
	if err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to connect to server: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to read response: %v", err)}
	}

	return decodeResult(body)
}

// decodeResult splits the flat response into the status fields and the remaining data
func decodeResult(body []byte) *CommandResult {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to parse response: %v", err)}
	}

	result := &CommandResult{Data: make(map[string]interface{})}
	for k, v := range raw {
		switch k {
		case "success":
			result.Success, _ = v.(bool)
		case "message":
			result.Message, _ = v.(string)
		case "error":
			result.Error, _ = v.(string)
		default:
			result.Data[k] = v
		}
	}
	return result
}

func loadLocal(args []string, usage string) (*ticketformat.PrintRequest, ticketformat.PrintSettings, string, error) {
	if len(args) < 2 {
		return nil, ticketformat.PrintSettings{}, "", fmt.Errorf("usage: %s", usage)
	}

	req, err := command.LoadRequest(args[0])
	if err != nil {
		return nil, ticketformat.PrintSettings{}, "", err
	}

	settings := ticketformat.Resolve(req.Settings)
	if len(args) >= 3 {
		switch args[2] {
		case "58":
			settings.PaperWidth = ticketformat.PaperWidth58
		case "80":
			settings.PaperWidth = ticketformat.PaperWidth80
		default:
			return nil, settings, "", fmt.Errorf("invalid paper width: %s (must be 58 or 80)", args[2])
		}
	}

	return req, settings, args[1], nil
}

func renderLocal(args []string) *CommandResult {
	req, settings, out, err := loadLocal(args, "render <ticket.json> <out.bin> [58|80]")
	if err != nil {
		return &CommandResult{Error: err.Error()}
	}

	buf := ticket.New(settings).Format(req.Ticket)
	if err := os.WriteFile(out, buf, 0644); err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to write %s: %v", out, err)}
	}

	return &CommandResult{
		Success: true,
		Message: fmt.Sprintf("Wrote %d bytes for order %s to %s", len(buf), req.Ticket.Order.Number, out),
	}
}

func previewLocal(args []string) *CommandResult {
	req, settings, out, err := loadLocal(args, "preview <ticket.json> <out.png> [58|80]")
	if err != nil {
		return &CommandResult{Error: err.Error()}
	}

	img, err := preview.Render(ticket.New(settings).Format(req.Ticket), settings.PaperWidth)
	if err != nil {
		return &CommandResult{Error: err.Error()}
	}

	f, err := os.Create(out)
	if err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to create %s: %v", out, err)}
	}
	defer f.Close()

	if err := preview.EncodePNG(f, img); err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to write %s: %v", out, err)}
	}

	return &CommandResult{
		Success: true,
		Message: fmt.Sprintf("Wrote %dx%d preview of order %s to %s", img.Bounds().Dx(), img.Bounds().Dy(), req.Ticket.Order.Number, out),
	}
}

func printSuccess(result *CommandResult) {
	if result.Message != "" {
		fmt.Println(successStyle.Render("✓ ") + strings.TrimRight(result.Message, "\n"))
	}

	if printers, ok := result.Data["printers"].([]interface{}); ok && len(printers) > 0 {
		fmt.Println(headerStyle.Render("\nPrinters:"))
		for _, p := range printers {
			if printer, ok := p.(map[string]interface{}); ok {
				name, _ := printer["name"].(string)
				if name == "" {
					name, _ = printer["description"].(string)
				}
				dept, _ := printer["department"].(string)
				if dept == "" {
					dept = "unassigned"
				}
				fmt.Printf("  %s: %s %s\n", printer["id"], name,
					mutedStyle.Render(fmt.Sprintf("(%s, %s)", printer["type"], dept)))
			}
		}
	}

	if jobs, ok := result.Data["jobs"].([]interface{}); ok && len(jobs) > 0 {
		fmt.Println(headerStyle.Render("\nJobs:"))
		for _, j := range jobs {
			if job, ok := j.(map[string]interface{}); ok {
				if status, ok := job["status"]; ok {
					fmt.Printf("  %s: %s %s\n", job["id"], status,
						mutedStyle.Render(fmt.Sprintf("(order %v, printer %v)", job["order_number"], job["printer_id"])))
				} else {
					fmt.Printf("  %s %s\n", job["job_id"], mutedStyle.Render(fmt.Sprintf("(printer %v)", job["printer_id"])))
				}
			}
		}
	}

	if jobID, ok := result.Data["job_id"].(string); ok {
		fmt.Printf("Job ID: %s\n", jobID)
	}

	if printerID, ok := result.Data["printer_id"].(string); ok {
		fmt.Printf("Printer ID: %s\n", printerID)
	}
}

func printError(result *CommandResult) {
	msg := result.Error
	if msg == "" {
		msg = result.Message
	}
	fmt.Fprintln(os.Stderr, errorStyle.Render("✗ Error: ")+msg)
}
