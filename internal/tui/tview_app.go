// Package tui is the terminal dashboard shown while the server runs
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/thereceipt/ticket-engine/internal/command"
	"github.com/thereceipt/ticket-engine/internal/printer"
	"github.com/thereceipt/ticket-engine/internal/tui/screens"
)

const maxLogLines = 500

// TViewApp is the main TUI application using tview
type TViewApp struct {
	App      *tview.Application
	executor *command.Executor
	manager  *printer.Manager
	queue    *printer.PrintQueue
	port     string

	flex *tview.Flex

	printersList *tview.List
	queueTable   *tview.Table
	statusBox    *tview.TextView
	logsArea     *tview.TextView
	commandInput *tview.InputField

	startTime time.Time
	done      chan struct{}

	currentScreen  string // "main", "registry", "jobs"
	registryScreen *screens.RegistryEditor
	jobsScreen     *screens.JobsView
}

// NewTViewApp creates a new tview-based TUI
func NewTViewApp(executor *command.Executor, manager *printer.Manager, queue *printer.PrintQueue, port string) *TViewApp {
	app := tview.NewApplication()

	t := &TViewApp{
		App:           app,
		executor:      executor,
		manager:       manager,
		queue:         queue,
		port:          port,
		startTime:     time.Now(),
		done:          make(chan struct{}),
		currentScreen: "main",
	}

	t.setupUI()
	t.registryScreen = screens.NewRegistryEditor(t.App, t.manager)
	t.jobsScreen = screens.NewJobsView(t.App, t.queue)
	return t
}

func (t *TViewApp) setupUI() {
	t.printersList = tview.NewList()
	t.printersList.SetBorder(true)
	t.printersList.SetTitle("Printers")

	t.queueTable = tview.NewTable()
	t.queueTable.SetBorder(true)
	t.queueTable.SetTitle("Print Queue")

	t.statusBox = tview.NewTextView()
	t.statusBox.SetBorder(true)
	t.statusBox.SetTitle("Server Status")
	t.statusBox.SetDynamicColors(true)

	t.logsArea = tview.NewTextView()
	t.logsArea.SetBorder(true)
	t.logsArea.SetTitle("Server Logs")
	t.logsArea.SetDynamicColors(true)
	t.logsArea.SetScrollable(true)
	t.logsArea.SetMaxLines(maxLogLines)
	t.logsArea.ScrollToEnd()
	t.logsArea.SetChangedFunc(func() {
		t.App.Draw()
	})

	t.commandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0).
		SetPlaceholder("Type a command (e.g., 'help')").
		SetDoneFunc(func(key tcell.Key) {
			if key == tcell.KeyEnter {
				t.executeCommand(t.commandInput.GetText())
				t.commandInput.SetText("")
			}
		})

	topRow := tview.NewFlex().
		AddItem(t.printersList, 0, 1, false).
		AddItem(t.queueTable, 0, 2, false).
		AddItem(t.statusBox, 0, 1, false)

	bottom := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.logsArea, 0, 3, false).
		AddItem(t.commandInput, 1, 0, true)

	t.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 1, false).
		AddItem(bottom, 0, 1, true)

	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if t.currentScreen != "main" {
			if event.Key() == tcell.KeyEsc {
				t.showMainScreen()
				return nil
			}
			return event
		}

		// Shortcuts are off while typing a command
		if t.commandInput.HasFocus() {
			if event.Key() == tcell.KeyEsc {
				t.App.SetFocus(t.printersList)
				return nil
			}
			return event
		}

		switch event.Key() {
		case tcell.KeyCtrlC, tcell.KeyEsc:
			t.App.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case ':':
				t.App.SetFocus(t.commandInput)
				return nil
			case 'q':
				t.App.Stop()
				return nil
			case 'r':
				t.showScreen("registry")
				return nil
			case 'j':
				t.showScreen("jobs")
				return nil
			}
		}
		return event
	})

	t.App.SetRoot(t.flex, true)
}

// Run starts the TUI and blocks until it exits
func (t *TViewApp) Run() error {
	t.refreshAll()
	go t.refreshTicker()
	defer close(t.done)

	return t.App.Run()
}

// Stop exits the TUI
func (t *TViewApp) Stop() {
	t.App.Stop()
}

func (t *TViewApp) refreshTicker() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.App.QueueUpdateDraw(t.refreshAll)
		}
	}
}

// RefreshPrinters redraws the printers panel from any goroutine
func (t *TViewApp) RefreshPrinters() {
	t.queueUpdate(t.refreshPrinters)
}

// RefreshJobs redraws the queue panel from any goroutine
func (t *TViewApp) RefreshJobs() {
	t.queueUpdate(t.refreshQueue)
}

// queueUpdate never blocks the caller, which may be the UI goroutine itself
func (t *TViewApp) queueUpdate(f func()) {
	select {
	case <-t.done:
		return
	default:
	}
	go t.App.QueueUpdateDraw(f)
}

func (t *TViewApp) refreshAll() {
	t.refreshPrinters()
	t.refreshQueue()
	t.refreshStatus()
}

func (t *TViewApp) refreshPrinters() {
	t.printersList.Clear()

	printers := t.manager.GetAllPrinters()
	if len(printers) == 0 {
		t.printersList.AddItem("No printers detected", "type 'detect' or 'printer add-network <host>'", 0, nil)
		return
	}

	for _, p := range printers {
		dept := "unassigned"
		if p.Department != "" {
			dept = string(p.Department)
		}
		details := fmt.Sprintf("%s • %s • %s", strings.ToUpper(p.Type), p.Device, dept)
		t.printersList.AddItem("🟢 "+p.DisplayName(), details, 0, nil)
	}
}

func (t *TViewApp) refreshQueue() {
	t.queueTable.Clear()

	headers := []string{"Status", "Order", "Printer", "Copies", "Retries", "Age"}
	for col, h := range headers {
		t.queueTable.SetCell(0, col, tview.NewTableCell(h).SetAlign(tview.AlignCenter).SetSelectable(false))
	}

	jobs := t.queue.GetAllJobs()
	counts := make(map[string]int)

	for i, job := range jobs {
		row := i + 1
		counts[job.Status]++

		printerName := job.PrinterID
		if p := t.manager.GetPrinter(job.PrinterID); p != nil {
			printerName = p.DisplayName()
		}

		t.queueTable.SetCell(row, 0, tview.NewTableCell(screens.StatusIcon(job.Status)+" "+job.Status))
		t.queueTable.SetCell(row, 1, tview.NewTableCell(job.OrderNumber))
		t.queueTable.SetCell(row, 2, tview.NewTableCell(printerName))
		t.queueTable.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d/%d", job.Printed, job.Copies)))
		t.queueTable.SetCell(row, 4, tview.NewTableCell(fmt.Sprintf("%d", job.Retries)))
		t.queueTable.SetCell(row, 5, tview.NewTableCell(time.Since(job.CreatedAt).Truncate(time.Second).String()))
	}

	if len(jobs) > 0 {
		summary := fmt.Sprintf("[%d] Queued [%d] Printing [%d] Completed [%d] Failed",
			counts[printer.JobQueued], counts[printer.JobPrinting], counts[printer.JobCompleted], counts[printer.JobFailed])
		t.queueTable.SetCell(len(jobs)+1, 0, tview.NewTableCell(summary).SetSelectable(false))
	}
}

func (t *TViewApp) refreshStatus() {
	uptime := time.Since(t.startTime)

	status := fmt.Sprintf(`[green]🟢 Running[white]

Uptime: %dh %dm
API: :%s
Printers: %d
Jobs: %d total

[yellow]:[white] command  [yellow]r[white] registry
[yellow]j[white] jobs     [yellow]q[white] quit`,
		int(uptime.Hours()), int(uptime.Minutes())%60, t.port,
		len(t.manager.GetAllPrinters()), len(t.queue.GetAllJobs()))

	t.statusBox.SetText(status)
}

// executeCommand handles dashboard commands and forwards the rest to the command executor
func (t *TViewApp) executeCommand(cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}

	t.AddLog(fmt.Sprintf("> %s", cmd), "command")

	switch strings.ToLower(cmd) {
	case "registry":
		t.showScreen("registry")
		return
	case "jobs":
		t.showScreen("jobs")
		return
	case "clear":
		t.logsArea.Clear()
		return
	case "refresh":
		t.refreshAll()
		return
	case "quit", "exit":
		t.App.Stop()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := t.executor.Execute(ctx, cmd)
	if !result.Success {
		t.AddLog(result.Error, "error")
		return
	}

	if result.Message != "" {
		t.AddLog(strings.TrimRight(result.Message, "\n"), "info")
	}
	t.refreshAll()
}

func (t *TViewApp) showScreen(screenName string) {
	t.currentScreen = screenName

	switch screenName {
	case "registry":
		t.registryScreen.Refresh()
		t.App.SetRoot(t.registryScreen.GetRoot(), true)
		t.App.SetFocus(t.registryScreen.GetRoot())
	case "jobs":
		t.jobsScreen.Refresh()
		t.App.SetRoot(t.jobsScreen.GetRoot(), true)
		t.App.SetFocus(t.jobsScreen.GetRoot())
	default:
		t.showMainScreen()
	}
}

func (t *TViewApp) showMainScreen() {
	t.currentScreen = "main"
	t.refreshAll()
	t.App.SetRoot(t.flex, true)
	t.App.SetFocus(t.commandInput)
}

// AddLog appends a line to the logs panel. Safe for concurrent use.
func (t *TViewApp) AddLog(message string, level string) {
	fmt.Fprint(t.logsArea, formatLogLine(message, level, time.Now()))
}

func formatLogLine(message, level string, now time.Time) string {
	var color, icon string

	switch level {
	case "error":
		color, icon = "[red]", "❌"
	case "warning":
		color, icon = "[yellow]", "⚠️"
	case "command":
		color, icon = "[cyan]", ">"
	default:
		color, icon = "[white]", "ℹ️"
	}

	return fmt.Sprintf("%s[%s] %s %s[white]\n", color, now.Format("15:04:05"), icon, tview.Escape(message))
}

// LogWriter creates an io.Writer that writes to the logs panel
func (t *TViewApp) LogWriter() io.Writer {
	return &tviewLogWriter{app: t}
}

type tviewLogWriter struct {
	app *TViewApp
}

func (w *tviewLogWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(strings.TrimSpace(string(p)), "\n") {
		if line == "" {
			continue
		}
		level := "info"
		switch {
		case strings.Contains(line, "\tERROR\t"):
			level = "error"
		case strings.Contains(line, "\tWARN\t"):
			level = "warning"
		}
		w.app.AddLog(line, level)
	}
	return len(p), nil
}
