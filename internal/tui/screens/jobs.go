package screens

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/thereceipt/ticket-engine/internal/printer"
)

// JobsView shows detailed information about print jobs
type JobsView struct {
	app     *tview.Application
	queue   *printer.PrintQueue
	table   *tview.Table
	details *tview.TextView
	layout  *tview.Flex
	jobIDs  []string
}

// NewJobsView creates a new jobs view screen
func NewJobsView(app *tview.Application, queue *printer.PrintQueue) *JobsView {
	j := &JobsView{
		app:   app,
		queue: queue,
	}

	j.setupUI()
	return j
}

func (j *JobsView) setupUI() {
	j.table = tview.NewTable()
	j.table.SetBorder(true)
	j.table.SetTitle("Print Jobs")
	j.table.SetSelectable(true, false)
	j.table.SetFixed(1, 0)
	j.table.SetSelectedFunc(func(row, column int) {
		j.selectJob(row)
	})

	j.details = tview.NewTextView()
	j.details.SetBorder(true)
	j.details.SetTitle("Job Details")
	j.details.SetDynamicColors(true)

	j.layout = tview.NewFlex().
		AddItem(j.table, 0, 2, true).
		AddItem(j.details, 0, 1, false)

	j.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'r':
				j.Refresh()
				return nil
			case 'c':
				j.clearCompleted()
				return nil
			}
		}
		return event
	})

	j.Refresh()
}

// Refresh reloads the job table
func (j *JobsView) Refresh() {
	j.table.Clear()

	headers := []string{"ID", "Order", "Printer", "Status", "Copies", "Retries", "Age"}
	for col, h := range headers {
		j.table.SetCell(0, col, tview.NewTableCell(h).SetAlign(tview.AlignCenter).SetSelectable(false))
	}

	jobs := j.queue.GetAllJobs()
	j.jobIDs = make([]string, len(jobs))

	for i, job := range jobs {
		row := i + 1
		j.jobIDs[i] = job.ID

		j.table.SetCell(row, 0, tview.NewTableCell(shortID(job.ID)))
		j.table.SetCell(row, 1, tview.NewTableCell(job.OrderNumber))
		j.table.SetCell(row, 2, tview.NewTableCell(shortID(job.PrinterID)))
		j.table.SetCell(row, 3, tview.NewTableCell(StatusIcon(job.Status)+" "+job.Status))
		j.table.SetCell(row, 4, tview.NewTableCell(fmt.Sprintf("%d/%d", job.Printed, job.Copies)))
		j.table.SetCell(row, 5, tview.NewTableCell(fmt.Sprintf("%d", job.Retries)))
		j.table.SetCell(row, 6, tview.NewTableCell(time.Since(job.CreatedAt).Truncate(time.Second).String()))
	}

	if len(jobs) == 0 {
		j.details.SetText("[yellow]No jobs in queue[white]")
	}
}

func (j *JobsView) selectJob(row int) {
	if row < 1 || row > len(j.jobIDs) {
		return
	}

	job, err := j.queue.GetJob(j.jobIDs[row-1])
	if err != nil {
		j.details.SetText(fmt.Sprintf("[red]%v[white]\n\n[yellow]Press 'r' to refresh[white]", err))
		return
	}

	var details strings.Builder
	fmt.Fprintf(&details, "[yellow]Job ID:[white] %s\n", job.ID)
	fmt.Fprintf(&details, "[yellow]Order:[white] %s\n", job.OrderNumber)
	fmt.Fprintf(&details, "[yellow]Printer ID:[white] %s\n", job.PrinterID)
	fmt.Fprintf(&details, "[yellow]Status:[white] %s %s\n", StatusIcon(job.Status), job.Status)
	fmt.Fprintf(&details, "[yellow]Copies:[white] %d of %d printed\n", job.Printed, job.Copies)
	fmt.Fprintf(&details, "[yellow]Size:[white] %d bytes\n", len(job.Data))
	fmt.Fprintf(&details, "[yellow]Retries:[white] %d\n", job.Retries)
	fmt.Fprintf(&details, "[yellow]Created:[white] %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))

	if job.Error != nil {
		fmt.Fprintf(&details, "\n[red]Error:[white] %s\n", tview.Escape(job.Error.Error()))
	}

	details.WriteString("\n[yellow]Press 'r' to refresh, 'c' to clear completed[white]")

	j.details.SetText(details.String())
}

func (j *JobsView) clearCompleted() {
	removed := j.queue.ClearCompleted()
	j.Refresh()
	j.details.SetText(fmt.Sprintf("[green]Cleared %d completed job(s)[white]", removed))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// StatusIcon returns the icon shown next to a job status
func StatusIcon(status string) string {
	switch status {
	case printer.JobQueued:
		return "⏳"
	case printer.JobPrinting:
		return "🟡"
	case printer.JobCompleted:
		return "✅"
	case printer.JobFailed:
		return "❌"
	default:
		return "⚪"
	}
}

// GetRoot returns the root primitive for this screen
func (j *JobsView) GetRoot() tview.Primitive {
	return j.layout
}
