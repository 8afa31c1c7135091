// Package screens holds the full-screen views of the dashboard
package screens

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/thereceipt/ticket-engine/internal/printer"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
)

const noDepartment = "(none)"

// RegistryEditor edits the persisted printer name and department
type RegistryEditor struct {
	app              *tview.Application
	manager          *printer.Manager
	form             *tview.Form
	list             *tview.List
	details          *tview.TextView
	layout           *tview.Flex
	printerIDs       []string
	currentPrinterID string
}

// NewRegistryEditor creates a new registry editor screen
func NewRegistryEditor(app *tview.Application, manager *printer.Manager) *RegistryEditor {
	r := &RegistryEditor{
		app:     app,
		manager: manager,
	}

	r.setupUI()
	return r
}

func departmentOptions() []string {
	options := []string{noDepartment}
	for _, d := range ticketformat.Departments {
		options = append(options, string(d))
	}
	return options
}

func (r *RegistryEditor) setupUI() {
	r.list = tview.NewList()
	r.list.SetBorder(true)
	r.list.SetTitle("Printers")
	r.list.SetChangedFunc(func(index int, _, _ string, _ rune) {
		r.selectPrinter(index)
	})
	r.list.SetSelectedFunc(func(index int, _, _ string, _ rune) {
		r.selectPrinter(index)
		r.app.SetFocus(r.form)
	})

	r.details = tview.NewTextView()
	r.details.SetBorder(true)
	r.details.SetTitle("Printer Details")
	r.details.SetDynamicColors(true)

	r.form = tview.NewForm()
	r.form.SetBorder(true)
	r.form.SetTitle("Edit Printer")
	r.form.AddInputField("Name", "", 30, nil, nil)
	r.form.AddDropDown("Department", departmentOptions(), 0, nil)
	r.form.AddButton("Save", func() {
		r.save()
	})
	r.form.AddButton("Cancel", func() {
		r.app.SetFocus(r.list)
	})

	rightPanel := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(r.details, 0, 1, false).
		AddItem(r.form, 0, 1, false)

	r.layout = tview.NewFlex().
		AddItem(r.list, 0, 1, true).
		AddItem(rightPanel, 0, 2, false)

	r.list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'r':
				r.Refresh()
				return nil
			case 'e':
				if r.list.GetItemCount() > 0 {
					r.selectPrinter(r.list.GetCurrentItem())
					r.app.SetFocus(r.form)
				}
				return nil
			}
		}
		return event
	})

	r.Refresh()
}

// Refresh reloads the printer list, keeping the current selection
func (r *RegistryEditor) Refresh() {
	current := r.currentPrinterID

	r.list.Clear()
	r.printerIDs = r.printerIDs[:0]

	for _, p := range r.manager.GetAllPrinters() {
		dept := "unassigned"
		if p.Department != "" {
			dept = string(p.Department)
		}
		r.printerIDs = append(r.printerIDs, p.ID)
		r.list.AddItem("🟢 "+p.DisplayName(), fmt.Sprintf("%s • %s", strings.ToUpper(p.Type), dept), 0, nil)
	}

	if len(r.printerIDs) == 0 {
		r.currentPrinterID = ""
		r.details.SetText("[yellow]No printers known yet[white]")
		return
	}

	for i, id := range r.printerIDs {
		if id == current {
			r.list.SetCurrentItem(i)
			r.selectPrinter(i)
			return
		}
	}
	r.selectPrinter(0)
}

func (r *RegistryEditor) selectPrinter(index int) {
	if index < 0 || index >= len(r.printerIDs) {
		return
	}

	p := r.manager.GetPrinter(r.printerIDs[index])
	if p == nil {
		return
	}

	settings := "defaults"
	if s := r.manager.SettingsFor(p.ID); s != nil {
		settings = fmt.Sprintf("%dmm, %d cop(ies), qr=%t cut=%t buzzer=%t",
			s.PaperWidth, s.Copies, s.IncludeQRCode, s.PaperCut, s.Buzzer)
	}

	r.details.SetText(fmt.Sprintf(`[yellow]ID:[white] %s
[yellow]Type:[white] %s
[yellow]Description:[white] %s
[yellow]Device:[white] %s
[yellow]Name:[white] %s
[yellow]Department:[white] %s
[yellow]Settings:[white] %s

[yellow]Press 'e' to edit, 'r' to refresh`,
		p.ID,
		strings.ToUpper(p.Type),
		tview.Escape(p.Description),
		p.Device,
		tview.Escape(p.Name),
		p.Department,
		settings))

	r.form.GetFormItem(0).(*tview.InputField).SetText(p.Name)

	option := 0
	for i, d := range departmentOptions() {
		if d == string(p.Department) {
			option = i
		}
	}
	r.form.GetFormItem(1).(*tview.DropDown).SetCurrentOption(option)

	r.currentPrinterID = p.ID
}

func (r *RegistryEditor) save() {
	if r.currentPrinterID == "" {
		r.details.SetText("[red]✗ No printer selected[white]")
		return
	}

	name := strings.TrimSpace(r.form.GetFormItem(0).(*tview.InputField).GetText())
	_, option := r.form.GetFormItem(1).(*tview.DropDown).GetCurrentOption()

	dept := ticketformat.Department(option)
	if option == noDepartment {
		dept = ""
	}

	if !r.manager.SetPrinterName(r.currentPrinterID, name) || !r.manager.SetPrinterDepartment(r.currentPrinterID, dept) {
		r.details.SetText(fmt.Sprintf("[red]✗ Printer not found: %s[white]\n\n[yellow]Press 'r' to refresh[white]", r.currentPrinterID))
		return
	}

	r.Refresh()
	r.app.SetFocus(r.list)
}

// GetRoot returns the root primitive for this screen
func (r *RegistryEditor) GetRoot() tview.Primitive {
	return r.layout
}
