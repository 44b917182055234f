package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Raytar/labhelp"
	"github.com/Raytar/labhelp/fsm"
	"github.com/Raytar/labhelp/models"
)

type styles struct {
	info    lipgloss.Style
	warning lipgloss.Style
	title   lipgloss.Style
	header  lipgloss.Style
	detail  lipgloss.Style
	empty   lipgloss.Style
	lights  map[string]lipgloss.Style
}

func newStyles() styles {
	return styles{
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		empty:   lipgloss.NewStyle().Faint(true),
		lights: map[string]lipgloss.Style{
			fsm.GreenLight:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
			fsm.YellowLight: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
			fsm.RedLight:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
			fsm.GreenOff:    lipgloss.NewStyle().Faint(true),
		},
	}
}

var lightNames = map[string]string{
	fsm.GreenLight:  "green",
	fsm.YellowLight: "yellow",
	fsm.RedLight:    "red",
	fsm.GreenOff:    "off",
}

// printer writes console output. It is also the observer of the joined
// actor, so it may be called from the actor's goroutine.
type printer struct {
	mu sync.Mutex
	w  io.Writer
	st styles
}

var _ labhelp.Observer = (*printer)(nil)

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, st: newStyles()}
}

func (p *printer) print(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, strings.TrimRight(s, "\n"))
}

func (p *printer) info(s string) { p.print(p.st.info.Render(s)) }

func (p *printer) warn(s string) { p.print(p.st.warning.Render(s)) }

func (p *printer) light(asset string) string {
	return p.st.lights[asset].Render("● " + lightNames[asset])
}

func (p *printer) OnStatusLightChanged(light string) {
	p.print("Status light: " + p.light(light))
}

func (p *printer) OnGroupStatusChanged(group, status string) {
	p.print(p.st.detail.Render(fmt.Sprintf("%s: %s", group, status)))
}

func (p *printer) OnQueueNumberChanged(n int) {
	p.info(fmt.Sprintf("Number in queue: %d", n))
}

func (p *printer) OnTAPresenceChanged(present bool) {
	if present {
		p.info("A TA is online")
		return
	}
	p.warn("Waiting for TAs to connect...")
}

func (p *printer) OnTasksReceived(tasks []models.Task) {
	var b strings.Builder
	b.WriteString(p.st.title.Render("Tasks") + "\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "%3d. %s %s\n", t.Number, t.Description, p.st.header.Render(fmt.Sprintf("(%d min)", t.Duration)))
	}
	p.print(b.String())
}

func (p *printer) OnHelpStateChanged(text string) {
	p.info(text)
}

func (p *printer) OnQueueChanged(queue []models.HelpRequest) {
	p.queue(queue)
}

func (p *printer) queue(queue []models.HelpRequest) {
	var b strings.Builder
	b.WriteString(p.st.title.Render("Help queue") + "\n")
	if len(queue) == 0 {
		b.WriteString(p.st.empty.Render("  empty"))
	}
	for i, r := range queue {
		fmt.Fprintf(&b, "%3d. %s %s %s\n", i+1, r.Time, p.st.title.Render(r.Group), r.Description)
	}
	p.print(b.String())
}

func (p *printer) assignments(assignments []models.Assignment) {
	if len(assignments) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(p.st.title.Render("Being helped") + "\n")
	for _, a := range assignments {
		fmt.Fprintf(&b, "  %s by %s: %s\n", p.st.title.Render(a.Group), a.TA, a.Description)
	}
	p.print(b.String())
}

func (p *printer) groups(groups []models.GroupStatus) {
	var b strings.Builder
	b.WriteString(p.st.header.Render(fmt.Sprintf("%-20s %s", "Group", "Current task")) + "\n")
	if len(groups) == 0 {
		b.WriteString(p.st.empty.Render("no groups present"))
	}
	for _, g := range groups {
		fmt.Fprintf(&b, "%-20s %s\n", g.Group, g.Status)
	}
	p.print(b.String())
}

func (p *printer) groupView(v labhelp.GroupView) {
	var b strings.Builder
	b.WriteString(p.st.title.Render(v.Name) + "\n")
	fmt.Fprintf(&b, "  state:  %s\n", v.State)
	if v.CurrentTask > 0 {
		t := v.Tasks[v.CurrentTask-1]
		fmt.Fprintf(&b, "  task:   %d of %d, %s\n", v.CurrentTask, len(v.Tasks), t.Description)
	} else {
		b.WriteString("  task:   " + p.st.empty.Render("awaiting tasks") + "\n")
	}
	if v.Light != fsm.LightIdle {
		fmt.Fprintf(&b, "  light:  %s\n", v.Light)
	}
	if v.QueueNumber > 0 {
		fmt.Fprintf(&b, "  queue:  %d\n", v.QueueNumber)
	}
	if !v.TAPresent {
		b.WriteString("  " + p.st.warning.Render("no TA online") + "\n")
	}
	p.print(b.String())
}

func (p *printer) history(records []*models.HelpRecord, count int, mean time.Duration) {
	var b strings.Builder
	b.WriteString(p.st.header.Render(fmt.Sprintf("%-10s %-16s %-12s %-10s %s", "Requested", "Group", "TA", "Result", "Description")) + "\n")
	for _, r := range records {
		result := "waiting"
		switch {
		case r.Done:
			result = r.Reason
		case r.Claimed:
			result = "claimed"
		}
		fmt.Fprintf(&b, "%-10s %-16s %-12s %-10s %s\n", r.RequestedAt, r.Group, r.AssistantName, result, r.Description)
	}
	fmt.Fprintf(&b, "%d requests claimed, mean wait %s\n", count, mean.Round(time.Second))
	p.print(b.String())
}
