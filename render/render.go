// Package render draws the state of a host page for a terminal: the glass
// overlay, loaded frames, alerts and the scripts the loader injected.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/bootloader/page"
)

// DefaultWidth is used when the terminal size is unknown.
const DefaultWidth = 80

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#FF6B6B")).
			Padding(0, 1)

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#666666")).
			Padding(1, 2)

	glassStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#000000")).
			Padding(1, 2)

	glassSummaryStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#000000"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// Renderer draws page state at a fixed width.
type Renderer struct {
	width int
}

// New creates a renderer. Widths below 20 select DefaultWidth.
func New(width int) *Renderer {
	if width < 20 {
		width = DefaultWidth
	}
	return &Renderer{width: width}
}

// Width returns the render width.
func (r *Renderer) Width() int {
	return r.width
}

// Overlay draws a glass message across the full width.
func (r *Renderer) Overlay(o page.Overlay) string {
	inner := r.width - glassStyle.GetHorizontalFrameSize()
	body := lipgloss.JoinVertical(lipgloss.Left,
		glassSummaryStyle.Render(o.Summary),
		"",
		lipgloss.NewStyle().Width(inner).Render(o.Text()),
	)
	return glassStyle.Width(r.width).Render(body)
}

// Frame draws a placeholder for a full-viewport frame.
func (r *Renderer) Frame(url string) string {
	inner := r.width - frameStyle.GetHorizontalFrameSize()
	return frameStyle.Width(inner).Render("frame: " + url)
}

// Alert draws a user alert.
func (r *Renderer) Alert(msg string) string {
	inner := r.width - alertStyle.GetHorizontalFrameSize()
	return alertStyle.Width(inner).Render("alert: " + msg)
}

// Page draws everything the loader did to p. Overlays and frames cover the
// page, so when either is present the injected resources are not listed.
func (r *Renderer) Page(p *page.Page) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(p.Title()))
	b.WriteString(" ")
	b.WriteString(p.Href())
	b.WriteString("\n\n")

	for _, msg := range p.Alerts() {
		b.WriteString(r.Alert(msg))
		b.WriteString("\n")
	}

	if ov := p.Overlays(); len(ov) > 0 {
		b.WriteString(r.Overlay(ov[len(ov)-1]))
		b.WriteString("\n")
		return b.String()
	}
	if frames := p.Frames(); len(frames) > 0 {
		b.WriteString(r.Frame(frames[len(frames)-1]))
		b.WriteString("\n")
		return b.String()
	}

	r.list(&b, "Scripts", p.Scripts())
	r.list(&b, "Stylesheets", p.Stylesheets())
	return b.String()
}

// Help draws a key help line.
func (r *Renderer) Help(keys ...string) string {
	return helpStyle.Render(strings.Join(keys, " • "))
}

func (r *Renderer) list(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(headingStyle.Render(fmt.Sprintf("%s (%d)", heading, len(items))))
	b.WriteString("\n")
	for _, it := range items {
		b.WriteString("  ")
		b.WriteString(itemStyle.Render(it))
		b.WriteString("\n")
	}
}
