package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen      = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow     = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleYellowBold = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	StyleRed        = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue       = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple     = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim        = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg         = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader     = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold       = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// DisableColor strips ANSI styling from all rendered output, for pipes and
// redirected stdout.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}

// ProgressStatusPill returns a colored indicator for a progress item status.
func ProgressStatusPill(s domain.ProgressStatus) string {
	switch s {
	case domain.ProgressCompleted:
		return StyleGreen.Render("✔ completed")
	case domain.ProgressInProgress:
		return StyleYellowBold.Render("▶ in progress")
	case domain.ProgressPaused:
		return StyleYellow.Render("‖ paused")
	case domain.ProgressNotStarted:
		return StyleDim.Render("○ not started")
	default:
		return StyleDim.Render(string(s))
	}
}

// TransferStatusPill returns a colored indicator for a transfer request status.
func TransferStatusPill(s domain.TransferStatus) string {
	switch s {
	case domain.TransferApproved:
		return StyleGreen.Render("● approved")
	case domain.TransferPending:
		return StyleYellow.Render("○ pending")
	case domain.TransferRejected:
		return StyleRed.Render("✖ rejected")
	case domain.TransferDraft:
		return StyleDim.Render("◌ draft")
	default:
		return StyleDim.Render(string(s))
	}
}

// PriorityBadge colors a transfer priority by urgency.
func PriorityBadge(p domain.TransferPriority) string {
	switch p {
	case domain.PriorityUrgent:
		return StyleRed.Render(string(p))
	case domain.PriorityHigh:
		return StyleYellow.Render(string(p))
	case domain.PriorityLow:
		return StyleDim.Render(string(p))
	default:
		return StyleFg.Render(string(p))
	}
}
