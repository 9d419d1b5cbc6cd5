package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for input and output.
const DateLayout = "2006-01-02"

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2)

	if title != "" {
		return boxStyle.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// Qty prints a quantity without trailing zeros.
func Qty(d decimal.Decimal) string {
	return d.String()
}

// Money prints an amount with two decimals and thousands separators.
func Money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// Date prints an optional calendar date, or a dim dash when unset.
func Date(t *time.Time) string {
	if t == nil {
		return Dim("-")
	}
	return t.Format(DateLayout)
}

// Span prints a planned or actual date range.
func Span(start, end *time.Time) string {
	if start == nil && end == nil {
		return Dim("-")
	}
	return Date(start) + " → " + Date(end)
}

// ScopeLabel names an inventory scope, with the pool shown as "pool".
func ScopeLabel(projectID string) string {
	if projectID == domain.PoolScope {
		return StylePurple.Render("pool")
	}
	return projectID
}

// Optional dereferences s, or returns a dim dash when nil or empty.
func Optional(s *string) string {
	if s == nil || *s == "" {
		return Dim("-")
	}
	return *s
}

// KeyValues renders label/value pairs with the labels aligned.
func KeyValues(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}
	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "%s  %s\n", Dim(p[0]+strings.Repeat(" ", width-lipgloss.Width(p[0]))), p[1])
	}
	return b.String()
}
