package formatter

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a percent complete (0..100) as a bar like
// [████░░░░]  45%. Green above 66%, yellow from 33%, red below.
func RenderProgress(pct decimal.Decimal, width int) string {
	f := pct.InexactFloat64() / 100
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	if width < 2 {
		width = 2
	}

	filled := int(f * float64(width))
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	if f < 0.33 {
		style = StyleRed
	} else if f < 0.66 {
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %3s%%", style.Render(bar), pct.Round(0).String())
}
