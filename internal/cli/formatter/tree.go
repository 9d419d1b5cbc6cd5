package formatter

import (
	"strings"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// TreeItem is one line of a rendered WBS tree.
type TreeItem struct {
	Index  string
	Title  string
	Level  int
	IsLast bool
	Status domain.ProgressStatus
	Badge  string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
	treeBlank  = "   "
)

// RenderTree draws items as an indented tree with box-drawing connectors.
// Items must be in depth-first order with Level and IsLast filled in, as
// OutlineItems produces them. Badges are right-aligned.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	contents := make([]string, len(items))
	widest := 0
	// open[level] is true while an ancestor at that level has later siblings.
	var open []bool
	for idx, item := range items {
		var prefix strings.Builder
		if item.Level > 0 {
			for l := 1; l < item.Level; l++ {
				if l < len(open) && open[l] {
					prefix.WriteString(treePipe)
				} else {
					prefix.WriteString(treeBlank)
				}
			}
			if item.IsLast {
				prefix.WriteString(treeCorner)
			} else {
				prefix.WriteString(treeBranch)
			}
		}
		for len(open) <= item.Level {
			open = append(open, false)
		}
		open[item.Level] = !item.IsLast

		title := StyleBlue.Render(item.Index) + " " + item.Title
		switch item.Status {
		case domain.ProgressCompleted:
			title = StyleGreen.Render("✔ ") + Dim(item.Index+" "+item.Title)
		case domain.ProgressInProgress:
			title = StyleYellowBold.Render("▶ " + item.Index + " " + item.Title)
		}
		contents[idx] = prefix.String() + title
		widest = max(widest, lipgloss.Width(contents[idx]))
	}

	var b strings.Builder
	for idx, item := range items {
		b.WriteString(contents[idx])
		if item.Badge != "" {
			b.WriteString(strings.Repeat(" ", widest-lipgloss.Width(contents[idx])+2))
			b.WriteString(StyleDim.Render("[ " + item.Badge + " ]"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// OutlineItems converts a tree outline into renderable lines. badge may be
// nil.
func OutlineItems(outline []domain.OutlineEntry, badge func(*domain.PlanItem) string) []TreeItem {
	out := make([]TreeItem, 0, len(outline))
	for _, e := range outline {
		ti := TreeItem{Index: e.Item.Index, Title: e.Item.Name, Level: e.Depth, IsLast: e.IsLast}
		if badge != nil {
			ti.Badge = badge(e.Item)
		}
		out = append(out, ti)
	}
	return out
}
