// ABOUTME: Storage usage bar for the dashboard sidebar
// ABOUTME: Color follows usage: blue, orange above 75%, red above 90%

package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/collabfs/collabfs-cli/internal/groups"
	"github.com/collabfs/collabfs-cli/internal/tui/styles"
)

// ProgressBar renders percent as a filled bar of width cells
func ProgressBar(percent float64, width int, color lipgloss.Color) string {
	if width <= 0 {
		width = 20
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))

	var bar strings.Builder
	filledStyle := lipgloss.NewStyle().Foreground(color)
	emptyStyle := lipgloss.NewStyle().Foreground(styles.Surface)
	bar.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	bar.WriteString(emptyStyle.Render(strings.Repeat("░", width-filled)))
	return bar.String()
}

// StorageBar renders the used/total block: a colored bar and a
// "1.5 GB of 15 GB used" caption.
func StorageBar(used, total int64, width int) string {
	percent := groups.UsagePercent(used, total)
	bar := ProgressBar(percent, width, styles.UsageColor(percent))
	caption := fmt.Sprintf("%s of %s used", groups.FormatBytes(used, 2), groups.FormatBytes(total, 2))
	return bar + "\n" + lipgloss.NewStyle().Foreground(styles.Muted).Render(caption)
}
