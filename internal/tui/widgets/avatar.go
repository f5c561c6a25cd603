// ABOUTME: Avatar initials and display-name truncation for the header

package widgets

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/collabfs/collabfs-cli/internal/tui/styles"
)

// MaxNameLength is the longest username shown in full
const MaxNameLength = 20

// Initials takes the first letter of up to two words, uppercased.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// DisplayName shortens names longer than MaxNameLength to 17 characters plus "...".
func DisplayName(name string) string {
	if utf8.RuneCountInString(name) <= MaxNameLength {
		return name
	}
	r := []rune(name)
	return string(r[:MaxNameLength-3]) + "..."
}

// Avatar renders the initials as a small badge followed by the display name
func Avatar(name string) string {
	initials := lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Render(Initials(name))
	return initials + " " + DisplayName(name)
}
