// ABOUTME: Icon system with Nerd Font detection and Unicode fallback
// ABOUTME: Provides consistent iconography across different terminal capabilities

package icons

import (
	"os"
	"strings"
	"sync"
)

var (
	useNerdFonts     bool
	nerdFontDetected sync.Once
)

// detectNerdFonts checks if Nerd Fonts should be used
func detectNerdFonts() bool {
	// Explicit override via environment variable
	if env := os.Getenv("COLLABFS_NERD_FONTS"); env != "" {
		return env == "1" || strings.ToLower(env) == "true"
	}

	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	nerdFontTerminals := []string{
		"iTerm.app",
		"alacritty",
		"WezTerm",
		"kitty",
		"ghostty",
	}

	for _, t := range nerdFontTerminals {
		if strings.Contains(termProgram, t) || strings.Contains(term, strings.ToLower(t)) {
			return true
		}
	}

	if os.Getenv("NERD_FONTS") == "1" {
		return true
	}

	return false
}

// HasNerdFonts returns true if Nerd Fonts are available
func HasNerdFonts() bool {
	nerdFontDetected.Do(func() {
		useNerdFonts = detectNerdFonts()
	})
	return useNerdFonts
}

// Icon represents an icon with Nerd Font and Unicode fallback variants
type Icon struct {
	NerdFont string
	Fallback string
}

// String returns the appropriate icon based on font availability
func (i Icon) String() string {
	if HasNerdFonts() {
		return i.NerdFont
	}
	return i.Fallback
}

var (
	// Sections
	Home    = Icon{"󰋜", "⌂"} // nf-md-home
	Starred = Icon{"󰓎", "★"} // nf-md-star
	Storage = Icon{"󰋊", "■"} // nf-md-harddisk
	Search  = Icon{"󰍉", "⌕"} // nf-md-magnify

	// Groups
	Star       = Icon{"󰓎", "★"} // nf-md-star
	StarEmpty  = Icon{"󰓒", "☆"} // nf-md-star_outline
	Documents  = Icon{"󰈙", "▤"} // nf-md-file_document
	Photos     = Icon{"󰋩", "▨"} // nf-md-image
	Videos     = Icon{"󰕧", "▶"} // nf-md-video
	Audio      = Icon{"󰝚", "♪"} // nf-md-music
	OtherFiles = Icon{"󰈔", "▫"} // nf-md-file

	// Status indicators
	CheckOK  = Icon{"", "✓"} // nf-oct-check_circle
	Warning  = Icon{"", "⚠"} // nf-oct-alert
	Critical = Icon{"", "✗"} // nf-oct-x_circle
	Info     = Icon{"", "ℹ"} // nf-oct-info

	// Auth
	User = Icon{"󰀄", "◉"} // nf-md-account
	Mail = Icon{"󰇮", "✉"} // nf-md-email
	Lock = Icon{"󰌾", "⚿"} // nf-md-lock
	Key  = Icon{"󰌆", "⚷"} // nf-md-key

	// Actions
	Plus = Icon{"󰐕", "+"} // nf-md-plus

	// Application
	App = Icon{"󰉋", "◈"} // nf-md-folder
)

// FileType returns the icon for a storage file category
func FileType(name string) Icon {
	switch name {
	case "documents":
		return Documents
	case "photos":
		return Photos
	case "videos":
		return Videos
	case "audio":
		return Audio
	default:
		return OtherFiles
	}
}
