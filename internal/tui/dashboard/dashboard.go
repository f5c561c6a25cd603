// ABOUTME: Groups dashboard: section sidebar, storage bar, search and group list
// ABOUTME: Loads asynchronously; only the newest request's results are applied

package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/collabfs/collabfs-cli/internal/groups"
	"github.com/collabfs/collabfs-cli/internal/session"
	"github.com/collabfs/collabfs-cli/internal/tui/authforms"
	"github.com/collabfs/collabfs-cli/internal/tui/icons"
	"github.com/collabfs/collabfs-cli/internal/tui/styles"
	"github.com/collabfs/collabfs-cli/internal/tui/widgets"
)

// DebounceDelay is how long typing must pause before a search is sent
const DebounceDelay = 300 * time.Millisecond

const sidebarWidth = 28

// LoadedMsg carries the result of a dashboard load
type LoadedMsg struct {
	Seq  int
	Data *groups.Dashboard
	Err  error
}

type debounceMsg struct {
	seq int
}

type starredMsg struct {
	seq  int
	list []groups.Group
	err  error
}

type createdMsg struct {
	name string
	err  error
}

type keyMap struct {
	Up, Down, NextSection, PrevSection, Search, Star, Create, Reload key.Binding
}

var keys = keyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k")),
	Down:        key.NewBinding(key.WithKeys("down", "j")),
	NextSection: key.NewBinding(key.WithKeys("tab")),
	PrevSection: key.NewBinding(key.WithKeys("shift+tab")),
	Search:      key.NewBinding(key.WithKeys("/")),
	Star:        key.NewBinding(key.WithKeys("s")),
	Create:      key.NewBinding(key.WithKeys("n")),
	Reload:      key.NewBinding(key.WithKeys("r")),
}

// Dashboard is the signed-in home screen
type Dashboard struct {
	api   groups.API
	user  session.UserData
	limit int64

	section groups.Section
	list    []groups.Group
	used    int64
	cursor  int
	offset  int

	search    textinput.Model
	searching bool

	// seq identifies the newest request; older results are dropped
	seq     int
	loading bool
	spinner spinner.Model

	create  *huh.Form
	newName string
	newDesc string

	err    string
	notice string
	width  int
	height int
}

// New creates the dashboard for user showing the home section
func New(api groups.API, user session.UserData, limit int64) *Dashboard {
	search := textinput.New()
	search.Prompt = icons.Search.String() + " "
	search.CharLimit = 100

	d := &Dashboard{
		api:     api,
		user:    user,
		limit:   limit,
		section: groups.SectionHome,
		search:  search,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	d.search.Placeholder = d.section.Placeholder()
	return d
}

// SetSize updates the dashboard dimensions
func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// Section returns the active section
func (d *Dashboard) Section() groups.Section {
	return d.section
}

// Groups returns the groups currently shown
func (d *Dashboard) Groups() []groups.Group {
	return d.list
}

// Typing reports whether keys currently go to a text field
func (d *Dashboard) Typing() bool {
	return d.searching || d.create != nil
}

// Init implements tea.Model
func (d *Dashboard) Init() tea.Cmd {
	return d.reload()
}

// reload starts a load of the active section and query right away
func (d *Dashboard) reload() tea.Cmd {
	d.seq++
	return tea.Batch(d.fetch(d.seq), d.spinner.Tick)
}

func (d *Dashboard) fetch(seq int) tea.Cmd {
	d.loading = true
	api, section, userID, query, limit := d.api, d.section, d.user.ID, d.search.Value(), d.limit
	return func() tea.Msg {
		data, err := groups.LoadDashboard(context.Background(), api, section, userID, query, limit)
		return LoadedMsg{Seq: seq, Data: data, Err: err}
	}
}

// SetSection switches sections and reloads
func (d *Dashboard) SetSection(s groups.Section) tea.Cmd {
	d.section = s
	d.search.Placeholder = s.Placeholder()
	d.cursor, d.offset = 0, 0
	d.notice = ""
	return d.reload()
}

func (d *Dashboard) shiftSection(delta int) tea.Cmd {
	idx := 0
	for i, s := range groups.Sections {
		if s == d.section {
			idx = i
		}
	}
	n := len(groups.Sections)
	return d.SetSection(groups.Sections[(idx+delta+n)%n])
}

// Update implements tea.Model
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Seq != d.seq {
			return d, nil
		}
		d.loading = false
		if msg.Err != nil {
			d.err = msg.Err.Error()
			return d, nil
		}
		d.err = ""
		d.list = msg.Data.Groups
		d.used = msg.Data.StorageUsed
		d.clampCursor()
		return d, nil

	case debounceMsg:
		if msg.seq != d.seq {
			return d, nil
		}
		return d, tea.Batch(d.fetch(msg.seq), d.spinner.Tick)

	case starredMsg:
		if msg.seq != d.seq {
			return d, nil
		}
		d.list = msg.list
		if msg.err != nil {
			d.err = msg.err.Error()
			return d, nil
		}
		d.err = ""
		if d.section == groups.SectionStarred {
			return d, d.reload()
		}
		return d, nil

	case createdMsg:
		if msg.err != nil {
			d.err = msg.err.Error()
			return d, nil
		}
		d.err = ""
		d.notice = fmt.Sprintf("Group %q created", msg.name)
		return d, d.reload()

	case spinner.TickMsg:
		if !d.loading {
			return d, nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd

	case tea.KeyMsg:
		if d.create != nil {
			return d.updateCreate(msg)
		}
		if d.searching {
			return d.updateSearch(msg)
		}
		return d.updateKeys(msg)
	}

	if d.create != nil {
		return d.updateCreate(msg)
	}
	return d, nil
}

func (d *Dashboard) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if d.cursor > 0 {
			d.cursor--
		}
	case key.Matches(msg, keys.Down):
		if d.cursor < len(d.list)-1 {
			d.cursor++
		}
	case key.Matches(msg, keys.NextSection):
		return d, d.shiftSection(1)
	case key.Matches(msg, keys.PrevSection):
		return d, d.shiftSection(-1)
	case key.Matches(msg, keys.Search):
		d.searching = true
		return d, d.search.Focus()
	case key.Matches(msg, keys.Star):
		return d, d.toggleStar()
	case key.Matches(msg, keys.Create):
		return d, d.openCreate()
	case key.Matches(msg, keys.Reload):
		return d, d.reload()
	default:
		switch msg.String() {
		case "1", "2", "3":
			return d, d.SetSection(groups.Sections[msg.String()[0]-'1'])
		}
	}
	return d, nil
}

// updateSearch feeds the search box and debounces the request
func (d *Dashboard) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		d.searching = false
		d.search.Blur()
		return d, nil
	case "enter":
		d.searching = false
		d.search.Blur()
		return d, d.reload()
	}

	before := d.search.Value()
	var cmd tea.Cmd
	d.search, cmd = d.search.Update(msg)
	if d.search.Value() == before {
		return d, cmd
	}

	d.seq++
	seq := d.seq
	return d, tea.Batch(cmd, tea.Tick(DebounceDelay, func(time.Time) tea.Msg {
		return debounceMsg{seq: seq}
	}))
}

func (d *Dashboard) toggleStar() tea.Cmd {
	if len(d.list) == 0 {
		return nil
	}
	id := d.list[d.cursor].ID
	seq, api, userID, list := d.seq, d.api, d.user.ID, d.list

	// Show the flip now; starredMsg confirms or rolls it back.
	flipped := make([]groups.Group, len(list))
	copy(flipped, list)
	flipped[d.cursor].Starred = !flipped[d.cursor].Starred
	d.list = flipped

	return func() tea.Msg {
		out, err := groups.ToggleStar(context.Background(), api, userID, list, id)
		return starredMsg{seq: seq, list: out, err: err}
	}
}

func (d *Dashboard) openCreate() tea.Cmd {
	d.newName, d.newDesc = "", ""
	d.create = d.buildCreateForm()
	return d.create.Init()
}

func (d *Dashboard) buildCreateForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Group name").
				Value(&d.newName),
			huh.NewText().
				Title("Description").
				Description(fmt.Sprintf("Optional, up to %d characters", groups.MaxDescriptionLength)).
				CharLimit(groups.MaxDescriptionLength).
				Value(&d.newDesc),
		).Title(icons.Plus.String() + " New group"),
	).WithTheme(authforms.Theme()).WithShowHelp(false)
}

func (d *Dashboard) updateCreate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		d.create = nil
		return d, nil
	}

	form, cmd := d.create.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.create = f
	}
	if d.create.State != huh.StateCompleted {
		return d, cmd
	}

	name, desc := d.newName, d.newDesc
	if err := groups.ValidateNewGroup(name, desc); err != nil {
		d.err = err.Error()
		d.create = d.buildCreateForm()
		return d, d.create.Init()
	}
	d.create = nil
	api, userID := d.api, d.user.ID
	return d, func() tea.Msg {
		_, err := groups.Create(context.Background(), api, userID, name, desc)
		return createdMsg{name: strings.TrimSpace(name), err: err}
	}
}

func (d *Dashboard) clampCursor() {
	if d.cursor >= len(d.list) {
		d.cursor = len(d.list) - 1
	}
	if d.cursor < 0 {
		d.cursor = 0
	}
}

// View renders the dashboard
func (d *Dashboard) View() string {
	mainWidth := d.width - sidebarWidth - 4
	if mainWidth < 30 {
		mainWidth = 30
	}
	sidebar := styles.Panel.Width(sidebarWidth).Render(d.viewSidebar())
	main := styles.ActivePanel.Width(mainWidth).Render(d.viewMain(mainWidth - 4))
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
}

func (d *Dashboard) viewSidebar() string {
	var sb strings.Builder
	sectionIcons := map[groups.Section]icons.Icon{
		groups.SectionHome:    icons.Home,
		groups.SectionStarred: icons.Starred,
		groups.SectionStorage: icons.Storage,
	}
	for i, s := range groups.Sections {
		line := fmt.Sprintf("%d %s %s", i+1, sectionIcons[s].String(), s.Title())
		if s == d.section {
			line = styles.Selected.Render(line)
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(styles.Subtitle.Render("Storage"))
	sb.WriteString("\n")
	sb.WriteString(widgets.StorageBar(d.used, d.limit, sidebarWidth-4))
	return sb.String()
}

func (d *Dashboard) viewMain(width int) string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render(d.section.Title()))
	sb.WriteString("\n")
	sb.WriteString(d.search.View())
	sb.WriteString("\n\n")

	if d.create != nil {
		sb.WriteString(d.create.View())
		sb.WriteString(d.viewMessages())
		return sb.String()
	}

	switch {
	case d.loading && len(d.list) == 0:
		sb.WriteString(d.spinner.View() + " Loading groups...")
	case len(d.list) == 0:
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render("No groups found"))
	default:
		sb.WriteString(d.viewRows(width))
	}
	sb.WriteString(d.viewMessages())
	return sb.String()
}

func (d *Dashboard) viewMessages() string {
	var sb strings.Builder
	if d.err != "" {
		sb.WriteString("\n\n" + widgets.StatusText(d.err, widgets.StatusCritical))
	}
	if d.notice != "" {
		sb.WriteString("\n\n" + widgets.StatusText(d.notice, widgets.StatusOK))
	}
	return sb.String()
}

// visibleRows is how many group rows fit on screen
func (d *Dashboard) visibleRows() int {
	rowHeight := 1
	if d.section == groups.SectionStorage {
		rowHeight = 2
	}
	n := (d.height - 8) / rowHeight
	if n < 3 {
		n = 3
	}
	return n
}

func (d *Dashboard) viewRows(width int) string {
	rows := d.visibleRows()
	if d.cursor < d.offset {
		d.offset = d.cursor
	}
	if d.cursor >= d.offset+rows {
		d.offset = d.cursor - rows + 1
	}
	end := d.offset + rows
	if end > len(d.list) {
		end = len(d.list)
	}

	muted := lipgloss.NewStyle().Foreground(styles.Muted)
	star := lipgloss.NewStyle().Foreground(styles.Star)

	var lines []string
	for i := d.offset; i < end; i++ {
		g := d.list[i]
		mark := muted.Render(icons.StarEmpty.String())
		if g.Starred {
			mark = star.Render(icons.Star.String())
		}
		name := g.Name
		if i == d.cursor {
			name = styles.Selected.Render(name)
		}

		if d.section == groups.SectionStorage {
			lines = append(lines, fmt.Sprintf("%s %s  %s", mark, name, groups.FormatBytes(g.Storage.Used, 1)))
			var counts []string
			for _, ft := range groups.FileTypes {
				counts = append(counts, fmt.Sprintf("%s %d", icons.FileType(ft).String(), g.Storage.Files.Count(ft)))
			}
			lines = append(lines, muted.Render("    "+strings.Join(counts, "  ")))
			continue
		}
		line := fmt.Sprintf("%s %s %s", mark, name, widgets.RoleBadge(g.Role))
		modified := muted.Render(g.LastModified)
		pad := width - lipgloss.Width(line) - lipgloss.Width(modified)
		if pad < 1 {
			pad = 1
		}
		lines = append(lines, line+strings.Repeat(" ", pad)+modified)
	}
	return strings.Join(lines, "\n")
}
