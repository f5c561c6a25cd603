// ABOUTME: Tests for the dashboard model: stale loads, debounce, stars, create
// ABOUTME: Drives Update directly and runs returned commands synchronously

package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabfs/collabfs-cli/internal/client"
	"github.com/collabfs/collabfs-cli/internal/groups"
	"github.com/collabfs/collabfs-cli/internal/session"
)

type fakeAPI struct {
	mu      sync.Mutex
	calls   []string
	records []client.GroupRecord
	used    int64
	starErr error
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (f *fakeAPI) GroupStorage(_ context.Context, _ string) ([]client.GroupRecord, error) {
	f.record("storage")
	return f.records, nil
}

func (f *fakeAPI) StarredGroups(_ context.Context, _ string) ([]client.GroupRecord, error) {
	f.record("starred")
	var out []client.GroupRecord
	for _, r := range f.records {
		if r.Starred {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAPI) SearchGroups(_ context.Context, _, query string) ([]client.GroupRecord, error) {
	f.record("search " + query)
	var out []client.GroupRecord
	for _, r := range f.records {
		if strings.Contains(strings.ToLower(r.GroupName), strings.ToLower(query)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAPI) SearchGroupStorage(_ context.Context, _, query string) ([]client.GroupRecord, error) {
	f.record("searchstorage " + query)
	return f.records, nil
}

func (f *fakeAPI) UserStorage(_ context.Context, _ string) (*client.UserStorage, error) {
	return &client.UserStorage{StorageUsed: f.used}, nil
}

func (f *fakeAPI) StarGroup(_ context.Context, _, groupID string) error {
	f.record("star " + groupID)
	return f.starErr
}

func (f *fakeAPI) UnstarGroup(_ context.Context, _, groupID string) error {
	f.record("unstar " + groupID)
	return f.starErr
}

func (f *fakeAPI) CreateGroup(_ context.Context, _, name, _ string) (*client.CreateGroupResponse, error) {
	f.record("create " + name)
	return &client.CreateGroupResponse{GroupID: "g9"}, nil
}

func newAPI() *fakeAPI {
	return &fakeAPI{
		used: 3 << 30,
		records: []client.GroupRecord{
			{GroupID: "g1", GroupName: "Design", Role: "owner", LastModified: "1 day ago"},
			{GroupID: "g2", GroupName: "Research", Role: "member", Starred: true},
		},
	}
}

func pressKey(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loaded builds a dashboard and applies its first load
func loaded(t *testing.T, api *fakeAPI) *Dashboard {
	t.Helper()
	d := New(api, session.UserData{ID: "u1", Username: "alice"}, 15<<30)
	d.SetSize(100, 30)
	require.NotNil(t, d.Init())
	d.Update(d.fetch(d.seq)())
	require.Len(t, d.Groups(), 2)
	return d
}

func TestInitLoadsHome(t *testing.T) {
	api := newAPI()
	d := loaded(t, api)

	assert.Equal(t, groups.SectionHome, d.Section())
	assert.True(t, api.called("search "))

	view := d.View()
	assert.Contains(t, view, "My Groups")
	assert.Contains(t, view, "Design")
	assert.Contains(t, view, "Owner")
	assert.Contains(t, view, "3 GB of 15 GB used")
}

func TestStaleLoadIgnored(t *testing.T) {
	d := loaded(t, newAPI())

	stale := LoadedMsg{Seq: d.seq - 1, Data: &groups.Dashboard{Groups: nil}}
	d.Update(stale)
	assert.Len(t, d.Groups(), 2)

	d.Update(LoadedMsg{Seq: d.seq, Err: errors.New("boom")})
	assert.Contains(t, d.View(), "boom")
	assert.Len(t, d.Groups(), 2)
}

func TestSearchIsDebounced(t *testing.T) {
	api := newAPI()
	d := loaded(t, api)

	d.Update(pressKey("/"))
	require.True(t, d.Typing())

	d.Update(pressKey("r"))
	first := d.seq
	d.Update(pressKey("e"))
	latest := d.seq
	require.Greater(t, latest, first)

	_, cmd := d.Update(debounceMsg{seq: first})
	assert.Nil(t, cmd)

	_, cmd = d.Update(debounceMsg{seq: latest})
	require.NotNil(t, cmd)

	d.Update(d.fetch(latest)())
	assert.True(t, api.called("search re"))
	assert.False(t, api.called("search r"))
	require.Len(t, d.Groups(), 1)
	assert.Equal(t, "Research", d.Groups()[0].Name)

	d.Update(pressKey("esc"))
	assert.False(t, d.Typing())
}

func TestSectionKeys(t *testing.T) {
	d := loaded(t, newAPI())

	_, cmd := d.Update(pressKey("3"))
	require.NotNil(t, cmd)
	assert.Equal(t, groups.SectionStorage, d.Section())

	d.Update(pressKey("tab"))
	assert.Equal(t, groups.SectionHome, d.Section())

	d.Update(pressKey("2"))
	assert.Equal(t, groups.SectionStarred, d.Section())
	assert.Contains(t, d.View(), "Search in starred groups")
}

func TestStarToggle(t *testing.T) {
	api := newAPI()
	d := loaded(t, api)

	_, cmd := d.Update(pressKey("s"))
	require.NotNil(t, cmd)
	assert.True(t, d.Groups()[0].Starred, "flip shows before the backend replies")
	assert.False(t, api.called("star g1"))

	d.Update(cmd())
	assert.True(t, api.called("star g1"))
	assert.True(t, d.Groups()[0].Starred)
}

func TestStarToggleRollsBack(t *testing.T) {
	api := newAPI()
	api.starErr = &client.APIError{StatusCode: 500, Message: "Could not star group"}
	d := loaded(t, api)

	_, cmd := d.Update(pressKey("s"))
	assert.True(t, d.Groups()[0].Starred)

	d.Update(cmd())
	assert.False(t, d.Groups()[0].Starred)
	assert.Contains(t, d.View(), "Could not star group")
}

func TestUnstarInStarredSectionReloads(t *testing.T) {
	api := newAPI()
	d := loaded(t, api)
	d.Update(pressKey("2"))
	d.Update(d.fetch(d.seq)())
	require.Len(t, d.Groups(), 1)

	_, cmd := d.Update(pressKey("s"))
	_, reload := d.Update(cmd())
	assert.True(t, api.called("unstar g2"))
	assert.NotNil(t, reload)
}

func TestCreateGroup(t *testing.T) {
	api := newAPI()
	d := loaded(t, api)

	d.Update(pressKey("n"))
	require.True(t, d.Typing())
	assert.Contains(t, d.View(), "New group")

	d.newName = "  Team  "
	d.create.State = huh.StateCompleted
	_, cmd := d.Update(struct{}{})
	require.NotNil(t, cmd)
	assert.False(t, d.Typing())

	_, reload := d.Update(cmd())
	assert.True(t, api.called("create Team"))
	assert.NotNil(t, reload)
	assert.Contains(t, d.View(), `Group "Team" created`)
}

func TestCreateGroupRequiresName(t *testing.T) {
	api := newAPI()
	d := loaded(t, api)

	d.Update(pressKey("n"))
	d.create.State = huh.StateCompleted
	d.Update(struct{}{})

	assert.True(t, d.Typing())
	assert.Contains(t, d.View(), "Group name is required")
	assert.False(t, api.called("create "))
}

func TestCreateGroupCancel(t *testing.T) {
	d := loaded(t, newAPI())

	d.Update(pressKey("n"))
	d.Update(pressKey("esc"))
	assert.False(t, d.Typing())
}
