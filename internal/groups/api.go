// ABOUTME: Section routing, parallel dashboard loading and star toggling
// ABOUTME: Talks to the backend through the narrow API interface

package groups

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/collabfs/collabfs-cli/internal/client"
)

// MaxDescriptionLength bounds a new group's description, in characters
const MaxDescriptionLength = 1000

// API is the subset of the backend client used by the dashboard
type API interface {
	GroupStorage(ctx context.Context, userID string) ([]client.GroupRecord, error)
	StarredGroups(ctx context.Context, userID string) ([]client.GroupRecord, error)
	SearchGroups(ctx context.Context, userID, query string) ([]client.GroupRecord, error)
	SearchGroupStorage(ctx context.Context, userID, query string) ([]client.GroupRecord, error)
	UserStorage(ctx context.Context, userID string) (*client.UserStorage, error)
	StarGroup(ctx context.Context, userID, groupID string) error
	UnstarGroup(ctx context.Context, userID, groupID string) error
	CreateGroup(ctx context.Context, userID, name, description string) (*client.CreateGroupResponse, error)
}

// Section is one of the dashboard views
type Section string

const (
	SectionHome    Section = "home"
	SectionStarred Section = "starred"
	SectionStorage Section = "storage"
)

// Sections in sidebar order
var Sections = []Section{SectionHome, SectionStarred, SectionStorage}

func ParseSection(s string) (Section, error) {
	switch Section(strings.ToLower(s)) {
	case SectionHome, "":
		return SectionHome, nil
	case SectionStarred:
		return SectionStarred, nil
	case SectionStorage:
		return SectionStorage, nil
	}
	return "", fmt.Errorf("unknown section %q (want home, starred or storage)", s)
}

func (s Section) Title() string {
	switch s {
	case SectionStarred:
		return "Starred Groups"
	case SectionStorage:
		return "Group Storage"
	default:
		return "My Groups"
	}
}

// Placeholder is the hint shown in the empty search box
func (s Section) Placeholder() string {
	switch s {
	case SectionHome:
		return "Search in your groups"
	case SectionStarred:
		return "Search in starred groups"
	case SectionStorage:
		return "Search group storage"
	default:
		return "Search in CollabFS"
	}
}

// Load fetches the groups shown in section. A blank query lists everything;
// starred search is a regular search filtered to starred groups.
func Load(ctx context.Context, api API, section Section, userID, query string, limit int64) ([]Group, error) {
	query = strings.TrimSpace(query)

	switch section {
	case SectionStorage:
		var recs []client.GroupRecord
		var err error
		if query == "" {
			recs, err = api.GroupStorage(ctx, userID)
		} else {
			recs, err = api.SearchGroupStorage(ctx, userID, query)
		}
		if err != nil {
			return nil, err
		}
		return FromStorage(recs, limit), nil

	case SectionStarred:
		if query == "" {
			recs, err := api.StarredGroups(ctx, userID)
			if err != nil {
				return nil, err
			}
			return markStarred(FromListing(recs, limit)), nil
		}
		recs, err := api.SearchGroups(ctx, userID, query)
		if err != nil {
			return nil, err
		}
		return FilterStarred(FromListing(recs, limit)), nil

	default:
		recs, err := api.SearchGroups(ctx, userID, query)
		if err != nil {
			return nil, err
		}
		return FromListing(recs, limit), nil
	}
}

// markStarred sets the flag the starred endpoint may omit
func markStarred(list []Group) []Group {
	for i := range list {
		list[i].Starred = true
	}
	return list
}

// Dashboard is everything one dashboard screen needs
type Dashboard struct {
	Section     Section
	Groups      []Group
	StorageUsed int64
	Limit       int64
}

// LoadDashboard fetches the section listing and the user's storage total
// concurrently. Either failure fails the whole load.
func LoadDashboard(ctx context.Context, api API, section Section, userID, query string, limit int64) (*Dashboard, error) {
	d := &Dashboard{Section: section, Limit: limit}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := Load(gctx, api, section, userID, query, limit)
		if err != nil {
			return err
		}
		d.Groups = list
		return nil
	})
	g.Go(func() error {
		st, err := api.UserStorage(gctx, userID)
		if err != nil {
			return err
		}
		d.StorageUsed = st.StorageUsed
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// ToggleStar flips the star on group id optimistically and calls the
// backend according to the previous state. On failure the flip is rolled
// back and the error returned alongside the restored list. The input slice
// is never modified.
func ToggleStar(ctx context.Context, api API, userID string, list []Group, id string) ([]Group, error) {
	out := make([]Group, len(list))
	copy(out, list)

	i := Find(out, id)
	if i < 0 {
		return out, fmt.Errorf("group %s not found", id)
	}

	wasStarred := out[i].Starred
	out[i].Starred = !wasStarred

	var err error
	if wasStarred {
		err = api.UnstarGroup(ctx, userID, id)
	} else {
		err = api.StarGroup(ctx, userID, id)
	}
	if err != nil {
		slog.Warn("Star toggle failed, rolling back", "group_id", id, "error", err)
		out[i].Starred = wasStarred
		return out, err
	}
	return out, nil
}

// ValidateNewGroup checks a group name and description before creation
func ValidateNewGroup(name, description string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("Group name is required")
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("Description must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

// Create validates and creates a group
func Create(ctx context.Context, api API, userID, name, description string) (*client.CreateGroupResponse, error) {
	if err := ValidateNewGroup(name, description); err != nil {
		return nil, err
	}
	return api.CreateGroup(ctx, userID, strings.TrimSpace(name), description)
}
