// ABOUTME: Dashboard view model for groups and their storage
// ABOUTME: Converts API records, filters, and applies display defaults

package groups

import (
	"strconv"
	"strings"

	"github.com/collabfs/collabfs-cli/internal/client"
)

// Defaults applied when the API leaves a field out
const (
	DefaultName         = "Unnamed Group"
	DefaultLastModified = "2 hours ago"
	RoleMember          = "member"
	RoleOwner           = "owner"
)

// FileTypes lists the histogram buckets in display order
var FileTypes = []string{"documents", "photos", "videos", "audio", "others"}

type Files struct {
	Documents int `json:"documents"`
	Photos    int `json:"photos"`
	Videos    int `json:"videos"`
	Audio     int `json:"audio"`
	Others    int `json:"others"`
}

// Count returns the bucket for one of FileTypes
func (f Files) Count(fileType string) int {
	switch fileType {
	case "documents":
		return f.Documents
	case "photos":
		return f.Photos
	case "videos":
		return f.Videos
	case "audio":
		return f.Audio
	case "others":
		return f.Others
	}
	return 0
}

type Storage struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
	Files Files `json:"files"`
}

type Group struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	LastModified string  `json:"lastModified"`
	Starred      bool    `json:"starred"`
	Storage      Storage `json:"storage"`
}

// FromListing converts records from the search and starred endpoints.
func FromListing(records []client.GroupRecord, limit int64) []Group {
	out := make([]Group, 0, len(records))
	for i, r := range records {
		out = append(out, Group{
			ID:           idOrIndex(r.GroupID, i),
			Name:         orDefault(r.GroupName, DefaultName),
			Role:         orDefault(r.Role, RoleMember),
			LastModified: orDefault(r.LastModified, DefaultLastModified),
			Starred:      r.Starred,
			Storage:      Storage{Total: limit},
		})
	}
	return out
}

// FromStorage converts records from the group storage endpoints. Storage
// records carry neither role nor star state; the user owns what they can
// see storage for.
func FromStorage(records []client.GroupRecord, limit int64) []Group {
	out := make([]Group, 0, len(records))
	for i, r := range records {
		out = append(out, Group{
			ID:           idOrIndex(r.GroupID, i),
			Name:         orDefault(r.GroupName, DefaultName),
			Role:         RoleOwner,
			LastModified: DefaultLastModified,
			Starred:      r.Starred,
			Storage: Storage{
				Used:  r.StorageUsed,
				Total: limit,
				Files: Files{
					Documents: r.Frequency["documents"].Count,
					Photos:    r.Frequency["photos"].Count,
					Videos:    r.Frequency["videos"].Count,
					Audio:     r.Frequency["audio"].Count,
					Others:    r.Frequency["others"].Count,
				},
			},
		})
	}
	return out
}

func FilterStarred(list []Group) []Group {
	out := make([]Group, 0, len(list))
	for _, g := range list {
		if g.Starred {
			out = append(out, g)
		}
	}
	return out
}

// Find returns the index of the group with id, or -1
func Find(list []Group, id string) int {
	for i, g := range list {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// RoleLabel capitalizes a role for display
func RoleLabel(role string) string {
	if role == "" {
		return ""
	}
	return strings.ToUpper(role[:1]) + strings.ToLower(role[1:])
}

func idOrIndex(id string, index int) string {
	if id != "" {
		return id
	}
	return strconv.Itoa(index)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
