// ABOUTME: Group listing, search, storage and starring endpoints
// ABOUTME: Returns raw API records; internal/groups turns them into view models

package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// EmptyQuery is sent in place of a blank search string
const EmptyQuery = "__empty__"

// FileCount is one entry of a group's file-type histogram
type FileCount struct {
	Count int `json:"count"`
}

// GroupRecord is a group as returned by the listing, search and storage endpoints.
// Storage endpoints fill StorageUsed and Frequency; listings fill Role and LastModified.
type GroupRecord struct {
	GroupID      string               `json:"groupId"`
	GroupName    string               `json:"groupName"`
	Role         string               `json:"role,omitempty"`
	LastModified string               `json:"lastModified,omitempty"`
	Starred      bool                 `json:"starred"`
	StorageUsed  int64                `json:"storageUsed,omitempty"`
	Frequency    map[string]FileCount `json:"frequency,omitempty"`
}

type UserStorage struct {
	StorageUsed int64 `json:"storageUsed"`
}

type CreateGroupResponse struct {
	GroupID string `json:"groupId,omitempty"`
	Message string `json:"message,omitempty"`
}

type starRequest struct {
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
}

func (c *Client) listGroups(ctx context.Context, path, fallback string) ([]GroupRecord, error) {
	var out []GroupRecord
	err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     path,
		key:      c.groupKey,
		fallback: fallback,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GroupStorage calls GET /group/groupstorage/{userId}
func (c *Client) GroupStorage(ctx context.Context, userID string) ([]GroupRecord, error) {
	return c.listGroups(ctx, "/group/groupstorage/"+url.PathEscape(userID), "Failed to load group storage")
}

// StarredGroups calls GET /group/starred/{userId}
func (c *Client) StarredGroups(ctx context.Context, userID string) ([]GroupRecord, error) {
	return c.listGroups(ctx, "/group/starred/"+url.PathEscape(userID), "Failed to load starred groups")
}

// SearchGroups calls GET /group/search/{userId}/{query}
func (c *Client) SearchGroups(ctx context.Context, userID, query string) ([]GroupRecord, error) {
	path := "/group/search/" + url.PathEscape(userID) + "/" + url.PathEscape(searchTerm(query))
	return c.listGroups(ctx, path, "Search failed")
}

// SearchGroupStorage calls GET /group/groupstorage/{userId}/{query}
func (c *Client) SearchGroupStorage(ctx context.Context, userID, query string) ([]GroupRecord, error) {
	path := "/group/groupstorage/" + url.PathEscape(userID) + "/" + url.PathEscape(searchTerm(query))
	return c.listGroups(ctx, path, "Search failed")
}

// UserStorage calls GET /group/userstorage/{userId}
func (c *Client) UserStorage(ctx context.Context, userID string) (*UserStorage, error) {
	var out UserStorage
	err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/group/userstorage/" + url.PathEscape(userID),
		key:      c.groupKey,
		fallback: "Failed to load storage",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// StarGroup calls POST /group/staragroup
func (c *Client) StarGroup(ctx context.Context, userID, groupID string) error {
	return c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/group/staragroup",
		key:      c.groupKey,
		body:     starRequest{UserID: userID, GroupID: groupID},
		fallback: "Failed to star group",
	}, nil)
}

// UnstarGroup calls DELETE /group/unstaragroup
func (c *Client) UnstarGroup(ctx context.Context, userID, groupID string) error {
	return c.do(ctx, call{
		method:   http.MethodDelete,
		path:     "/group/unstaragroup",
		key:      c.groupKey,
		body:     starRequest{UserID: userID, GroupID: groupID},
		fallback: "Failed to unstar group",
	}, nil)
}

// CreateGroup calls POST /group/create
func (c *Client) CreateGroup(ctx context.Context, userID, name, description string) (*CreateGroupResponse, error) {
	var out CreateGroupResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/group/create",
		key:    c.groupKey,
		body: map[string]string{
			"userId":      userID,
			"name":        name,
			"description": description,
		},
		fallback: "Group creation failed",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func searchTerm(query string) string {
	if q := strings.TrimSpace(query); q != "" {
		return q
	}
	return EmptyQuery
}
