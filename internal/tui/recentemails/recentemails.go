// ABOUTME: Remembers the emails recently used to sign in
// ABOUTME: Stored as JSON in the config directory; prefills the login form

package recentemails

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// MaxRecentEmails is the maximum number of emails to keep
const MaxRecentEmails = 5

// FileName is the JSON file inside the config directory
const FileName = "recent_emails.json"

// RecentEmails manages the list of recently used sign-in emails
type RecentEmails struct {
	configDir string
	emails    []string
}

type recentData struct {
	Emails []string `json:"emails"`
}

// New creates a new RecentEmails manager with the given config directory
func New(configDir string) *RecentEmails {
	return &RecentEmails{configDir: configDir}
}

func (re *RecentEmails) configFile() string {
	return filepath.Join(re.configDir, FileName)
}

// Load reads the list from disk. A missing or corrupt file is an empty list.
func (re *RecentEmails) Load() ([]string, error) {
	data, err := os.ReadFile(re.configFile())
	if os.IsNotExist(err) {
		re.emails = []string{}
		return re.emails, nil
	}
	if err != nil {
		return nil, err
	}

	var recent recentData
	if err := json.Unmarshal(data, &recent); err != nil {
		re.emails = []string{}
		return re.emails, nil
	}

	re.emails = make([]string, 0, len(recent.Emails))
	for _, e := range recent.Emails {
		if strings.Contains(e, "@") {
			re.emails = append(re.emails, e)
		}
	}
	return re.emails, nil
}

// Save writes the list to disk, keeping at most MaxRecentEmails
func (re *RecentEmails) Save(emails []string) error {
	if err := os.MkdirAll(re.configDir, 0700); err != nil {
		return err
	}

	if len(emails) > MaxRecentEmails {
		emails = emails[:MaxRecentEmails]
	}
	re.emails = emails

	data, err := json.MarshalIndent(recentData{Emails: emails}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(re.configFile(), data, 0600)
}

// Add puts email at the front of the list, case-insensitively deduplicated
func (re *RecentEmails) Add(email string) error {
	if re.emails == nil {
		if _, err := re.Load(); err != nil {
			re.emails = []string{}
		}
	}

	next := make([]string, 0, len(re.emails)+1)
	next = append(next, email)
	for _, e := range re.emails {
		if !strings.EqualFold(e, email) {
			next = append(next, e)
		}
	}
	return re.Save(next)
}

// Latest returns the most recently used email, or ""
func (re *RecentEmails) Latest() string {
	if re.emails == nil {
		re.Load()
	}
	if len(re.emails) == 0 {
		return ""
	}
	return re.emails[0]
}
