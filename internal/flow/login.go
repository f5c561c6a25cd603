// ABOUTME: Email/password login

package flow

import (
	"context"
	"log/slog"

	"github.com/collabfs/collabfs-cli/internal/session"
)

// Login validates the form, authenticates and stores the session. Any
// failure leaves the session empty.
func (f *Flow) Login(ctx context.Context) (session.UserData, error) {
	if err := f.sess.Clear(); err != nil {
		return session.UserData{}, err
	}

	u, err := f.login(ctx)
	if err != nil {
		if cerr := f.sess.Clear(); cerr != nil {
			slog.Warn("Clearing session after failed login", "error", cerr)
		}
		return session.UserData{}, err
	}
	return u, nil
}

func (f *Flow) login(ctx context.Context) (session.UserData, error) {
	if err := ValidateLogin(f.Form.Email, f.Form.Password); err != nil {
		return session.UserData{}, err
	}

	resp, err := f.api.Login(ctx, f.Form.Email, f.Form.Password)
	if err != nil {
		return session.UserData{}, err
	}

	u := session.UserData{
		Email:    resp.SessionDetails.Email,
		Username: resp.SessionDetails.Username,
		Token:    resp.Token,
		ID:       resp.SessionDetails.ID,
	}
	if err := f.sess.SetUserData(u); err != nil {
		return session.UserData{}, err
	}
	if err := f.sess.Touch(); err != nil {
		return session.UserData{}, err
	}
	slog.Info("Logged in", "user_id", u.ID)
	f.Form.Password = ""
	return u, nil
}
