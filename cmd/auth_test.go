// ABOUTME: Tests for the account commands against the fake backend
// ABOUTME: Covers output, exit codes and the session left on disk

package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	s := setup(t)
	loginAs(t, s, "ada")

	var out bytes.Buffer
	require.Equal(t, exitOK, runWhoami(t.Context(), &out))
	assert.Contains(t, out.String(), "User:     ada")
	assert.Contains(t, out.String(), "Email:    "+testEmail)
	assert.Contains(t, out.String(), "Expires:")
}

func TestLogin_WrongPassword(t *testing.T) {
	s := setup(t)
	_, err := s.AddUser(testEmail, "ada", testPassword)
	require.NoError(t, err)

	loginEmail = testEmail
	withPassword("Wrong1!!")
	var out bytes.Buffer
	assert.Equal(t, exitRejected, runLogin(t.Context(), &out))
	assert.Equal(t, "Error: Invalid email or password\n", out.String())

	out.Reset()
	assert.Equal(t, exitError, runWhoami(t.Context(), &out))
}

func TestLogin_InvalidEmailSendsNothing(t *testing.T) {
	s := setup(t)

	loginEmail = "ada.example.com"
	withPassword(testPassword)
	var out bytes.Buffer
	assert.Equal(t, exitRejected, runLogin(t.Context(), &out))
	assert.Contains(t, out.String(), "Please enter a valid email address")
	assert.Zero(t, s.Hits("/auth/email/login"))
}

func TestLogin_JSON(t *testing.T) {
	s := setup(t)
	id, err := s.AddUser(testEmail, "ada", testPassword)
	require.NoError(t, err)

	jsonOutput = true
	loginEmail = testEmail
	withPassword(testPassword)
	var out bytes.Buffer
	require.Equal(t, exitOK, runLogin(t.Context(), &out))

	var view userView
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.Equal(t, id, view.ID)
	assert.Equal(t, "ada", view.Username)
}

func TestWhoami_NotLoggedIn(t *testing.T) {
	setup(t)

	var out bytes.Buffer
	assert.Equal(t, exitError, runWhoami(t.Context(), &out))
	assert.Contains(t, out.String(), "not logged in")
}

func TestSignupAndVerify(t *testing.T) {
	s := setup(t)

	signupEmail = "new@example.com"
	signupUsername = "newbie"
	withPassword(testPassword)
	var out bytes.Buffer
	require.Equal(t, exitOK, runSignup(t.Context(), &out), out.String())
	assert.Contains(t, out.String(), "Verification code sent to new@example.com")

	verifyCode = s.OTP("new@example.com")
	out.Reset()
	require.Equal(t, exitOK, runVerify(t.Context(), &out), out.String())
	assert.Equal(t, "Account created. Logged in as newbie (new@example.com)\n", out.String())
}

func TestSignup_ValidationProblems(t *testing.T) {
	s := setup(t)

	signupEmail = "new@example.com"
	signupUsername = "x!"
	withPassword("short")
	var out bytes.Buffer
	assert.Equal(t, exitRejected, runSignup(t.Context(), &out))
	assert.Contains(t, out.String(), "  - Username must be at least 3 characters long")
	assert.Contains(t, out.String(), "  - Password does not meet all requirements")
	assert.Zero(t, s.Hits("/auth/email/signup"))
}

func TestSignup_RefusedWhileLoggedIn(t *testing.T) {
	s := setup(t)
	id := loginAs(t, s, "ada")

	signupEmail = "bob@example.com"
	signupUsername = "bobby"
	withPassword(testPassword)
	var out bytes.Buffer
	assert.Equal(t, exitRejected, runSignup(t.Context(), &out))
	assert.Contains(t, out.String(), "already signed in")
	assert.Zero(t, s.Hits("/auth/email/signup"))

	jsonOutput = true
	out.Reset()
	require.Equal(t, exitOK, runWhoami(t.Context(), &out), out.String())
	var view userView
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.Equal(t, id, view.ID)
	assert.Equal(t, "ada", view.Username)
	assert.Equal(t, testEmail, view.Email)
}

func TestSignup_InvalidFormKeepsLogin(t *testing.T) {
	s := setup(t)
	loginAs(t, s, "carol")

	signupEmail = "bad"
	signupUsername = "bobby"
	withPassword(testPassword)
	var out bytes.Buffer
	assert.Equal(t, exitRejected, runSignup(t.Context(), &out))

	out.Reset()
	require.Equal(t, exitOK, runWhoami(t.Context(), &out), out.String())
	assert.Contains(t, out.String(), "User:     carol")
}

func TestVerify_BadCode(t *testing.T) {
	setup(t)

	verifyCode = "12ab"
	var out bytes.Buffer
	assert.Equal(t, exitRejected, runVerify(t.Context(), &out))
	assert.Contains(t, out.String(), "Please enter a valid 6-digit code")
}

func TestResend_WaitsForCooldown(t *testing.T) {
	setup(t)

	signupEmail = "new@example.com"
	signupUsername = "newbie"
	withPassword(testPassword)
	var out bytes.Buffer
	require.Equal(t, exitOK, runSignup(t.Context(), &out), out.String())

	out.Reset()
	assert.Equal(t, exitRejected, runResend(t.Context(), &out))
	assert.Contains(t, out.String(), "Please wait")
}

func TestLogout(t *testing.T) {
	s := setup(t)
	loginAs(t, s, "ada")

	var out bytes.Buffer
	require.Equal(t, exitOK, runLogout(t.Context(), &out))
	assert.Equal(t, "Logged out\n", out.String())

	out.Reset()
	assert.Equal(t, exitError, runWhoami(t.Context(), &out))
}
