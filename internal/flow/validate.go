// ABOUTME: Client-side validation for the auth forms
// ABOUTME: Messages are shown to the user verbatim

package flow

import (
	"regexp"
	"strings"
)

const (
	MinLoginPasswordLength = 6
	MinPasswordLength      = 8
	MinUsernameLength      = 3
	OTPLength              = 6

	// SpecialChars are the characters that satisfy the special-character rule
	SpecialChars = `!@#$%^&*(),.?":{}|<>`
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_ ]+$`)

// ValidationError is a problem found before any request is sent.
type ValidationError struct {
	Message  string
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Problems, "; ")
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// Form is the state shared by the login, signup and reset forms.
type Form struct {
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

// PasswordCheck reports each password rule separately so forms can show a checklist.
type PasswordCheck struct {
	MinLength bool
	Upper     bool
	Lower     bool
	Digit     bool
	Special   bool
}

func PasswordRules(pwd string) PasswordCheck {
	var c PasswordCheck
	c.MinLength = len([]rune(pwd)) >= MinPasswordLength
	for _, r := range pwd {
		switch {
		case r >= 'A' && r <= 'Z':
			c.Upper = true
		case r >= 'a' && r <= 'z':
			c.Lower = true
		case r >= '0' && r <= '9':
			c.Digit = true
		case strings.ContainsRune(SpecialChars, r):
			c.Special = true
		}
	}
	return c
}

func (c PasswordCheck) Valid() bool {
	return c.MinLength && c.Upper && c.Lower && c.Digit && c.Special
}

// Rule is one checklist line
type Rule struct {
	Label string
	Met   bool
}

func (c PasswordCheck) Rules() []Rule {
	return []Rule{
		{"At least 8 characters", c.MinLength},
		{"One uppercase letter", c.Upper},
		{"One lowercase letter", c.Lower},
		{"One number", c.Digit},
		{"One special character", c.Special},
	}
}

// ValidateLogin checks the login form in the order the user sees the errors.
func ValidateLogin(email, password string) error {
	if email == "" || password == "" {
		return invalid("Please enter both email and password")
	}
	if !strings.Contains(email, "@") {
		return invalid("Please enter a valid email address")
	}
	if len([]rune(password)) < MinLoginPasswordLength {
		return invalid("Password must be at least 6 characters long")
	}
	return nil
}

// ValidateEmail is the single-field check used by forgot-password.
func ValidateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") {
		return invalid("Please enter a valid email address")
	}
	return nil
}

// SignupProblems lists every problem with the non-empty fields of f.
func SignupProblems(f Form) []string {
	var problems []string
	if f.Email != "" && !strings.Contains(f.Email, "@") {
		problems = append(problems, "Please enter a valid email address")
	}
	if f.Username != "" && len([]rune(f.Username)) < MinUsernameLength {
		problems = append(problems, "Username must be at least 3 characters long")
	}
	if f.Username != "" && !usernamePattern.MatchString(f.Username) {
		problems = append(problems, "Username can only contain letters, numbers, underscores, and spaces")
	}
	if f.Password != "" && !PasswordRules(f.Password).Valid() {
		problems = append(problems, "Password does not meet all requirements")
	}
	if f.Password != "" && f.ConfirmPassword != "" && f.Password != f.ConfirmPassword {
		problems = append(problems, "Passwords do not match")
	}
	return problems
}

func ValidateSignup(f Form) error {
	if f.Email == "" || f.Username == "" || f.Password == "" || f.ConfirmPassword == "" {
		return invalid("Please fill in all fields")
	}
	if problems := SignupProblems(f); len(problems) > 0 {
		return &ValidationError{Message: "Please fix the errors below before continuing", Problems: problems}
	}
	return nil
}

// ValidateNewPassword checks the reset form.
func ValidateNewPassword(password, confirm string) error {
	if !PasswordRules(password).Valid() {
		return invalid("Password doesn't meet all requirements")
	}
	if password != confirm {
		return invalid("Passwords don't match")
	}
	return nil
}

// NormalizeOTP keeps only digits, at most six of them.
func NormalizeOTP(s string) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() == OTPLength {
			break
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidOTP reports whether s is exactly six ASCII digits.
func ValidOTP(s string) bool {
	if len(s) != OTPLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
