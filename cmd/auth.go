// ABOUTME: Account commands: login, signup, verify, resend-otp, logout, whoami
// ABOUTME: Thin wrappers around the auth flow with human or JSON output

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/collabfs/collabfs-cli/internal/flow"
	"github.com/collabfs/collabfs-cli/internal/session"
)

var (
	loginEmail     string
	signupEmail    string
	signupUsername string
	verifyCode     string
	passwordStdin  bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Sign in and store the session locally.

Exit codes:
  0 - Logged in
  1 - Rejected (invalid input or wrong credentials)
  2 - Error (connectivity, local storage)`,
	Run: runWithSignals(runLogin),
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and send a verification code",
	Run:   runWithSignals(runSignup),
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Confirm a new account with the emailed code",
	Run:   runWithSignals(runVerify),
}

var resendCmd = &cobra.Command{
	Use:   "resend-otp",
	Short: "Send a new verification code (at most every 2 minutes)",
	Run:   runWithSignals(runResend),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Run:   runWithSignals(runLogout),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Run:   runWithSignals(runWhoami),
}

func init() {
	rootCmd.AddCommand(loginCmd, signupCmd, verifyCmd, resendCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	signupCmd.Flags().StringVar(&signupEmail, "email", "", "Account email")
	signupCmd.Flags().StringVar(&signupUsername, "username", "", "Display name (letters, digits, spaces, underscores)")
	signupCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	verifyCmd.Flags().StringVar(&verifyCode, "code", "", "6-digit code from the email")
}

// userView is the JSON shape printed for a signed-in user
type userView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	TokenExpiry *time.Time `json:"token_expiry,omitempty"`
	IdleMinutes *int       `json:"minutes_until_idle_logout,omitempty"`
}

func printUser(w io.Writer, verb string, u session.UserData) {
	if IsJSONOutput() {
		printJSON(w, userView{ID: u.ID, Email: u.Email, Username: u.Username})
		return
	}
	fmt.Fprintf(w, "%s as %s (%s)\n", verb, u.Username, u.Email)
}

func runLogin(ctx context.Context, w io.Writer) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	pwd, err := password(passwordStdin, "Password: ")
	if err != nil {
		return fail(w, err)
	}

	e.flow.Form = flow.Form{Email: loginEmail, Password: pwd}
	u, err := e.flow.Login(ctx)
	if err != nil {
		return fail(w, err)
	}
	printUser(w, "Logged in", u)
	return exitOK
}

func runSignup(ctx context.Context, w io.Writer) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	pwd, confirm, err := newPassword(passwordStdin)
	if err != nil {
		return fail(w, err)
	}

	e.flow.Form = flow.Form{Email: signupEmail, Username: signupUsername, Password: pwd, ConfirmPassword: confirm}
	if err := e.flow.Signup(ctx); err != nil {
		return fail(w, err)
	}

	confirmStep := e.flow.Confirm()
	if err := confirmStep.Start(ctx); err != nil {
		return fail(w, err)
	}

	if IsJSONOutput() {
		printJSON(w, map[string]string{"status": "otp_sent", "email": confirmStep.Email()})
		return exitOK
	}
	fmt.Fprintf(w, "Verification code sent to %s\n", confirmStep.Email())
	fmt.Fprintln(w, "Run `collabfs verify --code <code>` to finish creating your account.")
	return exitOK
}

func runVerify(ctx context.Context, w io.Writer) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	u, err := e.flow.Confirm().Complete(ctx, verifyCode)
	if err != nil {
		return fail(w, err)
	}
	printUser(w, "Account created. Logged in", u)
	return exitOK
}

// runResend resends for whichever flow is waiting on a code: a password
// reset if one is pending, otherwise signup confirmation.
func runResend(ctx context.Context, w io.Writer) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	var email string
	if forgot := e.flow.Forgot(); forgot.Email() != "" {
		email = forgot.Email()
		err = forgot.Resend(ctx)
	} else {
		confirmStep := e.flow.Confirm()
		email = confirmStep.Email()
		err = confirmStep.Resend(ctx)
	}
	if err != nil {
		return fail(w, err)
	}

	if IsJSONOutput() {
		printJSON(w, map[string]string{"status": "otp_sent", "email": email})
		return exitOK
	}
	fmt.Fprintf(w, "New code sent to %s\n", email)
	return exitOK
}

func runLogout(ctx context.Context, w io.Writer) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	if err := e.flow.Logout(); err != nil {
		return fail(w, err)
	}
	if IsJSONOutput() {
		printJSON(w, map[string]string{"status": "logged_out"})
		return exitOK
	}
	fmt.Fprintln(w, "Logged out")
	return exitOK
}

func runWhoami(ctx context.Context, w io.Writer) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	u, err := e.requireLogin()
	if err != nil {
		return fail(w, err)
	}

	view := userView{ID: u.ID, Email: u.Email, Username: u.Username}
	if exp, ok := e.sess.TokenExpiry(); ok {
		view.TokenExpiry = &exp
	}
	left := e.sess.Idle().MinutesLeft
	view.IdleMinutes = &left

	if IsJSONOutput() {
		printJSON(w, view)
		return exitOK
	}
	fmt.Fprintf(w, "User:     %s\n", u.Username)
	fmt.Fprintf(w, "Email:    %s\n", u.Email)
	fmt.Fprintf(w, "ID:       %s\n", u.ID)
	if view.TokenExpiry != nil {
		fmt.Fprintf(w, "Expires:  %s\n", view.TokenExpiry.Local().Format(time.RFC1123))
	}
	return exitOK
}
