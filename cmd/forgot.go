// ABOUTME: Password reset commands: forgot request, verify, reset, cancel
// ABOUTME: Progress between steps is kept in the session's temp keys

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var (
	forgotEmail string
	forgotCode  string
)

var forgotCmd = &cobra.Command{
	Use:   "forgot",
	Short: "Reset a forgotten password",
	Long: `Reset a forgotten password in three steps:

  collabfs forgot request --email you@example.com
  collabfs forgot verify --code 123456
  collabfs forgot reset

The verified code authorizes a reset for 10 minutes.`,
}

var forgotRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Email a reset code",
	Run:   runWithSignals(runForgotRequest),
}

var forgotVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the emailed reset code",
	Run:   runWithSignals(runForgotVerify),
}

var forgotResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set the new password and sign in",
	Run:   runWithSignals(runForgotReset),
}

var forgotCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Abandon a reset or signup in progress",
	Run:   runWithSignals(runForgotCancel),
}

func init() {
	rootCmd.AddCommand(forgotCmd)
	forgotCmd.AddCommand(forgotRequestCmd, forgotVerifyCmd, forgotResetCmd, forgotCancelCmd)

	forgotRequestCmd.Flags().StringVar(&forgotEmail, "email", "", "Account email")
	forgotVerifyCmd.Flags().StringVar(&forgotCode, "code", "", "6-digit code from the email")
	forgotResetCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the new password from stdin")
}

func runForgotRequest(ctx context.Context, w io.Writer) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	if err := e.flow.Forgot().Request(ctx, forgotEmail); err != nil {
		return fail(w, err)
	}
	if IsJSONOutput() {
		printJSON(w, map[string]string{"status": "otp_sent", "email": forgotEmail})
		return exitOK
	}
	fmt.Fprintf(w, "Reset code sent to %s\n", forgotEmail)
	fmt.Fprintln(w, "Run `collabfs forgot verify --code <code>` next.")
	return exitOK
}

func runForgotVerify(ctx context.Context, w io.Writer) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	if err := e.flow.Forgot().Verify(ctx, forgotCode); err != nil {
		return fail(w, err)
	}
	if IsJSONOutput() {
		printJSON(w, map[string]string{"status": "verified"})
		return exitOK
	}
	fmt.Fprintln(w, "Code verified. Run `collabfs forgot reset` within 10 minutes.")
	return exitOK
}

func runForgotReset(ctx context.Context, w io.Writer) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	reset := e.flow.Reset()
	// Fail before prompting when the reset cannot go ahead.
	if err := reset.Authorize(); err != nil {
		return fail(w, err)
	}

	pwd, confirm, err := newPassword(passwordStdin)
	if err != nil {
		return fail(w, err)
	}
	u, err := reset.Complete(ctx, pwd, confirm)
	if err != nil {
		return fail(w, err)
	}
	printUser(w, "Password updated. Logged in", u)
	return exitOK
}

func runForgotCancel(ctx context.Context, w io.Writer) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	if err := e.flow.Back(); err != nil {
		return fail(w, err)
	}
	if IsJSONOutput() {
		printJSON(w, map[string]string{"status": "cancelled"})
		return exitOK
	}
	fmt.Fprintln(w, "Cancelled")
	return exitOK
}
