// ABOUTME: End-to-end tests for the auth flows against the fake backend
// ABOUTME: Real HTTP client, in-memory session store, injected clock

package flow

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabfs/collabfs-cli/internal/apitest"
	"github.com/collabfs/collabfs-cli/internal/client"
	"github.com/collabfs/collabfs-cli/internal/session"
)

type harness struct {
	server *apitest.Server
	store  *session.MemoryStore
	sess   *session.Session
	flow   *Flow
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return h.now }

	h.server = apitest.NewServer()
	t.Cleanup(h.server.Close)

	api := client.New(h.server.URL,
		client.WithAuthKey(h.server.AuthKey),
		client.WithGroupKey(h.server.GroupKey))
	h.store = session.NewMemoryStore()
	h.sess = session.New(h.store, session.WithClock(clock))
	h.flow = New(api, h.sess, WithClock(clock))
	return h
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func (h *harness) get(t *testing.T, key string) string {
	t.Helper()
	v, err := h.store.Get(key)
	require.NoError(t, err)
	return v
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)
	id, err := h.server.AddUser("ada@example.com", "ada", "Secret1!")
	require.NoError(t, err)

	h.flow.Form = Form{Email: "ada@example.com", Password: "Secret1!"}
	u, err := h.flow.Login(context.Background())
	require.NoError(t, err)

	assert.Equal(t, id, u.ID)
	assert.Equal(t, id, h.get(t, session.KeyUserID))
	assert.Equal(t, "ada", h.get(t, session.KeyUsername))
	assert.NotEmpty(t, h.get(t, session.KeyToken))
	assert.NotEmpty(t, h.get(t, session.KeyLastActivity))
	assert.True(t, h.sess.IsLoggedIn())
	assert.Empty(t, h.flow.Form.Password)
}

func TestLogin_InvalidEmailSendsNothing(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set("stale", "x"))

	h.flow.Form = Form{Email: "ada.example.com", Password: "Secret1!"}
	_, err := h.flow.Login(context.Background())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, h.server.Hits("/auth/email/login"))
	keys, _ := h.store.Keys()
	assert.Empty(t, keys, "login always starts from a clean session")
}

func TestLogin_RejectedClearsSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.server.AddUser("ada@example.com", "ada", "Secret1!")
	require.NoError(t, err)

	h.flow.Form = Form{Email: "ada@example.com", Password: "Wrong123"}
	_, err = h.flow.Login(context.Background())
	assert.EqualError(t, err, "Invalid email or password")
	assert.True(t, client.IsAPIError(err))
	assert.False(t, h.sess.IsLoggedIn())
}

func TestSignupAndConfirm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.sess.SetTemp("resetEmail", "old@example.com"))

	h.flow.Form = Form{Email: "ada@example.com", Username: "ada", Password: "Secret1!", ConfirmPassword: "Secret1!"}
	require.NoError(t, h.flow.Signup(ctx))

	assert.Empty(t, h.get(t, "temp_resetEmail"), "signup clears stale temp data")
	assert.Equal(t, "ada@example.com", h.get(t, session.KeyEmail))
	assert.NotEmpty(t, h.get(t, session.KeyHashedPassword))
	assert.False(t, h.sess.IsLoggedIn())

	confirm := h.flow.Confirm()
	require.NoError(t, confirm.Start(ctx))
	otp := h.server.OTP("ada@example.com")
	require.Len(t, otp, 6)
	assert.False(t, h.flow.Cooldown().Ready())

	_, err := confirm.Complete(ctx, "12345")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	u, err := confirm.Complete(ctx, otp)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.True(t, h.sess.IsLoggedIn())
	assert.Equal(t, u.ID, h.get(t, session.KeyUserID))
}

func TestSignup_ExistingUser(t *testing.T) {
	h := newHarness(t)
	_, err := h.server.AddUser("ada@example.com", "ada", "Secret1!")
	require.NoError(t, err)

	h.flow.Form = Form{Email: "ada@example.com", Username: "ada", Password: "Secret1!", ConfirmPassword: "Secret1!"}
	err = h.flow.Signup(context.Background())
	assert.EqualError(t, err, "User already exists")
	assert.Empty(t, h.get(t, session.KeyEmail))
}

func TestSignup_LeavesSignedInSessionAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.server.AddUser("ada@example.com", "ada", "Secret1!")
	require.NoError(t, err)
	h.flow.Form = Form{Email: "ada@example.com", Password: "Secret1!"}
	u, err := h.flow.Login(ctx)
	require.NoError(t, err)
	token := h.get(t, session.KeyToken)

	h.flow.Form = Form{Email: "bob@example.com", Username: "bobby", Password: "Secret1!", ConfirmPassword: "Secret1!"}
	assert.ErrorIs(t, h.flow.Signup(ctx), ErrAlreadyLoggedIn)

	h.flow.Form = Form{Email: "bad", Username: "bobby", Password: "Secret1!", ConfirmPassword: "Secret1!"}
	assert.ErrorIs(t, h.flow.Signup(ctx), ErrAlreadyLoggedIn)

	assert.Zero(t, h.server.Hits("/auth/email/signup"))
	assert.True(t, h.sess.IsLoggedIn())
	assert.Equal(t, u.ID, h.get(t, session.KeyUserID))
	assert.Equal(t, token, h.get(t, session.KeyToken))
	assert.Equal(t, "ada@example.com", h.get(t, session.KeyEmail))
}

func TestSignup_ValidationKeepsPendingData(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sess.SetTemp("otpSentAt", "123"))

	h.flow.Form = Form{Email: "bad", Username: "bobby", Password: "Secret1!", ConfirmPassword: "Secret1!"}
	var verr *ValidationError
	require.ErrorAs(t, h.flow.Signup(context.Background()), &verr)
	assert.Equal(t, "123", h.get(t, "temp_otpSentAt"))
}

func TestConfirm_MissingSignupData(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.flow.Confirm().Start(ctx), ErrSignupDataMissing)

	require.NoError(t, h.sess.SetUserData(session.UserData{Email: "ada@example.com"}))
	require.NoError(t, h.sess.SetTemp(TempLastOTPResend, "1"))
	_, err := h.flow.Confirm().Complete(ctx, "123456")
	assert.ErrorIs(t, err, ErrSignupDataMissing)
	assert.Empty(t, h.get(t, "temp_lastOtpResend"))
	assert.Equal(t, 0, h.server.Hits("/auth/email/setuserid"))
}

func TestConfirm_ResendHonoursCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.sess.SetUserData(session.UserData{Email: "ada@example.com"}))

	confirm := h.flow.Confirm()
	require.NoError(t, confirm.Start(ctx))

	h.advance(30 * time.Second)
	err := confirm.Resend(ctx)
	var cerr *CooldownError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 90*time.Second, cerr.Remaining)
	assert.Equal(t, 1, h.server.Hits("/auth/email/signup/sendotp"))

	h.advance(90 * time.Second)
	require.NoError(t, confirm.Resend(ctx))
	assert.Equal(t, 2, h.server.Hits("/auth/email/signup/sendotp"))
	assert.NotEmpty(t, h.get(t, "temp_lastOtpResend"))
}

func TestConfirm_ResendFailureReleasesCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.sess.SetUserData(session.UserData{Email: "ada@example.com"}))

	h.server.FailNext("/auth/email/signup/sendotp", http.StatusBadGateway, "Mail server unavailable")
	err := h.flow.Confirm().Resend(ctx)
	assert.EqualError(t, err, "Mail server unavailable")
	assert.True(t, h.flow.Cooldown().Ready())
	assert.Empty(t, h.get(t, "temp_lastOtpResend"))
}

func TestResend_CooldownSurvivesNewProcess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.sess.SetUserData(session.UserData{Email: "ada@example.com"}))
	require.NoError(t, h.flow.Confirm().Start(ctx))

	h.advance(60 * time.Second)
	fresh := New(client.New(h.server.URL, client.WithAuthKey(h.server.AuthKey)), h.sess,
		WithClock(func() time.Time { return h.now }))

	var cerr *CooldownError
	require.ErrorAs(t, fresh.Confirm().Resend(ctx), &cerr)
	assert.Equal(t, 60*time.Second, cerr.Remaining)
}

func forgotAndVerify(t *testing.T, h *harness) {
	t.Helper()
	ctx := context.Background()
	forgot := h.flow.Forgot()
	require.NoError(t, forgot.Request(ctx, "ada@example.com"))
	require.NoError(t, forgot.Verify(ctx, h.server.OTP("ada@example.com")))
}

func TestForgotAndReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, err := h.server.AddUser("ada@example.com", "ada", "Secret1!")
	require.NoError(t, err)

	forgot := h.flow.Forgot()
	require.NoError(t, forgot.Request(ctx, "ada@example.com"))
	assert.Equal(t, "ada@example.com", h.get(t, "temp_resetEmail"))
	assert.NotEmpty(t, h.get(t, "temp_otpSentAt"))

	assert.ErrorIs(t, h.flow.Reset().Authorize(), ErrResetNotAuthorized)

	otp := h.server.OTP("ada@example.com")
	require.NoError(t, forgot.Verify(ctx, otp))
	assert.Equal(t, "true", h.get(t, "temp_otpVerified"))
	assert.Equal(t, otp, h.get(t, "temp_verifiedOtp"))
	assert.Equal(t, "ada@example.com", h.get(t, "temp_verifiedEmail"))

	u, err := h.flow.Reset().Complete(ctx, "N3w-Secret!", "N3w-Secret!")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, u.Token, h.get(t, session.KeyToken), "token is stored under the token key")
	assert.True(t, h.sess.IsLoggedIn())

	keys, _ := h.store.Keys()
	for _, k := range keys {
		assert.NotContains(t, k, session.TempPrefix)
	}

	h.flow.Form = Form{Email: "ada@example.com", Password: "N3w-Secret!"}
	_, err = h.flow.Login(ctx)
	assert.NoError(t, err)
}

func TestForgot_InvalidInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.EqualError(t, h.flow.Forgot().Request(ctx, "nope"), "Please enter a valid email address")
	assert.ErrorIs(t, h.flow.Forgot().Resend(ctx), ErrResetNotStarted)
	assert.EqualError(t, h.flow.Forgot().Verify(ctx, "12ab56"), "Please enter a valid 6-digit code")
	assert.Equal(t, 0, h.server.Hits("/auth/email/signup/sendotp"))
}

func TestForgot_WrongCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.server.AddUser("ada@example.com", "ada", "Secret1!")
	require.NoError(t, err)

	forgot := h.flow.Forgot()
	require.NoError(t, forgot.Request(ctx, "ada@example.com"))
	wrong := "000000"
	if h.server.OTP("ada@example.com") == wrong {
		wrong = "111111"
	}
	err = forgot.Verify(ctx, wrong)
	assert.EqualError(t, err, "Invalid verification code")
	assert.Empty(t, h.get(t, "temp_otpVerified"))
}

func TestReset_ExpiresAfterWindow(t *testing.T) {
	h := newHarness(t)
	_, err := h.server.AddUser("ada@example.com", "ada", "Secret1!")
	require.NoError(t, err)
	forgotAndVerify(t, h)

	h.advance(ResetWindow)
	assert.NoError(t, h.flow.Reset().Authorize(), "exactly ten minutes is still valid")

	h.advance(time.Second)
	assert.ErrorIs(t, h.flow.Reset().Authorize(), ErrResetExpired)
	assert.Empty(t, h.get(t, "temp_verifiedEmail"), "expiry clears temp data")
}

func TestReset_Validation(t *testing.T) {
	h := newHarness(t)
	_, err := h.server.AddUser("ada@example.com", "ada", "Secret1!")
	require.NoError(t, err)
	forgotAndVerify(t, h)

	_, err = h.flow.Reset().Complete(context.Background(), "weak", "weak")
	assert.EqualError(t, err, "Password doesn't meet all requirements")

	_, err = h.flow.Reset().Complete(context.Background(), "N3w-Secret!", "N3w-Secret?")
	assert.EqualError(t, err, "Passwords don't match")

	require.NoError(t, h.store.Delete("temp_verifiedOtp"))
	_, err = h.flow.Reset().Complete(context.Background(), "N3w-Secret!", "N3w-Secret!")
	assert.ErrorIs(t, err, ErrResetSessionMissing)
	assert.Equal(t, 0, h.server.Hits("/auth/updatepassword"))
}

func TestBack_ClearsOnlyTemp(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sess.SetUserData(session.UserData{Email: "ada@example.com", ID: "u-1"}))
	require.NoError(t, h.sess.SetTemp(TempResetEmail, "ada@example.com"))
	h.flow.Cooldown().Start()

	require.NoError(t, h.flow.Back())
	assert.Empty(t, h.get(t, "temp_resetEmail"))
	assert.Equal(t, "u-1", h.get(t, session.KeyUserID))
	assert.True(t, h.flow.Cooldown().Ready())
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sess.SetUserData(session.UserData{Email: "ada@example.com", Token: "a.b.c"}))
	h.flow.Form.Email = "ada@example.com"

	require.NoError(t, h.flow.Logout())
	keys, _ := h.store.Keys()
	assert.Empty(t, keys)
	assert.Equal(t, Form{}, h.flow.Form)
}

func TestErrorsAreDistinguishable(t *testing.T) {
	var verr *ValidationError
	assert.False(t, errors.As(ErrResetExpired, &verr))
	assert.True(t, errors.As(invalid("x"), &verr))
}
