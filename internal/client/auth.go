// ABOUTME: Email/password authentication endpoints
// ABOUTME: Login, signup, OTP delivery and verification, password update

package client

import (
	"context"
	"net/http"
)

// SessionDetails is the identity block returned by login and signup
type SessionDetails struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	HashedPassword string `json:"hashed_password,omitempty"`
}

type LoginResponse struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message,omitempty"`
	Token          string         `json:"token"`
	SessionDetails SessionDetails `json:"session_details"`
}

type SignupResponse struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message,omitempty"`
	SessionDetails SessionDetails `json:"session_details"`
}

// AccountResponse is returned once the OTP has confirmed a new account
type AccountResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	ID             string `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	HashedPassword string `json:"hashedPassword"`
	Token          string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UpdatePasswordResponse struct {
	Message  string `json:"message,omitempty"`
	Pwd      string `json:"pwd"`
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type credentials struct {
	Email    string `json:"email"`
	Pwd      string `json:"pwd"`
	Username string `json:"username,omitempty"`
	OTP      string `json:"otp,omitempty"`
}

// Login calls POST /auth/email/login
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, call{
		method:         http.MethodPost,
		path:           "/auth/email/login",
		key:            c.authKey,
		body:           credentials{Email: email, Pwd: password},
		fallback:       "Login failed",
		requireSuccess: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup calls POST /auth/email/signup. The account is not created until
// SetUserID confirms the emailed OTP.
func (c *Client) Signup(ctx context.Context, email, password, username string) (*SignupResponse, error) {
	var out SignupResponse
	err := c.do(ctx, call{
		method:         http.MethodPost,
		path:           "/auth/email/signup",
		key:            c.authKey,
		body:           credentials{Email: email, Pwd: password, Username: username},
		fallback:       "Signup failed",
		requireSuccess: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendOTP calls POST /auth/email/signup/sendotp. Used by signup and by
// forgot-password.
func (c *Client) SendOTP(ctx context.Context, email string) (*MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/email/signup/sendotp",
		key:      c.authKey,
		body:     map[string]string{"email": email},
		fallback: "Failed to send OTP",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetUserID calls POST /auth/email/setuserid, creating the account
func (c *Client) SetUserID(ctx context.Context, email, username, hashedPassword, otp string) (*AccountResponse, error) {
	var out AccountResponse
	err := c.do(ctx, call{
		method:         http.MethodPost,
		path:           "/auth/email/setuserid",
		key:            c.authKey,
		body:           credentials{Email: email, Pwd: hashedPassword, Username: username, OTP: otp},
		fallback:       "OTP verification failed",
		requireSuccess: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP calls POST /auth/email/verifyotp
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (*MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/email/verifyotp",
		key:      c.authKey,
		body:     map[string]string{"email": email, "otp": otp},
		fallback: "Invalid verification code",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePassword calls POST /auth/updatepassword
func (c *Client) UpdatePassword(ctx context.Context, email, otp, password string) (*UpdatePasswordResponse, error) {
	var out UpdatePasswordResponse
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/updatepassword",
		key:      c.authKey,
		body:     credentials{Email: email, Pwd: password, OTP: otp},
		fallback: "Failed to update password",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
