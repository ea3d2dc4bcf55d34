package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/Darlykn/ClockIn/common"
	"github.com/Darlykn/ClockIn/common/model"
)

// AuthClient covers the ClockIn identity endpoints: password login, the TOTP
// 2FA round, token refresh, invites and logout. These calls go straight to
// the transport, never through the request pipeline: a 401 from the login or
// refresh endpoint must surface as-is and must never trigger a refresh of its
// own.
type AuthClient interface {
	// Login runs the password step. Depending on server policy it either
	// issues tokens directly or returns a 2FA challenge plus a temp token.
	Login(ctx context.Context, username, password string) (*model.LoginResult, error)
	// Setup2FA generates a TOTP secret and QR code for the pending session.
	Setup2FA(ctx context.Context) (*model.TOTPSetup, error)
	// Verify2FA checks a 6-digit TOTP code and, on success, stores and
	// returns the issued access token. secret is only set during the setup
	// flow (the server has not persisted it yet).
	Verify2FA(ctx context.Context, code, secret string) (*oauth2.Token, error)
	// Refresh exchanges the refresh cookie for a new access token. It does
	// not touch the token store; the refresh coordinator owns that write.
	Refresh(ctx context.Context) (*oauth2.Token, error)
	// Logout invalidates the session cookies and clears all client-side
	// session state: the token store and the cached API responses.
	Logout(ctx context.Context) error
	// ResetPassword sets a new password authorized by a TOTP code.
	ResetPassword(ctx context.Context, username, otpCode, newPassword string) error
	// ValidateInvite checks a first-login invite token.
	ValidateInvite(ctx context.Context, inviteToken string) (*model.InviteValidation, error)
	// FirstLogin sets email and password via an invite token; like Login it
	// may hand back a 2FA setup challenge.
	FirstLogin(ctx context.Context, inviteToken, email, password, passwordConfirm string) (*model.LoginResult, error)
}

type authClient struct {
	baseURL   string
	client    common.HttpClient
	tokens    common.TokenStore
	responses common.CacheRepository
	log       zerolog.Logger

	// temp token from the password step, attached as a bearer on the 2FA
	// calls (the server also accepts it as a cookie; the header is what a
	// non-browser client relies on)
	mu        sync.Mutex
	tempToken string
}

// NewAuthClient constructs an AuthClient. The baseURL is the API origin,
// e.g. "https://clockin.example.com". responses is the response cache shared
// with the request pipeline; it is flushed on logout so a later login cannot
// be served another user's data. Pass nil when nothing is cached.
func NewAuthClient(baseURL string, client common.HttpClient, tokens common.TokenStore, responses common.CacheRepository, log zerolog.Logger) AuthClient {
	return &authClient{
		baseURL:   baseURL,
		client:    client,
		tokens:    tokens,
		responses: responses,
		log:       log,
	}
}

func (a *authClient) Login(ctx context.Context, username, password string) (*model.LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	data, err := a.postJSON(ctx, "/api/auth/login", body, "")
	if err != nil {
		return nil, err
	}

	var result model.LoginResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	a.rememberOutcome(&result)
	return &result, nil
}

func (a *authClient) Setup2FA(ctx context.Context) (*model.TOTPSetup, error) {
	data, err := a.postJSON(ctx, "/api/auth/2fa/setup", nil, a.temp())
	if err != nil {
		return nil, err
	}

	var setup model.TOTPSetup
	if err := json.Unmarshal(data, &setup); err != nil {
		return nil, fmt.Errorf("failed to decode 2fa setup response: %w", err)
	}
	return &setup, nil
}

func (a *authClient) Verify2FA(ctx context.Context, code, secret string) (*oauth2.Token, error) {
	body := map[string]string{"code": code}
	if secret != "" {
		body["secret"] = secret
	}
	data, err := a.postJSON(ctx, "/api/auth/2fa/verify", body, a.temp())
	if err != nil {
		return nil, err
	}

	var resp model.TokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	token := &oauth2.Token{AccessToken: resp.AccessToken, TokenType: resp.TokenType}
	a.tokens.Set(token)
	a.setTemp("")
	a.log.Debug().Msg("2fa verified, access token issued")
	return token, nil
}

func (a *authClient) Refresh(ctx context.Context) (*oauth2.Token, error) {
	// No body; the refresh cookie in the transport's jar is the credential.
	data, err := a.postJSON(ctx, "/api/auth/refresh", nil, "")
	if err != nil {
		return nil, err
	}

	var resp model.TokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	return &oauth2.Token{AccessToken: resp.AccessToken, TokenType: resp.TokenType}, nil
}

func (a *authClient) Logout(ctx context.Context) error {
	_, err := a.post(ctx, "/api/auth/logout", nil, "", http.StatusNoContent)
	a.tokens.Clear()
	a.setTemp("")
	if a.responses != nil {
		a.responses.Flush()
	}
	return err
}

func (a *authClient) ResetPassword(ctx context.Context, username, otpCode, newPassword string) error {
	body := map[string]string{
		"username":     username,
		"otp_code":     otpCode,
		"new_password": newPassword,
	}
	_, err := a.postJSON(ctx, "/api/auth/reset-password", body, "")
	return err
}

func (a *authClient) ValidateInvite(ctx context.Context, inviteToken string) (*model.InviteValidation, error) {
	endpoint := "/api/auth/validate-invite?token=" + url.QueryEscape(inviteToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	data, err := a.execute(req)
	if err != nil {
		return nil, err
	}

	var validation model.InviteValidation
	if err := json.Unmarshal(data, &validation); err != nil {
		return nil, fmt.Errorf("failed to decode invite validation: %w", err)
	}
	return &validation, nil
}

func (a *authClient) FirstLogin(ctx context.Context, inviteToken, email, password, passwordConfirm string) (*model.LoginResult, error) {
	body := map[string]string{
		"invite_token":     inviteToken,
		"password":         password,
		"password_confirm": passwordConfirm,
	}
	if email != "" {
		body["email"] = email
	}
	data, err := a.postJSON(ctx, "/api/auth/first-login", body, "")
	if err != nil {
		return nil, err
	}

	var result model.LoginResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode first-login response: %w", err)
	}
	a.rememberOutcome(&result)
	return &result, nil
}

// rememberOutcome stores whichever credential the password step produced:
// a full access token (2FA disabled) or the temp token for the 2FA round.
func (a *authClient) rememberOutcome(result *model.LoginResult) {
	if result.AccessToken != "" {
		a.tokens.Set(&oauth2.Token{AccessToken: result.AccessToken, TokenType: result.TokenType})
		a.setTemp("")
		return
	}
	if result.TempToken != "" {
		a.setTemp(result.TempToken)
	}
}

func (a *authClient) temp() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tempToken
}

func (a *authClient) setTemp(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tempToken = token
}

// postJSON marshals body (may be nil) and expects a 200.
func (a *authClient) postJSON(ctx context.Context, endpoint string, body interface{}, bearer string) ([]byte, error) {
	return a.post(ctx, endpoint, body, bearer, http.StatusOK)
}

func (a *authClient) post(ctx context.Context, endpoint string, body interface{}, bearer string, expectedStatus int) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return a.executeExpecting(req, expectedStatus)
}

func (a *authClient) execute(req *http.Request) ([]byte, error) {
	return a.executeExpecting(req, http.StatusOK)
}

func (a *authClient) executeExpecting(req *http.Request, expectedStatus int) ([]byte, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != expectedStatus {
		return nil, &common.HTTPError{StatusCode: resp.StatusCode, Body: data}
	}
	return data, nil
}
