// Package client talks to the paygate REST API on behalf of one user and keeps
// the session tokens in a StateStore.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/auth"
	"github.com/hongminglow/paygate/internal/models/dto"
)

var (
	// ErrNotLoggedIn is returned by authenticated calls when no tokens are stored.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrOTPRequired is returned by UPIPay when no one-time code is supplied.
	ErrOTPRequired = errors.New("otp code required")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	// TokenRejected is set when the server refused the access token itself.
	TokenRejected bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

func tokenRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.TokenRejected
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL        string
	http           *http.Client
	store          StateStore
	now            func() time.Time
	sessionTimeout time.Duration
	log            *zap.Logger

	// refreshMu serializes refreshes so concurrent 401s redeem the token once.
	refreshMu sync.Mutex
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithLogger(log *zap.Logger) Option { return func(c *Client) { c.log = log } }

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// WithSessionTimeout sets how far past login the session deadline is placed.
func WithSessionTimeout(d time.Duration) Option { return func(c *Client) { c.sessionTimeout = d } }

func New(baseURL string, store StateStore, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: 15 * time.Second},
		store:          store,
		now:            time.Now,
		sessionTimeout: 30 * time.Minute,
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the stored session.
func (c *Client) State() (State, error) {
	return c.store.Load()
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
}

type loginData struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (Profile, error) {
	return c.startSession(ctx, "/auth/register", in)
}

func (c *Client) Login(ctx context.Context, email, password string) (Profile, error) {
	return c.startSession(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) startSession(ctx context.Context, path string, body any) (Profile, error) {
	resp, env, err := c.send(ctx, http.MethodPost, path, body, State{})
	if err != nil {
		return Profile{}, err
	}
	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return Profile{}, fmt.Errorf("decode session: %w", err)
	}
	st := State{
		User:          &data.User,
		AccessToken:   data.Token,
		RefreshToken:  cookieValue(resp, auth.RefreshCookie),
		SessionExpiry: c.now().Add(c.sessionTimeout).UnixMilli(),
	}
	if err := c.store.Save(st); err != nil {
		return Profile{}, err
	}
	return data.User, nil
}

// Refresh redeems the stored refresh token for a new pair. On failure the
// local session is cleared.
func (c *Client) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	st, err := c.store.Load()
	if err != nil {
		return err
	}
	return c.refreshLocked(ctx, st)
}

func (c *Client) refreshLocked(ctx context.Context, st State) error {
	if st.RefreshToken == "" {
		return ErrNotLoggedIn
	}
	resp, env, err := c.send(ctx, http.MethodGet, "/auth/refresh-token", nil, State{RefreshToken: st.RefreshToken})
	if err != nil {
		if clearErr := c.store.Clear(); clearErr != nil {
			c.log.Warn("clear session after failed refresh", zap.Error(clearErr))
		}
		return fmt.Errorf("refresh session: %w", err)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("decode refresh: %w", err)
	}
	st.AccessToken = data.Token
	if next := cookieValue(resp, auth.RefreshCookie); next != "" {
		st.RefreshToken = next
	}
	return c.store.Save(st)
}

// Logout revokes the refresh token server-side when possible and always
// clears local state.
func (c *Client) Logout(ctx context.Context) error {
	st, err := c.store.Load()
	if err != nil {
		return err
	}
	if st.LoggedIn() {
		if _, _, err := c.send(ctx, http.MethodGet, "/auth/logout", nil, st); err != nil {
			c.log.Warn("server logout failed", zap.Error(err))
		}
	}
	return c.store.Clear()
}

func (c *Client) Me(ctx context.Context) (Profile, error) {
	var p Profile
	if err := c.authed(ctx, http.MethodGet, "/auth/me", nil, &p); err != nil {
		return Profile{}, err
	}
	if st, err := c.store.Load(); err == nil && st.LoggedIn() {
		st.User = &p
		if err := c.store.Save(st); err != nil {
			c.log.Warn("cache profile", zap.Error(err))
		}
	}
	return p, nil
}

func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	var out dto.BalanceResponse
	if err := c.authed(ctx, http.MethodGet, "/transactions/balance", nil, &out); err != nil {
		return decimal.Zero, err
	}
	return out.Balance, nil
}

type HistoryQuery struct {
	Page      int
	Limit     int
	Type      string
	Status    string
	StartDate string
	EndDate   string
}

func (q HistoryQuery) encode() string {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", fmt.Sprint(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprint(q.Limit))
	}
	for key, val := range map[string]string{"type": q.Type, "status": q.Status, "startDate": q.StartDate, "endDate": q.EndDate} {
		if val != "" {
			v.Set(key, val)
		}
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) History(ctx context.Context, q HistoryQuery) (dto.TransactionPage, error) {
	var out dto.TransactionPage
	err := c.authed(ctx, http.MethodGet, "/transactions"+q.encode(), nil, &out)
	return out, err
}

func (c *Client) Transfer(ctx context.Context, receiverEmail string, amount decimal.Decimal, description string) (dto.MovementResponse, error) {
	var out dto.MovementResponse
	err := c.authed(ctx, http.MethodPost, "/transactions/transfer", dto.TransferRequest{
		ReceiverEmail: receiverEmail,
		Amount:        amount,
		Description:   description,
	}, &out)
	return out, err
}

type UPIDetails struct {
	UPIID       string `json:"upiId"`
	HasSetupUPI bool   `json:"hasSetupUpi"`
}

func (c *Client) UPISetup(ctx context.Context, handle, pin string) (UPIDetails, error) {
	var out UPIDetails
	err := c.authed(ctx, http.MethodPost, "/upi/setup", dto.UPISetupRequest{CustomUPIID: handle, PIN: pin}, &out)
	return out, err
}

func (c *Client) UPIDetails(ctx context.Context) (UPIDetails, error) {
	var out UPIDetails
	err := c.authed(ctx, http.MethodGet, "/upi/details", nil, &out)
	return out, err
}

// RequestPaymentOTP emails a one-time code to the logged-in user and returns
// the address it went to.
func (c *Client) RequestPaymentOTP(ctx context.Context) (string, error) {
	email, err := c.email(ctx)
	if err != nil {
		return "", err
	}
	if err := c.SendOTP(ctx, email); err != nil {
		return "", err
	}
	return email, nil
}

// UPIPay redeems otpCode for the logged-in user and only then submits the
// payment. Nothing is sent to /upi/pay when the code is missing or rejected.
func (c *Client) UPIPay(ctx context.Context, receiverHandle string, amount decimal.Decimal, pin, otpCode, description string) (dto.MovementResponse, error) {
	var out dto.MovementResponse
	if strings.TrimSpace(otpCode) == "" {
		return out, ErrOTPRequired
	}
	email, err := c.email(ctx)
	if err != nil {
		return out, err
	}
	if err := c.VerifyOTP(ctx, email, otpCode); err != nil {
		return out, fmt.Errorf("verify otp: %w", err)
	}
	err = c.authed(ctx, http.MethodPost, "/upi/pay", dto.UPIPayRequest{
		ReceiverUPIID: receiverHandle,
		Amount:        amount,
		PIN:           pin,
		Description:   description,
	}, &out)
	return out, err
}

func (c *Client) SendOTP(ctx context.Context, email string) error {
	_, _, err := c.send(ctx, http.MethodPost, "/otp/send-otp", dto.OTPSendRequest{Email: email}, State{})
	return err
}

func (c *Client) VerifyOTP(ctx context.Context, email, code string) error {
	_, _, err := c.send(ctx, http.MethodPost, "/otp/verify-otp", dto.OTPVerifyRequest{Email: email, OTP: code}, State{})
	return err
}

// email returns the logged-in user's address, asking the server when the
// cached profile is missing.
func (c *Client) email(ctx context.Context) (string, error) {
	st, err := c.store.Load()
	if err != nil {
		return "", err
	}
	if !st.LoggedIn() {
		return "", ErrNotLoggedIn
	}
	if st.User != nil && st.User.Email != "" {
		return st.User.Email, nil
	}
	p, err := c.Me(ctx)
	if err != nil {
		return "", err
	}
	return p.Email, nil
}

// authed performs an authenticated call. A 401 that rejects the access token
// triggers exactly one silent refresh followed by one retry. Other 401s, such
// as a wrong PIN, are returned as is.
func (c *Client) authed(ctx context.Context, method, path string, body, out any) error {
	st, err := c.store.Load()
	if err != nil {
		return err
	}
	if !st.LoggedIn() {
		return ErrNotLoggedIn
	}
	_, env, err := c.send(ctx, method, path, body, st)
	if tokenRejected(err) && st.RefreshToken != "" {
		if err := c.refreshIfStale(ctx, st.AccessToken); err != nil {
			return err
		}
		if st, err = c.store.Load(); err != nil {
			return err
		}
		_, env, err = c.send(ctx, method, path, body, st)
	}
	if err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// refreshIfStale refreshes unless another caller already replaced the access
// token that was rejected.
func (c *Client) refreshIfStale(ctx context.Context, rejected string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	st, err := c.store.Load()
	if err != nil {
		return err
	}
	if st.AccessToken != rejected && st.AccessToken != "" {
		return nil
	}
	return c.refreshLocked(ctx, st)
}

func (c *Client) send(ctx context.Context, method, path string, body any, st State) (*http.Response, envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, envelope{}, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, envelope{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if st.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+st.AccessToken)
		req.AddCookie(&http.Cookie{Name: auth.AccessCookie, Value: st.AccessToken})
	}
	if st.RefreshToken != "" {
		req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: st.RefreshToken})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, envelope{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return resp, envelope{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp, env, &APIError{
			Status:        resp.StatusCode,
			Message:       msg,
			TokenRejected: resp.StatusCode == http.StatusUnauthorized && resp.Header.Get("WWW-Authenticate") == auth.InvalidTokenChallenge,
		}
	}
	c.log.Debug("api call", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
	return resp, env, nil
}

func cookieValue(resp *http.Response, name string) string {
	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}
