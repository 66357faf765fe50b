package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/paygate/internal/auth"
	"github.com/hongminglow/paygate/internal/config"
	"github.com/hongminglow/paygate/internal/gateway"
	"github.com/hongminglow/paygate/internal/gateway/gatewaytest"
	"github.com/hongminglow/paygate/internal/notify"
	"github.com/hongminglow/paygate/internal/server"
	"github.com/hongminglow/paygate/internal/storage/memory"
)

const keySecret = "rzp_test_secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type session struct {
	ID      int64
	Email   string
	Token   string
	Refresh string
}

type testEnv struct {
	t         *testing.T
	url       string
	processor *gatewaytest.Processor
	mail      *notify.Recorder
	store     *memory.Store
}

func testConfig(env string) config.Config {
	return config.Config{
		Port:              "0",
		AppEnv:            env,
		StoreDriver:       config.DriverMemory,
		JWTSecret:         "test-secret",
		JWTIssuer:         "paygate",
		JWTTTL:            30 * time.Minute,
		RefreshTTL:        7 * 24 * time.Hour,
		CORSOrigins:       []string{"*"},
		ClientURL:         "http://localhost:3000",
		RazorpayKeyID:     "rzp_test_key",
		RazorpayKeySecret: keySecret,
		OTPTTL:            5 * time.Minute,
	}
}

func newEnv(t *testing.T, appEnv string) *testEnv {
	t.Helper()
	e := &testEnv{
		t:         t,
		processor: gatewaytest.NewProcessor(),
		mail:      &notify.Recorder{},
		store:     memory.New(),
	}
	srv := server.New(testConfig(appEnv), server.Deps{
		Store:     e.store,
		Processor: e.processor,
		Mailer:    e.mail,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	e.url = ts.URL
	return e
}

func (e *testEnv) do(method, path, token string, body any, cookies ...*http.Cookie) (*http.Response, envelope) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.url+path, &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func refreshCookie(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == auth.RefreshCookie {
			return c.Value
		}
	}
	return ""
}

type loginData struct {
	Token string `json:"token"`
	User  struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

func (e *testEnv) register(name, email, role string) session {
	e.t.Helper()
	resp, env := e.do(http.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode, env.Message)
	data := decode[loginData](e.t, env.Data)
	return session{ID: data.User.ID, Email: email, Token: data.Token, Refresh: refreshCookie(resp)}
}

func (e *testEnv) verifyEmail(email string) {
	e.t.Helper()
	msg, ok := e.mail.Last(email)
	require.True(e.t, ok)
	link := strings.TrimSpace(msg.Body[strings.LastIndex(msg.Body, "/verify-email/")+len("/verify-email/"):])
	resp, env := e.do(http.MethodGet, "/auth/verify-email/"+link, "", nil)
	require.Equal(e.t, http.StatusOK, resp.StatusCode, env.Message)
}

func (e *testEnv) admin() session {
	e.t.Helper()
	resp, env := e.do(http.MethodPost, "/setup/create-admin", "", map[string]string{
		"name": "Admin", "email": "admin@example.com", "password": "secret123",
	})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode, env.Message)
	resp, env = e.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "secret123",
	})
	require.Equal(e.t, http.StatusOK, resp.StatusCode, env.Message)
	data := decode[loginData](e.t, env.Data)
	return session{ID: data.User.ID, Email: data.User.Email, Token: data.Token, Refresh: refreshCookie(resp)}
}

func (e *testEnv) balance(s session) decimal.Decimal {
	e.t.Helper()
	resp, env := e.do(http.MethodGet, "/transactions/balance", s.Token, nil)
	require.Equal(e.t, http.StatusOK, resp.StatusCode, env.Message)
	return decode[struct {
		Balance decimal.Decimal `json:"balance"`
	}](e.t, env.Data).Balance
}

func TestRegisterLoginAndMe(t *testing.T) {
	e := newEnv(t, "production")
	alice := e.register("Alice", "alice@example.com", "")
	require.NotEmpty(t, alice.Token)
	require.NotEmpty(t, alice.Refresh)

	msg, ok := e.mail.Last("alice@example.com")
	require.True(t, ok)
	require.Contains(t, msg.Body, "http://localhost:3000/verify-email/")

	resp, env := e.do(http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Again", "email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "User already exists", env.Message)

	resp, _ = e.do(http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Eve", "email": "eve@example.com", "password": "secret123", "role": "superuser",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = e.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-pass",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Invalid credentials", env.Message)

	resp, env = e.do(http.MethodGet, "/auth/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[struct {
		Email           string `json:"email"`
		IsEmailVerified bool   `json:"isEmailVerified"`
	}](t, env.Data)
	require.Equal(t, "alice@example.com", me.Email)
	require.False(t, me.IsEmailVerified)

	e.verifyEmail("alice@example.com")
	_, env = e.do(http.MethodGet, "/auth/me", alice.Token, nil)
	require.Contains(t, string(env.Data), `"isEmailVerified":true`)

	resp, _ = e.do(http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRotatesAndRejectsReplay(t *testing.T) {
	e := newEnv(t, "production")
	alice := e.register("Alice", "alice@example.com", "")
	old := &http.Cookie{Name: auth.RefreshCookie, Value: alice.Refresh}

	resp, env := e.do(http.MethodGet, "/auth/refresh-token", "", nil, old)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	fresh := refreshCookie(resp)
	require.NotEmpty(t, fresh)
	require.NotEqual(t, alice.Refresh, fresh)
	token := decode[struct {
		Token string `json:"token"`
	}](t, env.Data).Token
	resp, _ = e.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(http.MethodGet, "/auth/refresh-token", "", nil, old)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(http.MethodGet, "/auth/logout", token, nil, &http.Cookie{Name: auth.RefreshCookie, Value: fresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(http.MethodGet, "/auth/refresh-token", "", nil, &http.Cookie{Name: auth.RefreshCookie, Value: fresh})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(http.MethodGet, "/auth/refresh-token", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTransferEndpoints(t *testing.T) {
	e := newEnv(t, "development")
	admin := e.admin()
	bob := e.register("Bob", "bob@example.com", "")
	require.True(t, e.balance(admin).Equal(decimal.NewFromInt(10000)))

	resp, env := e.do(http.MethodPost, "/transactions/transfer", admin.Token, map[string]any{
		"receiverEmail": "bob@example.com", "amount": 500, "description": "rent",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	moved := decode[struct {
		TransactionID string `json:"transactionId"`
		Receiver      struct {
			Email string `json:"email"`
		} `json:"receiver"`
	}](t, env.Data)
	require.True(t, strings.HasPrefix(moved.TransactionID, "TRX"))
	require.Equal(t, "bob@example.com", moved.Receiver.Email)

	require.True(t, e.balance(admin).Equal(decimal.NewFromInt(9500)))
	require.True(t, e.balance(bob).Equal(decimal.NewFromInt(500)))

	resp, env = e.do(http.MethodPost, "/transactions/transfer", bob.Token, map[string]any{
		"receiverEmail": "admin@example.com", "amount": 501,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Insufficient balance", env.Message)

	resp, env = e.do(http.MethodPost, "/transactions/transfer", bob.Token, map[string]any{
		"receiverEmail": "bob@example.com", "amount": 1,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Cannot transfer money to yourself", env.Message)

	resp, env = e.do(http.MethodPost, "/transactions/transfer", bob.Token, map[string]any{
		"receiverEmail": "nobody@example.com", "amount": 1,
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Receiver not found", env.Message)

	resp, _ = e.do(http.MethodPost, "/transactions/transfer", bob.Token, map[string]any{
		"receiverEmail": "admin@example.com", "amount": -5,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = e.do(http.MethodGet, "/transactions?type=transfer&limit=5", bob.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	page := decode[struct {
		Count        int `json:"count"`
		Transactions []struct {
			TransactionID string `json:"transactionId"`
		} `json:"transactions"`
	}](t, env.Data)
	require.Equal(t, 1, page.Count)
	require.Equal(t, moved.TransactionID, page.Transactions[0].TransactionID)

	resp, _ = e.do(http.MethodGet, "/transactions/"+moved.TransactionID, bob.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	carol := e.register("Carol", "carol@example.com", "")
	resp, _ = e.do(http.MethodGet, "/transactions/"+moved.TransactionID, carol.Token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGatewayOrderAndVerify(t *testing.T) {
	e := newEnv(t, "production")
	alice := e.register("Alice", "alice@example.com", "")

	resp, _ := e.do(http.MethodPost, "/payment/create-order", alice.Token, map[string]any{"amount": 99})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env := e.do(http.MethodPost, "/payment/create-order", alice.Token, map[string]any{"amount": 50000})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	created := decode[struct {
		KeyID string `json:"keyId"`
		Order struct {
			OrderID  string `json:"orderId"`
			Currency string `json:"currency"`
			Status   string `json:"status"`
			Notes    struct {
				Email string `json:"email"`
			} `json:"notes"`
		} `json:"order"`
	}](t, env.Data)
	require.Equal(t, "rzp_test_key", created.KeyID)
	require.Equal(t, "INR", created.Order.Currency)
	require.Equal(t, "created", created.Order.Status)
	require.Equal(t, "alice@example.com", created.Order.Notes.Email)

	orderID := created.Order.OrderID
	paymentID := e.processor.Pay(orderID)

	resp, env = e.do(http.MethodPost, "/payment/verify", "", map[string]string{
		"orderId": orderID, "paymentId": paymentID, "signature": "deadbeef",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Payment verification failed", env.Message)
	require.True(t, e.balance(alice).IsZero())

	sig := gateway.Signature(keySecret, orderID, paymentID)
	resp, env = e.do(http.MethodPost, "/payment/verify", "", map[string]string{
		"orderId": orderID, "paymentId": paymentID, "signature": sig,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	verified := decode[struct {
		TransactionID string          `json:"transactionId"`
		Balance       decimal.Decimal `json:"balance"`
	}](t, env.Data)
	require.True(t, strings.HasPrefix(verified.TransactionID, "PAY"))
	require.True(t, verified.Balance.Equal(decimal.NewFromInt(500)))
	require.True(t, e.balance(alice).Equal(decimal.NewFromInt(500)))

	resp, _ = e.do(http.MethodPost, "/payment/verify", "", map[string]string{
		"orderId": orderID, "paymentId": paymentID, "signature": sig,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.True(t, e.balance(alice).Equal(decimal.NewFromInt(500)))

	resp, env = e.do(http.MethodGet, "/payment/orders", alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(env.Data), `"status":"paid"`)

	resp, env = e.do(http.MethodGet, "/payment/payments", alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(env.Data), paymentID)
}

func TestConcurrentVerifyOverHTTPCreditsOnce(t *testing.T) {
	e := newEnv(t, "production")
	alice := e.register("Alice", "alice@example.com", "")
	_, env := e.do(http.MethodPost, "/payment/create-order", alice.Token, map[string]any{"amount": 10000})
	orderID := decode[struct {
		Order struct {
			OrderID string `json:"orderId"`
		} `json:"order"`
	}](t, env.Data).Order.OrderID
	paymentID := e.processor.Pay(orderID)
	body, err := json.Marshal(map[string]string{
		"orderId": orderID, "paymentId": paymentID, "signature": gateway.Signature(keySecret, orderID, paymentID),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	codes := make(chan int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(e.url+"/payment/verify", "application/json", bytes.NewReader(body))
			if err != nil {
				codes <- 0
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)

	ok := 0
	for c := range codes {
		if c == http.StatusOK {
			ok++
		} else {
			require.Equal(t, http.StatusConflict, c)
		}
	}
	require.Equal(t, 1, ok)
	require.True(t, e.balance(alice).Equal(decimal.NewFromInt(100)))
}

func TestRoleGating(t *testing.T) {
	e := newEnv(t, "development")
	admin := e.admin()
	user := e.register("User", "user@example.com", "user")
	merchant := e.register("Shop", "shop@example.com", "merchant")

	resp, env := e.do(http.MethodGet, "/merchant/dashboard", user.Token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "User role user is not authorized to access this route", env.Message)

	resp, env = e.do(http.MethodGet, "/merchant/dashboard", merchant.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	require.Contains(t, string(env.Data), `"totalRevenue"`)

	resp, _ = e.do(http.MethodGet, "/users", merchant.Token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = e.do(http.MethodGet, "/users", admin.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decode[[]json.RawMessage](t, env.Data), 3)

	resp, _ = e.do(http.MethodGet, "/payment/orders", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminUserManagement(t *testing.T) {
	e := newEnv(t, "development")
	admin := e.admin()

	resp, env := e.do(http.MethodPost, "/users", admin.Token, map[string]any{
		"name": "Merchant", "email": "m@example.com", "password": "secret123", "role": "merchant", "isEmailVerified": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	id := decode[struct {
		ID int64 `json:"id"`
	}](t, env.Data).ID
	path := fmt.Sprintf("/users/%d", id)

	resp, env = e.do(http.MethodPut, path, admin.Token, map[string]any{
		"name": "Renamed", "role": "user", "balance": 999999,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	updated := decode[struct {
		Name    string          `json:"name"`
		Role    string          `json:"role"`
		Balance decimal.Decimal `json:"balance"`
	}](t, env.Data)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, "user", updated.Role)
	require.True(t, updated.Balance.IsZero())

	resp, _ = e.do(http.MethodPut, path, admin.Token, map[string]any{"role": "root"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(http.MethodDelete, path, admin.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(http.MethodGet, path, admin.Token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(http.MethodGet, "/users/abc", admin.Token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	carol := e.register("Carol", "carol@example.com", "")
	resp, env = e.do(http.MethodPost, "/transactions/transfer", admin.Token, map[string]any{
		"receiverEmail": "carol@example.com", "amount": 25,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	resp, _ = e.do(http.MethodDelete, fmt.Sprintf("/users/%d", carol.ID), admin.Token, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSetupOnlyInDevelopment(t *testing.T) {
	e := newEnv(t, "production")
	resp, _ := e.do(http.MethodPost, "/setup/create-admin", "", map[string]string{
		"name": "Admin", "email": "admin@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUPIFlow(t *testing.T) {
	e := newEnv(t, "development")
	admin := e.admin()
	bob := e.register("Bob", "bob@example.com", "")

	resp, env := e.do(http.MethodPost, "/upi/setup", admin.Token, map[string]string{"pin": "12a4"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, env.Message)

	resp, env = e.do(http.MethodPost, "/upi/setup", admin.Token, map[string]string{"pin": "1234"})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	require.Contains(t, string(env.Data), "@paygateway")

	resp, env = e.do(http.MethodPost, "/upi/setup", bob.Token, map[string]string{"pin": "4321", "customUpiId": "bob.pay@paygateway"})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)

	resp, env = e.do(http.MethodGet, "/upi/details", bob.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(env.Data), `"upiId":"bob.pay@paygateway"`)

	resp, env = e.do(http.MethodPost, "/upi/pay", admin.Token, map[string]any{
		"receiverUpiId": "bob.pay@paygateway", "amount": 250, "pin": "0000",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Invalid PIN", env.Message)
	require.True(t, e.balance(bob).IsZero())

	resp, env = e.do(http.MethodPost, "/upi/pay", admin.Token, map[string]any{
		"receiverUpiId": "bob.pay@paygateway", "amount": 250, "pin": "1234",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	require.True(t, strings.HasPrefix(decode[struct {
		TransactionID string `json:"transactionId"`
	}](t, env.Data).TransactionID, "UPI"))
	require.True(t, e.balance(bob).Equal(decimal.NewFromInt(250)))

	resp, _ = e.do(http.MethodPost, "/upi/verify-pin", bob.Token, map[string]string{"pin": "4321"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(http.MethodPut, "/upi/update-pin", bob.Token, map[string]string{"currentPin": "4321", "newPin": "9999"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(http.MethodPost, "/upi/verify-pin", bob.Token, map[string]string{"pin": "4321"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOTPFlow(t *testing.T) {
	e := newEnv(t, "production")
	e.register("Alice", "alice@example.com", "")

	resp, env := e.do(http.MethodPost, "/otp/send-otp", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, env.Message, "Email not verified")

	unverified := env.Message
	resp, env = e.do(http.MethodPost, "/otp/send-otp", "", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, unverified, env.Message)

	e.verifyEmail("alice@example.com")
	resp, env = e.do(http.MethodPost, "/otp/send-otp", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)

	msg, ok := e.mail.Last("alice@example.com")
	require.True(t, ok)
	require.Equal(t, "Your OTP for PayGateway", msg.Subject)
	code := strings.Fields(msg.Body[strings.Index(msg.Body, "password is ")+len("password is "):])[0]
	code = strings.TrimSuffix(code, ".")
	require.Len(t, code, 6)

	resp, _ = e.do(http.MethodPost, "/otp/verify-otp", "", map[string]string{"email": "alice@example.com", "otp": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, env = e.do(http.MethodPost, "/otp/verify-otp", "", map[string]string{"email": "alice@example.com", "otp": code})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid or expired OTP", env.Message)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t, "production")
	resp, env := e.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(env.Data), `"status":"ok"`)

	e.register("Alice", "alice@example.com", "")
	resp, err := http.Get(e.url + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "paygate_http_request_duration_seconds")
}
