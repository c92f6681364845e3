package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/davrell/shopfront/internal/api"
	"github.com/davrell/shopfront/internal/logging"
	"github.com/davrell/shopfront/internal/storage"
)

type fakeAuthClient struct {
	login    func(ctx context.Context, email, password string) (api.TokenPair, error)
	verify   func(ctx context.Context, token string) error
	me       func(ctx context.Context) (api.UserProfile, error)
	signup   func(ctx context.Context, req api.SignupRequest) error
	exchange func(ctx context.Context, state, code string) (api.TokenPair, error)

	access string
}

func (f *fakeAuthClient) Login(ctx context.Context, email, password string) (api.TokenPair, error) {
	if f.login == nil {
		return api.TokenPair{}, errors.New("unexpected Login")
	}
	return f.login(ctx, email, password)
}

func (f *fakeAuthClient) VerifyToken(ctx context.Context, token string) error {
	if f.verify == nil {
		return errors.New("unexpected VerifyToken")
	}
	return f.verify(ctx, token)
}

func (f *fakeAuthClient) Me(ctx context.Context) (api.UserProfile, error) {
	if f.me == nil {
		return api.UserProfile{}, errors.New("unexpected Me")
	}
	return f.me(ctx)
}

func (f *fakeAuthClient) Signup(ctx context.Context, req api.SignupRequest) error {
	if f.signup == nil {
		return errors.New("unexpected Signup")
	}
	return f.signup(ctx, req)
}

func (f *fakeAuthClient) GoogleExchange(ctx context.Context, state, code string) (api.TokenPair, error) {
	if f.exchange == nil {
		return api.TokenPair{}, errors.New("unexpected GoogleExchange")
	}
	return f.exchange(ctx, state, code)
}

func (f *fakeAuthClient) Activate(context.Context, string, string) error { return nil }

func (f *fakeAuthClient) ResetPassword(context.Context, string) error { return nil }

func (f *fakeAuthClient) ResetPasswordConfirm(context.Context, string, string, string, string) error {
	return nil
}

func (f *fakeAuthClient) SetAccessToken(token string) { f.access = token }

type fakeCartSync struct {
	fetches int
	folds   int
	resets  int
}

func (f *fakeCartSync) Fetch(context.Context) error         { f.fetches++; return nil }
func (f *fakeCartSync) FoldGuestCart(context.Context) error { f.folds++; return nil }
func (f *fakeCartSync) Reset(context.Context)               { f.resets++ }

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "slots.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"exp": exp.Unix(), "user_id": 1}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validSignup() api.SignupRequest {
	return api.SignupRequest{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Username:   "ada",
		Password:   "correct-horse",
		RePassword: "correct-horse",
	}
}

func TestVerifyWithoutToken(t *testing.T) {
	ctx := context.Background()
	client := &fakeAuthClient{
		verify: func(context.Context, string) error {
			t.Fatal("no token must mean no round-trip")
			return nil
		},
	}
	cart := &fakeCartSync{}
	m := New(ctx, client, testStore(t), cart, logging.Discard())

	if err := m.Verify(ctx); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got := m.Snapshot().Status; got != StatusUnauthenticated {
		t.Fatalf("Status = %v, want unauthenticated", got)
	}
	if cart.resets == 0 {
		t.Fatal("destroying the session must reset the cached cart")
	}
}

func TestVerifyExpiredTokenSkipsServer(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	if err := store.Set(ctx, storage.SlotAccess, makeToken(t, time.Now().Add(-time.Hour))); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	client := &fakeAuthClient{
		verify: func(context.Context, string) error {
			t.Fatal("expired token must be rejected locally")
			return nil
		},
	}
	m := New(ctx, client, store, &fakeCartSync{}, logging.Discard())

	if err := m.Verify(ctx); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got := m.Snapshot().Status; got != StatusUnauthenticated {
		t.Fatalf("Status = %v, want unauthenticated", got)
	}
	var access string
	if ok, _ := store.Get(ctx, storage.SlotAccess, &access); ok {
		t.Fatal("expired token must be deleted from the store")
	}
}

func TestVerifyRejectedToken(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	if err := store.Set(ctx, storage.SlotAccess, makeToken(t, time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	client := &fakeAuthClient{
		verify: func(context.Context, string) error { return api.ErrTokenInvalid },
	}
	m := New(ctx, client, store, &fakeCartSync{}, logging.Discard())

	// A server-side rejection is a clean answer, not an error.
	if err := m.Verify(ctx); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got := m.Snapshot().Status; got != StatusUnauthenticated {
		t.Fatalf("Status = %v, want unauthenticated", got)
	}
	if client.access != "" {
		t.Fatal("rejected token must be cleared from the client")
	}
}

func TestVerifyTransportErrorKeepsTokens(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	token := makeToken(t, time.Now().Add(time.Hour))
	if err := store.Set(ctx, storage.SlotAccess, token); err != nil {
		t.Fatalf("seed access token: %v", err)
	}
	if err := store.Set(ctx, storage.SlotRefresh, "ref"); err != nil {
		t.Fatalf("seed refresh token: %v", err)
	}
	client := &fakeAuthClient{
		verify: func(context.Context, string) error {
			return errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")
		},
	}
	cart := &fakeCartSync{}
	m := New(ctx, client, store, cart, logging.Discard())

	if err := m.Verify(ctx); err == nil {
		t.Fatal("Verify should report the transport failure")
	}
	if got := m.Snapshot().Status; got != StatusUnauthenticated {
		t.Fatalf("Status = %v, want unauthenticated", got)
	}

	// Only a server rejection destroys the pair. An unreachable server must
	// leave the persisted tokens so the next start can verify again.
	var access, refresh string
	if ok, _ := store.Get(ctx, storage.SlotAccess, &access); !ok || access != token {
		t.Fatalf("persisted access after transport failure = %q, ok=%v", access, ok)
	}
	if ok, _ := store.Get(ctx, storage.SlotRefresh, &refresh); !ok || refresh != "ref" {
		t.Fatalf("persisted refresh after transport failure = %q, ok=%v", refresh, ok)
	}
	if client.access != token {
		t.Fatalf("client token = %q, want the restored token kept", client.access)
	}
	if cart.resets != 0 {
		t.Fatal("transport failure must not clear the cached cart")
	}
}

func TestVerifySuccessLoadsCartAndProfile(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	token := makeToken(t, time.Now().Add(time.Hour))
	if err := store.Set(ctx, storage.SlotAccess, token); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	client := &fakeAuthClient{
		verify: func(_ context.Context, got string) error {
			if got != token {
				t.Errorf("VerifyToken got %q", got)
			}
			return nil
		},
		me: func(context.Context) (api.UserProfile, error) {
			return api.UserProfile{ID: 1, Email: "ada@example.com"}, nil
		},
	}
	cart := &fakeCartSync{}
	m := New(ctx, client, store, cart, logging.Discard())

	if err := m.Verify(ctx); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	view := m.Snapshot()
	if !view.Authenticated() {
		t.Fatalf("Status = %v, want authenticated", view.Status)
	}
	if view.User == nil || view.User.Email != "ada@example.com" {
		t.Fatalf("User = %+v", view.User)
	}
	if cart.fetches != 1 {
		t.Fatalf("cart fetches = %d, want 1", cart.fetches)
	}
}

func TestLoginSuccessFoldsGuestCart(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	pair := api.TokenPair{Access: "acc", Refresh: "ref"}
	client := &fakeAuthClient{
		login: func(_ context.Context, email, password string) (api.TokenPair, error) {
			if email != "ada@example.com" || password != "pw" {
				t.Errorf("Login(%q, %q)", email, password)
			}
			return pair, nil
		},
		me: func(context.Context) (api.UserProfile, error) {
			return api.UserProfile{Email: "ada@example.com"}, nil
		},
	}
	cart := &fakeCartSync{}
	m := New(ctx, client, store, cart, logging.Discard())

	if err := m.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !m.Snapshot().Authenticated() {
		t.Fatal("Login success must authenticate")
	}
	if cart.folds != 1 {
		t.Fatalf("folds = %d, want 1", cart.folds)
	}
	if client.access != "acc" {
		t.Fatalf("client access token = %q", client.access)
	}
	var access, refresh string
	if ok, _ := store.Get(ctx, storage.SlotAccess, &access); !ok || access != "acc" {
		t.Fatalf("persisted access = %q, ok=%v", access, ok)
	}
	if ok, _ := store.Get(ctx, storage.SlotRefresh, &refresh); !ok || refresh != "ref" {
		t.Fatalf("persisted refresh = %q, ok=%v", refresh, ok)
	}
}

func TestLoginRejectionSurfacesFormErrors(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	client := &fakeAuthClient{
		login: func(context.Context, string, string) (api.TokenPair, error) {
			return api.TokenPair{}, &api.ValidationError{Fields: map[string]string{
				"detail": "No active account found with the given credentials",
			}}
		},
	}
	cart := &fakeCartSync{}
	m := New(ctx, client, store, cart, logging.Discard())

	if err := m.Login(ctx, "ada@example.com", "wrong"); err == nil {
		t.Fatal("Login should surface the rejection")
	}
	view := m.Snapshot()
	if view.Authenticated() {
		t.Fatal("rejected login must not authenticate")
	}
	if got := view.FormErrors["detail"]; got != "No active account found with the given credentials" {
		t.Fatalf("FormErrors = %+v", view.FormErrors)
	}
	if cart.resets == 0 {
		t.Fatal("rejected login must clear the cached cart")
	}
	var access string
	if ok, _ := store.Get(ctx, storage.SlotAccess, &access); ok {
		t.Fatal("rejected login must clear persisted tokens")
	}
}

func TestSignupClientValidation(t *testing.T) {
	ctx := context.Background()
	client := &fakeAuthClient{
		signup: func(context.Context, api.SignupRequest) error {
			t.Fatal("invalid form must never reach the server")
			return nil
		},
	}
	m := New(ctx, client, testStore(t), &fakeCartSync{}, logging.Discard())

	req := validSignup()
	req.RePassword = "different"
	if err := m.Signup(ctx, req); err == nil {
		t.Fatal("Signup should reject mismatched passwords")
	}
	if got := m.Snapshot().FormErrors["re_password"]; got != "Passwords do not match." {
		t.Fatalf("FormErrors = %+v", m.Snapshot().FormErrors)
	}
}

func TestSignupServerRejection(t *testing.T) {
	ctx := context.Background()
	client := &fakeAuthClient{
		signup: func(context.Context, api.SignupRequest) error {
			return &api.ValidationError{Fields: map[string]string{
				"username": "A user with that username already exists.",
			}}
		},
	}
	m := New(ctx, client, testStore(t), &fakeCartSync{}, logging.Discard())

	if err := m.Signup(ctx, validSignup()); err == nil {
		t.Fatal("Signup should surface the rejection")
	}
	if got := m.Snapshot().FormErrors["username"]; got != "A user with that username already exists." {
		t.Fatalf("FormErrors = %+v", m.Snapshot().FormErrors)
	}
}

func TestSignupSuccessDoesNotAuthenticate(t *testing.T) {
	ctx := context.Background()
	client := &fakeAuthClient{
		signup: func(context.Context, api.SignupRequest) error { return nil },
	}
	m := New(ctx, client, testStore(t), &fakeCartSync{}, logging.Discard())

	if err := m.Signup(ctx, validSignup()); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	view := m.Snapshot()
	if view.Authenticated() {
		t.Fatal("signup must not authenticate; the account awaits activation")
	}
	if len(view.FormErrors) != 0 {
		t.Fatalf("FormErrors = %+v", view.FormErrors)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	client := &fakeAuthClient{
		login: func(context.Context, string, string) (api.TokenPair, error) {
			return api.TokenPair{Access: "acc", Refresh: "ref"}, nil
		},
		me: func(context.Context) (api.UserProfile, error) {
			return api.UserProfile{Email: "ada@example.com"}, nil
		},
	}
	cart := &fakeCartSync{}
	m := New(ctx, client, store, cart, logging.Discard())
	if err := m.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	m.Logout(ctx)

	view := m.Snapshot()
	if view.Authenticated() || view.User != nil {
		t.Fatalf("view after logout = %+v", view)
	}
	if client.access != "" {
		t.Fatal("logout must clear the client token")
	}
	var access string
	if ok, _ := store.Get(ctx, storage.SlotAccess, &access); ok {
		t.Fatal("logout must delete persisted tokens")
	}
	if cart.resets == 0 {
		t.Fatal("logout must reset the cached cart")
	}
}

func TestGoogleExchangeSkipsWhenAuthenticated(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	if err := store.Set(ctx, storage.SlotAccess, "existing"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	client := &fakeAuthClient{
		exchange: func(context.Context, string, string) (api.TokenPair, error) {
			t.Fatal("exchange must be skipped when a token exists")
			return api.TokenPair{}, nil
		},
	}
	m := New(ctx, client, store, &fakeCartSync{}, logging.Discard())

	if err := m.GoogleExchange(ctx, "state", "code"); err != nil {
		t.Fatalf("GoogleExchange: %v", err)
	}
}

func TestGoogleExchangeMirrorsLogin(t *testing.T) {
	ctx := context.Background()
	client := &fakeAuthClient{
		exchange: func(_ context.Context, state, code string) (api.TokenPair, error) {
			if state != "st" || code != "co" {
				t.Errorf("GoogleExchange(%q, %q)", state, code)
			}
			return api.TokenPair{Access: "acc", Refresh: "ref"}, nil
		},
		me: func(context.Context) (api.UserProfile, error) {
			return api.UserProfile{Email: "ada@example.com"}, nil
		},
	}
	cart := &fakeCartSync{}
	m := New(ctx, client, testStore(t), cart, logging.Discard())

	if err := m.GoogleExchange(ctx, "st", "co"); err != nil {
		t.Fatalf("GoogleExchange: %v", err)
	}
	if !m.Snapshot().Authenticated() {
		t.Fatal("exchange success must authenticate")
	}
	if cart.folds != 1 {
		t.Fatalf("folds = %d, want 1", cart.folds)
	}
}

func TestResetPasswordFlags(t *testing.T) {
	ctx := context.Background()
	m := New(ctx, &fakeAuthClient{}, testStore(t), &fakeCartSync{}, logging.Discard())

	if m.Snapshot().ResetOK != nil {
		t.Fatal("ResetOK must start unset")
	}
	if err := m.ResetPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	ok := m.Snapshot().ResetOK
	if ok == nil || !*ok {
		t.Fatalf("ResetOK = %v, want true", ok)
	}
}
