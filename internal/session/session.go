// Package session owns authentication state: the JWT pair, the loaded user
// profile, and the tri-state authenticated flag that stays unknown until a
// verification round-trip resolves it.
package session

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/davrell/shopfront/internal/api"
	"github.com/davrell/shopfront/internal/storage"
)

// Status is the authentication state machine.
type Status int

const (
	StatusUnknown Status = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// AuthClient is the slice of the API client the session needs.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (api.TokenPair, error)
	VerifyToken(ctx context.Context, token string) error
	Me(ctx context.Context) (api.UserProfile, error)
	Signup(ctx context.Context, req api.SignupRequest) error
	GoogleExchange(ctx context.Context, state, code string) (api.TokenPair, error)
	Activate(ctx context.Context, uid, token string) error
	ResetPassword(ctx context.Context, email string) error
	ResetPasswordConfirm(ctx context.Context, uid, token, newPassword, rePassword string) error
	SetAccessToken(token string)
}

// CartSync is what the session triggers on auth transitions.
type CartSync interface {
	Fetch(ctx context.Context) error
	FoldGuestCart(ctx context.Context) error
	Reset(ctx context.Context)
}

// View is a copy of the session state for rendering.
type View struct {
	Status     Status
	User       *api.UserProfile
	FormErrors map[string]string
	Loading    bool

	// Fire-and-forget flow outcomes; nil until the flow has run.
	ActivationOK   *bool
	ResetOK        *bool
	ResetConfirmOK *bool
}

// Authenticated reports whether the session is known to be valid.
func (v View) Authenticated() bool {
	return v.Status == StatusAuthenticated
}

// Manager is the session state container.
type Manager struct {
	mu       sync.RWMutex
	client   AuthClient
	store    *storage.Store
	cart     CartSync
	log      *slog.Logger
	validate *validator.Validate

	access  string
	refresh string
	status  Status
	user    *api.UserProfile
	errs    map[string]string
	loading bool

	activationOK   *bool
	resetOK        *bool
	resetConfirmOK *bool
}

// New restores persisted tokens and installs the access token on the
// client. The status stays unknown until Verify runs.
func New(ctx context.Context, client AuthClient, store *storage.Store, cart CartSync, log *slog.Logger) *Manager {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	m := &Manager{
		client:   client,
		store:    store,
		cart:     cart,
		log:      log,
		validate: v,
		status:   StatusUnknown,
	}
	var access, refresh string
	if ok, err := store.Get(ctx, storage.SlotAccess, &access); err == nil && ok {
		m.access = access
	}
	if ok, err := store.Get(ctx, storage.SlotRefresh, &refresh); err == nil && ok {
		m.refresh = refresh
	}
	client.SetAccessToken(m.access)
	return m
}

// Snapshot returns a copy of the session state.
func (m *Manager) Snapshot() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	view := View{
		Status:         m.status,
		Loading:        m.loading,
		ActivationOK:   m.activationOK,
		ResetOK:        m.resetOK,
		ResetConfirmOK: m.resetConfirmOK,
	}
	if m.user != nil {
		user := *m.user
		view.User = &user
	}
	if len(m.errs) > 0 {
		view.FormErrors = make(map[string]string, len(m.errs))
		for k, v := range m.errs {
			view.FormErrors[k] = v
		}
	}
	return view
}

// Verify resolves the unknown state. With no token, or a token whose expiry
// has already passed, the session is unauthenticated without a round-trip.
// A server-confirmed token authenticates the session and triggers the cart
// and profile fetches. Only a server rejection destroys the stored pair; a
// transport failure leaves it in place so the next start can retry.
func (m *Manager) Verify(ctx context.Context) error {
	m.mu.Lock()
	token := m.access
	m.mu.Unlock()

	if token == "" || tokenExpired(token) {
		m.mu.Lock()
		m.destroyLocked(ctx)
		m.mu.Unlock()
		return nil
	}

	if err := m.client.VerifyToken(ctx, token); err != nil {
		if errors.Is(err, api.ErrTokenInvalid) {
			m.mu.Lock()
			m.destroyLocked(ctx)
			m.mu.Unlock()
			return nil
		}
		m.mu.Lock()
		m.status = StatusUnauthenticated
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.status = StatusAuthenticated
	m.mu.Unlock()

	if err := m.cart.Fetch(ctx); err != nil {
		m.log.Warn("cart fetch after verify", "error", err)
	}
	return m.LoadUser(ctx)
}

// Login exchanges credentials for tokens. Success persists the pair, folds
// any guest cart into the server cart, and loads the profile. A rejection
// surfaces field-keyed errors and leaves the session unauthenticated with
// tokens and the cached cart cleared.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.setLoading(true)
	pair, err := m.client.Login(ctx, email, password)
	if err != nil {
		m.mu.Lock()
		m.destroyLocked(ctx)
		m.errs = formErrors(err)
		m.loading = false
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.installTokensLocked(ctx, pair)
	m.status = StatusAuthenticated
	m.errs = nil
	m.loading = false
	m.mu.Unlock()

	if err := m.cart.FoldGuestCart(ctx); err != nil {
		m.log.Warn("guest cart fold after login", "error", err)
	}
	return m.LoadUser(ctx)
}

// Signup registers an account. Client-side validation runs first so obvious
// mistakes never leave the process; server rejections land in the same
// field-keyed error map. Success does not authenticate.
func (m *Manager) Signup(ctx context.Context, req api.SignupRequest) error {
	if err := m.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = validationMessage(fe)
			}
			m.mu.Lock()
			m.errs = fields
			m.mu.Unlock()
		}
		return err
	}

	m.setLoading(true)
	if err := m.client.Signup(ctx, req); err != nil {
		m.mu.Lock()
		m.destroyLocked(ctx)
		m.errs = formErrors(err)
		m.loading = false
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.status = StatusUnauthenticated
	m.errs = nil
	m.loading = false
	m.mu.Unlock()
	return nil
}

// LoadUser fetches the authenticated profile.
func (m *Manager) LoadUser(ctx context.Context) error {
	m.setLoading(true)
	profile, err := m.client.Me(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if err != nil {
		m.user = nil
		return err
	}
	m.user = &profile
	return nil
}

// Logout destroys the session: tokens, persisted copies, cached cart
// snapshot, and profile. It cannot fail; there is no server round-trip.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyLocked(ctx)
	m.errs = nil
}

// GoogleExchange completes the OAuth flow; its success path mirrors Login.
// The exchange is skipped when an access token already exists.
func (m *Manager) GoogleExchange(ctx context.Context, state, code string) error {
	m.mu.Lock()
	existing := m.access
	m.mu.Unlock()
	if state == "" || code == "" || existing != "" {
		return nil
	}

	pair, err := m.client.GoogleExchange(ctx, state, code)
	if err != nil {
		m.mu.Lock()
		m.destroyLocked(ctx)
		m.errs = formErrors(err)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.installTokensLocked(ctx, pair)
	m.status = StatusAuthenticated
	m.errs = nil
	m.mu.Unlock()

	if err := m.cart.FoldGuestCart(ctx); err != nil {
		m.log.Warn("guest cart fold after oauth", "error", err)
	}
	return m.LoadUser(ctx)
}

// Activate confirms an account from the emailed uid/token pair.
func (m *Manager) Activate(ctx context.Context, uid, token string) error {
	err := m.client.Activate(ctx, uid, token)
	ok := err == nil
	m.mu.Lock()
	m.activationOK = &ok
	m.mu.Unlock()
	return err
}

// ResetPassword requests a reset email.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	err := m.client.ResetPassword(ctx, email)
	ok := err == nil
	m.mu.Lock()
	m.resetOK = &ok
	m.mu.Unlock()
	return err
}

// ResetPasswordConfirm completes a reset.
func (m *Manager) ResetPasswordConfirm(ctx context.Context, uid, token, newPassword, rePassword string) error {
	err := m.client.ResetPasswordConfirm(ctx, uid, token, newPassword, rePassword)
	ok := err == nil
	m.mu.Lock()
	m.resetConfirmOK = &ok
	m.mu.Unlock()
	return err
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	if v {
		m.status = statusOr(m.status, StatusAuthenticating)
	}
	m.mu.Unlock()
}

// statusOr keeps an established answer while a request is in flight.
func statusOr(current, next Status) Status {
	if current == StatusAuthenticated {
		return current
	}
	return next
}

func (m *Manager) installTokensLocked(ctx context.Context, pair api.TokenPair) {
	m.access = pair.Access
	m.refresh = pair.Refresh
	m.client.SetAccessToken(pair.Access)
	if err := m.store.Set(ctx, storage.SlotAccess, pair.Access); err != nil {
		m.log.Warn("persist access token", "error", err)
	}
	if err := m.store.Set(ctx, storage.SlotRefresh, pair.Refresh); err != nil {
		m.log.Warn("persist refresh token", "error", err)
	}
}

func (m *Manager) destroyLocked(ctx context.Context) {
	m.access = ""
	m.refresh = ""
	m.user = nil
	m.status = StatusUnauthenticated
	m.client.SetAccessToken("")
	if err := m.store.Delete(ctx, storage.SlotAccess); err != nil {
		m.log.Warn("delete access token", "error", err)
	}
	if err := m.store.Delete(ctx, storage.SlotRefresh); err != nil {
		m.log.Warn("delete refresh token", "error", err)
	}
	m.cart.Reset(ctx)
}

// formErrors extracts field-keyed messages from an API error. Non-validation
// failures collapse to a single detail entry.
func formErrors(err error) map[string]string {
	var ve *api.ValidationError
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve.Fields))
		for k, v := range ve.Fields {
			fields[k] = v
		}
		return fields
	}
	return map[string]string{"detail": err.Error()}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "Value is too short."
	case "eqfield":
		return "Passwords do not match."
	default:
		return "Invalid value."
	}
}

// tokenExpired decodes the JWT without verifying its signature; only the
// server can verify, but a token past its exp claim can be rejected locally.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) <= 0
}
