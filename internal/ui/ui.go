package ui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/davrell/shopfront/internal/cart"
	"github.com/davrell/shopfront/internal/catalog"
	"github.com/davrell/shopfront/internal/checkout"
	"github.com/davrell/shopfront/internal/config"
	"github.com/davrell/shopfront/internal/oauth"
	"github.com/davrell/shopfront/internal/prefs"
	"github.com/davrell/shopfront/internal/session"
)

// View represents the current active view.
type View int

const (
	ViewCatalog View = iota
	ViewDetail
	ViewCart
	ViewAccount
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Catalog   *catalog.Cache
	Cart      *cart.Engine
	Session   *session.Manager
	Checkout  *checkout.Service
	Config    *config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	Logger    *slog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	catalog   *catalog.Cache
	cart      *cart.Engine
	session   *session.Manager
	checkout  *checkout.Service
	config    *config.Config
	prefs     prefs.Prefs
	prefsPath string
	log       *slog.Logger

	keys   keyMap
	theme  Theme
	styles Styles

	width  int
	height int
	ready  bool

	currentView View
	cursor      int
	showHelp    bool
	status      string

	catalogView catalog.View
	cartView    cart.Snapshot
	sessionView session.View

	// Active input form; nil while browsing.
	form *form

	// Pending OAuth flow. The listener stays up until the redirect arrives
	// or the flow is cancelled.
	oauthSrv *oauth.Server
	oauthURL string
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	userPrefs := opts.Prefs
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	theme := themeByName(userPrefs.Theme)

	return Model{
		ctx:         ctx,
		catalog:     opts.Catalog,
		cart:        opts.Cart,
		session:     opts.Session,
		checkout:    opts.Checkout,
		config:      opts.Config,
		prefs:       userPrefs,
		prefsPath:   prefsPath,
		log:         opts.Logger,
		keys:        DefaultKeyMap(),
		theme:       theme,
		styles:      theme.Styles(),
		currentView: ViewCatalog,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, refreshCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case refreshMsg:
		m.resnapshot()
		return m, nil

	case statusMsg:
		m.status = string(msg)
		m.resnapshot()
		return m, nil

	case oauthStartedMsg:
		m.oauthSrv = msg.srv
		m.oauthURL = msg.url
		m.status = "Open the sign-in link in a browser"
		return m, waitOAuthCmd(m.ctx, m.session, msg.srv)

	case oauthDoneMsg:
		if m.oauthSrv != nil {
			_ = m.oauthSrv.Close()
			m.oauthSrv = nil
		}
		m.oauthURL = ""
		if msg.err != nil {
			m.status = fmt.Sprintf("Google sign-in failed: %v", msg.err)
		} else {
			m.status = "Signed in with Google"
		}
		m.resnapshot()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// resnapshot pulls fresh copies of all three store views.
func (m *Model) resnapshot() {
	m.catalogView = m.catalog.Snapshot()
	m.cartView = m.cart.Snapshot()
	m.sessionView = m.session.Snapshot()
	m.clampCursor()
}

func (m *Model) clampCursor() {
	limit := len(m.catalogView.Products)
	if m.currentView == ViewCart {
		limit = len(m.cartView.Items)
	}
	if limit == 0 {
		m.cursor = 0
		return
	}
	if m.cursor >= limit {
		m.cursor = limit - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.form != nil {
		return m.handleFormKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = nextTheme(m.theme.Name)
		m.styles = m.theme.Styles()
		m.prefs.Theme = m.theme.Name
		if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
			m.log.Warn("save prefs", "error", err)
		}
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.status = ""
		if m.oauthSrv != nil {
			_ = m.oauthSrv.Close()
			m.oauthSrv = nil
			m.oauthURL = ""
		}
		if m.currentView == ViewDetail {
			m.currentView = ViewCatalog
		}
		return m, nil

	case key.Matches(msg, m.keys.ViewCatalog):
		m.currentView = ViewCatalog
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.ViewCart):
		m.currentView = ViewCart
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.ViewAccount):
		m.currentView = ViewAccount
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.cursor++
		m.clampCursor()
		return m, nil
	}

	switch m.currentView {
	case ViewCatalog:
		return m.handleCatalogKey(msg)
	case ViewDetail:
		return m.handleDetailKey(msg)
	case ViewCart:
		return m.handleCartKey(msg)
	case ViewAccount:
		return m.handleAccountKey(msg)
	}
	return m, nil
}

func (m Model) handleCatalogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Detail):
		if p := m.selectedProduct(); p != nil {
			m.currentView = ViewDetail
			return m, detailCmd(m.ctx, m.catalog, p.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.form = newSearchForm()
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.form = newFilterForm()
		return m, nil

	case key.Matches(msg, m.keys.ResetAll):
		return m, resetCatalogCmd(m.ctx, m.catalog)

	case key.Matches(msg, m.keys.Reload):
		return m, loadCatalogCmd(m.ctx, m.catalog)

	case key.Matches(msg, m.keys.Add):
		if p := m.selectedProduct(); p != nil {
			return m, m.orderProductCmd(p.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Remove):
		if p := m.selectedProduct(); p != nil {
			return m, m.removeFromCartCmd(p.ID)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	current := m.catalogView.Current
	if current == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Add):
		return m, m.orderProductCmd(current.ID)
	case key.Matches(msg, m.keys.Remove):
		return m, m.removeFromCartCmd(current.ID)
	}
	return m, nil
}

func (m Model) handleCartKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Add):
		if item := m.selectedCartItem(); item != nil {
			return m, m.addToCartCmd(item.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Remove):
		if item := m.selectedCartItem(); item != nil {
			return m, m.removeFromCartCmd(item.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Checkout):
		if len(m.cartView.Items) == 0 {
			m.status = "Cart is empty"
			return m, nil
		}
		m.form = newCheckoutForm(m.cartView.Shipping)
		return m, nil
	}
	return m, nil
}

func (m Model) handleAccountKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Login):
		if !m.sessionView.Authenticated() {
			m.form = newLoginForm()
		}
		return m, nil

	case key.Matches(msg, m.keys.Signup):
		if !m.sessionView.Authenticated() {
			m.form = newSignupForm()
		}
		return m, nil

	case key.Matches(msg, m.keys.Google):
		if !m.sessionView.Authenticated() && m.oauthSrv == nil {
			return m, startOAuthCmd(m.config)
		}
		return m, nil

	case key.Matches(msg, m.keys.Logout):
		if m.sessionView.Authenticated() {
			return m, logoutCmd(m.ctx, m.session)
		}
		return m, nil

	case key.Matches(msg, m.keys.ResetPwd):
		if !m.sessionView.Authenticated() {
			m.form = newResetForm()
		}
		return m, nil

	case key.Matches(msg, m.keys.ConfirmReset):
		if !m.sessionView.Authenticated() {
			m.form = newResetConfirmForm()
		}
		return m, nil

	case key.Matches(msg, m.keys.Activate):
		if !m.sessionView.Authenticated() {
			m.form = newActivateForm()
		}
		return m, nil
	}
	return m, nil
}

// orderProductCmd handles adds from a product card or detail page: signed
// in, the product joins the pending order; signed out, the local ledger.
func (m Model) orderProductCmd(id int64) tea.Cmd {
	if m.sessionView.Authenticated() {
		return orderAddCmd(m.ctx, m.checkout, id)
	}
	return guestAddCmd(m.ctx, m.cart, id)
}

// addToCartCmd handles cart-view increments: the cart endpoint when
// authenticated, the local ledger otherwise.
func (m Model) addToCartCmd(id int64) tea.Cmd {
	if m.sessionView.Authenticated() {
		return cartAddCmd(m.ctx, m.cart, id)
	}
	return guestAddCmd(m.ctx, m.cart, id)
}

func (m Model) removeFromCartCmd(id int64) tea.Cmd {
	if m.sessionView.Authenticated() {
		return cartRemoveCmd(m.ctx, m.cart, id)
	}
	return guestRemoveCmd(m.ctx, m.cart, id)
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(opts.Context))
	_, err := p.Run()
	return err
}
