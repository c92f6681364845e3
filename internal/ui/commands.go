package ui

import (
	"context"
	"fmt"
	"net/url"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/davrell/shopfront/internal/api"
	"github.com/davrell/shopfront/internal/cart"
	"github.com/davrell/shopfront/internal/catalog"
	"github.com/davrell/shopfront/internal/checkout"
	"github.com/davrell/shopfront/internal/config"
	"github.com/davrell/shopfront/internal/oauth"
	"github.com/davrell/shopfront/internal/session"
)

// oauthWaitLimit bounds how long the callback listener waits for the
// provider redirect before the flow is abandoned.
const oauthWaitLimit = 3 * time.Minute

// Messages

// refreshMsg asks the model to re-snapshot all stores. Store operations
// record their own errors in the snapshots, so most commands end here.
type refreshMsg struct{}

// statusMsg carries a transient line for the status bar plus a refresh.
type statusMsg string

type oauthStartedMsg struct {
	srv *oauth.Server
	url string
}

type oauthDoneMsg struct {
	err error
}

// Commands

func refreshCmd() tea.Cmd {
	return func() tea.Msg { return refreshMsg{} }
}

func loadCatalogCmd(ctx context.Context, c *catalog.Cache) tea.Cmd {
	return func() tea.Msg {
		_ = c.LoadAll(ctx)
		return refreshMsg{}
	}
}

func detailCmd(ctx context.Context, c *catalog.Cache, id int64) tea.Cmd {
	return func() tea.Msg {
		_, _ = c.Detail(ctx, id)
		return refreshMsg{}
	}
}

func searchCmd(ctx context.Context, c *catalog.Cache, query string) tea.Cmd {
	return func() tea.Msg {
		_ = c.Search(ctx, query)
		return refreshMsg{}
	}
}

func filterCmd(ctx context.Context, c *catalog.Cache, f api.ProductFilter) tea.Cmd {
	return func() tea.Msg {
		_ = c.Filter(ctx, f)
		return refreshMsg{}
	}
}

func resetCatalogCmd(ctx context.Context, c *catalog.Cache) tea.Cmd {
	return func() tea.Msg {
		_ = c.Reset(ctx)
		return refreshMsg{}
	}
}

// orderAddCmd adds a product to the pending order. Product-card adds go
// through the order endpoint while cart increments use the cart endpoint.
func orderAddCmd(ctx context.Context, svc *checkout.Service, id int64) tea.Cmd {
	return func() tea.Msg {
		_ = svc.AddToOrder(ctx, id)
		return refreshMsg{}
	}
}

func cartAddCmd(ctx context.Context, e *cart.Engine, id int64) tea.Cmd {
	return func() tea.Msg {
		_ = e.Add(ctx, id)
		return refreshMsg{}
	}
}

func cartRemoveCmd(ctx context.Context, e *cart.Engine, id int64) tea.Cmd {
	return func() tea.Msg {
		_ = e.Remove(ctx, id)
		return refreshMsg{}
	}
}

func guestAddCmd(ctx context.Context, e *cart.Engine, id int64) tea.Cmd {
	return func() tea.Msg {
		e.GuestAdd(ctx, id)
		return refreshMsg{}
	}
}

func guestRemoveCmd(ctx context.Context, e *cart.Engine, id int64) tea.Cmd {
	return func() tea.Msg {
		e.GuestRemove(ctx, id)
		return refreshMsg{}
	}
}

func loginCmd(ctx context.Context, s *session.Manager, email, password string) tea.Cmd {
	return func() tea.Msg {
		if err := s.Login(ctx, email, password); err != nil {
			return refreshMsg{}
		}
		return statusMsg("Signed in")
	}
}

func signupCmd(ctx context.Context, s *session.Manager, req api.SignupRequest) tea.Cmd {
	return func() tea.Msg {
		if err := s.Signup(ctx, req); err != nil {
			return refreshMsg{}
		}
		return statusMsg("Account created, check your email to activate")
	}
}

func logoutCmd(ctx context.Context, s *session.Manager) tea.Cmd {
	return func() tea.Msg {
		s.Logout(ctx)
		return statusMsg("Signed out")
	}
}

func resetPasswordCmd(ctx context.Context, s *session.Manager, email string) tea.Cmd {
	return func() tea.Msg {
		if err := s.ResetPassword(ctx, email); err != nil {
			return refreshMsg{}
		}
		return statusMsg("Reset email sent")
	}
}

func resetConfirmCmd(ctx context.Context, s *session.Manager, uid, token, newPassword, rePassword string) tea.Cmd {
	return func() tea.Msg {
		if err := s.ResetPasswordConfirm(ctx, uid, token, newPassword, rePassword); err != nil {
			return refreshMsg{}
		}
		return statusMsg("Password changed")
	}
}

func activateCmd(ctx context.Context, s *session.Manager, uid, token string) tea.Cmd {
	return func() tea.Msg {
		if err := s.Activate(ctx, uid, token); err != nil {
			return refreshMsg{}
		}
		return statusMsg("Account activated")
	}
}

func processOrderCmd(ctx context.Context, svc *checkout.Service, info api.ShippingInfo, authed bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if authed {
			err = svc.Process(ctx, info)
		} else {
			err = svc.GuestProcess(ctx, info)
		}
		if err != nil {
			return statusMsg(fmt.Sprintf("Checkout failed: %v", err))
		}
		return statusMsg("Order placed")
	}
}

// startOAuthCmd boots the loopback listener and hands the sign-in URL to
// the model for display. The user opens it in a browser; the provider
// redirect lands back on the listener.
func startOAuthCmd(cfg *config.Config) tea.Cmd {
	return func() tea.Msg {
		srv, err := oauth.Start(cfg.OAuthCallback)
		if err != nil {
			return statusMsg(fmt.Sprintf("OAuth listener failed: %v", err))
		}
		values := url.Values{}
		values.Set("redirect_uri", srv.RedirectURI())
		authURL := cfg.APIBase + "/auth/o/google-oauth2/?" + values.Encode()
		return oauthStartedMsg{srv: srv, url: authURL}
	}
}

// waitOAuthCmd blocks until the redirect arrives, then completes the token
// exchange through the session manager, which folds the guest cart itself.
func waitOAuthCmd(ctx context.Context, s *session.Manager, srv *oauth.Server) tea.Cmd {
	return func() tea.Msg {
		waitCtx, cancel := context.WithTimeout(ctx, oauthWaitLimit)
		defer cancel()

		res, err := srv.Wait(waitCtx)
		if err != nil {
			return oauthDoneMsg{err: err}
		}
		if err := s.GoogleExchange(ctx, res.State, res.Code); err != nil {
			return oauthDoneMsg{err: err}
		}
		return oauthDoneMsg{}
	}
}

func (m Model) selectedProduct() *api.Product {
	if m.cursor < 0 || m.cursor >= len(m.catalogView.Products) {
		return nil
	}
	return &m.catalogView.Products[m.cursor]
}

func (m Model) selectedCartItem() *api.CartItem {
	if m.cursor < 0 || m.cursor >= len(m.cartView.Items) {
		return nil
	}
	return &m.cartView.Items[m.cursor]
}
