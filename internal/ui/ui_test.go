package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/davrell/shopfront/internal/api"
	"github.com/davrell/shopfront/internal/cart"
	"github.com/davrell/shopfront/internal/catalog"
	"github.com/davrell/shopfront/internal/checkout"
	"github.com/davrell/shopfront/internal/logging"
	"github.com/davrell/shopfront/internal/session"
	"github.com/davrell/shopfront/internal/storage"
)

const mutationBody = `{
	"message": "Item was added",
	"total_items": 1,
	"total_cost": "20.00",
	"updated_item": {"id": 1, "product": "Tee", "price": "20.00", "quantity": 1, "total": "20.00"}
}`

// dispatchModel wires a Model to a real client stack against srv so that
// executing a key-driven command hits the recorded endpoint.
func dispatchModel(t *testing.T, srv *httptest.Server) Model {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.Open(ctx, filepath.Join(dir, "slots.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	jar, err := api.NewJar(filepath.Join(dir, "cookies.json"))
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	client, err := api.NewClient(srv.URL, jar, 2*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.SetAccessToken("token-123")

	cache := catalog.New(ctx, client, store, logging.Discard())
	engine := cart.New(ctx, client, store, jar, cache, logging.Discard())
	svc := checkout.New(client, engine, logging.Discard())

	return Model{
		ctx:         ctx,
		catalog:     cache,
		cart:        engine,
		checkout:    svc,
		keys:        DefaultKeyMap(),
		currentView: ViewCatalog,
		catalogView: catalog.View{Products: []api.Product{
			{ID: 1, Name: "Tee", Price: decimal.NewFromInt(20)},
		}},
		cartView: cart.Snapshot{Items: []api.CartItem{
			{ID: 1, Name: "Tee", UnitPrice: decimal.NewFromInt(20), Quantity: 1, LineTotal: decimal.NewFromInt(20)},
		}},
		sessionView: session.View{Status: session.StatusAuthenticated},
	}
}

func pressKey(t *testing.T, m Model, r rune) tea.Cmd {
	t.Helper()
	_, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	if cmd == nil {
		t.Fatalf("key %q produced no command", r)
	}
	return cmd
}

func TestCatalogAddUsesOrderEndpoint(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mutationBody))
	}))
	defer srv.Close()

	m := dispatchModel(t, srv)
	cmd := pressKey(t, m, 'a')
	cmd()

	if len(paths) != 1 || paths[0] != "/api/create-order/" {
		t.Fatalf("requests = %v, want the order endpoint", paths)
	}
}

func TestCartAddUsesCartEndpoint(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mutationBody))
	}))
	defer srv.Close()

	m := dispatchModel(t, srv)
	m.currentView = ViewCart
	cmd := pressKey(t, m, 'a')
	cmd()

	if len(paths) != 1 || paths[0] != "/api/update-cart/" {
		t.Fatalf("requests = %v, want the cart endpoint", paths)
	}
}

func TestGuestAddStaysLocal(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
	}))
	defer srv.Close()

	m := dispatchModel(t, srv)
	m.sessionView = session.View{Status: session.StatusUnauthenticated}
	cmd := pressKey(t, m, 'a')
	cmd()

	if len(paths) != 0 {
		t.Fatalf("requests = %v, guest add must not touch the network", paths)
	}
	if got := m.cart.GuestQuantity(1); got != 1 {
		t.Fatalf("guest quantity = %d, want 1", got)
	}
}
