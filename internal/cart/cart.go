package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/davrell/shopfront/internal/api"
	"github.com/davrell/shopfront/internal/storage"
)

// cookieName is the guest cart cookie. The server's guest checkout reads it
// from the request, so it must stay in the cookie jar rather than the slot
// store.
const cookieName = "cart"

// errItemMissing is the domain-level rejection the server sends when a
// mutation names a product that is no longer in the order.
const errItemMissing = "Item does not exist"

// Snapshot is the totals-computed cart view used for rendering. It is
// persisted to the cartData slot after every successful mutation and
// restored at startup. Field names mirror the persisted shape.
type Snapshot struct {
	Items      []api.CartItem  `json:"itemList"`
	TotalItems int             `json:"totalItems"`
	TotalCost  decimal.Decimal `json:"totalCost"`
	Shipping   bool            `json:"shipping"`
	Loading    bool            `json:"loading"`
	Err        string          `json:"error"`
}

func emptySnapshot() Snapshot {
	return Snapshot{TotalCost: decimal.Zero}
}

// Client is the slice of the API client the engine needs.
type Client interface {
	FetchCart(ctx context.Context) (api.CartData, error)
	UpdateCart(ctx context.Context, action string, productID int64) (api.CartMutation, error)
}

// ProductSource resolves product ids when deriving guest snapshots.
type ProductSource interface {
	Lookup(ctx context.Context, id int64) (api.Product, bool)
}

// CookieStore is the cookie side of the persistence adapter.
type CookieStore interface {
	Value(name string) (string, bool)
	Set(name, value string)
	Delete(name string)
}

// Engine owns the cart state for both modes.
//
// Guest mode mutates the ledger directly and re-derives the snapshot from
// the catalog, with no network I/O. Authenticated mode issues server
// mutations and merges the response into the snapshot by item id. Every
// server operation carries a sequence number; a response that arrives after
// a newer operation was issued is discarded so a stale reply cannot roll the
// snapshot back.
type Engine struct {
	mu       sync.Mutex
	client   Client
	store    *storage.Store
	cookies  CookieStore
	products ProductSource
	log      *slog.Logger

	ledger *Ledger
	snap   Snapshot
	seq    uint64
}

// New restores the engine from persisted state: the snapshot from the
// cartData slot and the ledger from the cart cookie. A missing cart cookie
// is initialized to an empty ledger, matching the cookie the server expects
// to find on guest checkout.
func New(ctx context.Context, client Client, store *storage.Store, cookies CookieStore, products ProductSource, log *slog.Logger) *Engine {
	e := &Engine{
		client:   client,
		store:    store,
		cookies:  cookies,
		products: products,
		log:      log,
		snap:     emptySnapshot(),
	}
	var snap Snapshot
	if ok, err := store.Get(ctx, storage.SlotCartData, &snap); err == nil && ok {
		snap.Loading = false
		e.snap = snap
	}
	raw, ok := cookies.Value(cookieName)
	if !ok {
		e.ledger = NewLedger()
		cookies.Set(cookieName, e.ledger.Encode())
	} else {
		e.ledger = ParseLedger(raw)
	}
	return e
}

// Snapshot returns a copy of the current cart view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cloneSnapLocked()
}

func (e *Engine) cloneSnapLocked() Snapshot {
	snap := e.snap
	if len(e.snap.Items) > 0 {
		snap.Items = make([]api.CartItem, len(e.snap.Items))
		copy(snap.Items, e.snap.Items)
	}
	return snap
}

// ItemQuantity reports the quantity of a product in the current snapshot.
func (e *Engine) ItemQuantity(id int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, item := range e.snap.Items {
		if item.ID == id {
			return item.Quantity
		}
	}
	return 0
}

// GuestQuantity reports the ledger quantity of a product.
func (e *Engine) GuestQuantity(id int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Quantity(id)
}

// Fetch replaces the snapshot with the server cart. On failure the snapshot
// resets to empty with the error recorded, and that empty state is what gets
// persisted; callers must not assume a failed fetch preserves prior
// contents.
func (e *Engine) Fetch(ctx context.Context) error {
	seq := e.begin()
	data, err := e.client.FetchCart(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stale(seq) {
		return nil
	}
	if err != nil {
		e.failLocked(ctx, err.Error())
		return err
	}
	e.snap = Snapshot{
		Items:      data.Items,
		TotalItems: data.TotalItems,
		TotalCost:  data.TotalCost,
		Shipping:   data.Shipping,
	}
	e.persistLocked(ctx)
	return nil
}

// GuestAdd increments a product in the ledger and re-derives the snapshot.
func (e *Engine) GuestAdd(ctx context.Context, id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.Add(id)
	e.writeLedgerLocked()
	e.deriveLocked(ctx)
}

// GuestRemove decrements a product in the ledger, deleting the entry at
// zero, and re-derives the snapshot.
func (e *Engine) GuestRemove(ctx context.Context, id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.Remove(id)
	e.writeLedgerLocked()
	e.deriveLocked(ctx)
}

// RefreshGuest re-derives the snapshot from the ledger without mutating it.
// Called at startup for unauthenticated sessions.
func (e *Engine) RefreshGuest(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deriveLocked(ctx)
}

// deriveLocked joins the ledger against the catalog. Ledger entries whose
// product cannot be resolved are skipped, not errors: the product may have
// been removed from the catalog since it was added.
func (e *Engine) deriveLocked(ctx context.Context) {
	snap := emptySnapshot()
	e.ledger.Each(func(id int64, quantity int) {
		product, ok := e.products.Lookup(ctx, id)
		if !ok {
			e.log.Debug("skipping unknown ledger product", "product_id", id)
			return
		}
		line := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
		snap.Items = append(snap.Items, api.CartItem{
			ID:        product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Image:     product.Image,
			Quantity:  quantity,
			LineTotal: line,
		})
		snap.TotalItems += quantity
		snap.TotalCost = snap.TotalCost.Add(line)
		if !product.Digital {
			snap.Shipping = true
		}
	})
	e.snap = snap
	e.persistLocked(ctx)
}

// Add issues a server-side increment for a product.
func (e *Engine) Add(ctx context.Context, id int64) error {
	return e.mutate(ctx, "add", id)
}

// Remove issues a server-side decrement for a product.
func (e *Engine) Remove(ctx context.Context, id int64) error {
	return e.mutate(ctx, "remove", id)
}

func (e *Engine) mutate(ctx context.Context, action string, id int64) error {
	seq := e.begin()
	resp, err := e.client.UpdateCart(ctx, action, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stale(seq) {
		e.log.Debug("discarding stale cart response", "action", action, "product_id", id, "seq", seq)
		return nil
	}
	if err != nil {
		e.failLocked(ctx, err.Error())
		return err
	}
	e.applyMutationLocked(ctx, id, resp)
	return nil
}

// ApplyMutation merges a server mutation result produced outside the engine
// (order creation goes through the checkout service but lands in the same
// snapshot).
func (e *Engine) ApplyMutation(ctx context.Context, productID int64, resp api.CartMutation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyMutationLocked(ctx, productID, resp)
}

func (e *Engine) applyMutationLocked(ctx context.Context, productID int64, resp api.CartMutation) {
	e.snap.Loading = false
	e.snap.Err = ""
	switch {
	case resp.Err == errItemMissing:
		id := resp.ItemID
		if id == 0 {
			id = productID
		}
		e.removeItemLocked(id)
	case resp.UpdatedItem == nil:
		// Server deleted the line (quantity reached zero).
		e.removeItemLocked(productID)
	default:
		e.mergeItemLocked(*resp.UpdatedItem)
	}
	e.snap.TotalItems = resp.TotalItems
	e.snap.TotalCost = resp.TotalCost
	e.persistLocked(ctx)
}

// mergeItemLocked replaces the matching item by id, appending when absent.
func (e *Engine) mergeItemLocked(item api.CartItem) {
	for i := range e.snap.Items {
		if e.snap.Items[i].ID == item.ID {
			e.snap.Items[i] = item
			return
		}
	}
	e.snap.Items = append(e.snap.Items, item)
}

func (e *Engine) removeItemLocked(id int64) {
	for i := range e.snap.Items {
		if e.snap.Items[i].ID == id {
			e.snap.Items = append(e.snap.Items[:i], e.snap.Items[i+1:]...)
			return
		}
	}
}

// FoldGuestCart replays the guest ledger into the server cart after login,
// clears the ledger, and fetches the authoritative server cart. A failed
// replay for one product is logged and skipped; folding must never make a
// login fail.
func (e *Engine) FoldGuestCart(ctx context.Context) error {
	e.mu.Lock()
	type entry struct {
		id  int64
		qty int
	}
	var entries []entry
	e.ledger.Each(func(id int64, quantity int) {
		entries = append(entries, entry{id: id, qty: quantity})
	})
	e.mu.Unlock()

	for _, en := range entries {
		for i := 0; i < en.qty; i++ {
			if _, err := e.client.UpdateCart(ctx, "add", en.id); err != nil {
				e.log.Warn("guest cart fold: add failed", "product_id", en.id, "error", err)
				break
			}
		}
	}

	e.mu.Lock()
	e.ledger.Clear()
	e.writeLedgerLocked()
	e.mu.Unlock()

	return e.Fetch(ctx)
}

// FailWith resets the snapshot to empty with an error message and persists
// it. Used when an order mutation fails outside the engine.
func (e *Engine) FailWith(ctx context.Context, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failLocked(ctx, msg)
}

// Reset clears the snapshot and removes the persisted copy. The guest
// ledger is untouched: logging out does not forfeit a guest cart.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap = emptySnapshot()
	if err := e.store.Delete(ctx, storage.SlotCartData); err != nil {
		e.log.Warn("delete cart snapshot", "error", err)
	}
}

// ResetAfterOrder clears the snapshot after a completed checkout and
// persists the empty state.
func (e *Engine) ResetAfterOrder(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap = emptySnapshot()
	e.persistLocked(ctx)
}

// ClearGuest empties the ledger and cookie along with the snapshot, after a
// guest checkout completes.
func (e *Engine) ClearGuest(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.Clear()
	e.cookies.Delete(cookieName)
	e.snap = emptySnapshot()
	e.persistLocked(ctx)
}

func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	e.snap.Loading = true
	return e.seq
}

// stale reports whether a newer operation was issued after the one
// identified by seq, in which case its response must be discarded. Callers
// hold the lock.
func (e *Engine) stale(seq uint64) bool {
	return seq < e.seq
}

func (e *Engine) failLocked(ctx context.Context, msg string) {
	snap := emptySnapshot()
	snap.Err = msg
	e.snap = snap
	e.persistLocked(ctx)
}

func (e *Engine) writeLedgerLocked() {
	e.cookies.Set(cookieName, e.ledger.Encode())
}

func (e *Engine) persistLocked(ctx context.Context) {
	snap := e.cloneSnapLocked()
	snap.Loading = false
	if err := e.store.Set(ctx, storage.SlotCartData, snap); err != nil {
		e.log.Warn("persist cart snapshot", "error", err)
	}
}
