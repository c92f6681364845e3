// Package cart reconciles the two cart representations the storefront uses.
//
// # Overview
//
// Signed-out visitors keep a guest cart: a quantity-per-product ledger
// stored in the cart cookie. Signed-in users have a server-backed cart that
// the API owns. The Engine is the single owner of both, and of the derived
// Snapshot the UI renders.
//
// # State machine
//
//	            fetch/mutate issued
//	 Empty ───────────────────────────> Loading
//	 Populated ───────────────────────> Loading
//	                                       │
//	                 success               │        failure
//	        ┌──────────────────────────────┴─────────────────┐
//	        ▼                                                ▼
//	   Populated (snapshot rebuilt from response,        Failed (snapshot
//	   persisted to the cartData slot)                   zeroed, error
//	                                                     recorded, zero
//	                                                     state persisted)
//
// A failed mutation does not preserve prior contents; the empty state
// overwrites the persisted snapshot too.
//
// # Guest mode
//
// Add/Remove bypass the network entirely: the ledger mutates, the cookie is
// rewritten, and the snapshot is re-derived by joining the ledger against
// the catalog. Re-derivation is O(cart size) per click, which is fine for
// the tens of items a cart realistically holds. A ledger entry whose
// product is missing from the catalog is skipped silently.
//
// # Authenticated mode
//
// Add/Remove post to the update endpoint and merge the single returned item
// into the snapshot by id (replace when present, append when not); totals
// are always overwritten from the response. A domain-level "Item does not
// exist" removes the item locally instead. When the server deletes the line
// (quantity reached zero) the response carries no updated item and the
// local entry is removed.
//
// # Ordering
//
// Rapid clicks issue independent requests with no coalescing. Each server
// operation is tagged with a sequence number at issue time and its response
// is discarded if a newer operation has been issued since, so a slow reply
// cannot overwrite a newer snapshot with stale data.
//
// # Login fold
//
// When a guest signs in, FoldGuestCart replays the ledger into the server
// cart as individual add mutations, clears the ledger and cookie, and
// fetches the authoritative server cart. Per-item replay failures are
// logged and skipped.
package cart
