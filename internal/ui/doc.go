// Package ui renders the Shopfront terminal interface with Bubble Tea.
//
// The model is a thin view over the domain stores; it never owns state.
// Every keystroke that touches the network or a store runs as a tea.Cmd in
// the background and answers with a refreshMsg, at which point the model
// pulls fresh snapshots from the catalog cache, the cart engine, and the
// session manager:
//
//	key press ──> tea.Cmd ──> store operation ──> refreshMsg
//	                                                 │
//	                  Model.resnapshot() <───────────┘
//
// Views:
//
//	Catalog  product list with search, filter, and reset
//	Detail   one product, reached with enter from the catalog
//	Cart     cart lines with totals and a checkout form
//	Account  session status, login/signup/reset forms, OAuth flow
//
// Forms are modal: while one is open, all input routes to its text fields
// until enter submits or esc abandons. The Google sign-in flow starts a
// loopback listener, shows the provider URL for the user to open in a
// browser, and completes the exchange when the redirect lands.
package ui
