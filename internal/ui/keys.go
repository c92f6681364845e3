package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding

	// View switching
	ViewCatalog key.Binding
	ViewCart    key.Binding
	ViewAccount key.Binding

	// Catalog actions
	Detail   key.Binding
	Search   key.Binding
	Filter   key.Binding
	ResetAll key.Binding
	Reload   key.Binding

	// Cart actions
	Add      key.Binding
	Remove   key.Binding
	Checkout key.Binding

	// Account actions
	Login        key.Binding
	Signup       key.Binding
	Google       key.Binding
	Logout       key.Binding
	ResetPwd     key.Binding
	ConfirmReset key.Binding
	Activate     key.Binding

	// Navigation
	Up   key.Binding
	Down key.Binding

	// Forms
	Confirm key.Binding
	Next    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		ViewCatalog: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Catalog"),
		),
		ViewCart: key.NewBinding(
			key.WithKeys("2", "c"),
			key.WithHelp("2/c", "Cart"),
		),
		ViewAccount: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Account"),
		),
		Detail: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Product detail"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Filter by price"),
		),
		ResetAll: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Reset filters"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Reload catalog"),
		),
		Add: key.NewBinding(
			key.WithKeys("a", "+"),
			key.WithHelp("a", "Add to cart"),
		),
		Remove: key.NewBinding(
			key.WithKeys("r", "-"),
			key.WithHelp("r", "Remove from cart"),
		),
		Checkout: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Checkout"),
		),
		Login: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Log in"),
		),
		Signup: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Sign up"),
		),
		Google: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "Sign in with Google"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Log out"),
		),
		ResetPwd: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Reset password"),
		),
		ConfirmReset: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "Confirm password reset"),
		),
		Activate: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "Activate account"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "Up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "Down"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next field"),
		),
	}
}
