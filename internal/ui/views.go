package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/davrell/shopfront/internal/api"
	"github.com/davrell/shopfront/internal/session"
)

// renderMain renders the header, the active view or form, and the status bar.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	if m.form != nil {
		b.WriteString(m.renderForm())
	} else {
		b.WriteString(m.renderContent())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewCatalog:
		return m.renderCatalog()
	case ViewDetail:
		return m.renderDetail()
	case ViewCart:
		return m.renderCart()
	case ViewAccount:
		return m.renderAccount()
	default:
		return ""
	}
}

func (m Model) renderHeader() string {
	tabs := []struct {
		view  View
		label string
	}{
		{ViewCatalog, "1 Catalog"},
		{ViewCart, fmt.Sprintf("2 Cart (%d)", m.cartView.TotalItems)},
		{ViewAccount, "3 Account"},
	}
	parts := make([]string, 0, len(tabs)+1)
	parts = append(parts, m.styles.Title.Render("Shopfront"))
	for _, tab := range tabs {
		active := tab.view == m.currentView ||
			(tab.view == ViewCatalog && m.currentView == ViewDetail)
		if active {
			parts = append(parts, m.styles.AccentText.Render(tab.label))
		} else {
			parts = append(parts, m.styles.MutedText.Render(tab.label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, "  "))
}

func (m Model) renderCatalog() string {
	view := m.catalogView
	var b strings.Builder

	switch {
	case view.Loading:
		b.WriteString(m.styles.MutedText.Render("Loading products..."))
		b.WriteString("\n")
	case view.Err != "":
		b.WriteString(m.styles.DangerText.Render(view.Err))
		b.WriteString("\n")
	case len(view.Products) == 0:
		b.WriteString(m.styles.MutedText.Render("No products."))
		b.WriteString("\n")
	}

	start, end := m.pageBounds(len(view.Products))
	for i := start; i < end; i++ {
		p := view.Products[i]
		line := fmt.Sprintf("%-30s %-14s %10s", truncate(p.Name, 30), truncate(p.Brand, 14), m.money(displayPrice(p)))
		if qty := m.quantityOf(p.ID); qty > 0 {
			line += m.styles.SuccessText.Render(fmt.Sprintf("  x%d", qty))
		}
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(m.styles.Text.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if len(view.Products) > end-start {
		b.WriteString(m.styles.MutedText.Render(fmt.Sprintf("%d-%d of %d", start+1, end, len(view.Products))))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderDetail() string {
	p := m.catalogView.Current
	if p == nil {
		return m.styles.MutedText.Render("No product selected.")
	}
	var b strings.Builder
	b.WriteString(m.styles.AccentText.Render(p.Name))
	b.WriteString("\n\n")
	b.WriteString(m.detailRow("Brand", p.Brand))
	b.WriteString(m.detailRow("Price", m.money(p.Price)))
	if p.DiscountPrice.IsPositive() {
		b.WriteString(m.detailRow("Discounted", m.money(p.DiscountPrice)))
	}
	kind := "Physical (ships)"
	if p.Digital {
		kind = "Digital (no shipping)"
	}
	b.WriteString(m.detailRow("Type", kind))
	if len(p.Sizes) > 0 {
		b.WriteString(m.detailRow("Sizes", strings.Join(p.Sizes, ", ")))
	}
	if qty := m.quantityOf(p.ID); qty > 0 {
		b.WriteString(m.detailRow("In cart", fmt.Sprintf("%d", qty)))
	}
	if p.Description != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Text.Render(p.Description))
		b.WriteString("\n")
	}
	return m.styles.Panel.Render(b.String())
}

func (m Model) detailRow(label, value string) string {
	return m.styles.MutedText.Render(fmt.Sprintf("%-12s", label)) + m.styles.Text.Render(value) + "\n"
}

func (m Model) renderCart() string {
	snap := m.cartView
	var b strings.Builder

	if snap.Loading {
		b.WriteString(m.styles.MutedText.Render("Updating cart..."))
		b.WriteString("\n")
	}
	if snap.Err != "" {
		b.WriteString(m.styles.DangerText.Render(snap.Err))
		b.WriteString("\n")
	}
	if len(snap.Items) == 0 {
		b.WriteString(m.styles.MutedText.Render("Your cart is empty."))
		b.WriteString("\n")
		return b.String()
	}

	for i, item := range snap.Items {
		line := fmt.Sprintf("%-30s %3d x %10s = %10s",
			truncate(item.Name, 30), item.Quantity, m.money(item.UnitPrice), m.money(item.LineTotal))
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(m.styles.Text.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Text.Render(fmt.Sprintf("Items: %d   Total: %s", snap.TotalItems, m.money(snap.TotalCost))))
	b.WriteString("\n")
	if snap.Shipping {
		b.WriteString(m.styles.MutedText.Render("Contains physical items; shipping address required."))
	} else {
		b.WriteString(m.styles.MutedText.Render("Digital order; no shipping."))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderAccount() string {
	view := m.sessionView
	var b strings.Builder

	switch view.Status {
	case session.StatusAuthenticated:
		b.WriteString(m.styles.SuccessText.Render("Signed in"))
	case session.StatusAuthenticating:
		b.WriteString(m.styles.WarningText.Render("Signing in..."))
	case session.StatusUnauthenticated:
		b.WriteString(m.styles.MutedText.Render("Browsing as guest"))
	default:
		b.WriteString(m.styles.MutedText.Render("Checking session..."))
	}
	b.WriteString("\n\n")

	if view.User != nil {
		b.WriteString(m.detailRow("Name", strings.TrimSpace(view.User.FirstName+" "+view.User.LastName)))
		b.WriteString(m.detailRow("Email", view.User.Email))
		b.WriteString(m.detailRow("Username", view.User.Username))
		b.WriteString("\n")
	}

	if len(view.FormErrors) > 0 {
		fields := make([]string, 0, len(view.FormErrors))
		for field := range view.FormErrors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			b.WriteString(m.styles.DangerText.Render(fmt.Sprintf("%s: %s", field, view.FormErrors[field])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.flagLine("Activation", view.ActivationOK))
	b.WriteString(m.flagLine("Password reset email", view.ResetOK))
	b.WriteString(m.flagLine("Password reset", view.ResetConfirmOK))

	if m.oauthURL != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Text.Render("Open this link to sign in with Google:"))
		b.WriteString("\n")
		b.WriteString(m.styles.AccentText.Render(m.oauthURL))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if view.Authenticated() {
		b.WriteString(m.styles.MutedText.Render("L log out"))
	} else {
		b.WriteString(m.styles.MutedText.Render("l log in   s sign up   g google   p reset password   v activate"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) flagLine(label string, ok *bool) string {
	if ok == nil {
		return ""
	}
	if *ok {
		return m.styles.SuccessText.Render(label+": done") + "\n"
	}
	return m.styles.DangerText.Render(label+": failed") + "\n"
}

func (m Model) renderForm() string {
	f := m.form
	var b strings.Builder
	b.WriteString(m.styles.AccentText.Render(f.title))
	b.WriteString("\n\n")
	for i := range f.inputs {
		b.WriteString(m.styles.MutedText.Render(fmt.Sprintf("%-16s", f.labels[i])))
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.MutedText.Render("tab next field   enter submit   esc cancel"))
	b.WriteString("\n")
	return m.styles.PanelFocus.Render(b.String())
}

func (m Model) renderStatusBar() string {
	parts := []string{m.viewLabel()}
	if m.sessionView.Authenticated() && m.sessionView.User != nil {
		parts = append(parts, m.sessionView.User.Email)
	} else {
		parts = append(parts, "guest")
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	parts = append(parts, "? help")
	return m.styles.StatusBar.Render(strings.Join(parts, "  |  "))
}

func (m Model) viewLabel() string {
	switch m.currentView {
	case ViewDetail:
		return "detail"
	case ViewCart:
		return "cart"
	case ViewAccount:
		return "account"
	default:
		return "catalog"
	}
}

func (m Model) renderHelp() string {
	rows := []struct{ keys, desc string }{
		{"1 / 2 / 3", "Catalog, cart, account"},
		{"enter", "Product detail"},
		{"/", "Search products"},
		{"f", "Filter by price"},
		{"R", "Reset filters"},
		{"ctrl+r", "Reload catalog"},
		{"a / +", "Add one to cart"},
		{"r / -", "Remove one from cart"},
		{"o", "Checkout"},
		{"l / s / g", "Log in, sign up, Google"},
		{"p / P", "Reset password, confirm reset"},
		{"v", "Activate account"},
		{"L", "Log out"},
		{"t", "Cycle theme"},
		{"q", "Quit"},
	}
	var b strings.Builder
	b.WriteString(m.styles.AccentText.Render("Keys"))
	b.WriteString("\n\n")
	for _, row := range rows {
		b.WriteString(m.styles.Text.Render(fmt.Sprintf("  %-10s %s", row.keys, row.desc)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.MutedText.Render("Press any key to close."))
	return m.styles.Panel.Render(b.String())
}

// pageBounds windows the catalog list around the cursor.
func (m Model) pageBounds(total int) (int, int) {
	page := m.prefs.PageSize
	if page <= 0 {
		page = 20
	}
	if avail := m.height - 8; avail > 0 && avail < page {
		page = avail
	}
	if total <= page {
		return 0, total
	}
	start := m.cursor - page/2
	if start < 0 {
		start = 0
	}
	if start+page > total {
		start = total - page
	}
	return start, start + page
}

// quantityOf reports how many units of a product the active cart holds.
func (m Model) quantityOf(id int64) int {
	if m.sessionView.Authenticated() {
		return m.cart.ItemQuantity(id)
	}
	return m.cart.GuestQuantity(id)
}

// displayPrice prefers the discount price when one is set.
func displayPrice(p api.Product) decimal.Decimal {
	if p.DiscountPrice.IsPositive() {
		return p.DiscountPrice
	}
	return p.Price
}

func (m Model) money(d decimal.Decimal) string {
	return m.prefs.Currency + d.StringFixed(2)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
