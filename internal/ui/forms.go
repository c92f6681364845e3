package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/davrell/shopfront/internal/api"
)

type formKind int

const (
	formSearch formKind = iota
	formFilter
	formLogin
	formSignup
	formCheckout
	formReset
	formResetConfirm
	formActivate
)

// form is a vertical group of text inputs with one focused at a time.
type form struct {
	kind   formKind
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
}

func newForm(kind formKind, title string, fields ...formField) *form {
	f := &form{kind: kind, title: title}
	for i, field := range fields {
		in := textinput.New()
		in.Placeholder = field.placeholder
		in.CharLimit = 128
		if field.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '*'
		}
		if i == 0 {
			in.Focus()
		}
		f.labels = append(f.labels, field.label)
		f.inputs = append(f.inputs, in)
	}
	return f
}

type formField struct {
	label       string
	placeholder string
	secret      bool
}

func newSearchForm() *form {
	return newForm(formSearch, "Search products",
		formField{label: "Query"},
	)
}

func newFilterForm() *form {
	return newForm(formFilter, "Filter by price",
		formField{label: "Min price", placeholder: "0"},
		formField{label: "Max price", placeholder: "1000"},
		formField{label: "Digital only", placeholder: "y/n"},
	)
}

func newLoginForm() *form {
	return newForm(formLogin, "Log in",
		formField{label: "Email"},
		formField{label: "Password", secret: true},
	)
}

func newSignupForm() *form {
	return newForm(formSignup, "Sign up",
		formField{label: "First name"},
		formField{label: "Last name"},
		formField{label: "Email"},
		formField{label: "Username"},
		formField{label: "Password", secret: true},
		formField{label: "Repeat password", secret: true},
	)
}

func newCheckoutForm(shipping bool) *form {
	title := "Checkout"
	if !shipping {
		title = "Checkout (digital order, address kept for the receipt)"
	}
	return newForm(formCheckout, title,
		formField{label: "Address"},
		formField{label: "City"},
		formField{label: "State"},
		formField{label: "Zipcode"},
		formField{label: "Country"},
	)
}

func newResetForm() *form {
	return newForm(formReset, "Reset password",
		formField{label: "Email"},
	)
}

// newResetConfirmForm takes the uid and token from the reset email link.
func newResetConfirmForm() *form {
	return newForm(formResetConfirm, "Confirm password reset",
		formField{label: "UID"},
		formField{label: "Token"},
		formField{label: "New password", secret: true},
		formField{label: "Repeat password", secret: true},
	)
}

// newActivateForm takes the uid and token from the activation email link.
func newActivateForm() *form {
	return newForm(formActivate, "Activate account",
		formField{label: "UID"},
		formField{label: "Token"},
	)
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *form) next() {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + 1) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

// handleFormKey routes keys to the active form: tab cycles fields, enter
// submits, esc abandons.
func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit

	case key.Matches(msg, m.keys.Escape):
		m.form = nil
		return m, nil

	case key.Matches(msg, m.keys.Next):
		m.form.next()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		return m.submitForm()
	}

	var cmd tea.Cmd
	m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
	return m, cmd
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	f := m.form
	switch f.kind {
	case formSearch:
		query := f.value(0)
		if query == "" {
			return m, nil
		}
		m.form = nil
		return m, searchCmd(m.ctx, m.catalog, query)

	case formFilter:
		filter, err := parseFilter(f.value(0), f.value(1), f.value(2))
		if err != nil {
			m.status = "Prices must be numbers"
			return m, nil
		}
		m.form = nil
		return m, filterCmd(m.ctx, m.catalog, filter)

	case formLogin:
		m.form = nil
		return m, loginCmd(m.ctx, m.session, f.value(0), f.value(1))

	case formSignup:
		req := api.SignupRequest{
			FirstName:  f.value(0),
			LastName:   f.value(1),
			Email:      f.value(2),
			Username:   f.value(3),
			Password:   f.value(4),
			RePassword: f.value(5),
		}
		m.form = nil
		return m, signupCmd(m.ctx, m.session, req)

	case formCheckout:
		info := api.ShippingInfo{
			Address: f.value(0),
			City:    f.value(1),
			State:   f.value(2),
			Zipcode: f.value(3),
			Country: f.value(4),
		}
		authed := m.sessionView.Authenticated()
		m.form = nil
		return m, processOrderCmd(m.ctx, m.checkout, info, authed)

	case formReset:
		email := f.value(0)
		if email == "" {
			return m, nil
		}
		m.form = nil
		return m, resetPasswordCmd(m.ctx, m.session, email)

	case formResetConfirm:
		if f.value(0) == "" || f.value(1) == "" {
			return m, nil
		}
		uid, token := f.value(0), f.value(1)
		newPassword, rePassword := f.value(2), f.value(3)
		m.form = nil
		return m, resetConfirmCmd(m.ctx, m.session, uid, token, newPassword, rePassword)

	case formActivate:
		if f.value(0) == "" || f.value(1) == "" {
			return m, nil
		}
		uid, token := f.value(0), f.value(1)
		m.form = nil
		return m, activateCmd(m.ctx, m.session, uid, token)
	}
	return m, nil
}

// defaultMaxPrice stands in when the max field is left blank; the filter
// endpoint requires both bounds.
var defaultMaxPrice = decimal.NewFromInt(1_000_000)

func parseFilter(minRaw, maxRaw, digitalRaw string) (api.ProductFilter, error) {
	filter := api.ProductFilter{MinPrice: decimal.Zero, MaxPrice: defaultMaxPrice}
	if minRaw != "" {
		min, err := decimal.NewFromString(minRaw)
		if err != nil {
			return api.ProductFilter{}, err
		}
		filter.MinPrice = min
	}
	if maxRaw != "" {
		max, err := decimal.NewFromString(maxRaw)
		if err != nil {
			return api.ProductFilter{}, err
		}
		filter.MaxPrice = max
	}
	switch strings.ToLower(digitalRaw) {
	case "y", "yes", "true":
		filter.Digital = true
	}
	return filter, nil
}
