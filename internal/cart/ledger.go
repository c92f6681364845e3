package cart

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Ledger is the raw per-product quantity map backing the guest cart. It is
// serialized as the JSON value of the cart cookie, e.g.
//
//	{"3":{"quantity":2},"7":{"quantity":1}}
//
// Key order is insertion order and survives an encode/decode round trip so
// derived snapshots keep a stable item order. A key exists only while its
// quantity is at least one; decrementing to zero deletes the key.
type Ledger struct {
	order []int64
	qty   map[int64]int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{qty: make(map[int64]int)}
}

type ledgerEntry struct {
	Quantity int `json:"quantity"`
}

// ParseLedger decodes a cookie value. Malformed input yields an empty
// ledger rather than an error; a corrupt cookie must not break the cart.
func ParseLedger(raw string) *Ledger {
	l := NewLedger()
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return l
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return NewLedger()
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return NewLedger()
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return NewLedger()
		}
		key, ok := keyTok.(string)
		if !ok {
			return NewLedger()
		}
		var entry ledgerEntry
		if err := dec.Decode(&entry); err != nil {
			return NewLedger()
		}
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			// Unknown key shape: skip the entry, keep the rest.
			continue
		}
		if entry.Quantity < 1 {
			continue
		}
		if _, exists := l.qty[id]; !exists {
			l.order = append(l.order, id)
		}
		l.qty[id] = entry.Quantity
	}
	return l
}

// Encode serializes the ledger in insertion order.
func (l *Ledger) Encode() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range l.order {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strconv.FormatInt(id, 10))
		b.WriteString(`":{"quantity":`)
		b.WriteString(strconv.Itoa(l.qty[id]))
		b.WriteByte('}')
	}
	b.WriteByte('}')
	return b.String()
}

// Add increments a product's quantity, inserting it at the end when new.
// Returns the new quantity.
func (l *Ledger) Add(id int64) int {
	if _, exists := l.qty[id]; !exists {
		l.order = append(l.order, id)
		l.qty[id] = 1
		return 1
	}
	l.qty[id]++
	return l.qty[id]
}

// Remove decrements a product's quantity, deleting the entry when it drops
// below one. Returns the remaining quantity (zero when removed).
func (l *Ledger) Remove(id int64) int {
	current, exists := l.qty[id]
	if !exists {
		return 0
	}
	current--
	if current <= 0 {
		delete(l.qty, id)
		for i, existing := range l.order {
			if existing == id {
				l.order = append(l.order[:i], l.order[i+1:]...)
				break
			}
		}
		return 0
	}
	l.qty[id] = current
	return current
}

// Quantity reports the stored quantity for a product, zero when absent.
func (l *Ledger) Quantity(id int64) int {
	return l.qty[id]
}

// Len reports the number of distinct products.
func (l *Ledger) Len() int {
	return len(l.qty)
}

// Each visits entries in insertion order.
func (l *Ledger) Each(fn func(id int64, quantity int)) {
	for _, id := range l.order {
		fn(id, l.qty[id])
	}
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.order = nil
	l.qty = make(map[int64]int)
}
