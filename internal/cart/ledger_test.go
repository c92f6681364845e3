package cart

import (
	"testing"
)

func TestParseLedgerRoundTrip(t *testing.T) {
	raw := `{"3":{"quantity":2},"7":{"quantity":1},"2":{"quantity":5}}`
	l := ParseLedger(raw)

	if got := l.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	var order []int64
	l.Each(func(id int64, quantity int) {
		order = append(order, id)
	})
	want := []int64{3, 7, 2}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if got := l.Encode(); got != raw {
		t.Fatalf("Encode() = %q, want %q", got, raw)
	}
}

func TestParseLedgerMalformed(t *testing.T) {
	cases := []string{
		"",
		"not json",
		"[1,2,3]",
		`{"3":{"quantity":`,
	}
	for _, raw := range cases {
		if got := ParseLedger(raw).Len(); got != 0 {
			t.Errorf("ParseLedger(%q).Len() = %d, want 0", raw, got)
		}
	}
}

func TestParseLedgerSkipsBadEntries(t *testing.T) {
	l := ParseLedger(`{"abc":{"quantity":2},"4":{"quantity":1},"9":{"quantity":0}}`)
	if got := l.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if got := l.Quantity(4); got != 1 {
		t.Fatalf("Quantity(4) = %d, want 1", got)
	}
}

func TestLedgerAddRemove(t *testing.T) {
	l := NewLedger()
	if got := l.Add(5); got != 1 {
		t.Fatalf("first Add = %d, want 1", got)
	}
	if got := l.Add(5); got != 2 {
		t.Fatalf("second Add = %d, want 2", got)
	}
	if got := l.Remove(5); got != 1 {
		t.Fatalf("Remove = %d, want 1", got)
	}
	if got := l.Remove(5); got != 0 {
		t.Fatalf("Remove = %d, want 0", got)
	}
	if got := l.Len(); got != 0 {
		t.Fatalf("Len after removal = %d, want 0", got)
	}
	if got := l.Encode(); got != "{}" {
		t.Fatalf("Encode after removal = %q, want {}", got)
	}
	if got := l.Remove(99); got != 0 {
		t.Fatalf("Remove of absent id = %d, want 0", got)
	}
}

func TestLedgerClear(t *testing.T) {
	l := ParseLedger(`{"1":{"quantity":2}}`)
	l.Clear()
	if got := l.Len(); got != 0 {
		t.Fatalf("Len after Clear = %d, want 0", got)
	}
	if got := l.Encode(); got != "{}" {
		t.Fatalf("Encode after Clear = %q, want {}", got)
	}
}
