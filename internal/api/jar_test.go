package api

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJarPersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	jar, err := NewJar(path)
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	jar.Set("cart", `{"1":{"quantity":2}}`)
	jar.Set("csrftoken", "abc")

	reloaded, err := NewJar(path)
	if err != nil {
		t.Fatalf("reload jar: %v", err)
	}
	if v, ok := reloaded.Value("cart"); !ok || v != `{"1":{"quantity":2}}` {
		t.Fatalf("cart = %q, ok=%v", v, ok)
	}
	if v, ok := reloaded.Value("csrftoken"); !ok || v != "abc" {
		t.Fatalf("csrftoken = %q, ok=%v", v, ok)
	}
}

func TestJarMalformedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	jar, err := NewJar(path)
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	if cookies := jar.Cookies(nil); len(cookies) != 0 {
		t.Fatalf("cookies = %+v, want none", cookies)
	}
}

func TestJarExpiredCookieDroppedOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	jar, err := NewJar(path)
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	jar.SetCookies(nil, []*http.Cookie{
		{Name: "stale", Value: "x", Expires: time.Now().Add(time.Minute)},
	})
	// An already-expired replacement acts as a deletion.
	jar.SetCookies(nil, []*http.Cookie{
		{Name: "stale", Value: "x", Expires: time.Now().Add(-time.Minute)},
	})
	if _, ok := jar.Value("stale"); ok {
		t.Fatal("expired cookie must read as absent")
	}

	reloaded, err := NewJar(path)
	if err != nil {
		t.Fatalf("reload jar: %v", err)
	}
	if _, ok := reloaded.Value("stale"); ok {
		t.Fatal("expired cookie must not survive a reload")
	}
}

func TestJarDeletionHeader(t *testing.T) {
	jar, err := NewJar(filepath.Join(t.TempDir(), "cookies.json"))
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	jar.Set("cart", "{}")
	jar.SetCookies(nil, []*http.Cookie{{Name: "cart", Value: "", MaxAge: -1}})
	if _, ok := jar.Value("cart"); ok {
		t.Fatal("MaxAge<0 must delete the cookie")
	}
}

func TestJarEncodesOutgoingValues(t *testing.T) {
	jar, err := NewJar(filepath.Join(t.TempDir(), "cookies.json"))
	if err != nil {
		t.Fatalf("new jar: %v", err)
	}
	raw := `{"3":{"quantity":2}}`
	jar.Set("cart", raw)

	cookies := jar.Cookies(nil)
	if len(cookies) != 1 {
		t.Fatalf("cookies = %+v", cookies)
	}
	decoded, err := url.QueryUnescape(cookies[0].Value)
	if err != nil || decoded != raw {
		t.Fatalf("outgoing value = %q, decoded %q", cookies[0].Value, decoded)
	}
	// The internal value stays raw for components reading it as a slot.
	if v, _ := jar.Value("cart"); v != raw {
		t.Fatalf("Value = %q, want raw JSON", v)
	}
}
