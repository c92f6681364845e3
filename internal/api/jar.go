package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Jar is a cookie store for the single storefront origin, persisted to a
// JSON file so cookies such as the guest cart and the CSRF token survive
// restarts. It satisfies http.CookieJar for the transport and exposes named
// access for components that treat the cookie store as a key-value slot.
//
// A cookie with no expiry is kept until explicitly deleted, matching a
// session cookie that the client chooses to retain.
type Jar struct {
	mu      sync.Mutex
	path    string
	cookies map[string]*http.Cookie
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitzero"`
}

// NewJar loads the jar at path, starting empty when the file is missing or
// malformed.
func NewJar(path string) (*Jar, error) {
	j := &Jar{path: path, cookies: make(map[string]*http.Cookie)}
	raw, err := os.ReadFile(path)
	if err != nil {
		return j, nil
	}
	var stored []storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		// Corrupt jar reads as empty rather than failing startup.
		return j, nil
	}
	now := time.Now()
	for _, c := range stored {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		j.cookies[c.Name] = &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Expires: c.Expires,
		}
	}
	return j, nil
}

// SetCookies records cookies from a server response. Expired cookies delete
// the stored entry, mirroring how a browser honors deletion headers. Values
// are stored decoded; see Cookies for the wire encoding.
func (j *Jar) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now)) {
			delete(j.cookies, c.Name)
			continue
		}
		dup := *c
		if decoded, err := url.QueryUnescape(dup.Value); err == nil {
			dup.Value = decoded
		}
		j.cookies[c.Name] = &dup
	}
	j.saveLocked()
}

// Cookies returns every live cookie for the origin. Values go out
// percent-encoded: the cart cookie holds raw JSON, which the cookie header
// grammar does not allow, and the server unquotes what it reads.
func (j *Jar) Cookies(_ *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	out := make([]*http.Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		dup := *c
		dup.Value = url.QueryEscape(dup.Value)
		out = append(out, &dup)
	}
	return out
}

// Value returns the value of a named cookie.
func (j *Jar) Value(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	c, ok := j.cookies[name]
	if !ok {
		return "", false
	}
	if !c.Expires.IsZero() && c.Expires.Before(time.Now()) {
		return "", false
	}
	return c.Value, true
}

// Set stores a client-side cookie under the site root with no expiry.
func (j *Jar) Set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies[name] = &http.Cookie{Name: name, Value: value, Path: "/"}
	j.saveLocked()
}

// Delete removes a named cookie.
func (j *Jar) Delete(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.cookies, name)
	j.saveLocked()
}

func (j *Jar) saveLocked() {
	if j.path == "" {
		return
	}
	stored := make([]storedCookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		stored = append(stored, storedCookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Expires: c.Expires,
		})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return
	}
	// Persistence is best effort; a read-only disk must not break requests.
	_ = os.WriteFile(j.path, raw, 0o600)
}

// Save forces a write of the jar, mainly for tests.
func (j *Jar) Save() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	stored := make([]storedCookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value, Path: c.Path, Expires: c.Expires})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("create jar dir: %w", err)
	}
	if err := os.WriteFile(j.path, raw, 0o600); err != nil {
		return fmt.Errorf("write jar: %w", err)
	}
	return nil
}
