package chain

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

var (
	placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	chainPattern       = regexp.MustCompile(`^([A-Za-z0-9_-]+)\.response\.(body|headers)(?:\.(.+))?$`)
	indexPattern       = regexp.MustCompile(`\[(\d+)\]`)
)

// StoredResponse is the slice of a response the session retains for
// back-references. Headers compare case-insensitively.
type StoredResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       string
	CapturedAt time.Time
}

type entry struct {
	resp     *StoredResponse
	bodyJSON gjson.Result
	hasJSON  bool
}

// Session stores responses by request name and rewrites
// {{name.response...}} references to the stored values. Store, resolve, and
// clear are mutually exclusive under one lock.
type Session struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewSession() *Session {
	return &Session{
		entries: make(map[string]*entry),
	}
}

// StoreResponse upserts resp under name (case-insensitive); the previous
// entry for the name is replaced wholesale. The body is parsed as JSON once
// here so later path lookups don't re-parse; bodies that aren't valid JSON
// stay resolvable as opaque text.
func (s *Session) StoreResponse(name string, resp *StoredResponse) {
	if name == "" || resp == nil {
		return
	}
	if resp.CapturedAt.IsZero() {
		resp.CapturedAt = time.Now()
	}
	e := &entry{resp: resp}
	if gjson.Valid(resp.Body) {
		e.bodyJSON = gjson.Parse(resp.Body)
		e.hasJSON = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[strings.ToLower(name)] = e
}

// ResolveChainReferences rewrites every {{name.response.body[.path]}} and
// {{name.response.headers.Header-Name}} in text. References that don't
// resolve (unknown name, missing path, out-of-range index) stay as written.
// Placeholders that aren't chain-shaped are left for the template resolver.
func (s *Session) ResolveChainReferences(text string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		ref := strings.TrimSpace(match[2 : len(match)-2])
		m := chainPattern.FindStringSubmatch(ref)
		if m == nil {
			return match
		}
		value, ok := s.lookup(m[1], m[2], m[3])
		if !ok {
			return match
		}
		return value
	})
}

// ClearSession drops every stored response.
func (s *Session) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

func (s *Session) lookup(name, section, rest string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[strings.ToLower(name)]
	if !ok {
		return "", false
	}

	switch section {
	case "headers":
		if rest == "" {
			return "", false
		}
		return headerValue(e.resp.Headers, rest)
	case "body":
		if rest == "" {
			return e.resp.Body, true
		}
		if !e.hasJSON {
			return "", false
		}
		result := e.bodyJSON.Get(normalizePath(rest))
		if !result.Exists() {
			return "", false
		}
		return leafText(result), true
	}
	return "", false
}

// headerValue finds a header case-insensitively. The name is everything
// after "headers." verbatim, so header names containing dots still match.
func headerValue(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// normalizePath converts bracketed indexes to dotted ones: tags[1] becomes
// tags.1, items[0][2] becomes items.0.2.
func normalizePath(path string) string {
	path = indexPattern.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(path, ".")
}

// leafText renders a navigated node: strings bare, numbers canonical,
// booleans as true/false, null as null, objects and arrays as their JSON
// text. gjson stringifies null as empty, so it gets its own case.
func leafText(result gjson.Result) string {
	if result.Type == gjson.Null {
		return "null"
	}
	return result.String()
}
