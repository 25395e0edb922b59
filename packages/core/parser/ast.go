package parser

import "strings"

// Document is the result of parsing a request file: the requests in source
// order plus the variables declared outside any request. It is never nil and
// never carries errors; malformed lines are skipped during parsing.
type Document struct {
	Variables map[string]string
	Requests  []*Request
}

// Request is a single request definition. All template fields (URL, header
// values, body) are stored unresolved; resolution happens at execution time.
type Request struct {
	Name      string
	Method    string
	URL       string
	Headers   []*Header
	Body      string
	Variables map[string]string
	Span      LineRange
}

type Header struct {
	Key   string
	Value string
	Line  int
}

// LineRange is a closed, 1-indexed span of source lines.
type LineRange struct {
	Start int
	End   int
}

func (r LineRange) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// Header returns the first header value whose key matches case-insensitively,
// or "" when absent.
func (r *Request) Header(key string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value
		}
	}
	return ""
}

// HasBody reports whether the request carries a body after trailing blank
// lines were trimmed at parse time.
func (r *Request) HasBody() bool {
	return r.Body != ""
}

// Label is the request's display name: its @name when present, otherwise
// "METHOD url".
func (r *Request) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Method + " " + r.URL
}
