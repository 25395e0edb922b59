package parser

import (
	"os"
	"regexp"
	"strings"
)

// parseState tracks where the line-stream parser is within the current
// request block. Every transition in processLine is driven by the current
// state and the shape of one line, so each transition is testable on its own.
type parseState int

const (
	// stateSeeking is the resting state between requests.
	stateSeeking parseState = iota
	// stateHeaders collects header lines after a request line.
	stateHeaders
	// stateBody collects verbatim body lines after the blank separator.
	stateBody
)

func (s parseState) String() string {
	switch s {
	case stateSeeking:
		return "seeking"
	case stateHeaders:
		return "headers"
	case stateBody:
		return "body"
	default:
		return "unknown"
	}
}

var (
	variableLineRe  = regexp.MustCompile(`^@([A-Za-z0-9_.-]+)\s*=\s*(.*)$`)
	nameDirectiveRe = regexp.MustCompile(`^@name(?:\s*=\s*|\s+)(\S+)\s*$`)
)

// httpMethods are the request-line method tokens the parser recognizes.
var httpMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"PATCH":   true,
	"HEAD":    true,
	"OPTIONS": true,
	"TRACE":   true,
	"CONNECT": true,
}

// Parse turns raw document text into a Document. It is a pure function of
// its input: the same text always produces the same result, malformed lines
// are skipped, and an empty or request-less document yields an empty
// Document rather than an error.
func Parse(text string) *Document {
	doc := &Document{Variables: make(map[string]string)}
	b := &builder{doc: doc}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i, line := range strings.Split(text, "\n") {
		b.processLine(i+1, line)
	}
	b.flushRequest()

	return doc
}

// ParseFile reads path and parses its contents. The only possible error is
// from reading the file; parsing itself never fails.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

// FindRequestAt returns the request whose source span contains the given
// 1-indexed line, or nil when the line falls between requests.
func FindRequestAt(text string, line int) *Request {
	for _, req := range Parse(text).Requests {
		if req.Span.Contains(line) {
			return req
		}
	}
	return nil
}

// builder drives the state machine over one document. A request is "started"
// in the current block once a request line was seen, which is exactly when
// state is not stateSeeking.
type builder struct {
	doc         *Document
	state       parseState
	req         *Request
	bodyLines   []string
	pendingName string
	// lastContent is the line number of the last meaningful line of the
	// in-progress request; it becomes the span end after trailing blank
	// body lines are trimmed.
	lastContent int
}

func (b *builder) processLine(lineNumber int, line string) {
	trimmed := strings.TrimSpace(line)

	// A delimiter closes the in-progress request in every state.
	if strings.HasPrefix(trimmed, "###") {
		b.flushRequest()
		return
	}

	// Body consumes everything else verbatim, including lines that look
	// like comments, directives, or headers.
	if b.state == stateBody {
		b.bodyLines = append(b.bodyLines, line)
		if trimmed != "" {
			b.lastContent = lineNumber
		}
		return
	}

	if comment, ok := stripComment(trimmed); ok {
		if m := nameDirectiveRe.FindStringSubmatch(comment); m != nil {
			b.pendingName = m[1]
		}
		return
	}

	if strings.HasPrefix(trimmed, "@") {
		if m := variableLineRe.FindStringSubmatch(trimmed); m != nil {
			name, value := m[1], strings.TrimSpace(m[2])
			if b.state == stateSeeking {
				b.doc.Variables[name] = value
			} else {
				b.req.Variables[name] = value
			}
		}
		// A bare or malformed @ line is dropped.
		return
	}

	if trimmed == "" {
		if b.state == stateHeaders {
			b.state = stateBody
		}
		return
	}

	if b.state == stateSeeking {
		if method, url, ok := parseRequestLine(trimmed); ok {
			b.req = &Request{
				Name:      b.pendingName,
				Method:    method,
				URL:       url,
				Variables: make(map[string]string),
				Span:      LineRange{Start: lineNumber},
			}
			b.pendingName = ""
			b.lastContent = lineNumber
			b.state = stateHeaders
		}
		// Anything else between requests is noise.
		return
	}

	// stateHeaders: "Name: value" lines; lines without a colon are ignored.
	if idx := strings.Index(line, ":"); idx != -1 {
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key != "" {
			b.req.Headers = append(b.req.Headers, &Header{Key: key, Value: value, Line: lineNumber})
			b.lastContent = lineNumber
		}
	}
}

// flushRequest finalizes the in-progress request: trailing blank body lines
// are trimmed, the end line recorded, and the request emitted unless it
// never received a URL. The builder returns to stateSeeking.
func (b *builder) flushRequest() {
	defer func() {
		b.req = nil
		b.bodyLines = nil
		b.state = stateSeeking
	}()

	if b.req == nil {
		return
	}

	lines := b.bodyLines
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	b.req.Body = strings.Join(lines, "\n")
	b.req.Span.End = b.lastContent

	if b.req.URL == "" {
		return
	}
	b.doc.Requests = append(b.doc.Requests, b.req)
}

// parseRequestLine recognizes "METHOD url" with an optional trailing
// protocol version token, which is tolerated and dropped.
func parseRequestLine(trimmed string) (method, url string, ok bool) {
	fields := strings.Fields(trimmed)
	if len(fields) < 2 || !httpMethods[fields[0]] {
		return "", "", false
	}
	if len(fields) > 2 && !strings.HasPrefix(fields[2], "HTTP/") {
		return "", "", false
	}
	return fields[0], fields[1], true
}

// stripComment returns the comment text for "#" and "//" lines. The "###"
// delimiter is handled before this is consulted.
func stripComment(trimmed string) (string, bool) {
	switch {
	case strings.HasPrefix(trimmed, "//"):
		return strings.TrimSpace(trimmed[2:]), true
	case strings.HasPrefix(trimmed, "#"):
		return strings.TrimSpace(trimmed[1:]), true
	default:
		return "", false
	}
}
