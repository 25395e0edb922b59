package http

import (
	"strings"
)

// Request is a fully resolved outbound request: every template and chain
// reference in the fields has already been substituted.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  method,
		URL:     requestURL,
		Headers: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

// Header returns a header value by case-insensitive name.
func (r *Request) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// contentHeaderNames travel with the payload rather than the generic
// transport header set.
var contentHeaderNames = map[string]bool{
	"content-type":        true,
	"content-length":      true,
	"content-encoding":    true,
	"content-language":    true,
	"content-location":    true,
	"content-md5":         true,
	"content-range":       true,
	"content-disposition": true,
}

// IsContentHeader reports whether name describes the payload.
func IsContentHeader(name string) bool {
	return contentHeaderNames[strings.ToLower(name)]
}

// PartitionHeaders splits a resolved header map into transport headers and
// payload headers.
func PartitionHeaders(headers map[string]string) (transport, content map[string]string) {
	transport = make(map[string]string)
	content = make(map[string]string)
	for k, v := range headers {
		if IsContentHeader(k) {
			content[k] = v
			continue
		}
		transport[k] = v
	}
	return transport, content
}
