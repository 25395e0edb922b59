package http

import (
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Response is a fully captured response: headers flattened into one
// case-insensitive map, body bytes after content decoding, and the body
// text after charset decoding.
type Response struct {
	StatusCode  int
	Status      string
	Headers     map[string]string
	Cookies     []*Cookie
	Body        []byte
	Text        string
	ContentType string
	Duration    time.Duration
	Timings     Timings
}

// Cookie is one parsed Set-Cookie occurrence. Unknown attributes are
// dropped by the parser; entries without a name=value pair never make it
// here.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	HttpOnly bool
	Secure   bool
	SameSite string
}

// Timings are best-effort per-phase durations. Phases that didn't happen
// (reused connections, plain HTTP) stay zero; Total is always set.
type Timings struct {
	DNS       time.Duration
	Connect   time.Duration
	TLS       time.Duration
	FirstByte time.Duration
	Total     time.Duration
}

// StatusText is the reason phrase without the leading status code.
func (r *Response) StatusText() string {
	text := strings.TrimPrefix(r.Status, strings.SplitN(r.Status, " ", 2)[0])
	if text = strings.TrimSpace(text); text != "" {
		return text
	}
	return http.StatusText(r.StatusCode)
}

// Header returns a header value by case-insensitive name.
func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType, "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

func parseCookies(resp *http.Response) []*Cookie {
	raw := resp.Cookies()
	if len(raw) == 0 {
		return nil
	}
	cookies := make([]*Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, &Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HttpOnly: c.HttpOnly,
			Secure:   c.Secure,
			SameSite: sameSiteString(c.SameSite),
		})
	}
	return cookies
}

func sameSiteString(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return ""
	}
}

// decodeText converts body bytes to text using the charset declared in the
// content type. Absent, unrecognized, or UTF-8 charsets read the bytes
// as-is.
func decodeText(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body)
	}
	charset, ok := params["charset"]
	if !ok || strings.EqualFold(charset, "utf-8") {
		return string(body)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(body)
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
