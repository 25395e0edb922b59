package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/restfile/restfile/packages/core/chain"
	"github.com/restfile/restfile/packages/core/env"
	"github.com/restfile/restfile/packages/core/parser"
	"github.com/restfile/restfile/packages/http"
)

type Runner struct {
	client         *http.Client
	resolver       *env.Resolver
	session        *chain.Session
	defaultHeaders map[string]string
}

type Config struct {
	Timeout        time.Duration
	FollowRedirect bool
	MaxRedirects   int
	Insecure       bool
	Proxy          string
	UserAgent      string
	// DefaultHeaders are applied to every request unless the request
	// sets the same header itself.
	DefaultHeaders map[string]string
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{FollowRedirect: true}
	}

	clientOpts := []http.ClientOption{
		http.WithFollowRedirects(cfg.FollowRedirect),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	if cfg.MaxRedirects > 0 {
		clientOpts = append(clientOpts, http.WithMaxRedirects(cfg.MaxRedirects))
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, http.WithValidateSSL(false))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}
	if cfg.UserAgent != "" {
		clientOpts = append(clientOpts, http.WithUserAgent(cfg.UserAgent))
	}

	return &Runner{
		client:         http.NewClient(clientOpts...),
		resolver:       env.NewResolver(),
		session:        chain.NewSession(),
		defaultHeaders: cfg.DefaultHeaders,
	}
}

// Resolver exposes the template resolver so callers can load environments,
// select one, and install overrides before running.
func (r *Runner) Resolver() *env.Resolver {
	return r.resolver
}

// Session exposes the chain session shared by every execution on this
// runner.
func (r *Runner) Session() *chain.Session {
	return r.session
}

// Execute resolves and sends one request definition. The URL, each header
// value, and the body independently pass through chain resolution and then
// template resolution, in that order. The context cancels the in-flight
// call; cancellation, timeout, and transport failures come back classified
// inside the result, never as an error.
func (r *Runner) Execute(ctx context.Context, req *parser.Request, fileVars map[string]string) *Result {
	result := &Result{Name: req.Name}

	resolve := func(text string) string {
		text = r.session.ResolveChainReferences(text)
		return r.resolver.Resolve(text, req.Variables, fileVars)
	}

	httpReq := http.NewRequest(req.Method, resolve(req.URL))
	for _, h := range req.Headers {
		httpReq.SetHeader(h.Key, resolve(h.Value))
	}
	for k, v := range r.defaultHeaders {
		if httpReq.Header(k) == "" {
			httpReq.SetHeader(k, resolve(v))
		}
	}
	if req.HasBody() {
		httpReq.SetBody(resolve(req.Body))
	}
	result.Request = httpReq

	start := time.Now()
	resp, err := r.client.Do(ctx, httpReq)
	result.Duration = time.Since(start)

	if err != nil {
		result.FailureKind, result.Error = classify(err)
		return result
	}

	result.Success = true
	result.Response = resp

	if req.Name != "" {
		r.session.StoreResponse(req.Name, &chain.StoredResponse{
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			Body:       resp.Text,
		})
	}

	return result
}

type RunOptions struct {
	// Bail stops the document run at the first failed execution.
	Bail bool
}

// RunDocument executes a document's requests in order, feeding each named
// response into the chain session for the requests after it.
func (r *Runner) RunDocument(ctx context.Context, doc *parser.Document, opts *RunOptions) *DocumentResult {
	if opts == nil {
		opts = &RunOptions{}
	}

	start := time.Now()
	result := &DocumentResult{}

	for _, req := range doc.Requests {
		res := r.Execute(ctx, req, doc.Variables)
		result.Results = append(result.Results, res)

		if res.Success {
			result.Succeeded++
		} else {
			result.Failed++
			if opts.Bail {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	result.Duration = time.Since(start)
	return result
}

// RunFile parses and runs one request file.
func (r *Runner) RunFile(ctx context.Context, path string, opts *RunOptions) (*DocumentResult, error) {
	doc, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	result := r.RunDocument(ctx, doc, opts)
	result.Path = path
	return result, nil
}
