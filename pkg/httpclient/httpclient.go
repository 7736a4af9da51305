// Package httpclient is a small JSON-over-HTTP client on top of fasthttp.
package httpclient

import (
	"context"
	"encoding/json"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
	"github.com/valyala/fasthttp"
)

type Config struct {
	// Log every request at debug level
	Debug bool

	// Sent with every request
	Headers map[string]string

	// Timeout bounds a whole request, including reading the response. Zero means no timeout.
	// A context deadline that comes earlier wins.
	Timeout time.Duration
}

type Client struct {
	baseURL *url.URL
	config  Config
}

func New(baseURL string, config ...Config) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse base url")
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	var cf Config
	if len(config) > 0 {
		cf = config[0]
	}
	return &Client{baseURL: parsed, config: cf}, nil
}

type RequestOptions struct {
	// JSON request body
	Body   []byte
	Query  url.Values
	Header map[string]string
}

// Response is a fully read response. It does not hold any fasthttp buffer.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// UnmarshalBody decodes a JSON body into out.
func (r *Response) UnmarshalBody(out any) error {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return errors.Wrapf(err, "invalid content type %q from %s", r.ContentType, r.URL)
	}
	if mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json") {
		return errors.Errorf("unsupported content type %s from %s: %q", mediaType, r.URL, string(r.Body))
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return errors.Wrapf(err, "can't unmarshal json body from %s: %q", r.URL, string(r.Body))
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, opts RequestOptions) (*Response, error) {
	return c.Do(ctx, fasthttp.MethodGet, path, opts)
}

func (c *Client) Post(ctx context.Context, path string, opts RequestOptions) (*Response, error) {
	return c.Do(ctx, fasthttp.MethodPost, path, opts)
}

// Do sends a request to path, relative to the base url.
func (c *Client) Do(ctx context.Context, method, path string, opts RequestOptions) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	target := c.baseURL.JoinPath(path)
	target.RawQuery = opts.Query.Encode()
	uri := target.String()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Header {
		req.Header.Set(k, v)
	}
	if opts.Body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(opts.Body)
	}

	start := time.Now()
	if err := c.send(ctx, req, resp); err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, uri)
	}

	body, err := resp.BodyUncompressed()
	if err != nil {
		return nil, errors.Wrapf(err, "can't uncompress body from %s", uri)
	}
	out := &Response{
		URL:         uri,
		StatusCode:  resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		Body:        append([]byte(nil), body...),
	}
	if c.config.Debug {
		logger.DebugContext(ctx, "HTTP request",
			slogx.String("package", "httpclient"),
			slogx.String("method", method),
			slogx.String("url", uri),
			slogx.Int("status_code", out.StatusCode),
			slogx.Int("resp_size", len(out.Body)),
			slogx.Duration("latency", time.Since(start)),
		)
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	deadline, hasDeadline := ctx.Deadline()
	if c.config.Timeout > 0 {
		if timeoutAt := time.Now().Add(c.config.Timeout); !hasDeadline || timeoutAt.Before(deadline) {
			deadline, hasDeadline = timeoutAt, true
		}
	}
	if hasDeadline {
		return fasthttp.DoDeadline(req, resp, deadline)
	}
	return fasthttp.Do(req, resp)
}
