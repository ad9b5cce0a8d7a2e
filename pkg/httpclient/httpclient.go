// Package httpclient is a small fasthttp client for JSON APIs rooted at a base URL.
package httpclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/valyala/fasthttp"
)

type Config struct {
	// Debug logs every request at info level.
	Debug bool

	// Headers are sent with every request. Per request headers take precedence.
	Headers map[string]string

	// Timeout bounds every request. Zero leaves only the context deadline.
	Timeout time.Duration
}

type Client struct {
	baseURL *url.URL
	config  Config
}

func New(baseURL string, config ...Config) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "can't parse base url"), errs.InvalidArgument)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Wrapf(errs.InvalidArgument, "unsupported url scheme %q", u.Scheme)
	}
	c := &Client{baseURL: u}
	if len(config) > 0 {
		c.config = config[0]
	}
	return c, nil
}

type RequestOptions struct {
	Body   []byte // sent as application/json
	Query  url.Values
	Header map[string]string
}

// Response is a copy of the response, safe to use after the underlying fasthttp objects are released.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes a JSON body into out.
func (r *Response) JSON(out any) error {
	mediaType, _, _ := mime.ParseMediaType(r.ContentType)
	if mediaType != "application/json" {
		return errors.Errorf("unexpected content type %q from %s: %q", r.ContentType, r.URL, string(r.Body))
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return errors.Wrapf(err, "can't unmarshal json body from %s", r.URL)
	}
	return nil
}

func (c *Client) Post(ctx context.Context, path string, opts RequestOptions) (*Response, error) {
	return c.Do(ctx, fasthttp.MethodPost, path, opts)
}

func (c *Client) Get(ctx context.Context, path string, opts RequestOptions) (*Response, error) {
	return c.Do(ctx, fasthttp.MethodGet, path, opts)
}

// Do sends a request to path, relative to the base URL.
func (c *Client) Do(ctx context.Context, method, reqPath string, opts RequestOptions) (*Response, error) {
	target := c.resolve(reqPath, opts.Query)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(target)
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
	err := c.send(ctx, req, resp)
	if c.config.Debug {
		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("url", target),
			slog.Duration("duration", time.Since(start)),
		}
		if err == nil {
			attrs = append(attrs, slog.Int("status_code", resp.StatusCode()), slog.Int("resp_content_length", len(resp.Body())))
		}
		logger.FromContext(ctx).LogAttrs(ctx, slog.LevelInfo, "Finished make request", append(attrs, slog.String("package", "httpclient"))...)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "url: %s", target)
	}

	body, err := resp.BodyUncompressed()
	if err != nil {
		return nil, errors.Wrapf(err, "can't uncompress body from %s", target)
	}
	return &Response{
		URL:         target,
		StatusCode:  resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		Body:        append([]byte(nil), body...),
	}, nil
}

func (c *Client) resolve(reqPath string, query url.Values) string {
	u := *c.baseURL
	if reqPath != "" {
		u.Path = path.Join(u.Path, reqPath)
	}
	if len(query) > 0 {
		merged := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
		u.RawQuery = merged.Encode()
	}
	return u.String()
}

func (c *Client) send(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	deadline, ok := ctx.Deadline()
	if c.config.Timeout > 0 {
		if at := time.Now().Add(c.config.Timeout); !ok || at.Before(deadline) {
			deadline, ok = at, true
		}
	}
	if !ok {
		return errors.WithStack(fasthttp.Do(req, resp))
	}
	if err := fasthttp.DoDeadline(req, resp, deadline); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return errors.Mark(err, errs.Timeout)
		}
		return errors.WithStack(err)
	}
	return nil
}
