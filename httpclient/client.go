package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

const ContentTypeJSON = "application/json;charset=UTF-8"

// RequestOptions tune how a single request is built and how its response is handled.
type RequestOptions struct {
	// JoinPrefix prepends URLPrefix to the request url.
	JoinPrefix bool
	URLPrefix  string
	// APIURL is prepended to the request url after the prefix.
	APIURL                 string
	IsReturnNativeResponse bool
	IsTransformResponse    bool
	WithToken              bool
}

type RequestOption func(*RequestOptions)

func WithoutToken() RequestOption {
	return func(o *RequestOptions) { o.WithToken = false }
}

func WithoutPrefix() RequestOption {
	return func(o *RequestOptions) { o.JoinPrefix = false }
}

func WithAPIURL(apiURL string) RequestOption {
	return func(o *RequestOptions) { o.APIURL = apiURL }
}

// NativeResponse makes the request store the *Response itself into out.
func NativeResponse() RequestOption {
	return func(o *RequestOptions) { o.IsReturnNativeResponse = true }
}

// RawResult decodes the whole body into out instead of unwrapping the Result envelope.
func RawResult() RequestOption {
	return func(o *RequestOptions) { o.IsTransformResponse = false }
}

type Request struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	// Body is sent as JSON when not nil.
	Body any
}

// Response is an http.Response whose body has already been read into Data.
type Response struct {
	*http.Response
	Data []byte
}

type Options struct {
	Timeout time.Duration
	Header  http.Header
	// Retries is how many times a request failing with a transport error or a 5xx
	// status is tried again.
	Retries        int
	NewBackOff     func() backoff.BackOff
	RequestOptions RequestOptions
	Transform      *Transform
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		Timeout: 10 * time.Second,
		Header:  http.Header{"Content-Type": []string{ContentTypeJSON}},
		RequestOptions: RequestOptions{
			JoinPrefix:          true,
			IsTransformResponse: true,
			WithToken:           true,
		},
	}
}

type Client struct {
	opts   Options
	client *http.Client
	logger *zap.Logger
}

func New(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	}
	if opts.Transform == nil {
		opts.Transform = &Transform{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		opts:   opts,
		client: client,
		logger: opts.Logger.Named("HttpClient"),
	}
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any, options ...RequestOption) error {
	return c.Request(ctx, Request{Method: http.MethodGet, URL: path, Query: query}, out, options...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, options ...RequestOption) error {
	return c.Request(ctx, Request{Method: http.MethodPost, URL: path, Body: body}, out, options...)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, options ...RequestOption) error {
	return c.Request(ctx, Request{Method: http.MethodPut, URL: path, Body: body}, out, options...)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any, options ...RequestOption) error {
	return c.Request(ctx, Request{Method: http.MethodPatch, URL: path, Body: body}, out, options...)
}

func (c *Client) Delete(ctx context.Context, path string, body, out any, options ...RequestOption) error {
	return c.Request(ctx, Request{Method: http.MethodDelete, URL: path, Body: body}, out, options...)
}

// Request runs req through the client's Transform and stores the outcome into out.
func (c *Client) Request(ctx context.Context, req Request, out any, options ...RequestOption) error {
	opts := c.opts.RequestOptions
	for _, o := range options {
		o(&opts)
	}
	t := c.opts.Transform

	r := cloneRequest(req)
	if t.BeforeRequest != nil {
		r = t.BeforeRequest(r, opts)
	}

	res, er := c.do(ctx, r, opts)
	if er != nil {
		if t.RequestCatch != nil {
			return t.RequestCatch(er, opts)
		}
		return er
	}

	if t.TransformResponse != nil {
		return t.TransformResponse(res, opts, out)
	}
	if _, ok := out.(*Response); ok {
		return assignResponse(res, out)
	}
	return decode(res.Data, out)
}

func (c *Client) do(ctx context.Context, r *Request, opts RequestOptions) (*Response, error) {
	var body []byte
	if r.Body != nil {
		js, er := json.Marshal(r.Body)
		if er != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", er)
		}
		body = js
	}

	target := r.URL
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var res *Response
	var resErr error
	attempt := 0
	operation := func() error {
		attempt++
		httpReq, er := http.NewRequestWithContext(ctx, r.Method, target, bytes.NewReader(body))
		if er != nil {
			resErr = er
			return nil
		}
		for k, v := range c.opts.Header {
			httpReq.Header[k] = append([]string(nil), v...)
		}
		for k, v := range r.Header {
			httpReq.Header[k] = append([]string(nil), v...)
		}
		if c.opts.Transform.RequestInterceptor != nil {
			httpReq = c.opts.Transform.RequestInterceptor(httpReq, opts)
		}

		res, resErr = c.roundTrip(httpReq)
		if resErr != nil && retryable(resErr) && ctx.Err() == nil {
			c.logger.Warn("request failed", zap.String("method", r.Method), zap.String("url", target),
				zap.Int("attempt", attempt), zap.Error(resErr))
			return resErr
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.opts.NewBackOff(), uint64(max(c.opts.Retries, 0))), ctx)
	if er := backoff.Retry(operation, b); er != nil && resErr == nil {
		resErr = er
	}
	return res, resErr
}

func (c *Client) roundTrip(req *http.Request) (*Response, error) {
	httpRes, er := c.client.Do(req)
	if er != nil {
		return nil, er
	}
	defer httpRes.Body.Close()

	data, er := io.ReadAll(httpRes.Body)
	if er != nil {
		return nil, er
	}
	httpRes.Body = io.NopCloser(bytes.NewReader(data))

	res := &Response{Response: httpRes, Data: data}
	if t := c.opts.Transform; t.ResponseInterceptor != nil {
		res = t.ResponseInterceptor(res)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{StatusCode: res.StatusCode, Body: res.Data}
	}
	return res, nil
}

func retryable(er error) bool {
	var se *StatusError
	if errors.As(er, &se) {
		return se.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func cloneRequest(req Request) *Request {
	r := req
	if req.Method == "" {
		r.Method = http.MethodGet
	}
	if req.Query != nil {
		r.Query = url.Values{}
		for k, v := range req.Query {
			r.Query[k] = append([]string(nil), v...)
		}
	}
	r.Header = req.Header.Clone()
	return &r
}
