package httpclient

import (
	"net/http"

	"github.com/google/uuid"
)

// Transform hooks into every request made by a Client. Every hook is optional.
type Transform struct {
	// BeforeRequest adjusts the request description before it is built.
	BeforeRequest func(req *Request, opts RequestOptions) *Request
	// TransformResponse turns a response into the value stored in out.
	TransformResponse func(res *Response, opts RequestOptions, out any) error
	// RequestCatch replaces the error of a failed request.
	RequestCatch func(er error, opts RequestOptions) error

	RequestInterceptor  func(req *http.Request, opts RequestOptions) *http.Request
	ResponseInterceptor func(res *Response) *Response
}

// TokenSource provides the token sent in the Authorization header.
type TokenSource interface {
	Token() (string, bool)
}

// DefaultTransform joins url prefixes, authenticates requests with the token of
// tokens and unwraps the unified Result envelope.
func DefaultTransform(tokens TokenSource, authenticationScheme string) *Transform {
	return &Transform{
		BeforeRequest:     joinURL,
		TransformResponse: transformResult,
		RequestInterceptor: func(req *http.Request, opts RequestOptions) *http.Request {
			req.Header.Set("X-Request-Id", uuid.NewString())
			if !opts.WithToken || tokens == nil {
				return req
			}
			token, ok := tokens.Token()
			if !ok || token == "" {
				return req
			}
			if authenticationScheme != "" {
				token = authenticationScheme + " " + token
			}
			req.Header.Set("Authorization", token)
			return req
		},
	}
}

func joinURL(req *Request, opts RequestOptions) *Request {
	if opts.JoinPrefix {
		req.URL = opts.URLPrefix + req.URL
	}
	if opts.APIURL != "" {
		req.URL = opts.APIURL + req.URL
	}
	return req
}

func transformResult(res *Response, opts RequestOptions, out any) error {
	if opts.IsReturnNativeResponse {
		return assignResponse(res, out)
	}
	if !opts.IsTransformResponse {
		return decode(res.Data, out)
	}
	if len(res.Data) == 0 {
		return ErrEmptyResponse
	}

	result, er := parseResult(res.Data)
	if er != nil {
		return er
	}
	return decode(result.Result, out)
}
