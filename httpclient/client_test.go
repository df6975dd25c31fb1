package httpclient_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cenkalti/backoff"
	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/msaldanha/plasticine/httpclient"
)

type staticToken string

func (t staticToken) Token() (string, bool) {
	return string(t), t != ""
}

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

const apiURL = "http://api.test"

var _ = Describe("Client", func() {
	var mt *httpmock.MockTransport
	var ctx context.Context

	newClient := func(tokens httpclient.TokenSource, scheme string, retries int) *httpclient.Client {
		opts := httpclient.DefaultOptions()
		opts.HTTPClient = &http.Client{Transport: mt}
		opts.Transform = httpclient.DefaultTransform(tokens, scheme)
		opts.RequestOptions.URLPrefix = "/api"
		opts.RequestOptions.APIURL = apiURL
		opts.Retries = retries
		opts.NewBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
		return httpclient.New(opts)
	}

	BeforeEach(func() {
		mt = httpmock.NewMockTransport()
		ctx = context.Background()
	})

	It("Should join the url and unwrap the result", func() {
		mt.RegisterResponder("GET", apiURL+"/api/users/1",
			httpmock.NewStringResponder(200, `{"code":0,"type":"success","message":"ok","result":{"id":1,"name":"root"}}`))

		c := newClient(nil, "", 0)
		u := user{}
		er := c.Get(ctx, "/users/1", nil, &u)
		Expect(er).To(BeNil())
		Expect(u).To(Equal(user{ID: 1, Name: "root"}))
	})
	It("Should send query parameters and skip the prefix when asked", func() {
		mt.RegisterResponder("GET", apiURL+"/health?verbose=1",
			httpmock.NewStringResponder(200, `{"code":0,"result":"up"}`))

		c := newClient(nil, "", 0)
		status := ""
		er := c.Get(ctx, "/health", url.Values{"verbose": []string{"1"}}, &status, httpclient.WithoutPrefix())
		Expect(er).To(BeNil())
		Expect(status).To(Equal("up"))
	})
	It("Should authenticate with the token and a request id", func() {
		var header http.Header
		mt.RegisterResponder("POST", apiURL+"/api/users", func(req *http.Request) (*http.Response, error) {
			header = req.Header
			return httpmock.NewStringResponse(200, `{"code":0,"result":null}`), nil
		})

		c := newClient(staticToken("abc"), "Bearer", 0)
		Expect(c.Post(ctx, "/users", user{Name: "new"}, nil)).To(Succeed())
		Expect(header.Get("Authorization")).To(Equal("Bearer abc"))
		Expect(header.Get("X-Request-Id")).NotTo(BeEmpty())
		Expect(header.Get("Content-Type")).To(Equal(httpclient.ContentTypeJSON))

		Expect(c.Post(ctx, "/users", user{Name: "new"}, nil, httpclient.WithoutToken())).To(Succeed())
		Expect(header.Get("Authorization")).To(BeEmpty())
	})
	It("Should not authenticate without a token", func() {
		var header http.Header
		mt.RegisterResponder("DELETE", apiURL+"/api/users/1", func(req *http.Request) (*http.Response, error) {
			header = req.Header
			return httpmock.NewStringResponse(200, `{"code":0}`), nil
		})

		c := newClient(staticToken(""), "", 0)
		Expect(c.Delete(ctx, "/users/1", nil, nil)).To(Succeed())
		Expect(header.Get("Authorization")).To(BeEmpty())
	})
	It("Should report api errors", func() {
		mt.RegisterResponder("PUT", apiURL+"/api/users/1",
			httpmock.NewStringResponder(200, `{"code":1,"type":"error","message":"name taken"}`))

		c := newClient(nil, "", 0)
		er := c.Put(ctx, "/users/1", user{Name: "dup"}, &user{})

		var re *httpclient.ResultError
		Expect(errors.As(er, &re)).To(BeTrue())
		Expect(re.Code).To(Equal(httpclient.CodeError))
		Expect(re.Message).To(Equal("name taken"))
	})
	It("Should reject empty and malformed results", func() {
		mt.RegisterResponder("GET", apiURL+"/api/empty", httpmock.NewStringResponder(200, ""))
		mt.RegisterResponder("GET", apiURL+"/api/nocode", httpmock.NewStringResponder(200, `{"result":1}`))
		mt.RegisterResponder("GET", apiURL+"/api/html", httpmock.NewStringResponder(200, `<html>`))

		c := newClient(nil, "", 0)
		Expect(c.Get(ctx, "/empty", nil, nil)).To(MatchError(httpclient.ErrEmptyResponse))
		Expect(c.Get(ctx, "/nocode", nil, nil)).To(MatchError(httpclient.ErrMissingCode))
		Expect(c.Get(ctx, "/html", nil, nil)).To(MatchError(httpclient.ErrInvalidResponse))
	})
	It("Should return the raw body or the native response", func() {
		mt.RegisterResponder("GET", apiURL+"/api/raw",
			httpmock.NewStringResponder(201, `{"code":0,"result":{"id":7}}`))

		c := newClient(nil, "", 0)

		raw := httpclient.Result{}
		Expect(c.Get(ctx, "/raw", nil, &raw, httpclient.RawResult())).To(Succeed())
		Expect(*raw.Code).To(Equal(0))
		Expect(string(raw.Result)).To(Equal(`{"id":7}`))

		res := httpclient.Response{}
		Expect(c.Get(ctx, "/raw", nil, &res, httpclient.NativeResponse())).To(Succeed())
		Expect(res.StatusCode).To(Equal(201))
		Expect(string(res.Data)).To(ContainSubstring(`"id":7`))
	})
	It("Should retry server errors", func() {
		calls := 0
		mt.RegisterResponder("GET", apiURL+"/api/flaky", func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(503, "busy"), nil
			}
			return httpmock.NewStringResponse(200, `{"code":0,"result":"ok"}`), nil
		})

		c := newClient(nil, "", 2)
		v := ""
		Expect(c.Get(ctx, "/flaky", nil, &v)).To(Succeed())
		Expect(v).To(Equal("ok"))
		Expect(calls).To(Equal(3))
	})
	It("Should give up after the configured retries", func() {
		mt.RegisterResponder("GET", apiURL+"/api/down", httpmock.NewErrorResponder(fmt.Errorf("connection refused")))

		c := newClient(nil, "", 2)
		er := c.Get(ctx, "/down", nil, nil)
		Expect(er).To(HaveOccurred())
		Expect(mt.GetTotalCallCount()).To(Equal(3))
	})
	It("Should not retry client errors", func() {
		mt.RegisterResponder("GET", apiURL+"/api/missing", httpmock.NewStringResponder(404, "not found"))

		c := newClient(nil, "", 3)
		er := c.Get(ctx, "/missing", nil, nil)

		var se *httpclient.StatusError
		Expect(errors.As(er, &se)).To(BeTrue())
		Expect(se.StatusCode).To(Equal(404))
		Expect(mt.GetTotalCallCount()).To(Equal(1))
	})
	It("Should run every hook of a custom transform", func() {
		var seen []string
		mt.RegisterResponder("PATCH", "http://other.test/v2/items",
			httpmock.NewStringResponder(500, "boom"))

		opts := httpclient.DefaultOptions()
		opts.HTTPClient = &http.Client{Transport: mt}
		opts.Transform = &httpclient.Transform{
			BeforeRequest: func(req *httpclient.Request, o httpclient.RequestOptions) *httpclient.Request {
				seen = append(seen, "before")
				req.URL = o.APIURL + "/v2" + req.URL
				return req
			},
			RequestInterceptor: func(req *http.Request, o httpclient.RequestOptions) *http.Request {
				seen = append(seen, "request")
				return req
			},
			ResponseInterceptor: func(res *httpclient.Response) *httpclient.Response {
				seen = append(seen, "response")
				return res
			},
			RequestCatch: func(er error, o httpclient.RequestOptions) error {
				seen = append(seen, "catch")
				return fmt.Errorf("wrapped: %w", er)
			},
		}
		c := httpclient.New(opts)

		er := c.Patch(ctx, "/items", map[string]int{"n": 1}, nil, httpclient.WithAPIURL("http://other.test"))
		Expect(er).To(MatchError(ContainSubstring("wrapped")))
		Expect(seen).To(Equal([]string{"before", "request", "response", "catch"}))
	})
})
