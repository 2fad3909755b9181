package collector

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"

	"PolicyScan/internal/model"
)

// RESTFetcher reads policies from the insurance backend API.
type RESTFetcher struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Client  *fasthttp.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, token, proxyURL string, timeout time.Duration) *RESTFetcher {
	client := &fasthttp.Client{
		Name:                "policyscan",
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxIdleConnDuration: time.Minute,
	}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil && u.Host != "" {
			addr := u.Host
			if u.User != nil {
				addr = u.User.String() + "@" + u.Host
			}
			client.Dial = fasthttpproxy.FasthttpHTTPDialer(addr)
		}
	}
	return &RESTFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Timeout: timeout,
		Client:  client,
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// FetchPolicies calls GET {base}/insurance and converts the payloads.
func (f *RESTFetcher) FetchPolicies(ctx context.Context) ([]model.PolicyRecord, error) {
	body, err := f.get(ctx, f.BaseURL+"/insurance")
	if err != nil {
		return nil, err
	}

	var payloads []model.PolicyPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, eris.Wrap(err, "rest: decode policies")
	}
	return model.RecordsFromPayloads(payloads)
}

// FetchPolicy calls GET {base}/insurance/{id}.
func (f *RESTFetcher) FetchPolicy(ctx context.Context, id string) (model.PolicyRecord, error) {
	body, err := f.get(ctx, f.BaseURL+"/insurance/"+url.PathEscape(id))
	if err != nil {
		return model.PolicyRecord{}, err
	}
	var p model.PolicyPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return model.PolicyRecord{}, eris.Wrap(err, "rest: decode policy")
	}
	return p.ToRecord()
}

func (f *RESTFetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	deadline := time.Now().Add(f.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "rest: request cancelled")
	}
	if err := f.Client.DoDeadline(req, resp, deadline); err != nil {
		return nil, eris.Wrapf(err, "rest: GET %s", endpoint)
	}

	switch code := resp.StatusCode(); {
	case code == fasthttp.StatusUnauthorized || code == fasthttp.StatusForbidden:
		return nil, eris.Errorf("rest: GET %s: not authenticated (status %d)", endpoint, code)
	case code != fasthttp.StatusOK:
		return nil, eris.Errorf("rest: GET %s: status %d, body: %s", endpoint, code, truncate(resp.Body(), 200))
	}

	// resp is released on return; copy the body out.
	return append([]byte(nil), resp.Body()...), nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
