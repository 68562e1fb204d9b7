package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hearthlist/relay/pkg/domain/interfaces"
	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/utils/logging"
	"github.com/hearthlist/relay/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

// Client delivers action records to the remote Hearthlist API over HTTP.
// Failures that may resolve on a later attempt (network errors, non-2xx
// responses) wrap model.ErrTransientDelivery.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	header     http.Header
}

var _ interfaces.RemoteAPI = &Client{}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader adds a header sent with every request (e.g. authorization)
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Add(key, value)
	}
}

// New creates a remote API client for the given base URL
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid base URL", goerr.V("base_url", baseURL))
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, goerr.New("base URL must be absolute", goerr.V("base_url", baseURL))
	}

	client := &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Execute sends the action's payload to its target and returns the decoded
// response body. A DELETE answered with 404 is treated as success: the
// entity is already gone on the server, which is the outcome the action
// wanted.
func (c *Client) Execute(ctx context.Context, action *model.ActionRecord) (model.Payload, error) {
	if err := action.Validate(); err != nil {
		return nil, goerr.Wrap(err, "undeliverable action")
	}

	req, err := c.buildRequest(ctx, action)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(model.ErrTransientDelivery, "request failed",
			goerr.V("action_id", action.ID),
			goerr.V("method", action.Target.Method),
			goerr.V("path", action.Target.Path),
			goerr.V("cause", err.Error()))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusNotFound && action.Target.Method == http.MethodDelete {
			logging.From(ctx).Debug("delete target already gone, treating as success",
				"action_id", action.ID.String(), "path", action.Target.Path)
			return nil, nil
		}
		return nil, goerr.Wrap(model.ErrTransientDelivery, "unexpected response status",
			goerr.V("action_id", action.ID),
			goerr.V("status", resp.StatusCode),
			goerr.V("path", action.Target.Path))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(model.ErrTransientDelivery, "failed to read response body",
			goerr.V("action_id", action.ID))
	}
	if len(body) == 0 {
		return nil, nil
	}

	var payload model.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, goerr.Wrap(model.ErrTransientDelivery, "malformed response body",
			goerr.V("action_id", action.ID),
			goerr.V("status", resp.StatusCode))
	}
	return payload, nil
}

func (c *Client) buildRequest(ctx context.Context, action *model.ActionRecord) (*http.Request, error) {
	ref, err := url.Parse(action.Target.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid target path",
			goerr.V("action_id", action.ID), goerr.V("path", action.Target.Path))
	}

	var body io.Reader
	if len(action.Payload) > 0 {
		raw, err := json.Marshal(action.Payload)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode payload", goerr.V("action_id", action.ID))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, action.Target.Method, c.baseURL.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("action_id", action.ID))
	}

	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for key, values := range action.Target.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
