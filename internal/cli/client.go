package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gojek/heimdall/v7"
	"github.com/tidwall/gjson"

	"github.com/apprenticelog/apprenticelog/pkg/request"
	"github.com/apprenticelog/apprenticelog/pkg/request/httpclient"
)

const (
	defaultURL = "http://localhost:8080"

	envURL      = "APPRENTICELOG_URL"
	envUser     = "APPRENTICELOG_USER"
	envPassword = "APPRENTICELOG_PASSWORD"

	hystrixCommand        = "apprenticelog_cli"
	hystrixCommandNoRetry = "apprenticelog_cli_no_retry"
)

// APIError is a non-2xx answer of the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client is an HTTP client for the apprenticelog API.
// HTTPClient retries and serves idempotent methods. POST requests go through
// NoRetryClient so a resolve is sent exactly once.
type Client struct {
	BaseURL       string
	Username      string
	Password      string
	HTTPClient    heimdall.Doer
	NoRetryClient heimdall.Doer
}

// NewClientFromEnv creates a Client from APPRENTICELOG_URL, APPRENTICELOG_USER
// and APPRENTICELOG_PASSWORD. Credentials are optional.
func NewClientFromEnv() (*Client, error) {
	baseURL := os.Getenv(envURL)
	if baseURL == "" {
		baseURL = defaultURL
	}

	cfg := httpclient.DefaultConfig()
	httpClient, err := httpclient.NewClient(hystrixCommand, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating http client: %w", err)
	}

	cfg.RetryCount = 0
	noRetryClient, err := httpclient.NewClient(hystrixCommandNoRetry, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating http client: %w", err)
	}

	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Username:      os.Getenv(envUser),
		Password:      os.Getenv(envPassword),
		HTTPClient:    httpClient,
		NoRetryClient: noRetryClient,
	}, nil
}

// doerFor picks the retrying client for idempotent methods only
func (c *Client) doerFor(method string) heimdall.Doer {
	if method == http.MethodPost && c.NoRetryClient != nil {
		return c.NoRetryClient
	}
	return c.HTTPClient
}

// Do sends an HTTP request and returns the response body.
// Non-2xx responses become an *APIError carrying the server's error message.
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		payload = data
	}

	req, err := request.NewRequest(ctx, method, c.BaseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.Username, c.Password)
	req.SetHeaders(map[string]string{"Accept": "application/json"})
	if body != nil {
		req.SetHeaders(map[string]string{"Content-Type": "application/json"})
	}

	resp, err := req.Send(c.doerFor(method), strings.ToLower(method)+" "+path)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if !resp.IsSuccess() {
		if msg := gjson.GetBytes(resp.Body, "error"); msg.Exists() && msg.String() != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: msg.String()}
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(resp.Body))),
		}
	}

	return json.RawMessage(resp.Body), nil
}

func commentContextPath(userID string) string {
	return "/api/v1/comment-contexts/" + url.PathEscape(userID)
}

// prettyJSON formats a json.RawMessage with 2-space indentation.
func prettyJSON(data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func doAndPrint(ctx context.Context, out io.Writer, method, path string, body any) error {
	client, err := NewClientFromEnv()
	if err != nil {
		return err
	}

	data, err := client.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if method == http.MethodDelete {
		return nil
	}

	s, err := prettyJSON(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, s)
	return err
}
