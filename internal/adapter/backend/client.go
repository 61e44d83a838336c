// Package backend is the HTTP/JSON client of the campus payments API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/session"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

var (
	_ usecase.PaymentBackend = (*Client)(nil)
	_ usecase.BuyerBackend   = (*Client)(nil)
	_ usecase.OrderBackend   = (*Client)(nil)
	_ usecase.WalletBackend  = (*Client)(nil)
	_ usecase.ProfileBackend = (*Client)(nil)
	_ session.Backend        = (*Client)(nil)
)

const maxErrBody = 64 * 1024

type Client struct {
	base string
	hc   *http.Client
}

// New builds a client. timeout 0 leaves calls unbounded; callers cancel through ctx.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient uses hc as given, adding a cookie jar when it has none:
// the backend checks X-CSRFToken against the csrftoken cookie set by /csrf/.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc.Jar == nil {
		withJar := *hc
		withJar.Jar, _ = cookiejar.New(nil) // never fails without options
		hc = &withJar
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

func (c *Client) do(ctx context.Context, sc *session.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sc != nil {
		if sc.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+sc.AccessToken)
		}
		if sc.CSRFToken != "" {
			req.Header.Set("X-CSRFToken", sc.CSRFToken)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func remoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)

	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = eb.Detail
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &domain.RemoteError{Status: resp.StatusCode, Message: msg}
}

// amount renders money the way the backend expects it: a JSON number with two decimals.
func amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
