// Package bank is the MiBanca client: account lookup by national id and
// account-to-account transfers.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/middleware"
)

type Account struct {
	ID         int64           `json:"cuenta_id"`
	Number     string          `json:"numero_cuenta,omitempty"`
	Type       string          `json:"tipo_cuenta,omitempty"`
	Balance    decimal.Decimal `json:"saldo"`
	NationalID string          `json:"cedula,omitempty"`
}

type Transfer struct {
	From        int64
	To          int64
	Amount      decimal.Decimal
	Description string
}

type transferBody struct {
	From        int64       `json:"cuenta_origen"`
	To          int64       `json:"cuenta_destino"`
	Amount      json.Number `json:"monto"`
	Description string      `json:"tipo_transaccion"`
}

type Transaction struct {
	ID        int64  `json:"transaccion_id"`
	CreatedAt string `json:"fecha_transaccion"`
}

// Error is a failed bank call. Status is zero when no response arrived.
type Error struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("bank %s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("bank %s: http %d: %s", e.Op, e.Status, e.Body)
	default:
		return fmt.Sprintf("bank %s: http %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Kind() apperr.Kind {
	if e.Err != nil {
		var ne net.Error
		if errors.Is(e.Err, context.DeadlineExceeded) || (errors.As(e.Err, &ne) && ne.Timeout()) {
			return apperr.KindTimeout
		}
		return apperr.KindRemoteUnavailable
	}
	if e.Status >= 400 && e.Status < 500 {
		return apperr.KindDomainRejected
	}
	return apperr.KindRemoteUnavailable
}

type Client struct {
	BaseURL *url.URL
	HTTP    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	u, err := url.Parse(baseURL)
	if err != nil {
		// Fail fast: config error
		panic(fmt.Sprintf("invalid bank base url %q: %v", baseURL, err))
	}
	return &Client{BaseURL: u, HTTP: httpClient}
}

// Accounts lists the accounts held by the customer with the given national
// id. An unknown customer yields an empty list.
func (c *Client) Accounts(ctx context.Context, nationalID string) ([]Account, error) {
	path := "/api/clientes/" + url.PathEscape(strings.TrimSpace(nationalID)) + "/cuentas"

	var out []Account
	status, err := c.do(ctx, "accounts", http.MethodGet, path, nil, &out)
	if status == http.StatusNotFound {
		return []Account{}, nil
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Account{}
	}
	return out, nil
}

// CreateTransfer moves money between two accounts. The bank accepts no
// idempotency key, so a failed call must not be retried blindly.
func (c *Client) CreateTransfer(ctx context.Context, t Transfer) (Transaction, error) {
	body := transferBody{
		From:        t.From,
		To:          t.To,
		Amount:      json.Number(t.Amount.StringFixed(2)),
		Description: t.Description,
	}

	var tx Transaction
	if _, err := c.do(ctx, "transfer", http.MethodPost, "/api/transacciones", body, &tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, &Error{Op: op, Err: err}
		}
		body = bytes.NewReader(b)
	}

	u := c.BaseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return 0, &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cid := middleware.GetCorrelationID(ctx); cid != "" {
		req.Header.Set(middleware.HeaderCorrelationID, cid)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return resp.StatusCode, &Error{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return resp.StatusCode, nil
}
