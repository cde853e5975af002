/**
 * @description
 * This package provides a client for a Horizon-compatible ledger API. It covers
 * the read surface the wallet needs (account lookup, payment history) plus
 * transaction submission, and exposes server-sent-event subscriptions for
 * account changes and payments in stream.go.
 *
 * @dependencies
 * - encoding/json, fmt, io, net/http, net/url, time: Standard Go libraries.
 */
package horizonclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when Horizon reports a 404 for a resource.
var ErrNotFound = errors.New("horizon: resource not found")

// Client is a client for the Horizon ledger API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Horizon client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AccountBalance is one balance line of an account record.
type AccountBalance struct {
	Balance     string `json:"balance"`
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code,omitempty"`
	AssetIssuer string `json:"asset_issuer,omitempty"`
}

// AccountDetail is the subset of a Horizon account record the wallet reads.
type AccountDetail struct {
	ID       string           `json:"id"`
	Sequence string           `json:"sequence"`
	Balances []AccountBalance `json:"balances"`
}

// PaymentRecord is a payment operation as delivered by Horizon, both on the
// history endpoint and on the payments stream.
type PaymentRecord struct {
	ID              string `json:"id"`
	PagingToken     string `json:"paging_token"`
	Type            string `json:"type"`
	From            string `json:"from"`
	To              string `json:"to"`
	Amount          string `json:"amount"`
	AssetType       string `json:"asset_type"`
	AssetCode       string `json:"asset_code,omitempty"`
	AssetIssuer     string `json:"asset_issuer,omitempty"`
	CreatedAt       string `json:"created_at"`
	TransactionHash string `json:"transaction_hash"`
}

type paymentsPage struct {
	Embedded struct {
		Records []PaymentRecord `json:"records"`
	} `json:"_embedded"`
}

// SubmitResponse is the success response from transaction submission.
type SubmitResponse struct {
	Hash   string `json:"hash"`
	Ledger int64  `json:"ledger"`
}

// horizonProblem is the problem+json error document Horizon returns.
type horizonProblem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (p *horizonProblem) Error() string {
	return fmt.Sprintf("horizon error: %s (status %d)", p.Title, p.Status)
}

// LoadAccount fetches the full account record. A missing account maps to
// ErrNotFound so callers can treat the existence probe uniformly.
func (c *Client) LoadAccount(ctx context.Context, accountID string) (*AccountDetail, error) {
	var detail AccountDetail
	if err := c.getJSON(ctx, "/accounts/"+url.PathEscape(accountID), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// AccountExists probes whether the account is funded on the ledger.
func (c *Client) AccountExists(ctx context.Context, accountID string) (bool, error) {
	_, err := c.LoadAccount(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FetchPayments lists the most recent payment operations involving the
// account, newest first.
func (c *Client) FetchPayments(ctx context.Context, accountID string, limit int) ([]PaymentRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	path := "/accounts/" + url.PathEscape(accountID) + "/payments?order=desc&limit=" + strconv.Itoa(limit)
	var page paymentsPage
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, err
	}
	return page.Embedded.Records, nil
}

// SubmitTransaction submits a signed, base64-encoded transaction envelope.
// Building and signing the envelope is the caller's concern.
func (c *Client) SubmitTransaction(ctx context.Context, envelopeXDR string) (*SubmitResponse, error) {
	form := url.Values{"tx": {envelopeXDR}}
	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/transactions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute submit request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read submit response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeProblem(resp.StatusCode, bodyBytes, "submit_transaction")
	}

	var submitResp SubmitResponse
	if err := json.Unmarshal(bodyBytes, &submitResp); err != nil {
		return nil, fmt.Errorf("failed to decode submit response: %w", err)
	}
	return &submitResp, nil
}

// getJSON performs an authenticated-less GET and decodes the response body.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeProblem(resp.StatusCode, bodyBytes, path)
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeProblem(status int, body []byte, op string) error {
	if status == http.StatusNotFound {
		return ErrNotFound
	}
	var problem horizonProblem
	if err := json.Unmarshal(body, &problem); err != nil || problem.Title == "" {
		log.Printf("level=warn component=horizon_client op=%s status=%d msg=\"non-2xx response (unparsable error body)\"", op, status)
		return fmt.Errorf("horizon request failed (status %d)", status)
	}
	problem.Status = status
	return &problem
}
