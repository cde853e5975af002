/**
 * @description
 * This package provides a client for the interactive deposit protocol offered
 * by a funding anchor. It covers the three calls the deposit orchestrator
 * needs: initiating an interactive session (TOML discovery, challenge
 * authentication, interactive deposit request), firing the best-effort
 * completion trigger once the interactive surface closes, and polling the
 * transaction status endpoint.
 *
 * Challenge signing is an opaque capability supplied by the caller; this
 * package never touches key material.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, net/url, time: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: For inspecting auth token expiry claims.
 * - github.com/spf13/viper: For parsing the anchor's stellar.toml document.
 */
package sep24client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

// ErrTokenExpired is returned when the session's auth token has lapsed before
// a status poll; the session cannot be resumed and must be restarted.
var ErrTokenExpired = errors.New("sep24: auth token expired")

// ChallengeSigner signs authentication challenges on behalf of the wallet
// account. The signing mechanism is the integrator's concern.
type ChallengeSigner interface {
	Address() string
	SignChallenge(ctx context.Context, challengeXDR string) (string, error)
}

// Client is a client for an anchor's interactive deposit endpoints.
type Client struct {
	HTTPClient *http.Client
}

// NewClient creates a new interactive deposit client.
func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Session holds the coordinates of a successfully initiated interactive
// deposit session.
type Session struct {
	InteractiveURL    string
	TransferServerURL string
	AuthToken         string
	TransactionID     string
}

// InitiateParams are the inputs required to open an interactive session.
type InitiateParams struct {
	Amount     string
	Address    string
	AssetCode  string
	HomeDomain string
	Signer     ChallengeSigner
}

// StatusResult is one observation from the transaction status endpoint.
type StatusResult struct {
	Status  string
	Message string
}

type anchorEndpoints struct {
	WebAuthEndpoint   string
	TransferServerURL string
}

// InitiateInteractiveSession runs the full session setup: resolve the anchor's
// TOML document, authenticate via the challenge flow, and request an
// interactive deposit.
func (c *Client) InitiateInteractiveSession(ctx context.Context, p InitiateParams) (*Session, error) {
	endpoints, err := c.resolveEndpoints(ctx, p.HomeDomain)
	if err != nil {
		return nil, fmt.Errorf("resolve anchor endpoints: %w", err)
	}

	token, err := c.authenticate(ctx, endpoints.WebAuthEndpoint, p.Signer)
	if err != nil {
		return nil, fmt.Errorf("anchor authentication: %w", err)
	}

	reqBody, err := json.Marshal(map[string]string{
		"asset_code": p.AssetCode,
		"account":    p.Address,
		"amount":     p.Amount,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal deposit request: %w", err)
	}

	depositURL := strings.TrimRight(endpoints.TransferServerURL, "/") + "/transactions/deposit/interactive"
	req, err := http.NewRequestWithContext(ctx, "POST", depositURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create deposit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var depositResp struct {
		Type string `json:"type"`
		URL  string `json:"url"`
		ID   string `json:"id"`
	}
	if err := c.doJSON(req, &depositResp); err != nil {
		return nil, fmt.Errorf("interactive deposit request: %w", err)
	}
	if depositResp.URL == "" || depositResp.ID == "" {
		return nil, errors.New("anchor returned an incomplete interactive deposit response")
	}

	return &Session{
		InteractiveURL:    depositResp.URL,
		TransferServerURL: endpoints.TransferServerURL,
		AuthToken:         token,
		TransactionID:     depositResp.ID,
	}, nil
}

// TriggerCompletion tells the interactive session to finalize. Callers treat
// failures as non-fatal; status polling remains the source of truth.
func (c *Client) TriggerCompletion(ctx context.Context, interactiveURL string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", interactiveURL, nil)
	if err != nil {
		return fmt.Errorf("create completion request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute completion request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("completion trigger returned status %d", resp.StatusCode)
	}
	return nil
}

// PollStatus queries the transaction status endpoint once.
func (c *Client) PollStatus(ctx context.Context, transferServerURL, transactionID, authToken string) (*StatusResult, error) {
	if tokenExpired(authToken) {
		return nil, ErrTokenExpired
	}

	statusURL := strings.TrimRight(transferServerURL, "/") + "/transaction?id=" + url.QueryEscape(transactionID)
	req, err := http.NewRequestWithContext(ctx, "GET", statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	var statusResp struct {
		Transaction struct {
			ID      string `json:"id"`
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"transaction"`
	}
	if err := c.doJSON(req, &statusResp); err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}

	return &StatusResult{
		Status:  statusResp.Transaction.Status,
		Message: statusResp.Transaction.Message,
	}, nil
}

// resolveEndpoints fetches and parses the anchor's stellar.toml document.
func (c *Client) resolveEndpoints(ctx context.Context, homeDomain string) (*anchorEndpoints, error) {
	domain := strings.TrimRight(strings.TrimPrefix(strings.TrimPrefix(homeDomain, "https://"), "http://"), "/")
	tomlURL := "https://" + domain + "/.well-known/stellar.toml"

	req, err := http.NewRequestWithContext(ctx, "GET", tomlURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create toml request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", tomlURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("toml fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read toml response: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("parse stellar.toml: %w", err)
	}

	endpoints := &anchorEndpoints{
		WebAuthEndpoint:   v.GetString("WEB_AUTH_ENDPOINT"),
		TransferServerURL: v.GetString("TRANSFER_SERVER_SEP0024"),
	}
	if endpoints.WebAuthEndpoint == "" || endpoints.TransferServerURL == "" {
		return nil, errors.New("stellar.toml is missing WEB_AUTH_ENDPOINT or TRANSFER_SERVER_SEP0024")
	}
	return endpoints, nil
}

// authenticate runs the challenge-response flow and returns a session token.
func (c *Client) authenticate(ctx context.Context, webAuthEndpoint string, signer ChallengeSigner) (string, error) {
	challengeURL := webAuthEndpoint + "?account=" + url.QueryEscape(signer.Address())
	req, err := http.NewRequestWithContext(ctx, "GET", challengeURL, nil)
	if err != nil {
		return "", fmt.Errorf("create challenge request: %w", err)
	}

	var challengeResp struct {
		Transaction string `json:"transaction"`
	}
	if err := c.doJSON(req, &challengeResp); err != nil {
		return "", fmt.Errorf("challenge request: %w", err)
	}
	if challengeResp.Transaction == "" {
		return "", errors.New("anchor returned an empty challenge")
	}

	signed, err := signer.SignChallenge(ctx, challengeResp.Transaction)
	if err != nil {
		return "", fmt.Errorf("sign challenge: %w", err)
	}

	tokenBody, err := json.Marshal(map[string]string{"transaction": signed})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}
	tokenReq, err := http.NewRequestWithContext(ctx, "POST", webAuthEndpoint, bytes.NewReader(tokenBody))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	tokenReq.Header.Set("Content-Type", "application/json")

	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(tokenReq, &tokenResp); err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	if tokenResp.Token == "" {
		return "", errors.New("anchor returned an empty token")
	}
	return tokenResp.Token, nil
}

// doJSON executes a request and decodes a 2xx JSON body into out.
func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(bodyBytes, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("anchor error: %s (status %d)", errResp.Error, resp.StatusCode)
		}
		log.Printf("level=warn component=sep24_client url=%s status=%d msg=\"non-2xx response (unparsable error body)\"", req.URL.Path, resp.StatusCode)
		return fmt.Errorf("anchor request failed (status %d)", resp.StatusCode)
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// tokenExpired inspects the token's exp claim without verifying the signature;
// verification is the anchor's job, expiry is just an early-out for polling.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Now().After(exp.Time)
}
