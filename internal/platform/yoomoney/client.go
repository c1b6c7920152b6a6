package yoomoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://yoomoney.ru"

// Client is a minimal YooMoney wallet API client covering the three
// calls the bot needs: quickpay form creation, operation history and
// account info. The wallet is treated as an opaque settlement ledger.
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			// Quickpay answers with a redirect to the payment form; the
			// Location header is the value we want, so redirects are not
			// followed.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		token:   token,
		baseURL: defaultBaseURL,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// Operation is one entry of the wallet operation history. Only the
// status and label matter for settlement matching.
type Operation struct {
	OperationID string  `json:"operation_id"`
	Status      string  `json:"status"`
	Label       string  `json:"label"`
	Amount      float64 `json:"amount"`
	Datetime    string  `json:"datetime"`
}

const StatusSuccess = "success"

type historyResponse struct {
	Error      string      `json:"error,omitempty"`
	Operations []Operation `json:"operations"`
}

// AccountInfo is the wallet balance summary shown to administrators.
type AccountInfo struct {
	Account  string  `json:"account"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// RequestPayment creates a quickpay form and returns the URL the user is
// redirected to for payment. The label is echoed back by the ledger on
// settlement.
func (c *Client) RequestPayment(ctx context.Context, receiver string, amount int, targets, label string) (string, error) {
	form := url.Values{
		"receiver":      {receiver},
		"quickpay-form": {"shop"},
		"targets":       {targets},
		"paymentType":   {"AC"},
		"sum":           {strconv.Itoa(amount)},
		"label":         {label},
	}

	endpoint := c.baseURL + "/quickpay/confirm.xml"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("quickpay request: %w", err)
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("quickpay: no redirect in response (status %d)", resp.StatusCode)
	}
	return location, nil
}

// OperationHistory returns wallet operations matching the label since
// the given time.
func (c *Client) OperationHistory(ctx context.Context, label string, from time.Time) ([]Operation, error) {
	form := url.Values{
		"label": {label},
		"from":  {from.Format(time.RFC3339)},
	}

	var result historyResponse
	if err := c.apiCall(ctx, "/api/operation-history", form, &result); err != nil {
		return nil, fmt.Errorf("operation-history: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("operation-history: ledger error %q", result.Error)
	}
	return result.Operations, nil
}

// AccountInfo returns the receiving wallet's balance.
func (c *Client) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	var result AccountInfo
	if err := c.apiCall(ctx, "/api/account-info", url.Values{}, &result); err != nil {
		return nil, fmt.Errorf("account-info: %w", err)
	}
	return &result, nil
}

func (c *Client) apiCall(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
