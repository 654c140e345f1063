package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/phoreproject/sentinel/indexer"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/rpc"
	"github.com/pkg/errors"
)

// APIError is a non-2xx response from the node.
type APIError struct {
	Status  int
	Message string
	Code    uint32
	Receipt *ledger.Receipt
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("node returned %d: %s (code %d)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("node returned %d: %s", e.Status, e.Message)
}

// Client talks to a node's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the node at baseURL, e.g. http://localhost:11780.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error calling %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "error decoding response")
}

func decodeError(resp *http.Response) error {
	var body struct {
		rpc.TransactionResponse
		rpc.ErrorResponse
	}
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return apiErr
	}
	switch {
	case body.Error != "":
		apiErr.Message = body.Error
	case body.Message != "":
		apiErr.Message = body.Message
	}
	apiErr.Code = body.Code
	apiErr.Receipt = body.Receipt
	return apiErr
}

// SubmitTransaction sends a signed transaction and returns its receipt.
func (c *Client) SubmitTransaction(ctx context.Context, tx *ledger.Transaction) (*ledger.Receipt, error) {
	var resp rpc.TransactionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/transactions", tx, &resp); err != nil {
		return nil, err
	}
	return resp.Receipt, nil
}

// Airdrop asks the node's faucet for lamports.
func (c *Client) Airdrop(ctx context.Context, addr ledger.Address, lamports uint64) (*ledger.Receipt, error) {
	var resp rpc.TransactionResponse
	err := c.do(ctx, http.MethodPost, "/v1/airdrop", rpc.AirdropRequest{Address: addr, Lamports: lamports}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Receipt, nil
}

// Account fetches an account.
func (c *Client) Account(ctx context.Context, addr ledger.Address) (*ledger.Account, error) {
	var resp rpc.AccountResponse
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+addr.String(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Account, nil
}

// Record fetches the record of a transaction.
func (c *Client) Record(ctx context.Context, transactionID string) (*rpc.RecordResponse, error) {
	var resp rpc.RecordResponse
	if err := c.do(ctx, http.MethodGet, "/v1/records/"+url.PathEscape(transactionID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Proof fetches the record of a transaction with a state proof.
func (c *Client) Proof(ctx context.Context, transactionID string) (*rpc.ProofResponse, error) {
	var resp rpc.ProofResponse
	if err := c.do(ctx, http.MethodGet, "/v1/records/"+url.PathEscape(transactionID)+"/proof", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LatestAlerts lists the most recent fraud alerts.
func (c *Client) LatestAlerts(ctx context.Context, limit int) ([]indexer.FraudAlert, error) {
	var resp rpc.AlertsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/fraud?limit="+strconv.Itoa(limit), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

// AlertsAboveScore lists fraud alerts scored at least minScore.
func (c *Client) AlertsAboveScore(ctx context.Context, minScore uint8) ([]indexer.FraudAlert, error) {
	var resp rpc.AlertsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/fraud?min_score="+strconv.Itoa(int(minScore)), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

// Alert fetches the fraud alert of a transaction.
func (c *Client) Alert(ctx context.Context, transactionID string) (*indexer.FraudAlert, error) {
	var resp indexer.FraudAlert
	if err := c.do(ctx, http.MethodGet, "/v1/fraud/"+url.PathEscape(transactionID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// State fetches the current slot and state root.
func (c *Client) State(ctx context.Context) (*rpc.StateResponse, error) {
	var resp rpc.StateResponse
	if err := c.do(ctx, http.MethodGet, "/v1/state", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
