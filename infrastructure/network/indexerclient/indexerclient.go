// Package indexerclient talks to the Glittr indexer API.
package indexerclient

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/glittrfi/glittr-go/domain/workflow"
	"github.com/glittrfi/glittr-go/infrastructure/network/httpclient"
	"github.com/pkg/errors"
)

const (
	validateTxEndpoint = "validate-tx"
	txEndpoint         = "tx"
)

// Client is a Glittr indexer client. It implements workflow.Indexer.
type Client struct {
	http *httpclient.Client
}

var _ workflow.Indexer = (*Client)(nil)

// New returns a client for the indexer at cfg.BaseURL.
func New(cfg httpclient.Config) (*Client, error) {
	httpClient, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{http: httpClient}, nil
}

// ValidateTx asks the indexer whether rawTx would be accepted. A verdict
// is returned whenever the response body carries one, regardless of the
// HTTP status.
func (c *Client) ValidateTx(ctx context.Context, rawTx []byte) (*workflow.Validation, error) {
	response, err := c.http.PostText(ctx, hex.EncodeToString(rawTx), validateTxEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "error submitting transaction for validation")
	}
	if !response.OK() {
		log.Warnf("Validate tx responded with %s", response.Status)
	}

	var verdict struct {
		IsValid *bool  `json:"is_valid"`
		Msg     string `json:"msg"`
	}
	err = json.Unmarshal(response.Body, &verdict)
	if err != nil || verdict.IsValid == nil {
		if statusErr := response.Err(); statusErr != nil {
			return nil, errors.Wrap(statusErr, "error validating transaction")
		}
		return nil, errors.Errorf("indexer returned no validation verdict: %s", response.Body)
	}
	return &workflow.Validation{IsValid: *verdict.IsValid, Msg: verdict.Msg}, nil
}

// GetTx returns the indexer record of txID, or workflow.ErrNotIndexed when
// the indexer has not processed it yet.
func (c *Client) GetTx(ctx context.Context, txID string) (json.RawMessage, error) {
	response, err := c.http.Get(ctx, txEndpoint, txID)
	if err != nil {
		return nil, errors.Wrap(err, "error getting transaction from indexer")
	}
	if response.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(workflow.ErrNotIndexed, "transaction %s", txID)
	}
	err = response.Err()
	if err != nil {
		return nil, errors.Wrapf(err, "error getting transaction %s from indexer", txID)
	}
	if !json.Valid(response.Body) {
		return nil, errors.Errorf("indexer returned invalid JSON for transaction %s", txID)
	}
	return json.RawMessage(response.Body), nil
}
