// Package chainclient talks to an Esplora style chain query service.
package chainclient

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/glittrfi/glittr-go/domain/workflow"
	"github.com/glittrfi/glittr-go/infrastructure/network/httpclient"
	"github.com/pkg/errors"
)

const (
	addressEndpoint = "address"
	utxoEndpoint    = "utxo"
	txEndpoint      = "tx"
	hexEndpoint     = "hex"
)

// UTXOStatus is the confirmation status of an unspent output.
type UTXOStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint64 `json:"block_height,omitempty"`
	BlockHash   string `json:"block_hash,omitempty"`
	BlockTime   int64  `json:"block_time,omitempty"`
}

// UTXO is an unspent output of an address.
type UTXO struct {
	TxID   string     `json:"txid"`
	Vout   uint32     `json:"vout"`
	Value  uint64     `json:"value"`
	Status UTXOStatus `json:"status"`
}

// Client is a chain query service client.
type Client struct {
	http *httpclient.Client
}

// New returns a client for the service at cfg.BaseURL.
func New(cfg httpclient.Config) (*Client, error) {
	httpClient, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{http: httpClient}, nil
}

// UTXOs returns the unspent outputs of address.
func (c *Client) UTXOs(ctx context.Context, address string) ([]*UTXO, error) {
	response, err := c.http.Get(ctx, addressEndpoint, address, utxoEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "error getting UTXOs from chain service")
	}
	err = response.Err()
	if err != nil {
		return nil, errors.Wrapf(err, "error getting UTXOs of %s", address)
	}

	utxos := []*UTXO{}
	err = json.Unmarshal(response.Body, &utxos)
	if err != nil {
		return nil, errors.Wrap(err, "error unmarshalling UTXOs")
	}
	log.Debugf("Got %d UTXOs for %s", len(utxos), address)
	return utxos, nil
}

// TxHex returns the hex serialization of transaction txID.
func (c *Client) TxHex(ctx context.Context, txID string) (string, error) {
	response, err := c.http.Get(ctx, txEndpoint, txID, hexEndpoint)
	if err != nil {
		return "", errors.Wrap(err, "error getting transaction from chain service")
	}
	err = response.Err()
	if err != nil {
		return "", errors.Wrapf(err, "error getting transaction %s", txID)
	}
	txHex := strings.TrimSpace(string(response.Body))
	if txHex == "" {
		return "", errors.Errorf("chain service returned no hex for transaction %s", txID)
	}
	return txHex, nil
}

// BroadcastTx relays rawTx and returns its id. A non-2xx answer is a
// *workflow.RefusedError carrying the HTTP reason phrase.
func (c *Client) BroadcastTx(ctx context.Context, rawTx []byte) (string, error) {
	response, err := c.http.PostText(ctx, hex.EncodeToString(rawTx), txEndpoint)
	if err != nil {
		return "", errors.Wrap(err, "error broadcasting transaction")
	}
	if !response.OK() {
		log.Warnf("Chain service refused transaction: %s", response.Err())
		return "", errors.WithStack(&workflow.RefusedError{Status: response.StatusText()})
	}
	txID := strings.TrimSpace(string(response.Body))
	if txID == "" {
		return "", errors.New("chain service returned an empty transaction id")
	}
	log.Infof("Chain service accepted transaction %s", txID)
	return txID, nil
}

// SelectUTXO returns the first confirmed output worth more than
// dustThreshold.
func SelectUTXO(utxos []*UTXO, dustThreshold uint64) (*UTXO, bool) {
	for _, utxo := range utxos {
		if utxo.Status.Confirmed && utxo.Value > dustThreshold {
			return utxo, true
		}
	}
	return nil, false
}
