package operation

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/glittrfi/glittr-go/domain/assembler"
	"github.com/glittrfi/glittr-go/domain/embed"
	"github.com/glittrfi/glittr-go/domain/message"
	"github.com/glittrfi/glittr-go/domain/workflow"
	"github.com/glittrfi/glittr-go/infrastructure/db/journal"
	"github.com/glittrfi/glittr-go/infrastructure/network/chainclient"
	"github.com/glittrfi/glittr-go/infrastructure/network/httpclient"
	"github.com/glittrfi/glittr-go/infrastructure/network/indexerclient"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKey struct {
	privateKey *secp256k1.PrivateKey
}

func (k testKey) PublicKey() []byte {
	return k.privateKey.PubKey().SerializeCompressed()
}

func (k testKey) Sign(hash []byte) ([]byte, error) {
	return ecdsa.Sign(k.privateKey, hash).Serialize(), nil
}

func (k testKey) Verify(pubKey []byte, hash []byte, signature []byte) bool {
	key, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, key)
}

// fakeServices serves the chain and indexer APIs from one test server.
type fakeServices struct {
	t            *testing.T
	prevTxHex    string
	prevTxID     string
	utxoValue    uint64
	validation   string
	notFound     int32
	polls        int32
	broadcasts   int32
	broadcastHex atomic.Value

	// dropBroadcast closes the connection after reading the broadcast body.
	dropBroadcast bool
}

func (f *fakeServices) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/chain/address/"+testAddress(f.t).EncodeAddress()+"/utxo":
		fmt.Fprintf(w, `[{"txid":"%s","vout":1,"value":%d,"status":{"confirmed":true,"block_height":100}}]`,
			f.prevTxID, f.utxoValue)
	case r.URL.Path == "/chain/tx/"+f.prevTxID+"/hex":
		_, _ = w.Write([]byte(f.prevTxHex))
	case r.URL.Path == "/chain/tx" && r.Method == http.MethodPost:
		atomic.AddInt32(&f.broadcasts, 1)
		body, _ := io.ReadAll(r.Body)
		f.broadcastHex.Store(string(body))
		if f.dropBroadcast {
			conn, _, err := w.(http.Hijacker).Hijack()
			if assert.NoError(f.t, err) {
				_ = conn.Close()
			}
			return
		}
		raw, err := hex.DecodeString(string(body))
		assert.NoError(f.t, err)
		tx, err := assembler.DeserializeRawTx(raw)
		assert.NoError(f.t, err)
		_, _ = w.Write([]byte(tx.TxHash().String()))
	case r.URL.Path == "/indexer/validate-tx":
		_, _ = w.Write([]byte(f.validation))
	case len(r.URL.Path) > len("/indexer/tx/") && r.URL.Path[:len("/indexer/tx/")] == "/indexer/tx/":
		if atomic.AddInt32(&f.polls, 1) <= f.notFound {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"is_valid":true,"message":{"message":{"contract_call":{}}}}`))
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	}
}

func testSigner() testKey {
	return testKey{privateKey: secp256k1.PrivKeyFromBytes(bytes.Repeat([]byte{3}, 32))}
}

func testAddress(t *testing.T) btcutil.Address {
	address, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(testSigner().PublicKey()), &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	return address
}

func newFakeServices(t *testing.T, utxoValue int64) *fakeServices {
	pkScript, err := txscript.PayToAddrScript(testAddress(t))
	require.NoError(t, err)
	prevTx := wire.NewMsgTx(wire.TxVersion)
	prevTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{9}, 0), nil, nil))
	prevTx.AddTxOut(wire.NewTxOut(50000, []byte{txscript.OP_TRUE}))
	prevTx.AddTxOut(wire.NewTxOut(utxoValue, pkScript))
	var buf bytes.Buffer
	require.NoError(t, prevTx.Serialize(&buf))

	return &fakeServices{
		t:          t,
		prevTxHex:  hex.EncodeToString(buf.Bytes()),
		prevTxID:   prevTx.TxHash().String(),
		utxoValue:  uint64(utxoValue),
		validation: `{"is_valid":true}`,
		notFound:   1,
	}
}

func newTestSubmitter(t *testing.T, services *fakeServices, journal *journal.Journal) *Submitter {
	server := httptest.NewServer(services)
	t.Cleanup(server.Close)

	chain, err := chainclient.New(httpclient.Config{BaseURL: server.URL + "/chain"})
	require.NoError(t, err)
	indexer, err := indexerclient.New(httpclient.Config{BaseURL: server.URL + "/indexer"})
	require.NoError(t, err)

	key := testSigner()
	submitter, err := NewSubmitter(Config{
		Chain:         chain,
		Indexer:       indexer,
		Policy:        workflow.PollPolicy{NotFoundInterval: time.Millisecond, ErrorInterval: time.Millisecond},
		Journal:       journal,
		Signer:        key,
		Verifier:      key,
		Address:       testAddress(t),
		Fee:           1000,
		DustThreshold: 1000,
	})
	require.NoError(t, err)
	return submitter
}

func openTestJournal(t *testing.T) *journal.Journal {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestSubmitMint(t *testing.T) {
	services := newFakeServices(t, 20000)
	j := openTestJournal(t)
	submitter := newTestSubmitter(t, services, j)

	msg := message.NewMint(message.BlockTxTuple{Block: 100, Tx: 0}, 0)
	receipt, err := submitter.Submit(context.Background(), msg)
	require.NoError(t, err)

	require.Equal(t, uint64(1000), receipt.Fee)
	require.Equal(t, receipt.TxID, receipt.Confirmation.TxID)
	require.Equal(t, 2, receipt.Confirmation.Attempts)
	require.Equal(t, int32(1), atomic.LoadInt32(&services.broadcasts))
	require.Equal(t, receipt.Hex(), services.broadcastHex.Load())

	require.Equal(t, int64(19000), receipt.Tx.TxOut[1].Value)
	payload, index, err := embed.FindPayload(receipt.Tx)
	require.NoError(t, err)
	require.Equal(t, 0, index)
	require.Equal(t, `{"tx_type":{"contract_call":{"call_type":{"mint":{"pointer":0}},"contract":[100,0]}}}`, string(payload))

	entry, err := j.Get(receipt.TxID)
	require.NoError(t, err)
	require.Equal(t, workflow.StateConfirmed.String(), entry.State)
	require.Equal(t, "contract_call/mint", entry.Operation)
	require.Equal(t, string(payload), string(entry.Payload))
	require.NotEmpty(t, entry.Record)
}

func TestSubmitRejected(t *testing.T) {
	services := newFakeServices(t, 20000)
	services.validation = `{"is_valid":false,"msg":"bad contract"}`
	j := openTestJournal(t)
	submitter := newTestSubmitter(t, services, j)

	_, err := submitter.Submit(context.Background(), message.NewBurn(message.BlockTxTuple{Block: 1, Tx: 2}))
	require.True(t, errors.Is(err, workflow.ErrRejectedByIndexer), "unexpected error %v", err)
	require.Zero(t, atomic.LoadInt32(&services.broadcasts))

	entries, err := j.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, workflow.StateFailed.String(), entries[0].State)
	require.Contains(t, entries[0].Error, "bad contract")
}

func TestSubmitBroadcastOutcomeUnknown(t *testing.T) {
	services := newFakeServices(t, 20000)
	services.dropBroadcast = true
	j := openTestJournal(t)
	submitter := newTestSubmitter(t, services, j)

	_, err := submitter.Submit(context.Background(), message.NewBurn(message.BlockTxTuple{Block: 1, Tx: 2}))
	require.True(t, errors.Is(err, workflow.ErrBroadcastFailed), "unexpected error %v", err)
	require.EqualValues(t, 1, atomic.LoadInt32(&services.broadcasts))

	var workflowErr *workflow.Error
	require.True(t, errors.As(err, &workflowErr))
	require.True(t, workflowErr.Broadcasted())
	require.NotEmpty(t, workflowErr.TxID)

	entry, err := j.Get(workflowErr.TxID)
	require.NoError(t, err)
	require.Equal(t, workflow.StatePolling.String(), entry.State, "the entry must stay resumable")
	require.NotEmpty(t, entry.Error)
}

func TestSubmitNoFundingUTXO(t *testing.T) {
	services := newFakeServices(t, 900)
	submitter := newTestSubmitter(t, services, nil)

	_, err := submitter.Submit(context.Background(), message.NewSwap(message.BlockTxTuple{Block: 1, Tx: 2}))
	require.True(t, errors.Is(err, ErrNoFundingUTXO), "unexpected error %v", err)
}

func TestSubmitInvalidMessage(t *testing.T) {
	services := newFakeServices(t, 20000)
	submitter := newTestSubmitter(t, services, nil)

	msg := message.NewFreeMintContract(&message.FreeMint{AmountPerMint: 1, Divisibility: 19})
	_, err := submitter.Submit(context.Background(), msg)
	require.True(t, errors.Is(err, message.ErrOutOfRange), "unexpected error %v", err)
	require.Zero(t, atomic.LoadInt32(&services.broadcasts))
}

func TestResume(t *testing.T) {
	services := newFakeServices(t, 20000)
	services.notFound = 2
	j := openTestJournal(t)
	submitter := newTestSubmitter(t, services, j)

	require.NoError(t, j.Put(&journal.Entry{TxID: "abc123", State: workflow.StatePolling.String()}))

	confirmation, err := submitter.Resume(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, 3, confirmation.Attempts)

	entry, err := j.Get("abc123")
	require.NoError(t, err)
	require.Equal(t, workflow.StateConfirmed.String(), entry.State)

	// Confirmed entries are answered from the journal.
	polls := atomic.LoadInt32(&services.polls)
	_, err = submitter.Resume(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, polls, atomic.LoadInt32(&services.polls))
}

func TestBuildRequiresSigner(t *testing.T) {
	services := newFakeServices(t, 20000)
	server := httptest.NewServer(services)
	defer server.Close()
	chain, err := chainclient.New(httpclient.Config{BaseURL: server.URL + "/chain"})
	require.NoError(t, err)
	indexer, err := indexerclient.New(httpclient.Config{BaseURL: server.URL + "/indexer"})
	require.NoError(t, err)

	submitter, err := NewSubmitter(Config{Chain: chain, Indexer: indexer})
	require.NoError(t, err)
	_, err = submitter.Build(context.Background(), message.NewSwap(message.BlockTxTuple{Block: 1, Tx: 1}))
	require.Error(t, err)
}
