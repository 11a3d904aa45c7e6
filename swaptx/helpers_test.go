package swaptx_test

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/fastsha256"
	"github.com/vulpemventures/go-swaptx/fee"
	"github.com/vulpemventures/go-swaptx/internal/bufferutil"
	"github.com/vulpemventures/go-swaptx/network"
	"github.com/vulpemventures/go-swaptx/payment"
	"github.com/vulpemventures/go-swaptx/swaptx"
)

const (
	aliceKeyHex    = "1cc080a4cd371eafcad489a29664af6a7276b362fe783443ce036552482b971d"
	bobKeyHex      = "4d6718d4a02f774e752faa97e2c3b70db6b9d9ed5bd2fcecb093bd650f449a51"
	strangerKeyHex = "0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8"

	fundingValue = 1000000
	cancelDelay  = 10
	punishDelay  = 20
	feeRate      = 2
)

var testEstimate = fee.Estimate{
	Strategy: fee.Fixed(feeRate),
	Politic:  fee.Aggressive,
}

type party struct {
	key *btcec.PrivateKey
	pub []byte
}

func newParty(t *testing.T, keyHex string) party {
	t.Helper()
	b, err := hex.DecodeString(keyHex)
	require.NoError(t, err)
	key, pub := btcec.PrivKeyFromBytes(b)
	return party{key: key, pub: pub.SerializeCompressed()}
}

func (p party) publicKey(t *testing.T) *btcec.PublicKey {
	t.Helper()
	pub, err := btcec.ParsePubKey(p.pub)
	require.NoError(t, err)
	return pub
}

func (p party) destination() []byte {
	return payment.FromPublicKey(p.key.PubKey(), &network.Regtest).Script
}

// swapFixture holds the parties and scripts of a swap.
type swapFixture struct {
	alice, bob, stranger party
	secret               []byte
	lockScript           *payment.SwapScript
	cancelScript         *payment.SwapScript
}

func newSwapFixture(t *testing.T, withHashLock bool) *swapFixture {
	t.Helper()
	f := &swapFixture{
		alice:    newParty(t, aliceKeyHex),
		bob:      newParty(t, bobKeyHex),
		stranger: newParty(t, strangerKeyHex),
		secret:   []byte("the swap secret revealed by buy!"),
	}

	success := payment.Branch{PubKeys: [][]byte{f.alice.pub, f.bob.pub}}
	if withHashLock {
		hash := fastsha256.Sum256(f.secret)
		success.HashLock = hash[:]
	}
	lockScript, err := payment.NewSwapScript(success, payment.Branch{
		PubKeys: [][]byte{f.alice.pub, f.bob.pub},
		Delay:   cancelDelay,
	})
	require.NoError(t, err)
	f.lockScript = lockScript

	cancelScript, err := payment.NewSwapScript(
		payment.Branch{PubKeys: [][]byte{f.bob.pub, f.alice.pub}},
		payment.Branch{PubKeys: [][]byte{f.alice.pub}, Delay: punishDelay},
	)
	require.NoError(t, err)
	f.cancelScript = cancelScript

	return f
}

// funding returns the observed funding transaction paying to the 2-of-2 of
// alice and bob.
func (f *swapFixture) funding(t *testing.T) *swaptx.Tx {
	t.Helper()
	script, err := payment.MultiSigScript([][]byte{f.alice.pub, f.bob.pub})
	require.NoError(t, err)
	pay, err := payment.FromWitnessScript(script, &network.Regtest)
	require.NoError(t, err)

	tx := walletTx(pay.Script, fundingValue)
	funding, err := swaptx.NewFundingFromTx(tx, script)
	require.NoError(t, err)
	require.NoError(t, funding.Finalize())
	return funding
}

// lock returns the finalized lock transaction and the output it spends.
func (f *swapFixture) lock(t *testing.T) (*swaptx.Tx, *wire.TxOut) {
	t.Helper()
	prev := consumable(t, f.funding(t))

	lock, err := swaptx.NewLock(prev, f.lockScript, testEstimate)
	require.NoError(t, err)
	require.NoError(t, lock.Sign(f.alice.key))
	require.NoError(t, lock.Sign(f.bob.key))
	require.NoError(t, lock.Finalize())
	return lock, prev.TxOut
}

// cancel returns the finalized cancel transaction and the output it spends.
func (f *swapFixture) cancel(t *testing.T) (*swaptx.Tx, *wire.TxOut) {
	t.Helper()
	lock, _ := f.lock(t)
	prev := consumable(t, lock)

	cancel, err := swaptx.NewCancel(prev, f.cancelScript, testEstimate)
	require.NoError(t, err)
	require.NoError(t, cancel.Sign(f.alice.key))
	require.NoError(t, cancel.Sign(f.bob.key))
	require.NoError(t, cancel.Finalize())
	return cancel, prev.TxOut
}

func consumable(t *testing.T, tx *swaptx.Tx) *swaptx.ConsumableOutput {
	t.Helper()
	out, err := tx.ConsumableOutput()
	require.NoError(t, err)
	return out
}

// walletTx returns a signed transaction spending a wallet output into a
// single output.
func walletTx(pkScript []byte, value int64) *wire.MsgTx {
	prevHash := chainhash.DoubleHashH([]byte("wallet utxo"))
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(
		wire.NewOutPoint(&prevHash, 3), nil,
		wire.TxWitness{make([]byte, 71), make([]byte, 33)},
	))
	tx.AddTxOut(wire.NewTxOut(value, pkScript))
	return tx
}

// executeSpend runs the single input of tx through the script engine.
func executeSpend(t *testing.T, tx *wire.MsgTx, prev *wire.TxOut) {
	t.Helper()
	fetcher := txscript.NewCannedPrevOutputFetcher(prev.PkScript, prev.Value)
	vm, err := txscript.NewEngine(
		prev.PkScript, tx, 0, txscript.StandardVerifyFlags, nil,
		txscript.NewTxSigHashes(tx, fetcher), prev.Value, fetcher,
	)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
}

// requireFee checks tx pays at least the configured rate.
func requireFee(t *testing.T, tx *wire.MsgTx, prev *wire.TxOut) {
	t.Helper()
	paid := prev.Value - tx.TxOut[0].Value
	weight := blockchain.GetTransactionWeight(btcutil.NewTx(tx))
	require.GreaterOrEqual(t, paid, feeRate*fee.VirtualSize(weight))
}

func finalWitness(t *testing.T, tx *swaptx.Tx) wire.TxWitness {
	t.Helper()
	p, err := tx.ToPartial()
	require.NoError(t, err)
	witness, err := bufferutil.DeserializeWitness(p.Inputs[0].FinalScriptWitness)
	require.NoError(t, err)
	return witness
}
