package swaptx_test

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-swaptx/address"
	"github.com/vulpemventures/go-swaptx/network"
	"github.com/vulpemventures/go-swaptx/payment"
	"github.com/vulpemventures/go-swaptx/swaptx"
	"github.com/vulpemventures/go-swaptx/transaction"
)

func TestLockFromMultiSigFunding(t *testing.T) {
	f := newSwapFixture(t, true)
	lock, prev := f.lock(t)

	tx, err := lock.Extract()
	require.NoError(t, err)
	require.Equal(t, lock.TxID(), tx.TxHash())
	executeSpend(t, tx, prev)
	requireFee(t, tx, prev)

	// two signatures followed by the witness script
	witness := tx.TxIn[0].Witness
	require.Len(t, witness, 3)
	keys, err := payment.ParseMultiSigScript(witness[2])
	require.NoError(t, err)
	require.Equal(t, [][]byte{f.alice.pub, f.bob.pub}, keys)

	ref := transaction.NewInputRef(tx, 0)
	digest, err := transaction.SignatureHash(
		ref, witness[2], prev.Value, txscript.SigHashAll,
	)
	require.NoError(t, err)
	for i, signer := range []party{f.bob, f.alice} {
		sig, err := transaction.NormalizeSignature(witness[i])
		require.NoError(t, err)
		require.True(t, sig.Verify(digest[:], signer.publicKey(t)))
	}
}

func TestLockFromPubKeyHashFunding(t *testing.T) {
	f := newSwapFixture(t, false)
	pay := payment.FromPublicKey(f.alice.key.PubKey(), &network.Regtest)

	funding, err := swaptx.NewFundingFromTx(walletTx(pay.Script, fundingValue), nil)
	require.NoError(t, err)
	require.NoError(t, funding.Finalize())
	prev := consumable(t, funding)
	require.Nil(t, prev.WitnessScript)

	lock, err := swaptx.NewLock(prev, f.lockScript, testEstimate)
	require.NoError(t, err)

	// bob's key doesn't control the funding output
	err = lock.Sign(f.bob.key)
	require.ErrorIs(t, err, swaptx.ErrPublicKeyNotFound)

	require.NoError(t, lock.Sign(f.alice.key))
	require.NoError(t, lock.Finalize())

	tx, err := lock.Extract()
	require.NoError(t, err)
	require.Equal(t, wire.TxWitness{tx.TxIn[0].Witness[0], f.alice.pub},
		tx.TxIn[0].Witness)
	executeSpend(t, tx, prev.TxOut)
	requireFee(t, tx, prev.TxOut)
}

func TestBuy(t *testing.T) {
	tests := []struct {
		name         string
		withHashLock bool
	}{
		{"without hash lock", false},
		{"with hash lock", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSwapFixture(t, tt.withHashLock)
			lock, _ := f.lock(t)
			prev := consumable(t, lock)
			require.True(t, bytes.Equal(mustScript(t, f.lockScript), prev.WitnessScript))

			destination := f.bob.destination()
			addr, err := address.FromOutputScript(destination, &network.Regtest)
			require.NoError(t, err)

			buy, err := swaptx.NewBuyToAddress(
				prev, addr, &network.Regtest, testEstimate,
			)
			require.NoError(t, err)
			require.NoError(t, buy.Sign(f.bob.key))
			require.NoError(t, buy.Sign(f.alice.key))
			if tt.withHashLock {
				require.NoError(t, buy.AddPreimage(f.secret))
			}
			require.NoError(t, buy.Finalize())

			tx, err := buy.Extract()
			require.NoError(t, err)
			executeSpend(t, tx, prev.TxOut)
			requireFee(t, tx, prev.TxOut)

			witness := tx.TxIn[0].Witness
			n := len(witness)
			require.Equal(t, []byte{0x01}, witness[n-2])
			require.Equal(t, prev.WitnessScript, witness[n-1])
			if tt.withHashLock {
				require.Len(t, witness, 5)
				require.Equal(t, f.secret, witness[2])
			} else {
				require.Len(t, witness, 4)
			}

			out := consumable(t, buy)
			require.Nil(t, out.WitnessScript)
			require.Equal(t, destination, out.TxOut.PkScript)
			outAddr, err := out.Address(&network.Regtest)
			require.NoError(t, err)
			require.Equal(t, addr, outAddr)
		})
	}
}

func TestBuySignatureOrder(t *testing.T) {
	f := newSwapFixture(t, true)
	lock, _ := f.lock(t)
	prev := consumable(t, lock)

	witnesses := make([]wire.TxWitness, 0, 2)
	for _, signers := range [][]party{{f.alice, f.bob}, {f.bob, f.alice}} {
		buy, err := swaptx.NewBuy(prev, f.bob.destination(), testEstimate)
		require.NoError(t, err)
		require.NoError(t, buy.AddPreimage(f.secret))
		for _, p := range signers {
			require.NoError(t, buy.Sign(p.key))
		}
		require.NoError(t, buy.Finalize())
		witnesses = append(witnesses, finalWitness(t, buy))
	}

	require.Equal(t, witnesses[0], witnesses[1])
}

func TestCancelRefund(t *testing.T) {
	f := newSwapFixture(t, true)
	cancel, lockOut := f.cancel(t)

	tx, err := cancel.Extract()
	require.NoError(t, err)
	require.Equal(t, uint32(cancelDelay), tx.TxIn[0].Sequence)
	require.Len(t, tx.TxIn[0].Witness, 4)
	require.Empty(t, tx.TxIn[0].Witness[2])
	executeSpend(t, tx, lockOut)
	requireFee(t, tx, lockOut)

	prev := consumable(t, cancel)
	require.Equal(t, mustScript(t, f.cancelScript), prev.WitnessScript)

	refund, err := swaptx.NewRefund(prev, f.alice.destination(), testEstimate)
	require.NoError(t, err)
	require.NoError(t, refund.Sign(f.alice.key))
	require.NoError(t, refund.Sign(f.bob.key))
	require.NoError(t, refund.Finalize())

	tx, err = refund.Extract()
	require.NoError(t, err)
	require.Equal(t, wire.MaxTxInSequenceNum, tx.TxIn[0].Sequence)
	require.Len(t, tx.TxIn[0].Witness, 4)
	executeSpend(t, tx, prev.TxOut)
	requireFee(t, tx, prev.TxOut)
}

func TestCancelPunish(t *testing.T) {
	f := newSwapFixture(t, false)
	cancel, _ := f.cancel(t)
	prev := consumable(t, cancel)

	punish, err := swaptx.NewPunish(prev, f.alice.destination(), testEstimate)
	require.NoError(t, err)

	// bob is not part of the punish branch
	require.NoError(t, punish.Sign(f.bob.key))
	err = punish.Finalize()
	require.ErrorIs(t, err, swaptx.ErrMissingSignature)

	punish, err = swaptx.NewPunish(prev, f.alice.destination(), testEstimate)
	require.NoError(t, err)
	require.NoError(t, punish.Sign(f.alice.key))
	require.NoError(t, punish.Finalize())

	tx, err := punish.Extract()
	require.NoError(t, err)
	require.Equal(t, uint32(punishDelay), tx.TxIn[0].Sequence)
	require.Len(t, tx.TxIn[0].Witness, 3)
	require.Empty(t, tx.TxIn[0].Witness[1])
	executeSpend(t, tx, prev.TxOut)
	requireFee(t, tx, prev.TxOut)
}

func TestAddSignatureFromCounterparty(t *testing.T) {
	f := newSwapFixture(t, false)
	lock, _ := f.lock(t)
	prev := consumable(t, lock)

	// bob builds the same transaction and sends his signature to alice
	buyAlice, err := swaptx.NewBuy(prev, f.bob.destination(), testEstimate)
	require.NoError(t, err)
	buyBob, err := swaptx.NewBuy(prev, f.bob.destination(), testEstimate)
	require.NoError(t, err)
	require.Equal(t, buyAlice.TxID(), buyBob.TxID())

	tx, err := buyBob.ToPartial()
	require.NoError(t, err)
	sig, err := transaction.SignInput(
		transaction.NewInputRef(tx.UnsignedTx, 0),
		prev.WitnessScript, prev.TxOut.Value, txscript.SigHashAll, f.bob.key,
	)
	require.NoError(t, err)

	// a signature for another key is rejected
	err = buyAlice.AddSignature(f.alice.publicKey(t), sig)
	require.ErrorIs(t, err, transaction.ErrInvalidSignature)
	var swapErr *swaptx.Error
	require.ErrorAs(t, err, &swapErr)
	require.Equal(t, swaptx.Crypto, swapErr.Category)

	require.NoError(t, buyAlice.AddSignature(f.bob.publicKey(t), sig))
	require.NoError(t, buyAlice.Sign(f.alice.key))
	require.NoError(t, buyAlice.Finalize())

	extracted, err := buyAlice.Extract()
	require.NoError(t, err)
	executeSpend(t, extracted, prev.TxOut)
}

func mustScript(t *testing.T, s *payment.SwapScript) []byte {
	t.Helper()
	script, err := s.Script()
	require.NoError(t, err)
	return script
}
