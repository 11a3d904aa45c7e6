package swaptx

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/vulpemventures/go-swaptx/address"
)

// NewFunding returns the Funding Tx of an unsigned funding transaction,
// built by the wallet of the funding party. witnessScript is the script
// locking the first output, nil if it is P2WPKH.
//
// The transaction can be linked right away, but it can only be extracted
// once it has been observed with Update. Its inputs must not carry a
// signature script: the txid would change once they are signed. A coinbase
// transaction is complete as given and counts as observed.
func NewFunding(tx *wire.MsgTx, witnessScript []byte) (*Tx, error) {
	return newFunding(tx, witnessScript, false)
}

// NewFundingFromTx returns the Funding Tx of a funding transaction already
// signed, for example observed on chain.
func NewFundingFromTx(tx *wire.MsgTx, witnessScript []byte) (*Tx, error) {
	return newFunding(tx, witnessScript, true)
}

func newFunding(tx *wire.MsgTx, witnessScript []byte, seen bool) (*Tx, error) {
	if tx == nil || len(tx.TxOut) == 0 {
		return nil, wrapError(Format, psbt.ErrInvalidPsbtFormat)
	}
	if err := checkFundingInputs(tx); err != nil {
		return nil, err
	}

	packet, err := psbt.NewFromUnsignedTx(unsignedCopy(tx))
	if err != nil {
		return nil, wrapError(Format, err)
	}
	if witnessScript != nil {
		if err := checkScriptCommitment(tx.TxOut[0].PkScript, witnessScript); err != nil {
			return nil, err
		}
		updater, err := psbt.NewUpdater(packet)
		if err != nil {
			return nil, wrapError(Format, err)
		}
		if err := updater.AddOutWitnessScript(witnessScript, 0); err != nil {
			return nil, wrapError(Format, err)
		}
	}

	t := &Tx{kind: Funding, packet: packet}
	if seen || blockchain.IsCoinBaseTx(tx) {
		t.seen = tx.Copy()
	}
	return t, nil
}

// Update records the funding transaction once it is observed. Its txid
// must match TxID, which never changes.
func (t *Tx) Update(tx *wire.MsgTx) error {
	if t.kind != Funding {
		return ErrInvalidKind
	}
	if tx == nil {
		return ErrTransactionNotSeen
	}
	if err := checkFundingInputs(tx); err != nil {
		return err
	}
	if got, want := tx.TxHash(), t.TxID(); got != want {
		return fmt.Errorf("%w: got %v, expected %v",
			ErrTransactionMismatch, got, want)
	}
	t.seen = tx.Copy()
	return nil
}

// finalizeFunding runs the structural checks of the chain root. It produces
// no witness: the funding inputs belong to an external wallet.
func (t *Tx) finalizeFunding() error {
	tx := t.packet.UnsignedTx
	if err := checkOutputCount(tx); err != nil {
		return err
	}

	out := tx.TxOut[0]
	switch address.GetScriptType(out.PkScript) {
	case address.P2WpkhScript:
	case address.P2WshScript:
		script := t.packet.Outputs[0].WitnessScript
		if script == nil {
			return ErrMissingWitnessScript
		}
		if err := checkScriptCommitment(out.PkScript, script); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: funding output must be p2wpkh or p2wsh",
			ErrScriptMismatch)
	}

	if !t.finalized {
		log.Debugf("Finalized funding transaction %v", t.TxID())
	}
	t.finalized = true
	return nil
}

// checkOutputCount enforces the single spendable output of a chain step. A
// coinbase transaction may carry a second output for its witness
// commitment.
func checkOutputCount(tx *wire.MsgTx) error {
	switch len(tx.TxOut) {
	case 1:
		return nil
	case 2:
		if blockchain.IsCoinBaseTx(tx) {
			return nil
		}
	}
	return fmt.Errorf("%w: %d outputs", ErrMultiUTXOUnsupported,
		len(tx.TxOut))
}

// checkFundingInputs rejects signature scripts, which the unsigned
// transaction can't commit to. Only a coinbase input carries one.
func checkFundingInputs(tx *wire.MsgTx) error {
	if blockchain.IsCoinBaseTx(tx) {
		return nil
	}
	for i, in := range tx.TxIn {
		if len(in.SignatureScript) > 0 {
			return fmt.Errorf("%w: input %d has a signature script",
				ErrTransactionMismatch, i)
		}
	}
	return nil
}

// unsignedCopy returns a copy of tx without input scripts and witnesses.
func unsignedCopy(tx *wire.MsgTx) *wire.MsgTx {
	unsigned := tx.Copy()
	for _, in := range unsigned.TxIn {
		in.SignatureScript = nil
		in.Witness = nil
	}
	return unsigned
}
