package swaptx

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Tx is one transaction of the swap chain. It holds the partially signed
// transaction exchanged between the parties until it is finalized.
//
// The unsigned transaction, and so the txid, never changes once the Tx is
// created: only signatures, scripts and preimages are added to its input.
// A Tx is not safe for concurrent use.
type Tx struct {
	kind   Kind
	packet *psbt.Packet

	// Funding only: the observed transaction and whether it passed the
	// structural checks.
	seen      *wire.MsgTx
	finalized bool
}

// FromPacket returns the Tx of the given kind wrapping a copy of p, usually
// received from the counterparty.
func FromPacket(kind Kind, p *psbt.Packet) (*Tx, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if p == nil || p.UnsignedTx == nil {
		return nil, wrapError(Format, psbt.ErrInvalidPsbtFormat)
	}
	packet, err := copyPacket(p)
	if err != nil {
		return nil, err
	}
	if kind != Funding {
		if _, err := singleInput(packet); err != nil {
			return nil, err
		}
	}
	return &Tx{kind: kind, packet: packet}, nil
}

// FromBase64 is FromPacket for a base64 encoded packet.
func FromBase64(kind Kind, b64 string) (*Tx, error) {
	p, err := psbt.NewFromRawBytes(bytes.NewReader([]byte(b64)), true)
	if err != nil {
		return nil, wrapError(Format, err)
	}
	return FromPacket(kind, p)
}

// Kind returns the kind of the transaction.
func (t *Tx) Kind() Kind {
	return t.kind
}

// TxID returns the hash of the transaction. It is the same before and
// after finalization.
func (t *Tx) TxID() chainhash.Hash {
	if t.seen != nil {
		return t.seen.TxHash()
	}
	return t.packet.UnsignedTx.TxHash()
}

// IsFinalized returns whether Finalize succeeded.
func (t *Tx) IsFinalized() bool {
	if t.kind == Funding {
		return t.finalized
	}
	return len(t.packet.Inputs) == 1 &&
		t.packet.Inputs[0].FinalScriptWitness != nil
}

// ToPartial returns a copy of the partially signed transaction, to send to
// the counterparty.
func (t *Tx) ToPartial() (*psbt.Packet, error) {
	return copyPacket(t.packet)
}

// ToBase64 returns the base64 encoding of the partially signed transaction.
func (t *Tx) ToBase64() (string, error) {
	b64, err := t.packet.B64Encode()
	if err != nil {
		return "", wrapError(Format, err)
	}
	return b64, nil
}

// Finalize assembles the final witness of the transaction input. Calling it
// on a finalized Tx only checks the existing witness still satisfies the
// locking script: it returns nil if it does and ErrInconsistentWitness
// otherwise, leaving the witness untouched either way.
func (t *Tx) Finalize() error {
	if t.kind == Funding {
		return t.finalizeFunding()
	}

	f, ok := finalizers[t.kind]
	if !ok {
		return ErrInvalidKind
	}

	wasFinalized := t.IsFinalized()
	if err := finalizeInput(f, t.packet); err != nil {
		log.Debugf("Unable to finalize %v transaction %v: %v",
			t.kind, t.TxID(), err)
		return err
	}
	if !wasFinalized {
		log.Debugf("Finalized %v transaction %v", t.kind, t.TxID())
	}
	return nil
}

// Extract returns the fully signed transaction, ready to be broadcast.
func (t *Tx) Extract() (*wire.MsgTx, error) {
	if !t.IsFinalized() {
		return nil, ErrNotFinalized
	}
	if t.kind == Funding {
		if t.seen == nil {
			return nil, ErrTransactionNotSeen
		}
		return t.seen.Copy(), nil
	}

	tx, err := psbt.Extract(t.packet)
	if err != nil {
		return nil, wrapError(Format, err)
	}
	return tx, nil
}

func copyPacket(p *psbt.Packet) (*psbt.Packet, error) {
	var buf bytes.Buffer
	if err := p.Serialize(&buf); err != nil {
		return nil, wrapError(Format, err)
	}
	packet, err := psbt.NewFromRawBytes(&buf, false)
	if err != nil {
		return nil, wrapError(Format, err)
	}
	return packet, nil
}
