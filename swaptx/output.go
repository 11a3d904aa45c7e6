package swaptx

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ConsumableOutput is the output of a chain step, with what the next step
// needs to spend it. It is a snapshot: changing it doesn't affect the Tx it
// comes from.
type ConsumableOutput struct {
	OutPoint wire.OutPoint
	TxOut    *wire.TxOut
	// WitnessScript is the script committed by a P2WSH output, nil for any
	// other output type.
	WitnessScript []byte
}

// IsScriptHash returns whether the output is P2WSH.
func (o *ConsumableOutput) IsScriptHash() bool {
	return txscript.IsPayToWitnessScriptHash(o.TxOut.PkScript)
}

// ConsumableOutput returns the only spendable output of the transaction. It
// doesn't depend on signatures, so it can be called on a partial Tx.
func (t *Tx) ConsumableOutput() (*ConsumableOutput, error) {
	tx := t.packet.UnsignedTx
	if err := checkOutputCount(tx); err != nil {
		return nil, err
	}

	out := tx.TxOut[0]
	var script []byte
	if txscript.IsPayToWitnessScriptHash(out.PkScript) {
		if len(t.packet.Outputs) == 0 ||
			t.packet.Outputs[0].WitnessScript == nil {
			return nil, ErrMissingWitnessScript
		}
		script = append([]byte(nil), t.packet.Outputs[0].WitnessScript...)
	}

	return &ConsumableOutput{
		OutPoint: wire.OutPoint{Hash: t.TxID(), Index: 0},
		TxOut: wire.NewTxOut(
			out.Value, append([]byte(nil), out.PkScript...),
		),
		WitnessScript: script,
	}, nil
}
