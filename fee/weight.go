package fee

import (
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

const (
	// SignatureSize is the largest DER signature plus its sighash byte.
	SignatureSize = 73
	// PublicKeySize is the size of a compressed public key.
	PublicKeySize = 33
	// PreimageSize is the size of a hash lock secret.
	PreimageSize = 32

	// witnessHeaderSize accounts for the segwit marker and flag bytes.
	witnessHeaderSize = 2
)

// VirtualSize converts a weight to virtual bytes, rounding up.
func VirtualSize(weight int64) int64 {
	return (weight + blockchain.WitnessScaleFactor - 1) /
		blockchain.WitnessScaleFactor
}

// WitnessSize returns the serialized size of a single input witness whose
// items have the given sizes.
func WitnessSize(itemSizes ...int) int {
	size := wire.VarIntSerializeSize(uint64(len(itemSizes)))
	for _, n := range itemSizes {
		size += wire.VarIntSerializeSize(uint64(n)) + n
	}
	return size
}

// P2WPKHWitnessSize is the size of a [sig, pubkey] witness.
func P2WPKHWitnessSize() int {
	return WitnessSize(SignatureSize, PublicKeySize)
}

// EstimateWeight returns the weight tx will have once every input carries a
// witness of the given sizes. Existing witnesses of tx are ignored.
func EstimateWeight(tx *wire.MsgTx, witnessSizes ...int) int64 {
	skeleton := tx.Copy()
	for _, in := range skeleton.TxIn {
		in.Witness = nil
	}

	weight := blockchain.GetTransactionWeight(btcutil.NewTx(skeleton))
	if len(witnessSizes) == 0 {
		return weight
	}

	weight += witnessHeaderSize
	for i := range skeleton.TxIn {
		// inputs without an estimate still serialize an empty stack
		if i >= len(witnessSizes) {
			weight += int64(wire.VarIntSerializeSize(0))
			continue
		}
		weight += int64(witnessSizes[i])
	}
	return weight
}
