package bufferutil

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ErrTrailingWitnessData is returned when a serialized witness carries
// bytes after its last stack item.
var ErrTrailingWitnessData = errors.New("trailing data after witness stack")

// ErrWitnessTooLarge is returned when a serialized witness declares more
// items than a script stack can hold.
var ErrWitnessTooLarge = errors.New("witness item count exceeds stack limit")

// SerializeWitness encodes the given witness stack the way BIP174 stores it
// in the final script witness field: a var-int item count followed by every
// item as var-bytes.
func SerializeWitness(witness wire.TxWitness) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, witness.SerializeSize()))

	if err := wire.WriteVarInt(buf, 0, uint64(len(witness))); err != nil {
		return nil, err
	}
	for _, item := range witness {
		if err := wire.WriteVarBytes(buf, 0, item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DeserializeWitness is the inverse of SerializeWitness.
func DeserializeWitness(raw []byte) (wire.TxWitness, error) {
	r := bytes.NewReader(raw)

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if count > txscript.MaxStackSize {
		return nil, ErrWitnessTooLarge
	}

	witness := make(wire.TxWitness, 0, count)
	for i := uint64(0); i < count; i++ {
		item, err := wire.ReadVarBytes(
			r, 0, txscript.MaxScriptSize, "witness item",
		)
		if err != nil {
			return nil, err
		}
		witness = append(witness, item)
	}

	if r.Len() != 0 {
		return nil, ErrTrailingWitnessData
	}
	return witness, nil
}
