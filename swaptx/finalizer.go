// Copyright (c) 2018 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package swaptx

// A finalizer turns the partial signatures and scripts collected in the
// single input of a packet into its final witness. The witness is always
// assembled and verified against the locking conditions before anything is
// written to the packet.

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/vulpemventures/go-swaptx/internal/bufferutil"
	"github.com/vulpemventures/go-swaptx/payment"
)

type finalizer interface {
	// witness assembles the final witness of the packet's input.
	witness(p *psbt.Packet) (wire.TxWitness, error)
	// verify checks a final witness against the locking conditions of the
	// packet's input.
	verify(p *psbt.Packet, witness wire.TxWitness) error
}

var finalizers = map[Kind]finalizer{
	Lock:   lockFinalizer{},
	Buy:    swapFinalizer{kind: Buy, branch: successBranch},
	Cancel: swapFinalizer{kind: Cancel, branch: timeoutBranch},
	Refund: swapFinalizer{kind: Refund, branch: successBranch},
	Punish: swapFinalizer{kind: Punish, branch: timeoutBranch},
}

// finalizeInput runs f over the single input of p. An input that is already
// final is only verified.
func finalizeInput(f finalizer, p *psbt.Packet) error {
	input, err := singleInput(p)
	if err != nil {
		return err
	}

	if input.FinalScriptWitness != nil {
		witness, err := bufferutil.DeserializeWitness(input.FinalScriptWitness)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInconsistentWitness, err)
		}
		if err := f.verify(p, witness); err != nil {
			return fmt.Errorf("%w: %s", ErrInconsistentWitness, err)
		}
		return nil
	}

	witness, err := f.witness(p)
	if err != nil {
		return err
	}
	if err := f.verify(p, witness); err != nil {
		return err
	}

	serializedWitness, err := bufferutil.SerializeWitness(witness)
	if err != nil {
		return wrapError(Format, err)
	}
	input.FinalScriptWitness = serializedWitness

	// Before returning we sanity check the packet to ensure we don't extract
	// an invalid transaction or produce an invalid intermediate state.
	if err := p.SanityCheck(); err != nil {
		input.FinalScriptWitness = nil
		return wrapError(Format, err)
	}
	return nil
}

// singleInput returns the only input of p.
func singleInput(p *psbt.Packet) (*psbt.PInput, error) {
	if len(p.UnsignedTx.TxIn) != 1 || len(p.Inputs) != 1 {
		return nil, ErrMultiUTXOUnsupported
	}
	return &p.Inputs[0], nil
}

// spentOutput returns the witness utxo of input.
func spentOutput(input *psbt.PInput) (*wire.TxOut, error) {
	if input.WitnessUtxo == nil {
		return nil, ErrMissingWitnessUTXO
	}
	return input.WitnessUtxo, nil
}

// witnessScript returns the witness script of a P2WSH input and checks it
// commits to the spent output.
func witnessScript(input *psbt.PInput) ([]byte, error) {
	utxo, err := spentOutput(input)
	if err != nil {
		return nil, err
	}
	if !txscript.IsPayToWitnessScriptHash(utxo.PkScript) {
		return nil, fmt.Errorf(
			"%w: spent output is not p2wsh", ErrScriptMismatch,
		)
	}
	if input.WitnessScript == nil {
		return nil, ErrMissingWitnessScript
	}
	if err := checkScriptCommitment(utxo.PkScript, input.WitnessScript); err != nil {
		return nil, err
	}
	return input.WitnessScript, nil
}

// checkScriptCommitment checks pkScript is a P2WSH output committing to
// script.
func checkScriptCommitment(pkScript, script []byte) error {
	if !txscript.IsPayToWitnessScriptHash(pkScript) {
		return fmt.Errorf("%w: output is not p2wsh", ErrScriptMismatch)
	}
	if !bytes.Equal(pkScript[2:], payment.WitnessScriptHash(script)) {
		return ErrScriptMismatch
	}
	return nil
}

// collectSignatures returns the signatures of the required keys, in the
// order of the keys. Signatures by other keys the locking script references
// are ignored, any other key is rejected.
func collectSignatures(
	input *psbt.PInput,
	required [][]byte,
	known func(pubKey []byte) bool,
) ([][]byte, error) {
	sigs := make([][]byte, 0, len(required))
	for i, key := range required {
		sig := findSignature(input, key)
		if sig == nil {
			return nil, fmt.Errorf(
				"%w: no signature for key %d of %d",
				ErrMissingSignature, i+1, len(required),
			)
		}
		sigs = append(sigs, sig)
	}

	for _, ps := range input.PartialSigs {
		if !known(ps.PubKey) {
			return nil, fmt.Errorf(
				"%w: %x", ErrPublicKeyNotFound, ps.PubKey,
			)
		}
	}

	if input.SighashType == 0 {
		return nil, ErrMissingSigHashType
	}
	for _, sig := range sigs {
		if !checkSigHashFlags(sig, input) {
			return nil, fmt.Errorf(
				"%w: signature commits to sighash %#x, expected %#x",
				ErrMissingSigHashType, sig[len(sig)-1], input.SighashType,
			)
		}
	}
	return sigs, nil
}

func findSignature(input *psbt.PInput, pubKey []byte) []byte {
	for _, ps := range input.PartialSigs {
		if bytes.Equal(ps.PubKey, pubKey) {
			return ps.Signature
		}
	}
	return nil
}

// checkSigHashFlags compares the sighash flag byte on a signature with the
// sighash type of the input.
func checkSigHashFlags(sig []byte, input *psbt.PInput) bool {
	if len(sig) == 0 {
		return false
	}
	return input.SighashType == txscript.SigHashType(sig[len(sig)-1])
}

// keyChainWitness orders the signatures of a <K1> OP_CHECKSIGVERIFY ...
// <Kn> OP_CHECKSIG chain so that the signature of K1 ends on top of the
// stack.
func keyChainWitness(sigs [][]byte) wire.TxWitness {
	witness := make(wire.TxWitness, 0, len(sigs)+3)
	for i := len(sigs) - 1; i >= 0; i-- {
		witness = append(witness, sigs[i])
	}
	return witness
}

// checkSequence tells whether the input of tx at index enables a relative
// timelock of delay, the way OP_CHECKSEQUENCEVERIFY evaluates it.
func checkSequence(tx *wire.MsgTx, index int, delay uint32) error {
	if tx.Version < 2 {
		return fmt.Errorf(
			"%w: tx version %d does not enforce sequence locks",
			ErrTimelockNotSatisfied, tx.Version,
		)
	}

	sequence := tx.TxIn[index].Sequence
	if sequence&wire.SequenceLockTimeDisabled != 0 {
		return fmt.Errorf(
			"%w: sequence lock disabled", ErrTimelockNotSatisfied,
		)
	}

	const lockTimeMask = wire.SequenceLockTimeIsSeconds |
		wire.SequenceLockTimeMask
	sequence &= lockTimeMask
	delay &= lockTimeMask

	if sequence&wire.SequenceLockTimeIsSeconds !=
		delay&wire.SequenceLockTimeIsSeconds {
		return fmt.Errorf(
			"%w: sequence and script lock types differ",
			ErrTimelockNotSatisfied,
		)
	}
	if sequence&wire.SequenceLockTimeMask < delay&wire.SequenceLockTimeMask {
		return fmt.Errorf(
			"%w: sequence %d is lower than delay %d",
			ErrTimelockNotSatisfied, sequence, delay,
		)
	}
	return nil
}
