package swaptx

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/vulpemventures/go-swaptx/payment"
)

// lockFinalizer spends the funding output, either a P2WPKH output of a
// single party or a P2WSH 2-of-2 key chain.
type lockFinalizer struct{}

func (lockFinalizer) witness(p *psbt.Packet) (wire.TxWitness, error) {
	input, err := singleInput(p)
	if err != nil {
		return nil, err
	}
	utxo, err := spentOutput(input)
	if err != nil {
		return nil, err
	}

	if txscript.IsPayToWitnessPubKeyHash(utxo.PkScript) {
		return pubKeyHashWitness(input, utxo.PkScript)
	}

	script, err := witnessScript(input)
	if err != nil {
		return nil, err
	}
	keys, err := payment.ParseMultiSigScript(script)
	if err != nil {
		return nil, wrapError(Format, err)
	}

	chain := payment.Branch{PubKeys: keys}
	sigs, err := collectSignatures(input, keys, chain.HasKey)
	if err != nil {
		return nil, err
	}

	witness := keyChainWitness(sigs)
	witness = append(witness, script)
	return witness, nil
}

func (lockFinalizer) verify(p *psbt.Packet, witness wire.TxWitness) error {
	input, err := singleInput(p)
	if err != nil {
		return err
	}
	utxo, err := spentOutput(input)
	if err != nil {
		return err
	}

	if txscript.IsPayToWitnessPubKeyHash(utxo.PkScript) {
		if len(witness) != 2 {
			return fmt.Errorf("expected 2 witness items, got %d", len(witness))
		}
		if !bytes.Equal(payment.Hash160(witness[1]), utxo.PkScript[2:]) {
			return ErrScriptMismatch
		}
		return nil
	}

	if len(witness) == 0 {
		return fmt.Errorf("empty witness")
	}
	script := witness[len(witness)-1]
	if err := checkScriptCommitment(utxo.PkScript, script); err != nil {
		return err
	}
	keys, err := payment.ParseMultiSigScript(script)
	if err != nil {
		return wrapError(Format, err)
	}
	if len(witness) != len(keys)+1 {
		return fmt.Errorf(
			"expected %d witness items, got %d", len(keys)+1, len(witness),
		)
	}
	return nil
}

// pubKeyHashWitness returns the [sig, pubkey] witness of a P2WPKH input.
func pubKeyHashWitness(
	input *psbt.PInput,
	pkScript []byte,
) (wire.TxWitness, error) {
	var pubKey []byte
	for _, ps := range input.PartialSigs {
		if bytes.Equal(payment.Hash160(ps.PubKey), pkScript[2:]) {
			pubKey = ps.PubKey
			break
		}
	}
	if pubKey == nil {
		return nil, ErrMissingSignature
	}

	sigs, err := collectSignatures(
		input, [][]byte{pubKey}, func(k []byte) bool {
			return bytes.Equal(k, pubKey)
		},
	)
	if err != nil {
		return nil, err
	}
	return wire.TxWitness{sigs[0], pubKey}, nil
}
