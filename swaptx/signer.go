// Copyright (c) 2018 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package swaptx

// The signer methods let each party contribute its partial signature, and
// the hash lock secret when it knows it, to the transaction input.

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/vulpemventures/fastsha256"
	"github.com/vulpemventures/go-swaptx/payment"
	"github.com/vulpemventures/go-swaptx/transaction"
)

// AddSignature attaches a signature of pubKey to the transaction input. The
// signature must be valid for the input digest.
func (t *Tx) AddSignature(pubKey *btcec.PublicKey, sig *ecdsa.Signature) error {
	input, err := t.signableInput()
	if err != nil {
		return err
	}

	if err := t.checkSigningKey(input, pubKey.SerializeCompressed()); err != nil {
		return err
	}

	script, value := signingScript(input)
	digest, err := transaction.SignatureHash(
		transaction.NewInputRef(t.packet.UnsignedTx, 0),
		script, value, input.SighashType,
	)
	if err != nil {
		return wrapError(Crypto, err)
	}
	if !sig.Verify(digest[:], pubKey) {
		return wrapError(Crypto, fmt.Errorf(
			"%w: signature does not match input digest",
			transaction.ErrInvalidSignature,
		))
	}

	updater, err := psbt.NewUpdater(t.packet)
	if err != nil {
		return wrapError(Format, err)
	}
	outcome, err := updater.Sign(
		0, transaction.SerializeSignature(sig, input.SighashType),
		pubKey.SerializeCompressed(), nil, nil,
	)
	if err != nil {
		return wrapError(Format, err)
	}
	if outcome == psbt.SignFinalized {
		return ErrAlreadyFinalized
	}

	log.Tracef("Added signature of %x to %v transaction %v",
		pubKey.SerializeCompressed(), t.kind, t.TxID())
	return nil
}

// Sign signs the transaction input with key and attaches the signature.
func (t *Tx) Sign(key *btcec.PrivateKey) error {
	input, err := t.signableInput()
	if err != nil {
		return err
	}

	script, value := signingScript(input)
	sig, err := transaction.SignInput(
		transaction.NewInputRef(t.packet.UnsignedTx, 0),
		script, value, input.SighashType, key,
	)
	if err != nil {
		return wrapError(Crypto, err)
	}
	return t.AddSignature(key.PubKey(), sig)
}

// AddPreimage records the secret of a hash lock in the transaction input.
func (t *Tx) AddPreimage(preimage []byte) error {
	if t.kind == Funding {
		return ErrInvalidKind
	}
	if t.IsFinalized() {
		return ErrAlreadyFinalized
	}
	input, err := singleInput(t.packet)
	if err != nil {
		return err
	}

	hash := fastsha256.Sum256(preimage)
	key := preimageKey(hash[:])
	for _, u := range input.Unknowns {
		if bytes.Equal(u.Key, key) {
			u.Value = preimage
			return nil
		}
	}
	input.Unknowns = append(input.Unknowns, &psbt.Unknown{
		Key:   key,
		Value: preimage,
	})
	return nil
}

// signableInput returns the input of a Tx that still accepts signatures.
func (t *Tx) signableInput() (*psbt.PInput, error) {
	if t.kind == Funding {
		return nil, ErrInvalidKind
	}
	if t.IsFinalized() {
		return nil, ErrAlreadyFinalized
	}
	input, err := singleInput(t.packet)
	if err != nil {
		return nil, err
	}
	if input.WitnessUtxo == nil {
		return nil, ErrMissingWitnessUTXO
	}
	if input.SighashType == 0 {
		return nil, ErrMissingSigHashType
	}
	if input.WitnessScript == nil &&
		!txscript.IsPayToWitnessPubKeyHash(input.WitnessUtxo.PkScript) {
		return nil, ErrMissingWitnessScript
	}
	return input, nil
}

// checkSigningKey rejects keys the locking script of input doesn't
// reference.
func (t *Tx) checkSigningKey(input *psbt.PInput, pubKey []byte) error {
	if input.WitnessScript == nil {
		program := input.WitnessUtxo.PkScript[2:]
		if !bytes.Equal(payment.Hash160(pubKey), program) {
			return fmt.Errorf("%w: %x", ErrPublicKeyNotFound, pubKey)
		}
		return nil
	}

	script, err := witnessScript(input)
	if err != nil {
		return err
	}

	var known bool
	if t.kind == Lock {
		keys, err := payment.ParseMultiSigScript(script)
		if err != nil {
			return wrapError(Format, err)
		}
		known = payment.Branch{PubKeys: keys}.HasKey(pubKey)
	} else {
		swapScript, err := payment.ParseSwapScript(script)
		if err != nil {
			return wrapError(Format, err)
		}
		known = swapScript.HasKey(pubKey)
	}
	if !known {
		return fmt.Errorf("%w: %x", ErrPublicKeyNotFound, pubKey)
	}
	return nil
}

// signingScript returns the script and value the input signatures commit
// to.
func signingScript(input *psbt.PInput) ([]byte, int64) {
	if input.WitnessScript != nil {
		return input.WitnessScript, input.WitnessUtxo.Value
	}
	return input.WitnessUtxo.PkScript, input.WitnessUtxo.Value
}
