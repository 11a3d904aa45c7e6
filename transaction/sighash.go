package transaction

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

var (
	// ErrSighash wraps failures of the BIP143 digest computation.
	ErrSighash = errors.New("unable to compute signature hash")
	// ErrInvalidSignature is returned for signatures that are not valid
	// DER encodings.
	ErrInvalidSignature = errors.New("invalid DER signature")
)

// SignatureHash computes the BIP143 digest of the referenced input, spending
// an output of the given value locked by script. For P2WSH outputs script is
// the witness script; for P2WPKH it is the output script itself.
func SignatureHash(
	ref InputRef,
	script []byte,
	value int64,
	hashType txscript.SigHashType,
) (chainhash.Hash, error) {
	tx := ref.Transaction()

	// Segwit v0 digests only read the previous output being signed, so a
	// canned fetcher is enough to build the midstate hashes.
	fetcher := txscript.NewCannedPrevOutputFetcher(script, value)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	digest, err := txscript.CalcWitnessSigHash(
		script, sigHashes, hashType, tx, ref.Index(), value,
	)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: %s", ErrSighash, err)
	}

	var hash chainhash.Hash
	if err := hash.SetBytes(digest); err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: %s", ErrSighash, err)
	}
	return hash, nil
}

// SignInput computes the BIP143 digest of the referenced input and signs it
// with key. The returned signature is always in its low-S form.
func SignInput(
	ref InputRef,
	script []byte,
	value int64,
	hashType txscript.SigHashType,
	key *btcec.PrivateKey,
) (*ecdsa.Signature, error) {
	digest, err := SignatureHash(ref, script, value, hashType)
	if err != nil {
		return nil, err
	}

	sig := ecdsa.Sign(key, digest[:])
	return NormalizeSignature(sig.Serialize())
}

// NormalizeSignature parses a DER signature, possibly with high S, and
// returns it in low-S form.
func NormalizeSignature(der []byte) (*ecdsa.Signature, error) {
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if IsLowS(der) {
		return sig, nil
	}
	// Serialize always emits the low-S form.
	return ecdsa.ParseDERSignature(sig.Serialize())
}

// IsLowS reports whether a DER signature is in its canonical low-S form. A
// trailing sighash byte is ignored.
func IsLowS(der []byte) bool {
	if len(der) > 2 && int(der[1])+3 == len(der) {
		der = der[:len(der)-1]
	}
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false
	}
	return bytes.Equal(sig.Serialize(), der)
}

// SerializeSignature returns the DER signature followed by the sighash byte,
// the form partial signatures take in a PSBT.
func SerializeSignature(
	sig *ecdsa.Signature,
	hashType txscript.SigHashType,
) []byte {
	return append(sig.Serialize(), byte(hashType))
}
