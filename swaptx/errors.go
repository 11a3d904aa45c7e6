package swaptx

import (
	"errors"
	"fmt"
)

var (
	// ErrMultiUTXOUnsupported is returned when a transaction has more inputs
	// or outputs than the chain of swap transactions allows.
	ErrMultiUTXOUnsupported = errors.New("multi-input or multi-output " +
		"transaction is not supported")
	// ErrMissingWitnessScript is returned when a P2WSH input or output has
	// no witness script recorded.
	ErrMissingWitnessScript = errors.New("witness script is missing")
	// ErrMissingWitnessUTXO is returned when the spent output of an input is
	// unknown.
	ErrMissingWitnessUTXO = errors.New("witness utxo is missing")
	// ErrScriptMismatch is returned when a witness script, or a public key,
	// doesn't hash to the program of the spent output.
	ErrScriptMismatch = errors.New("script does not match the spent output")
	// ErrTimelockNotSatisfied is returned when the input sequence or the tx
	// version doesn't enable the relative timelock of the spent branch.
	ErrTimelockNotSatisfied = errors.New("relative timelock is not satisfied")
	// ErrInvalidKind is returned for an unknown kind or an operation the kind
	// doesn't support.
	ErrInvalidKind = errors.New("invalid transaction kind")
	// ErrTransactionNotSeen is returned when extracting a funding transaction
	// that was never observed.
	ErrTransactionNotSeen = errors.New("transaction has not been seen yet")
	// ErrTransactionMismatch is returned when an observed transaction is not
	// the one the wrapper was built for.
	ErrTransactionMismatch = errors.New("observed transaction does not " +
		"match the expected one")

	// ErrMissingSignature is returned when a key required by the spent
	// branch has no signature.
	ErrMissingSignature = errors.New("missing signature")
	// ErrMissingSigHashType is returned when the input has no sighash type,
	// or a signature commits to a different one.
	ErrMissingSigHashType = errors.New("sighash type is missing")
	// ErrPublicKeyNotFound is returned for a signature whose key is not
	// referenced by the locking script.
	ErrPublicKeyNotFound = errors.New("public key not found in the script")
	// ErrMissingPreimage is returned when a hash locked branch is spent
	// without its secret.
	ErrMissingPreimage = errors.New("missing hash lock preimage")

	// ErrNotFinalized is returned when extracting a transaction that is
	// still partial.
	ErrNotFinalized = errors.New("transaction is not finalized")
	// ErrAlreadyFinalized is returned when adding data to a finalized
	// transaction.
	ErrAlreadyFinalized = errors.New("transaction is already finalized")
	// ErrInconsistentWitness is returned when the final witness of an input
	// doesn't satisfy its locking conditions.
	ErrInconsistentWitness = errors.New("final witness is inconsistent " +
		"with the locking script")
)

// Category tells which layer an external error comes from.
type Category uint8

const (
	// Crypto errors come from signing and curve operations.
	Crypto Category = iota + 1
	// Format errors come from the psbt container, scripts and addresses.
	Format
	// Policy errors come from the fee strategy.
	Policy
)

func (c Category) String() string {
	switch c {
	case Crypto:
		return "crypto"
	case Format:
		return "format"
	case Policy:
		return "policy"
	default:
		return "unknown"
	}
}

// Error wraps an error returned by an external package, keeping the cause
// available to errors.Is and errors.As.
type Error struct {
	Category Category
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s", e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(c Category, err error) error {
	if err == nil {
		return nil
	}
	var wrapped *Error
	if errors.As(err, &wrapped) {
		return err
	}
	return &Error{Category: c, Err: err}
}
