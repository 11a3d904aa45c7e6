package payment

import (
	"errors"
	"hash"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/vulpemventures/fastsha256"
	"github.com/vulpemventures/go-swaptx/network"
	"golang.org/x/crypto/ripemd160"
)

var (
	// ErrEmptyScript is returned when building a payment from an empty
	// script.
	ErrEmptyScript = errors.New("payment's script can't be empty or nil")
	// ErrUnsupportedScript is returned by FromScript for output scripts
	// other than native segwit v0 programs.
	ErrUnsupportedScript = errors.New("unsupported output script type")
)

// Payment defines the structure that holds the information of a segwit v0
// output: the output script, the witness program it commits to and, for
// P2WSH, the witness script that unlocks it.
type Payment struct {
	Hash          []byte
	WitnessHash   []byte
	Script        []byte
	WitnessScript []byte
	PublicKey     *btcec.PublicKey
	Network       *network.Network
}

// FromPublicKey creates a P2WPKH Payment struct from a btcec.PublicKey.
func FromPublicKey(pubkey *btcec.PublicKey, net *network.Network) *Payment {
	pkHash := Hash160(pubkey.SerializeCompressed())

	return &Payment{
		Hash:        pkHash,
		WitnessHash: pkHash,
		Script:      buildScript(pkHash),
		PublicKey:   pubkey,
		Network:     defaultNetwork(net),
	}
}

// FromPublicKeys creates a 2-of-2 P2WSH Payment whose witness script
// requires a signature for every key, in the given order.
func FromPublicKeys(
	pubkeys []*btcec.PublicKey,
	net *network.Network,
) (*Payment, error) {
	keys := make([][]byte, 0, len(pubkeys))
	for _, key := range pubkeys {
		keys = append(keys, key.SerializeCompressed())
	}

	multiSigScript, err := MultiSigScript(keys)
	if err != nil {
		return nil, err
	}
	return FromWitnessScript(multiSigScript, net)
}

// FromSwapScript creates the P2WSH Payment locked by the given SwapScript.
func FromSwapScript(s *SwapScript, net *network.Network) (*Payment, error) {
	witnessScript, err := s.Script()
	if err != nil {
		return nil, err
	}
	return FromWitnessScript(witnessScript, net)
}

// FromWitnessScript creates a P2WSH Payment that commits to witnessScript.
func FromWitnessScript(
	witnessScript []byte,
	net *network.Network,
) (*Payment, error) {
	if len(witnessScript) == 0 {
		return nil, ErrEmptyScript
	}

	witnessScriptHash := WitnessScriptHash(witnessScript)
	return &Payment{
		WitnessHash:   witnessScriptHash,
		Script:        buildScript(witnessScriptHash),
		WitnessScript: witnessScript,
		Network:       defaultNetwork(net),
	}, nil
}

// FromScript parses a native segwit v0 output script into a Payment struct.
// The witness script of a P2WSH output can't be recovered from its hash and
// is left empty.
func FromScript(outputScript []byte, net *network.Network) (*Payment, error) {
	if len(outputScript) == 0 {
		return nil, ErrEmptyScript
	}

	p := &Payment{
		Script:  outputScript,
		Network: defaultNetwork(net),
	}

	switch {
	case txscript.IsPayToWitnessPubKeyHash(outputScript):
		p.Hash = outputScript[2:]
		p.WitnessHash = outputScript[2:]
	case txscript.IsPayToWitnessScriptHash(outputScript):
		p.WitnessHash = outputScript[2:]
	default:
		return nil, ErrUnsupportedScript
	}
	return p, nil
}

// IsScriptHash returns whether the payment is a P2WSH output.
func (p *Payment) IsScriptHash() bool {
	return len(p.WitnessHash) == 32
}

func defaultNetwork(net *network.Network) *network.Network {
	if net == nil {
		return &network.Bitcoin
	}
	return net
}

// Calculate the hash of hasher over buf.
func calcHash(buf []byte, hasher hash.Hash) []byte {
	hasher.Write(buf)
	return hasher.Sum(nil)
}

// Hash160 calculates the hash ripemd160(sha256(b)).
func Hash160(buf []byte) []byte {
	return calcHash(calcHash(buf, fastsha256.New()), ripemd160.New())
}

// WitnessScriptHash returns the sha256 of the witness script, the program
// of a P2WSH output.
func WitnessScriptHash(witnessScript []byte) []byte {
	h := fastsha256.Sum256(witnessScript)
	return h[:]
}

// buildScript returns the segwit v0 output script for the given program.
func buildScript(program []byte) []byte {
	script, _ := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(program).
		Script()
	return script
}
