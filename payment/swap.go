package payment

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// MaxBranchKeys is the largest number of keys a spending branch can
// require.
const MaxBranchKeys = 2

var (
	// ErrInvalidScript is returned when a script doesn't match the expected
	// template.
	ErrInvalidScript = errors.New("script does not match swap template")
	// ErrInvalidBranch is returned when a branch has no keys, too many keys
	// or fields that do not belong to it.
	ErrInvalidBranch = errors.New("invalid swap script branch")
	// ErrInvalidDelay is returned for a timeout branch without a usable
	// relative timelock.
	ErrInvalidDelay = errors.New("invalid relative timelock")
)

// Branch is one spending path of a SwapScript. The public keys are
// compressed and sorted the way they appear in the script; each one needs a
// signature to spend through the branch.
type Branch struct {
	PubKeys [][]byte
	// HashLock is the sha256 of a secret to reveal. Success branch only.
	HashLock []byte
	// Delay is the BIP68 relative timelock. Timeout branch only.
	Delay uint32
}

// HasKey returns whether pubKey is one of the branch keys.
func (b Branch) HasKey(pubKey []byte) bool {
	return b.KeyIndex(pubKey) >= 0
}

// KeyIndex returns the position of pubKey in the branch, or -1.
func (b Branch) KeyIndex(pubKey []byte) int {
	for i, k := range b.PubKeys {
		if bytes.Equal(k, pubKey) {
			return i
		}
	}
	return -1
}

// SwapScript is the two-branch witness script used by the Lock and Cancel
// outputs:
//
//	OP_IF
//	    [OP_SHA256 <hash> OP_EQUALVERIFY]
//	    <K1> OP_CHECKSIGVERIFY <K2> OP_CHECKSIG
//	OP_ELSE
//	    <delay> OP_CHECKSEQUENCEVERIFY OP_DROP
//	    <K1> OP_CHECKSIGVERIFY <K2> OP_CHECKSIG
//	OP_ENDIF
//
// A branch with a single key ends with <K1> OP_CHECKSIG.
type SwapScript struct {
	Success Branch
	Timeout Branch
}

// NewSwapScript validates both branches and returns the script template.
func NewSwapScript(success, timeout Branch) (*SwapScript, error) {
	if err := validateKeys(success.PubKeys); err != nil {
		return nil, err
	}
	if err := validateKeys(timeout.PubKeys); err != nil {
		return nil, err
	}
	if success.Delay != 0 || len(timeout.HashLock) != 0 {
		return nil, ErrInvalidBranch
	}
	if len(success.HashLock) != 0 && len(success.HashLock) != 32 {
		return nil, fmt.Errorf("%w: hash lock must be 32 bytes", ErrInvalidBranch)
	}
	if !isBlockDelay(timeout.Delay) {
		return nil, ErrInvalidDelay
	}
	return &SwapScript{Success: success, Timeout: timeout}, nil
}

// HasKey returns whether pubKey appears in either branch.
func (s *SwapScript) HasKey(pubKey []byte) bool {
	return s.Success.HasKey(pubKey) || s.Timeout.HasKey(pubKey)
}

// Script serializes the template.
func (s *SwapScript) Script() ([]byte, error) {
	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_IF)
	if len(s.Success.HashLock) > 0 {
		builder.AddOp(txscript.OP_SHA256).
			AddData(s.Success.HashLock).
			AddOp(txscript.OP_EQUALVERIFY)
	}
	addKeyChain(builder, s.Success.PubKeys)

	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(s.Timeout.Delay)).
		AddOp(txscript.OP_CHECKSEQUENCEVERIFY).
		AddOp(txscript.OP_DROP)
	addKeyChain(builder, s.Timeout.PubKeys)

	builder.AddOp(txscript.OP_ENDIF)
	return builder.Script()
}

// ParseSwapScript recovers a SwapScript from its serialization. The result
// must re-serialize to the exact same bytes, so non-minimal pushes are
// rejected.
func ParseSwapScript(script []byte) (*SwapScript, error) {
	ops, err := tokenize(script)
	if err != nil {
		return nil, err
	}

	p := &opReader{ops: ops}
	s := &SwapScript{}

	if !p.expect(txscript.OP_IF) {
		return nil, ErrInvalidScript
	}
	if p.peek(txscript.OP_SHA256) {
		p.next()
		hashOp, ok := p.next()
		if !ok || len(hashOp.data) != 32 {
			return nil, ErrInvalidScript
		}
		if !p.expect(txscript.OP_EQUALVERIFY) {
			return nil, ErrInvalidScript
		}
		s.Success.HashLock = hashOp.data
	}
	if s.Success.PubKeys, err = p.keyChain(); err != nil {
		return nil, err
	}

	if !p.expect(txscript.OP_ELSE) {
		return nil, ErrInvalidScript
	}
	delayOp, ok := p.next()
	if !ok {
		return nil, ErrInvalidScript
	}
	if s.Timeout.Delay, err = decodeDelay(delayOp); err != nil {
		return nil, err
	}
	if !p.expect(txscript.OP_CHECKSEQUENCEVERIFY) ||
		!p.expect(txscript.OP_DROP) {
		return nil, ErrInvalidScript
	}
	if s.Timeout.PubKeys, err = p.keyChain(); err != nil {
		return nil, err
	}

	if !p.expect(txscript.OP_ENDIF) || !p.done() {
		return nil, ErrInvalidScript
	}

	if _, err := NewSwapScript(s.Success, s.Timeout); err != nil {
		return nil, err
	}
	rebuilt, err := s.Script()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(rebuilt, script) {
		return nil, ErrInvalidScript
	}
	return s, nil
}

// MultiSigScript returns the witness script <K1> OP_CHECKSIGVERIFY <K2>
// OP_CHECKSIG requiring a signature for every given key.
func MultiSigScript(pubKeys [][]byte) ([]byte, error) {
	if err := validateKeys(pubKeys); err != nil {
		return nil, err
	}
	builder := txscript.NewScriptBuilder()
	addKeyChain(builder, pubKeys)
	return builder.Script()
}

// ParseMultiSigScript returns the keys of a script built by MultiSigScript.
func ParseMultiSigScript(script []byte) ([][]byte, error) {
	ops, err := tokenize(script)
	if err != nil {
		return nil, err
	}
	p := &opReader{ops: ops}
	keys, err := p.keyChain()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, ErrInvalidScript
	}
	if err := validateKeys(keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func addKeyChain(builder *txscript.ScriptBuilder, pubKeys [][]byte) {
	for i, key := range pubKeys {
		builder.AddData(key)
		if i == len(pubKeys)-1 {
			builder.AddOp(txscript.OP_CHECKSIG)
		} else {
			builder.AddOp(txscript.OP_CHECKSIGVERIFY)
		}
	}
}

func validateKeys(pubKeys [][]byte) error {
	if len(pubKeys) == 0 || len(pubKeys) > MaxBranchKeys {
		return fmt.Errorf(
			"%w: expected 1 to %d keys, got %d",
			ErrInvalidBranch, MaxBranchKeys, len(pubKeys),
		)
	}
	for i, key := range pubKeys {
		if len(key) != btcec.PubKeyBytesLenCompressed {
			return fmt.Errorf("%w: key %d is not compressed", ErrInvalidBranch, i)
		}
		if _, err := btcec.ParsePubKey(key); err != nil {
			return fmt.Errorf("%w: key %d: %s", ErrInvalidBranch, i, err)
		}
		for _, other := range pubKeys[:i] {
			if bytes.Equal(other, key) {
				return fmt.Errorf("%w: duplicate key", ErrInvalidBranch)
			}
		}
	}
	return nil
}

// isBlockDelay reports whether delay is a usable block-based BIP68 relative
// timelock.
func isBlockDelay(delay uint32) bool {
	if delay == 0 {
		return false
	}
	if delay&wire.SequenceLockTimeDisabled != 0 {
		return false
	}
	if delay&wire.SequenceLockTimeIsSeconds != 0 {
		return false
	}
	return delay&^wire.SequenceLockTimeMask == 0
}

func decodeDelay(op parsedOp) (uint32, error) {
	if op.opcode >= txscript.OP_1 && op.opcode <= txscript.OP_16 {
		return uint32(op.opcode-txscript.OP_1) + 1, nil
	}
	if len(op.data) == 0 || len(op.data) > 4 {
		return 0, ErrInvalidDelay
	}
	// script numbers are little endian with the sign in the top bit
	if op.data[len(op.data)-1]&0x80 != 0 {
		return 0, ErrInvalidDelay
	}
	var delay uint32
	for i, b := range op.data {
		delay |= uint32(b) << (8 * uint(i))
	}
	return delay, nil
}

type parsedOp struct {
	opcode byte
	data   []byte
}

func tokenize(script []byte) ([]parsedOp, error) {
	if len(script) == 0 {
		return nil, ErrEmptyScript
	}

	var ops []parsedOp
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		ops = append(ops, parsedOp{
			opcode: tokenizer.Opcode(),
			data:   tokenizer.Data(),
		})
	}
	if err := tokenizer.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScript, err)
	}
	return ops, nil
}

type opReader struct {
	ops []parsedOp
	pos int
}

func (r *opReader) next() (parsedOp, bool) {
	if r.pos >= len(r.ops) {
		return parsedOp{}, false
	}
	op := r.ops[r.pos]
	r.pos++
	return op, true
}

func (r *opReader) peek(opcode byte) bool {
	return r.pos < len(r.ops) && r.ops[r.pos].opcode == opcode
}

func (r *opReader) expect(opcode byte) bool {
	if !r.peek(opcode) {
		return false
	}
	r.pos++
	return true
}

func (r *opReader) done() bool {
	return r.pos == len(r.ops)
}

// keyChain reads <K1> OP_CHECKSIGVERIFY ... <Kn> OP_CHECKSIG.
func (r *opReader) keyChain() ([][]byte, error) {
	var keys [][]byte
	for {
		keyOp, ok := r.next()
		if !ok || keyOp.opcode != txscript.OP_DATA_33 {
			return nil, ErrInvalidScript
		}
		keys = append(keys, keyOp.data)

		switch {
		case r.expect(txscript.OP_CHECKSIG):
			return keys, nil
		case r.expect(txscript.OP_CHECKSIGVERIFY):
			if len(keys) == MaxBranchKeys {
				return nil, ErrInvalidScript
			}
		default:
			return nil, ErrInvalidScript
		}
	}
}
