package swaptx

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/vulpemventures/fastsha256"
	"github.com/vulpemventures/go-swaptx/payment"
)

// sha256PreimageType is the BIP174 PSBT_IN_SHA256 key type. The key data is
// the hash, the value its preimage.
const sha256PreimageType = 0x0b

type branchType uint8

const (
	successBranch branchType = iota
	timeoutBranch
)

// swapFinalizer spends one branch of a payment.SwapScript output: Buy and
// Cancel spend the lock output, Refund and Punish spend the cancel output.
//
// The final witness is, bottom to top:
//
//	success: <sig Kn> ... <sig K1> [<preimage>] 0x01 <script>
//	timeout: <sig Kn> ... <sig K1> <empty> <script>
type swapFinalizer struct {
	kind   Kind
	branch branchType
}

func (f swapFinalizer) selectBranch(s *payment.SwapScript) payment.Branch {
	if f.branch == successBranch {
		return s.Success
	}
	return s.Timeout
}

func (f swapFinalizer) selector() []byte {
	if f.branch == successBranch {
		return []byte{0x01}
	}
	return []byte{}
}

func (f swapFinalizer) witness(p *psbt.Packet) (wire.TxWitness, error) {
	input, err := singleInput(p)
	if err != nil {
		return nil, err
	}
	script, err := witnessScript(input)
	if err != nil {
		return nil, err
	}
	swapScript, err := payment.ParseSwapScript(script)
	if err != nil {
		return nil, wrapError(Format, err)
	}
	branch := f.selectBranch(swapScript)

	if f.branch == timeoutBranch {
		if err := checkSequence(p.UnsignedTx, 0, branch.Delay); err != nil {
			return nil, err
		}
	}

	sigs, err := collectSignatures(input, branch.PubKeys, swapScript.HasKey)
	if err != nil {
		return nil, err
	}

	witness := keyChainWitness(sigs)
	if len(branch.HashLock) > 0 {
		preimage := findPreimage(input, branch.HashLock)
		if preimage == nil {
			return nil, fmt.Errorf(
				"%w: %x", ErrMissingPreimage, branch.HashLock,
			)
		}
		witness = append(witness, preimage)
	}
	witness = append(witness, f.selector(), script)

	log.Tracef("Assembled %v witness with %d signatures", f.kind, len(sigs))
	return witness, nil
}

func (f swapFinalizer) verify(p *psbt.Packet, witness wire.TxWitness) error {
	input, err := singleInput(p)
	if err != nil {
		return err
	}
	utxo, err := spentOutput(input)
	if err != nil {
		return err
	}
	if len(witness) < 2 {
		return fmt.Errorf("expected at least 2 witness items, got %d",
			len(witness))
	}

	script := witness[len(witness)-1]
	if err := checkScriptCommitment(utxo.PkScript, script); err != nil {
		return err
	}
	swapScript, err := payment.ParseSwapScript(script)
	if err != nil {
		return wrapError(Format, err)
	}
	branch := f.selectBranch(swapScript)

	expectedItems := len(branch.PubKeys) + 2
	if len(branch.HashLock) > 0 {
		expectedItems++
	}
	if len(witness) != expectedItems {
		return fmt.Errorf(
			"expected %d witness items, got %d", expectedItems, len(witness),
		)
	}
	if !bytes.Equal(witness[len(witness)-2], f.selector()) {
		return fmt.Errorf("witness selects the wrong %v branch", f.kind)
	}
	if len(branch.HashLock) > 0 {
		hash := fastsha256.Sum256(witness[len(branch.PubKeys)])
		if !bytes.Equal(hash[:], branch.HashLock) {
			return fmt.Errorf("preimage does not match hash lock")
		}
	}
	if f.branch == timeoutBranch {
		return checkSequence(p.UnsignedTx, 0, branch.Delay)
	}
	return nil
}

// findPreimage returns the preimage of hash recorded in input, if any.
func findPreimage(input *psbt.PInput, hash []byte) []byte {
	key := preimageKey(hash)
	for _, u := range input.Unknowns {
		if !bytes.Equal(u.Key, key) {
			continue
		}
		got := fastsha256.Sum256(u.Value)
		if bytes.Equal(got[:], hash) {
			return u.Value
		}
	}
	return nil
}

func preimageKey(hash []byte) []byte {
	return append([]byte{sha256PreimageType}, hash...)
}
