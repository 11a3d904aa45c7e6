package swaptx

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/vulpemventures/go-swaptx/address"
	"github.com/vulpemventures/go-swaptx/fee"
	"github.com/vulpemventures/go-swaptx/payment"
)

// spend describes the single input, single output transaction of a chain
// step.
type spend struct {
	kind     Kind
	prev     *ConsumableOutput
	sequence uint32
	// pkScript and witnessScript lock the new output.
	pkScript      []byte
	witnessScript []byte
	// witnessSize is the expected size of the final input witness.
	witnessSize int
}

// NewLock returns the Lock Tx moving the funding output to the swap script
// lockScript. The funding output is either P2WPKH or a P2WSH key chain
// built with payment.MultiSigScript.
func NewLock(
	prev *ConsumableOutput,
	lockScript *payment.SwapScript,
	estimate fee.Estimate,
) (*Tx, error) {
	witnessSize, err := lockWitnessSize(prev)
	if err != nil {
		return nil, err
	}
	return newSwapOutputSpend(Lock, prev, wire.MaxTxInSequenceNum,
		witnessSize, lockScript, estimate)
}

// NewBuy returns the Buy Tx spending the lock output through its success
// branch to destination.
func NewBuy(
	prev *ConsumableOutput,
	destination []byte,
	estimate fee.Estimate,
) (*Tx, error) {
	return newBranchSpend(Buy, successBranch, prev, destination, nil, estimate)
}

// NewCancel returns the Cancel Tx spending the lock output through its
// timeout branch to the swap script cancelScript. The input sequence is set
// to the delay of the branch.
func NewCancel(
	prev *ConsumableOutput,
	cancelScript *payment.SwapScript,
	estimate fee.Estimate,
) (*Tx, error) {
	if cancelScript == nil {
		return nil, wrapError(Format, payment.ErrEmptyScript)
	}
	return newBranchSpend(Cancel, timeoutBranch, prev, nil, cancelScript,
		estimate)
}

// NewRefund returns the Refund Tx spending the cancel output through its
// success branch to destination.
func NewRefund(
	prev *ConsumableOutput,
	destination []byte,
	estimate fee.Estimate,
) (*Tx, error) {
	return newBranchSpend(Refund, successBranch, prev, destination, nil,
		estimate)
}

// NewPunish returns the Punish Tx spending the cancel output through its
// timeout branch to destination. The input sequence is set to the delay of
// the branch.
func NewPunish(
	prev *ConsumableOutput,
	destination []byte,
	estimate fee.Estimate,
) (*Tx, error) {
	return newBranchSpend(Punish, timeoutBranch, prev, destination, nil,
		estimate)
}

func lockWitnessSize(prev *ConsumableOutput) (int, error) {
	if err := checkPrevOutput(prev); err != nil {
		return 0, err
	}

	switch address.GetScriptType(prev.TxOut.PkScript) {
	case address.P2WpkhScript:
		return fee.P2WPKHWitnessSize(), nil

	case address.P2WshScript:
		keys, err := payment.ParseMultiSigScript(prev.WitnessScript)
		if err != nil {
			return 0, wrapError(Format, err)
		}
		sizes := make([]int, 0, len(keys)+1)
		for range keys {
			sizes = append(sizes, fee.SignatureSize)
		}
		return fee.WitnessSize(append(sizes, len(prev.WitnessScript))...), nil

	default:
		return 0, wrapError(Format, payment.ErrUnsupportedScript)
	}
}

// newBranchSpend builds a transaction spending one branch of the swap script
// locking prev. The new output is either destination or lockScript.
func newBranchSpend(
	kind Kind,
	selected branchType,
	prev *ConsumableOutput,
	destination []byte,
	lockScript *payment.SwapScript,
	estimate fee.Estimate,
) (*Tx, error) {
	if err := checkPrevOutput(prev); err != nil {
		return nil, err
	}
	if !prev.IsScriptHash() {
		return nil, fmt.Errorf("%w: %v must spend a p2wsh output",
			ErrScriptMismatch, kind)
	}
	swapScript, err := payment.ParseSwapScript(prev.WitnessScript)
	if err != nil {
		return nil, wrapError(Format, err)
	}

	f := swapFinalizer{kind: kind, branch: selected}
	branch := f.selectBranch(swapScript)

	sequence := wire.MaxTxInSequenceNum
	if selected == timeoutBranch {
		sequence = branch.Delay
	}

	sizes := make([]int, 0, len(branch.PubKeys)+3)
	for range branch.PubKeys {
		sizes = append(sizes, fee.SignatureSize)
	}
	if len(branch.HashLock) > 0 {
		sizes = append(sizes, fee.PreimageSize)
	}
	sizes = append(sizes, len(f.selector()), len(prev.WitnessScript))
	witnessSize := fee.WitnessSize(sizes...)

	if lockScript != nil {
		return newSwapOutputSpend(kind, prev, sequence, witnessSize,
			lockScript, estimate)
	}
	if len(destination) == 0 {
		return nil, wrapError(Format, payment.ErrEmptyScript)
	}
	return newSpend(spend{
		kind:        kind,
		prev:        prev,
		sequence:    sequence,
		pkScript:    destination,
		witnessSize: witnessSize,
	}, estimate)
}

func newSwapOutputSpend(
	kind Kind,
	prev *ConsumableOutput,
	sequence uint32,
	witnessSize int,
	lockScript *payment.SwapScript,
	estimate fee.Estimate,
) (*Tx, error) {
	if lockScript == nil {
		return nil, wrapError(Format, payment.ErrEmptyScript)
	}
	pay, err := payment.FromSwapScript(lockScript, nil)
	if err != nil {
		return nil, wrapError(Format, err)
	}
	return newSpend(spend{
		kind:          kind,
		prev:          prev,
		sequence:      sequence,
		pkScript:      pay.Script,
		witnessScript: pay.WitnessScript,
		witnessSize:   witnessSize,
	}, estimate)
}

// newSpend creates the version 2 transaction described by s, paying the fee
// of estimate out of the spent value.
func newSpend(s spend, estimate fee.Estimate) (*Tx, error) {
	if err := estimate.Validate(); err != nil {
		return nil, wrapError(Policy, err)
	}

	tx := wire.NewMsgTx(2)
	outPoint := s.prev.OutPoint
	txIn := wire.NewTxIn(&outPoint, nil, nil)
	txIn.Sequence = s.sequence
	tx.AddTxIn(txIn)
	tx.AddTxOut(wire.NewTxOut(s.prev.TxOut.Value, s.pkScript))

	weight := fee.EstimateWeight(tx, s.witnessSize)
	amount, err := estimate.Fee(weight)
	if err != nil {
		return nil, wrapError(Policy, err)
	}
	value, err := fee.SubtractFee(
		btcutil.Amount(s.prev.TxOut.Value), amount, s.pkScript,
	)
	if err != nil {
		return nil, wrapError(Policy, err)
	}
	tx.TxOut[0].Value = int64(value)

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, wrapError(Format, err)
	}
	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return nil, wrapError(Format, err)
	}

	utxo := wire.NewTxOut(
		s.prev.TxOut.Value, append([]byte(nil), s.prev.TxOut.PkScript...),
	)
	if err := updater.AddInWitnessUtxo(utxo, 0); err != nil {
		return nil, wrapError(Format, err)
	}
	if err := updater.AddInSighashType(txscript.SigHashAll, 0); err != nil {
		return nil, wrapError(Format, err)
	}
	if s.prev.WitnessScript != nil {
		err := updater.AddInWitnessScript(s.prev.WitnessScript, 0)
		if err != nil {
			return nil, wrapError(Format, err)
		}
	}
	if s.witnessScript != nil {
		err := updater.AddOutWitnessScript(s.witnessScript, 0)
		if err != nil {
			return nil, wrapError(Format, err)
		}
	}

	t := &Tx{kind: s.kind, packet: packet}
	log.Debugf("Created %v transaction %v spending %v, fee %v",
		s.kind, t.TxID(), s.prev.OutPoint, amount)
	return t, nil
}

// checkPrevOutput validates the output a new transaction spends.
func checkPrevOutput(prev *ConsumableOutput) error {
	if prev == nil || prev.TxOut == nil {
		return ErrMissingWitnessUTXO
	}
	if !prev.IsScriptHash() {
		return nil
	}
	if prev.WitnessScript == nil {
		return ErrMissingWitnessScript
	}
	return checkScriptCommitment(prev.TxOut.PkScript, prev.WitnessScript)
}
