package fee

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/mempool"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrInvalidStrategy is returned for a fee strategy with a zero rate or
	// an empty range.
	ErrInvalidStrategy = errors.New("invalid fee strategy")
	// ErrInvalidPolitic is returned for an unknown fee politic.
	ErrInvalidPolitic = errors.New("invalid fee politic")
	// ErrFeeTooHigh is returned when the fee consumes the spent value or
	// leaves a dust output.
	ErrFeeTooHigh = errors.New("fee is too high for the spent value")
)

type strategyType uint8

const (
	fixedStrategy strategyType = iota + 1
	rangeStrategy
)

// Strategy describes the fee rate, in satoshi per virtual byte, a
// transaction should pay. A Fixed strategy always uses the same rate, a
// Range strategy lets the Politic pick one of its bounds.
type Strategy struct {
	kind     strategyType
	min, max btcutil.Amount
}

// Fixed returns a strategy paying exactly satPerVByte.
func Fixed(satPerVByte btcutil.Amount) Strategy {
	return Strategy{kind: fixedStrategy, min: satPerVByte, max: satPerVByte}
}

// Range returns a strategy paying between min and max sat/vB.
func Range(min, max btcutil.Amount) Strategy {
	return Strategy{kind: rangeStrategy, min: min, max: max}
}

// Validate returns an error if the strategy can't produce a fee rate.
func (s Strategy) Validate() error {
	switch s.kind {
	case fixedStrategy:
		if s.min <= 0 {
			return fmt.Errorf("%w: fixed rate must be positive", ErrInvalidStrategy)
		}
	case rangeStrategy:
		if s.min <= 0 || s.max < s.min {
			return fmt.Errorf(
				"%w: range [%d, %d] is empty", ErrInvalidStrategy, s.min, s.max,
			)
		}
	default:
		return ErrInvalidStrategy
	}
	return nil
}

// Rate returns the sat/vB the strategy pays under politic p.
func (s Strategy) Rate(p Politic) (btcutil.Amount, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	switch p {
	case Aggressive:
		return s.max, nil
	case Conservative:
		return s.min, nil
	default:
		return 0, ErrInvalidPolitic
	}
}

func (s Strategy) String() string {
	switch s.kind {
	case fixedStrategy:
		return fmt.Sprintf("fixed(%d sat/vB)", s.min)
	case rangeStrategy:
		return fmt.Sprintf("range(%d-%d sat/vB)", s.min, s.max)
	default:
		return "invalid"
	}
}

// Politic tells how to pick a rate from a Range strategy.
type Politic uint8

const (
	// Aggressive picks the highest rate of the range.
	Aggressive Politic = iota + 1
	// Conservative picks the lowest rate of the range.
	Conservative
)

func (p Politic) String() string {
	switch p {
	case Aggressive:
		return "aggressive"
	case Conservative:
		return "conservative"
	default:
		return "unknown"
	}
}

// Estimate is the fee configuration passed to transaction constructors.
type Estimate struct {
	Strategy Strategy
	Politic  Politic
}

// Validate returns an error if the estimate can't produce a fee rate.
func (e Estimate) Validate() error {
	_, err := e.Strategy.Rate(e.Politic)
	return err
}

// Fee returns the fee paid by a transaction of the given weight.
func (e Estimate) Fee(weight int64) (btcutil.Amount, error) {
	return Calculate(e.Strategy, e.Politic, weight)
}

// Calculate returns the fee paid by a transaction of the given weight under
// the strategy and politic.
func Calculate(s Strategy, p Politic, weight int64) (btcutil.Amount, error) {
	rate, err := s.Rate(p)
	if err != nil {
		return 0, err
	}
	return rate * btcutil.Amount(VirtualSize(weight)), nil
}

// SubtractFee returns what is left of value once fee is paid. The remainder
// must not be dust for an output locked by pkScript.
func SubtractFee(
	value, fee btcutil.Amount,
	pkScript []byte,
) (btcutil.Amount, error) {
	if fee >= value {
		return 0, fmt.Errorf(
			"%w: fee %v consumes the whole value %v", ErrFeeTooHigh, fee, value,
		)
	}

	remainder := value - fee
	out := wire.NewTxOut(int64(remainder), pkScript)
	if mempool.IsDust(out, mempool.DefaultMinRelayTxFee) {
		return 0, fmt.Errorf(
			"%w: remaining value %v is dust", ErrFeeTooHigh, remainder,
		)
	}
	return remainder, nil
}
