package transaction

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// InputRef binds a transaction to one of its inputs. It doesn't own the
// transaction: mutating the referenced transaction after the InputRef is
// created changes what the InputRef describes.
type InputRef struct {
	tx    *wire.MsgTx
	index int
}

// NewInputRef returns a reference to the input with the given index of tx.
// An index out of range is a programming error and panics.
func NewInputRef(tx *wire.MsgTx, index int) InputRef {
	if tx == nil {
		panic("transaction: nil transaction for input reference")
	}
	if index < 0 || index >= len(tx.TxIn) {
		panic(fmt.Sprintf(
			"transaction: input index %d out of range [0, %d)",
			index, len(tx.TxIn),
		))
	}
	return InputRef{tx: tx, index: index}
}

// Transaction returns the referenced transaction.
func (r InputRef) Transaction() *wire.MsgTx {
	return r.tx
}

// Input returns the referenced input.
func (r InputRef) Input() *wire.TxIn {
	return r.tx.TxIn[r.index]
}

// Index returns the index of the referenced input.
func (r InputRef) Index() int {
	return r.index
}
