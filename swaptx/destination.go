package swaptx

import (
	"github.com/vulpemventures/go-swaptx/address"
	"github.com/vulpemventures/go-swaptx/fee"
	"github.com/vulpemventures/go-swaptx/network"
)

// NewBuyToAddress is NewBuy paying to an address of net.
func NewBuyToAddress(
	prev *ConsumableOutput,
	addr string,
	net *network.Network,
	estimate fee.Estimate,
) (*Tx, error) {
	destination, err := destinationScript(addr, net)
	if err != nil {
		return nil, err
	}
	return NewBuy(prev, destination, estimate)
}

// NewRefundToAddress is NewRefund paying to an address of net.
func NewRefundToAddress(
	prev *ConsumableOutput,
	addr string,
	net *network.Network,
	estimate fee.Estimate,
) (*Tx, error) {
	destination, err := destinationScript(addr, net)
	if err != nil {
		return nil, err
	}
	return NewRefund(prev, destination, estimate)
}

// NewPunishToAddress is NewPunish paying to an address of net.
func NewPunishToAddress(
	prev *ConsumableOutput,
	addr string,
	net *network.Network,
	estimate fee.Estimate,
) (*Tx, error) {
	destination, err := destinationScript(addr, net)
	if err != nil {
		return nil, err
	}
	return NewPunish(prev, destination, estimate)
}

// Address returns the address the output pays to on net.
func (o *ConsumableOutput) Address(net *network.Network) (string, error) {
	addr, err := address.FromOutputScript(o.TxOut.PkScript, net)
	if err != nil {
		return "", wrapError(Format, err)
	}
	return addr, nil
}

func destinationScript(addr string, net *network.Network) ([]byte, error) {
	if net == nil {
		net = &network.Bitcoin
	}
	script, err := address.ToOutputScript(addr, net)
	if err != nil {
		return nil, wrapError(Format, err)
	}
	return script, nil
}
