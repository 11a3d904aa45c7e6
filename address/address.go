package address

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/vulpemventures/go-swaptx/network"
)

var (
	// ErrNetworkMismatch is returned when an address is valid but belongs to
	// a different network than the one requested.
	ErrNetworkMismatch = errors.New("address is not for the given network")
	// ErrNoAddress is returned when an output script doesn't map to exactly
	// one address.
	ErrNoAddress = errors.New("script does not encode a single address")
)

// Decode parses an address and checks that it belongs to net.
func Decode(address string, net *network.Network) (btcutil.Address, error) {
	addr, err := btcutil.DecodeAddress(address, net.Params)
	if err != nil {
		return nil, err
	}
	if !addr.IsForNet(net.Params) {
		return nil, ErrNetworkMismatch
	}
	return addr, nil
}

// ToOutputScript returns the output script paying to address.
func ToOutputScript(address string, net *network.Network) ([]byte, error) {
	addr, err := Decode(address, net)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

// FromOutputScript returns the address an output script pays to.
func FromOutputScript(script []byte, net *network.Network) (string, error) {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(script, net.Params)
	if err != nil {
		return "", err
	}
	if len(addrs) != 1 {
		return "", ErrNoAddress
	}
	return addrs[0].EncodeAddress(), nil
}
