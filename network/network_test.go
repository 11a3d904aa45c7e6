package network_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-swaptx/network"
)

func TestNetworkParams(t *testing.T) {
	tests := []struct {
		net  *network.Network
		name string
	}{
		{&network.Bitcoin, "mainnet"},
		{&network.Testnet, "testnet3"},
		{&network.Signet, "signet"},
		{&network.Regtest, "regtest"},
	}

	for _, tt := range tests {
		t.Run(tt.net.Name, func(t *testing.T) {
			require.Equal(t, tt.name, tt.net.Params.Name)
			require.Equal(t, tt.net.Bech32, tt.net.Params.Bech32HRPSegwit)
			require.Equal(t, tt.net.PubKeyHash, tt.net.Params.PubKeyHashAddrID)
			require.Equal(t, tt.net.ScriptHash, tt.net.Params.ScriptHashAddrID)
		})
	}
}
