package network

import "github.com/btcsuite/btcd/chaincfg"

// Network type represents the parameters of a Bitcoin network the swap
// transactions are built for.
// https://en.bitcoin.it/wiki/List_of_address_prefixes
type Network struct {
	Name string
	// Human-readable part for Bech32 encoded segwit addresses, as defined
	// in BIP 173.
	Bech32 string
	// Address encoding magic
	PubKeyHash byte
	ScriptHash byte
	// BIP44 coin type used in the hierarchical deterministic path for
	// address generation.
	HDCoinType uint32
	// Params are the btcd chain parameters backing this network, used for
	// address encoding and decoding.
	Params *chaincfg.Params
}

// Bitcoin defines the network parameters for the main Bitcoin network.
var Bitcoin = Network{
	Name:       "bitcoin",
	Bech32:     "bc",
	PubKeyHash: 0x00,
	ScriptHash: 0x05,
	HDCoinType: 0,
	Params:     &chaincfg.MainNetParams,
}

// Testnet defines the network parameters for the test Bitcoin network
// (version 3).
var Testnet = Network{
	Name:       "testnet",
	Bech32:     "tb",
	PubKeyHash: 0x6f,
	ScriptHash: 0xc4,
	HDCoinType: 1,
	Params:     &chaincfg.TestNet3Params,
}

// Signet defines the network parameters for the default public signet.
var Signet = Network{
	Name:       "signet",
	Bech32:     "tb",
	PubKeyHash: 0x6f,
	ScriptHash: 0xc4,
	HDCoinType: 1,
	Params:     &chaincfg.SigNetParams,
}

// Regtest defines the network parameters for the regression test network.
var Regtest = Network{
	Name:       "regtest",
	Bech32:     "bcrt",
	PubKeyHash: 0x6f,
	ScriptHash: 0xc4,
	HDCoinType: 1,
	Params:     &chaincfg.RegressionNetParams,
}
