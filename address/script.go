package address

import "github.com/btcsuite/btcd/txscript"

// ScriptType is an enumeration for the standard output scripts a swap
// transaction may pay to.
type ScriptType int

const (
	NonStandardScript ScriptType = iota
	P2PkhScript
	P2ShScript
	P2WpkhScript
	P2WshScript
	P2TRScript
)

var scriptTypeNames = map[ScriptType]string{
	NonStandardScript: "nonstandard",
	P2PkhScript:       "p2pkh",
	P2ShScript:        "p2sh",
	P2WpkhScript:      "p2wpkh",
	P2WshScript:       "p2wsh",
	P2TRScript:        "p2tr",
}

func (t ScriptType) String() string {
	if name, ok := scriptTypeNames[t]; ok {
		return name
	}
	return scriptTypeNames[NonStandardScript]
}

// GetScriptType returns the type of the given output script.
func GetScriptType(script []byte) ScriptType {
	switch txscript.GetScriptClass(script) {
	case txscript.PubKeyHashTy:
		return P2PkhScript
	case txscript.ScriptHashTy:
		return P2ShScript
	case txscript.WitnessV0PubKeyHashTy:
		return P2WpkhScript
	case txscript.WitnessV0ScriptHashTy:
		return P2WshScript
	case txscript.WitnessV1TaprootTy:
		return P2TRScript
	default:
		return NonStandardScript
	}
}
