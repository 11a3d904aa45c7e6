package swaptx

// Kind identifies the step of the swap a transaction implements. It selects
// the strategy used to finalize it.
type Kind uint8

const (
	// Funding is the chain root, funded externally.
	Funding Kind = iota + 1
	// Lock spends the funding output into the swap script.
	Lock
	// Buy spends the lock output through its cooperative branch.
	Buy
	// Cancel spends the lock output through its timelocked branch.
	Cancel
	// Refund spends the cancel output through its cooperative branch.
	Refund
	// Punish spends the cancel output through its timelocked branch.
	Punish
)

var kindNames = map[Kind]string{
	Funding: "funding",
	Lock:    "lock",
	Buy:     "buy",
	Cancel:  "cancel",
	Refund:  "refund",
	Punish:  "punish",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsValid returns whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}
