/*
Package swaptx builds, links and finalizes the transactions of a two party
atomic swap on Bitcoin.

The chain is fixed: a Funding transaction, built by an external wallet,
pays to a P2WPKH or 2-of-2 P2WSH output. Lock moves it to the swap script.
Buy spends the swap script through its cooperative branch; otherwise,
once the first timelock expires, Cancel moves the funds to a second swap
script that Refund spends cooperatively or Punish spends alone after the
second timelock.

The funding transaction is wrapped first and its output becomes the input
of the next step.
	funding, err := swaptx.NewFundingFromTx(fundingTx, multisigScript)
	if err != nil {
		return err
	}
	if err := funding.Finalize(); err != nil {
		return err
	}
	prev, err := funding.ConsumableOutput()
	if err != nil {
		return err
	}
Each following step is created from the output of its predecessor. The fee
is paid out of the spent value.
	estimate := fee.Estimate{Strategy: fee.Fixed(2), Politic: fee.Aggressive}
	lock, err := swaptx.NewLock(prev, lockScript, estimate)
	if err != nil {
		return err
	}
Every party signs the transaction, or adds the signature received from the
counterparty with AddSignature. The partial transaction is exchanged with
ToBase64 and FromBase64.
	if err := lock.Sign(privateKey); err != nil {
		return err
	}
Once all signatures are in, Finalize assembles the witness and checks it
against the locking script, and Extract returns the transaction to
broadcast.
	if err := lock.Finalize(); err != nil {
		return err
	}
	tx, err := lock.Extract()
	if err != nil {
		return err
	}
A Buy spending a hash locked branch also needs the secret, recorded with
AddPreimage before finalizing.
*/
package swaptx
