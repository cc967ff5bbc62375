package domain

const (
	// MintAccountLength is the size in bytes of a token mint account.
	MintAccountLength = 82
	// MultisigAccountLength is the size in bytes of a token multisig account.
	MultisigAccountLength = 355
	// MaxMultisigSigners is the most keys a token multisig can list.
	MaxMultisigSigners = 11
)
