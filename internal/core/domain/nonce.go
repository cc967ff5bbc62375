package domain

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

const (
	// NonceAccountLength is the size in bytes of a system nonce account.
	NonceAccountLength = 80

	nonceStateInitialized = 1
)

// NonceState is the content of an initialized nonce account.
type NonceState struct {
	Version              uint32
	Authority            solana.PublicKey
	Value                solana.Hash
	LamportsPerSignature uint64
}

// DecodeNonceAccount parses the data of a system nonce account.
func DecodeNonceAccount(data []byte) (*NonceState, error) {
	if len(data) != NonceAccountLength {
		return nil, fmt.Errorf(
			"invalid nonce account size: got %d, expected %d",
			len(data), NonceAccountLength,
		)
	}
	dec := bin.NewBinDecoder(data)
	version, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	state, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	if state != nonceStateInitialized {
		return nil, fmt.Errorf("nonce account is not initialized")
	}
	authority, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, err
	}
	value, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, err
	}
	lamportsPerSig, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, err
	}
	return &NonceState{
		Version:              version,
		Authority:            solana.PublicKeyFromBytes(authority),
		Value:                solana.HashFromBytes(value),
		LamportsPerSignature: lamportsPerSig,
	}, nil
}

// EncodeNonceAccount is the inverse of DecodeNonceAccount.
func EncodeNonceAccount(state NonceState) []byte {
	buf := make([]byte, NonceAccountLength)
	binary.LittleEndian.PutUint32(buf[0:4], state.Version)
	binary.LittleEndian.PutUint32(buf[4:8], nonceStateInitialized)
	copy(buf[8:40], state.Authority[:])
	copy(buf[40:72], state.Value[:])
	binary.LittleEndian.PutUint64(buf[72:80], state.LamportsPerSignature)
	return buf
}

// NewAdvanceNonceInstruction returns the instruction that consumes the
// current value of the given nonce account.
func NewAdvanceNonceInstruction(
	nonceAccount, authority solana.PublicKey,
) (Instruction, error) {
	return NewInstruction(system.NewAdvanceNonceAccountInstruction(
		nonceAccount, solana.SysVarRecentBlockHashesPubkey, authority,
	).Build())
}

// IsAdvanceNonce returns whether the instruction is a system nonce advance.
func IsAdvanceNonce(ix solana.Instruction) bool {
	if !ix.ProgramID().Equals(solana.SystemProgramID) {
		return false
	}
	data, err := ix.Data()
	if err != nil || len(data) != 4 {
		return false
	}
	return binary.LittleEndian.Uint32(data) == system.Instruction_AdvanceNonceAccount
}
