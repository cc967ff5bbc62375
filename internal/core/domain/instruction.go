package domain

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Instruction is an immutable copy of a program instruction. It implements
// solana.Instruction so that it can be fed back to the message compiler.
type Instruction struct {
	Program solana.PublicKey
	Metas   []solana.AccountMeta
	Payload []byte
}

// NewInstruction snapshots the given instruction.
func NewInstruction(ix solana.Instruction) (Instruction, error) {
	if ix == nil {
		return Instruction{}, fmt.Errorf("missing instruction")
	}
	data, err := ix.Data()
	if err != nil {
		return Instruction{}, fmt.Errorf("failed to encode instruction data: %w", err)
	}
	accounts := ix.Accounts()
	metas := make([]solana.AccountMeta, 0, len(accounts))
	for _, a := range accounts {
		if a == nil {
			return Instruction{}, fmt.Errorf("instruction has nil account meta")
		}
		metas = append(metas, *a)
	}
	return Instruction{
		Program: ix.ProgramID(),
		Metas:   metas,
		Payload: append([]byte{}, data...),
	}, nil
}

// NewInstructions snapshots a list of instructions.
func NewInstructions(list []solana.Instruction) ([]Instruction, error) {
	ixs := make([]Instruction, 0, len(list))
	for i, ix := range list {
		snap, err := NewInstruction(ix)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		ixs = append(ixs, snap)
	}
	return ixs, nil
}

func (i Instruction) ProgramID() solana.PublicKey {
	return i.Program
}

// Accounts returns fresh metas at every call, the compiler mutates them.
func (i Instruction) Accounts() []*solana.AccountMeta {
	accounts := make([]*solana.AccountMeta, 0, len(i.Metas))
	for _, m := range i.Metas {
		meta := m
		accounts = append(accounts, &meta)
	}
	return accounts
}

func (i Instruction) Data() ([]byte, error) {
	return append([]byte{}, i.Payload...), nil
}

// Signers returns the accounts the instruction requires a signature from.
func (i Instruction) Signers() []solana.PublicKey {
	signers := make([]solana.PublicKey, 0)
	for _, m := range i.Metas {
		if m.IsSigner {
			signers = append(signers, m.PublicKey)
		}
	}
	return signers
}

func (i Instruction) Equal(other Instruction) bool {
	if !i.Program.Equals(other.Program) {
		return false
	}
	if !bytes.Equal(i.Payload, other.Payload) {
		return false
	}
	if len(i.Metas) != len(other.Metas) {
		return false
	}
	for j, m := range i.Metas {
		o := other.Metas[j]
		if !m.PublicKey.Equals(o.PublicKey) ||
			m.IsSigner != o.IsSigner || m.IsWritable != o.IsWritable {
			return false
		}
	}
	return true
}

func (i Instruction) clone() Instruction {
	return Instruction{
		Program: i.Program,
		Metas:   append([]solana.AccountMeta{}, i.Metas...),
		Payload: append([]byte{}, i.Payload...),
	}
}

func cloneInstructions(list []Instruction) []Instruction {
	ixs := make([]Instruction, 0, len(list))
	for _, ix := range list {
		ixs = append(ixs, ix.clone())
	}
	return ixs
}
