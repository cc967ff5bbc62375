package simnet

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

const (
	msgBlockhashNotFound = "Transaction simulation failed: Blockhash not found"
	msgAlreadyProcessed  = "Transaction simulation failed: This transaction has already been processed"
	msgNoPriorCredit     = "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit."
	msgSigVerification   = "Transaction did not pass signature verification"

	errMissingSignature = "missing required signature for instruction"
	errInvalidData      = "invalid instruction data"
	errNotEnoughKeys    = "insufficient account keys for instruction"
	errAccountInUse     = "account already in use"
	errInvalidAccount   = "invalid account data for instruction"
	errReadonly         = "instruction modified data of a read-only account"

	errTokenNotRentExempt       = "custom program error: 0x0"
	errTokenInsufficientFunds   = "custom program error: 0x1"
	errTokenMintMismatch        = "custom program error: 0x3"
	errTokenOwnerMismatch       = "custom program error: 0x4"
	errTokenAlreadyInUse        = "custom program error: 0x6"
	errTokenInvalidSignerCount  = "custom program error: 0x7"
	errTokenInvalidRequiredSigs = "custom program error: 0x8"
	errTokenDecimalsMismatch    = "custom program error: 0x12"
)

type mintAccount struct {
	authority       solana.PublicKey
	freezeAuthority solana.PublicKey
	decimals        uint8
	supply          uint64
}

type multisigAccount struct {
	m       int
	signers []solana.PublicKey
}

type tokenAccount struct {
	mint   solana.PublicKey
	owner  solana.PublicKey
	amount uint64
}

type state struct {
	lamports      map[solana.PublicKey]uint64
	allocated     map[solana.PublicKey]uint64
	owners        map[solana.PublicKey]solana.PublicKey
	nonces        map[solana.PublicKey]domain.NonceState
	mints         map[solana.PublicKey]mintAccount
	multisigs     map[solana.PublicKey]multisigAccount
	tokenAccounts map[solana.PublicKey]tokenAccount
}

func newState() *state {
	return &state{
		lamports:      make(map[solana.PublicKey]uint64),
		allocated:     make(map[solana.PublicKey]uint64),
		owners:        make(map[solana.PublicKey]solana.PublicKey),
		nonces:        make(map[solana.PublicKey]domain.NonceState),
		mints:         make(map[solana.PublicKey]mintAccount),
		multisigs:     make(map[solana.PublicKey]multisigAccount),
		tokenAccounts: make(map[solana.PublicKey]tokenAccount),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.lamports {
		c.lamports[k] = v
	}
	for k, v := range s.allocated {
		c.allocated[k] = v
	}
	for k, v := range s.owners {
		c.owners[k] = v
	}
	for k, v := range s.nonces {
		c.nonces[k] = v
	}
	for k, v := range s.mints {
		c.mints[k] = v
	}
	for k, v := range s.multisigs {
		c.multisigs[k] = v
	}
	for k, v := range s.tokenAccounts {
		c.tokenAccounts[k] = v
	}
	return c
}

func (s *state) exists(account solana.PublicKey) bool {
	if s.lamports[account] > 0 {
		return true
	}
	if _, ok := s.allocated[account]; ok {
		return true
	}
	if _, ok := s.mints[account]; ok {
		return true
	}
	if _, ok := s.multisigs[account]; ok {
		return true
	}
	_, ok := s.tokenAccounts[account]
	return ok
}

// call is a compiled instruction resolved against the message keys.
type call struct {
	program  solana.PublicKey
	accounts []solana.PublicKey
	signer   []bool
	writable []bool
	data     []byte
}

func (c call) require(n int) error {
	if len(c.accounts) < n {
		return fmt.Errorf(errNotEnoughKeys)
	}
	return nil
}

func resolve(msg solana.Message, ci solana.CompiledInstruction) (call, error) {
	keys := msg.AccountKeys
	if int(ci.ProgramIDIndex) >= len(keys) {
		return call{}, fmt.Errorf("program index out of range")
	}
	numSigners := int(msg.Header.NumRequiredSignatures)
	c := call{
		program: keys[ci.ProgramIDIndex],
		data:    []byte(ci.Data),
	}
	for _, idx := range ci.Accounts {
		i := int(idx)
		if i >= len(keys) {
			return call{}, fmt.Errorf("account index out of range")
		}
		writable := i < len(keys)-int(msg.Header.NumReadonlyUnsignedAccounts)
		if i < numSigners {
			writable = i < numSigners-int(msg.Header.NumReadonlySignedAccounts)
		}
		c.accounts = append(c.accounts, keys[i])
		c.signer = append(c.signer, i < numSigners)
		c.writable = append(c.writable, writable)
	}
	return c, nil
}

func reject(reason string) error {
	return domain.NewRejection(reason)
}

// execute validates and applies a transaction. The state is replaced only
// if every instruction succeeds.
func (l *Ledger) execute(tx *solana.Transaction) error {
	msg := tx.Message
	numSigners := int(msg.Header.NumRequiredSignatures)
	if numSigners == 0 || len(tx.Signatures) != numSigners ||
		len(msg.AccountKeys) < numSigners {
		return reject("invalid transaction: signature count mismatch")
	}

	msgBytes, err := msg.MarshalBinary()
	if err != nil {
		return reject(fmt.Sprintf("invalid transaction: %s", err))
	}
	for i := 0; i < numSigners; i++ {
		key := msg.AccountKeys[i]
		sig := tx.Signatures[i]
		if !ed25519.Verify(key[:], msgBytes, sig[:]) {
			return reject(msgSigVerification)
		}
	}

	calls := make([]call, 0, len(msg.Instructions))
	for _, ci := range msg.Instructions {
		c, err := resolve(msg, ci)
		if err != nil {
			return reject(fmt.Sprintf("invalid transaction: %s", err))
		}
		calls = append(calls, c)
	}

	if len(calls) > 0 && isAdvanceNonce(calls[0]) {
		if len(calls[0].accounts) == 0 {
			return reject(msgBlockhashNotFound)
		}
		nonce, ok := l.state.nonces[calls[0].accounts[0]]
		if !ok || !nonce.Value.Equals(msg.RecentBlockhash) {
			return reject(msgBlockhashNotFound)
		}
	} else if !l.isRecent(msg.RecentBlockhash) {
		return reject(msgBlockhashNotFound)
	}

	if _, ok := l.statuses[tx.Signatures[0]]; ok {
		return reject(msgAlreadyProcessed)
	}

	payer := msg.AccountKeys[0]
	fee := l.opts.LamportsPerSignature * uint64(numSigners)
	if l.state.lamports[payer] < fee {
		return reject(msgNoPriorCredit)
	}

	next := l.state.clone()
	next.lamports[payer] -= fee
	for i, c := range calls {
		if err := l.run(next, c); err != nil {
			return reject(fmt.Sprintf(
				"Transaction simulation failed: Error processing Instruction %d: %s",
				i, err,
			))
		}
	}
	l.state = next
	return nil
}

func (l *Ledger) run(s *state, c call) error {
	switch {
	case c.program.Equals(solana.SystemProgramID):
		return l.runSystem(s, c)
	case c.program.Equals(solana.TokenProgramID):
		return runToken(s, c)
	case c.program.Equals(solana.SPLAssociatedTokenAccountProgramID):
		return runAssociatedTokenAccount(s, c)
	default:
		return fmt.Errorf("Attempt to load a program that does not exist")
	}
}

func isAdvanceNonce(c call) bool {
	return c.program.Equals(solana.SystemProgramID) && len(c.data) == 4 &&
		binary.LittleEndian.Uint32(c.data) == system.Instruction_AdvanceNonceAccount
}

func (l *Ledger) runSystem(s *state, c call) error {
	if len(c.data) < 4 {
		return fmt.Errorf(errInvalidData)
	}

	switch binary.LittleEndian.Uint32(c.data) {
	case system.Instruction_Transfer:
		if len(c.data) != 12 {
			return fmt.Errorf(errInvalidData)
		}
		if err := c.require(2); err != nil {
			return err
		}
		if !c.signer[0] {
			return fmt.Errorf(errMissingSignature)
		}
		if !c.writable[0] || !c.writable[1] {
			return fmt.Errorf(errReadonly)
		}
		from, to := c.accounts[0], c.accounts[1]
		amount := binary.LittleEndian.Uint64(c.data[4:])
		if s.lamports[from] < amount {
			return fmt.Errorf(
				"Transfer: insufficient lamports %d, need %d", s.lamports[from], amount,
			)
		}
		s.lamports[from] -= amount
		s.lamports[to] += amount
		return nil

	case system.Instruction_CreateAccount:
		if len(c.data) != 52 {
			return fmt.Errorf(errInvalidData)
		}
		if err := c.require(2); err != nil {
			return err
		}
		if !c.signer[0] || !c.signer[1] {
			return fmt.Errorf(errMissingSignature)
		}
		from, account := c.accounts[0], c.accounts[1]
		lamports := binary.LittleEndian.Uint64(c.data[4:12])
		space := binary.LittleEndian.Uint64(c.data[12:20])
		if s.exists(account) {
			return fmt.Errorf(errAccountInUse)
		}
		if s.lamports[from] < lamports {
			return fmt.Errorf(
				"Transfer: insufficient lamports %d, need %d", s.lamports[from], lamports,
			)
		}
		s.lamports[from] -= lamports
		s.lamports[account] += lamports
		s.allocated[account] = space
		s.owners[account] = solana.PublicKeyFromBytes(c.data[20:52])
		return nil

	case system.Instruction_InitializeNonceAccount:
		if len(c.data) != 36 {
			return fmt.Errorf(errInvalidData)
		}
		if err := c.require(1); err != nil {
			return err
		}
		account := c.accounts[0]
		if space, ok := s.allocated[account]; !ok || space != domain.NonceAccountLength {
			return fmt.Errorf(errInvalidAccount)
		}
		if _, ok := s.nonces[account]; ok {
			return fmt.Errorf(errAccountInUse)
		}
		if s.lamports[account] < rentExemption(domain.NonceAccountLength) {
			return fmt.Errorf("insufficient funds for rent")
		}
		s.nonces[account] = domain.NonceState{
			Version:              1,
			Authority:            solana.PublicKeyFromBytes(c.data[4:36]),
			Value:                l.nextNonceValue(account),
			LamportsPerSignature: l.opts.LamportsPerSignature,
		}
		return nil

	case system.Instruction_AdvanceNonceAccount:
		if err := c.require(3); err != nil {
			return err
		}
		account, authority := c.accounts[0], c.accounts[2]
		nonce, ok := s.nonces[account]
		if !ok {
			return fmt.Errorf(errInvalidAccount)
		}
		if !nonce.Authority.Equals(authority) || !c.signer[2] {
			return fmt.Errorf(errMissingSignature)
		}
		nonce.Value = l.nextNonceValue(account)
		s.nonces[account] = nonce
		return nil

	default:
		return fmt.Errorf(errInvalidData)
	}
}

func runToken(s *state, c call) error {
	if len(c.data) < 1 {
		return fmt.Errorf(errInvalidData)
	}

	switch c.data[0] {
	case token.Instruction_InitializeMint, token.Instruction_InitializeMint2:
		// decimals, mint authority, optional freeze authority.
		if len(c.data) != 35 && len(c.data) != 67 {
			return fmt.Errorf(errInvalidData)
		}
		if c.data[34] > 1 || (c.data[34] == 1) != (len(c.data) == 67) {
			return fmt.Errorf(errInvalidData)
		}
		if err := c.require(1); err != nil {
			return err
		}
		mintKey := c.accounts[0]
		if err := s.checkTokenOwned(mintKey, domain.MintAccountLength); err != nil {
			return err
		}
		if _, ok := s.mints[mintKey]; ok {
			return fmt.Errorf(errTokenAlreadyInUse)
		}
		mint := mintAccount{
			authority: solana.PublicKeyFromBytes(c.data[2:34]),
			decimals:  c.data[1],
		}
		if len(c.data) == 67 {
			mint.freezeAuthority = solana.PublicKeyFromBytes(c.data[35:67])
		}
		s.mints[mintKey] = mint
		return nil

	case token.Instruction_InitializeMultisig, token.Instruction_InitializeMultisig2:
		if len(c.data) != 2 {
			return fmt.Errorf(errInvalidData)
		}
		// The first variant takes the rent sysvar before the signers.
		first := 1
		if c.data[0] == token.Instruction_InitializeMultisig {
			first = 2
		}
		if err := c.require(first + 1); err != nil {
			return err
		}
		account := c.accounts[0]
		if err := s.checkTokenOwned(account, domain.MultisigAccountLength); err != nil {
			return err
		}
		if _, ok := s.multisigs[account]; ok {
			return fmt.Errorf(errTokenAlreadyInUse)
		}
		signers := append([]solana.PublicKey{}, c.accounts[first:]...)
		if len(signers) > domain.MaxMultisigSigners {
			return fmt.Errorf(errTokenInvalidSignerCount)
		}
		m := int(c.data[1])
		if m < 1 || m > len(signers) {
			return fmt.Errorf(errTokenInvalidRequiredSigs)
		}
		s.multisigs[account] = multisigAccount{m: m, signers: signers}
		return nil

	case token.Instruction_MintTo:
		if len(c.data) != 9 {
			return fmt.Errorf(errInvalidData)
		}
		if err := c.require(3); err != nil {
			return err
		}
		mintKey, destKey := c.accounts[0], c.accounts[1]
		amount := binary.LittleEndian.Uint64(c.data[1:])
		mint, ok := s.mints[mintKey]
		if !ok {
			return fmt.Errorf(errInvalidAccount)
		}
		dest, ok := s.tokenAccounts[destKey]
		if !ok {
			return fmt.Errorf(errInvalidAccount)
		}
		if !dest.mint.Equals(mintKey) {
			return fmt.Errorf(errTokenMintMismatch)
		}
		if err := s.authorize(mint.authority, c, 2); err != nil {
			return err
		}
		mint.supply += amount
		dest.amount += amount
		s.mints[mintKey] = mint
		s.tokenAccounts[destKey] = dest
		return nil

	case token.Instruction_Transfer:
		if len(c.data) != 9 {
			return fmt.Errorf(errInvalidData)
		}
		if err := c.require(3); err != nil {
			return err
		}
		amount := binary.LittleEndian.Uint64(c.data[1:])
		return s.transferTokens(c, c.accounts[0], c.accounts[1], 2, amount, nil)

	case token.Instruction_TransferChecked:
		if len(c.data) != 10 {
			return fmt.Errorf(errInvalidData)
		}
		if err := c.require(4); err != nil {
			return err
		}
		amount := binary.LittleEndian.Uint64(c.data[1:9])
		check := &checked{mint: c.accounts[1], decimals: c.data[9]}
		return s.transferTokens(c, c.accounts[0], c.accounts[2], 3, amount, check)

	default:
		return fmt.Errorf(errInvalidData)
	}
}

// checkTokenOwned checks that the account was created for the token program
// with the given size and holds the rent exempt minimum.
func (s *state) checkTokenOwned(account solana.PublicKey, size uint64) error {
	space, ok := s.allocated[account]
	if !ok || space != size || !s.owners[account].Equals(solana.TokenProgramID) {
		return fmt.Errorf(errInvalidAccount)
	}
	if s.lamports[account] < rentExemption(size) {
		return fmt.Errorf(errTokenNotRentExempt)
	}
	return nil
}

type checked struct {
	mint     solana.PublicKey
	decimals uint8
}

func (s *state) transferTokens(
	c call, sourceKey, destKey solana.PublicKey, ownerIdx int, amount uint64,
	check *checked,
) error {
	source, ok := s.tokenAccounts[sourceKey]
	if !ok {
		return fmt.Errorf(errInvalidAccount)
	}
	dest, ok := s.tokenAccounts[destKey]
	if !ok {
		return fmt.Errorf(errInvalidAccount)
	}
	if !source.mint.Equals(dest.mint) {
		return fmt.Errorf(errTokenMintMismatch)
	}
	if check != nil {
		if !check.mint.Equals(source.mint) {
			return fmt.Errorf(errTokenMintMismatch)
		}
		if s.mints[check.mint].decimals != check.decimals {
			return fmt.Errorf(errTokenDecimalsMismatch)
		}
	}
	if err := s.authorize(source.owner, c, ownerIdx); err != nil {
		return err
	}
	if source.amount < amount {
		return fmt.Errorf(errTokenInsufficientFunds)
	}

	source.amount -= amount
	s.tokenAccounts[sourceKey] = source
	// Self transfers must see the debited source.
	dest = s.tokenAccounts[destKey]
	dest.amount += amount
	s.tokenAccounts[destKey] = dest
	return nil
}

// authorize checks that the account at idx is the expected authority and
// that it signed, either directly or through m of its multisig signers
// listed after it.
func (s *state) authorize(authority solana.PublicKey, c call, idx int) error {
	if !c.accounts[idx].Equals(authority) {
		return fmt.Errorf(errTokenOwnerMismatch)
	}

	ms, ok := s.multisigs[authority]
	if !ok {
		if !c.signer[idx] {
			return fmt.Errorf(errMissingSignature)
		}
		return nil
	}

	signed := make(map[solana.PublicKey]struct{})
	for i := idx + 1; i < len(c.accounts); i++ {
		if !c.signer[i] {
			continue
		}
		for _, key := range ms.signers {
			if key.Equals(c.accounts[i]) {
				signed[key] = struct{}{}
			}
		}
	}
	if len(signed) < ms.m {
		return fmt.Errorf(errMissingSignature)
	}
	return nil
}

func runAssociatedTokenAccount(s *state, c call) error {
	idempotent := false
	switch len(c.data) {
	case 0:
	case 1:
		if c.data[0] > 1 {
			return fmt.Errorf(errInvalidData)
		}
		idempotent = c.data[0] == 1
	default:
		return fmt.Errorf(errInvalidData)
	}
	if err := c.require(4); err != nil {
		return err
	}

	payer, account, wallet, mint := c.accounts[0], c.accounts[1], c.accounts[2], c.accounts[3]
	if !c.signer[0] {
		return fmt.Errorf(errMissingSignature)
	}
	expected, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil || !expected.Equals(account) {
		return fmt.Errorf("Provided seeds do not result in a valid address")
	}
	if _, ok := s.mints[mint]; !ok {
		return fmt.Errorf(errInvalidAccount)
	}
	if _, ok := s.tokenAccounts[account]; ok {
		if idempotent {
			return nil
		}
		return fmt.Errorf(errAccountInUse)
	}

	rent := rentExemption(tokenAccountLength)
	if s.lamports[payer] < rent {
		return fmt.Errorf(
			"Transfer: insufficient lamports %d, need %d", s.lamports[payer], rent,
		)
	}
	s.lamports[payer] -= rent
	s.lamports[account] += rent
	s.tokenAccounts[account] = tokenAccount{mint: mint, owner: wallet}
	return nil
}
