package ledger

import "github.com/pkg/errors"

// Errors returned by the runtime. Programs may return them from ProcessInstruction, and callers should compare with
// errors.Cause.
var (
	ErrAccountAlreadyInUse    = errors.New("account already in use")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrMissingSigner          = errors.New("missing required signature")
	ErrInvalidSignature       = errors.New("invalid transaction signature")
	ErrMaxSeedLengthExceeded  = errors.New("seed exceeds maximum length")
	ErrMaxSeedsExceeded       = errors.New("too many seeds")
	ErrInvalidSeeds           = errors.New("seeds do not produce a valid program address")
	ErrUnknownProgram         = errors.New("unknown program")
	ErrReadonlyAccount        = errors.New("account is not writable")
	ErrExternalAccountData    = errors.New("program does not own account")
	ErrAccountDataSizeChanged = errors.New("account data size may not change")
	ErrAccountNotFound        = errors.New("account not found")
	ErrInvalidAccountSpace    = errors.New("invalid account space")
	ErrDuplicateTransaction   = errors.New("transaction already processed")
	ErrInvalidInstructionData = errors.New("invalid instruction data")
	ErrNotEnoughAccounts      = errors.New("not enough account keys given to the instruction")
)
