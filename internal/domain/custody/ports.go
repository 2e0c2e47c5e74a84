// Package custody declares the collaborators the engine moves assets and claims through.
// Implementations may call back into the engine before returning.
package custody

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrTransferRejected is wrapped by rail implementations when a transfer is refused
// (insufficient balance, wrong owner, unknown item).
var ErrTransferRejected = errors.New("transfer rejected")

// FeePolicy supplies the origination fee rate in basis points (0-10000).
type FeePolicy interface {
	OriginationFeeBps(ctx context.Context) (uint64, error)
}

// FixedFee is a constant FeePolicy.
type FixedFee uint64

func (f FixedFee) OriginationFeeBps(context.Context) (uint64, error) { return uint64(f), nil }

// NoteIssuer mints and burns the claim tokens bound to a loan.
type NoteIssuer interface {
	Mint(ctx context.Context, owner common.Address, loanID uint64) (uint64, error)
	Burn(ctx context.Context, noteID uint64) error
	OwnerOf(ctx context.Context, noteID uint64) (common.Address, error)
	BalanceOf(ctx context.Context, owner common.Address) (uint64, error)
	NoteOfOwnerByIndex(ctx context.Context, owner common.Address, index uint64) (uint64, error)
	LoanIDByNoteID(ctx context.Context, noteID uint64) (uint64, error)
}

// ValueToken moves fungible currency.
type ValueToken interface {
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	BalanceOf(ctx context.Context, holder common.Address) (*uint256.Int, error)
}

// OwnershipToken moves collateral items of one collection.
type OwnershipToken interface {
	Transfer(ctx context.Context, from, to common.Address, item *uint256.Int) error
	OwnerOf(ctx context.Context, item *uint256.Int) (common.Address, error)
}

// Rails resolves the token primitives for a currency or collection identifier.
type Rails interface {
	ValueToken(currency common.Address) ValueToken
	OwnershipToken(collection common.Address) OwnershipToken
}
