// Package u256 holds helpers for 256-bit unsigned amounts: checked arithmetic,
// decimal parsing and the gorm serializer used to persist them.
package u256

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var ErrOverflow = errors.New("u256: arithmetic overflow")

// Zero returns a fresh zero value.
func Zero() *uint256.Int { return new(uint256.Int) }

// Of returns v as a fresh 256-bit value.
func Of(v uint64) *uint256.Int { return uint256.NewInt(v) }

// Parse reads a base-10 string. Empty input is rejected.
func Parse(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("u256: empty value")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("u256: parse %q: %w", s, err)
	}
	return v, nil
}

// MustParse is Parse for constants and already-validated input.
func MustParse(s string) *uint256.Int {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// OrZero never returns nil.
func OrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return Zero()
	}
	return v
}

// String renders nil as "0".
func String(v *uint256.Int) string { return OrZero(v).Dec() }

func Add(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(OrZero(a), OrZero(b))
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	out, underflow := new(uint256.Int).SubOverflow(OrZero(a), OrZero(b))
	if underflow {
		return nil, ErrOverflow
	}
	return out, nil
}

func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(OrZero(a), OrZero(b))
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// Div truncates toward zero. Division by zero yields zero, matching uint256.
func Div(a, b *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(OrZero(a), OrZero(b))
}

// MulDiv computes floor(a*b/d) with an overflow check on the product.
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	p, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	return Div(p, d), nil
}
