/*

Typed failure conditions. Every state-mutating entry point fails with one
of these, carrying the structured context a caller needs to correct and
resubmit (requested vs. available, expected vs. actual, next eligible
time). No bare booleans, no generic failures.

*/

package types

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

// Sentinel guards for trivially-empty inputs.
var (
	ErrZeroShares  = errors.New("share amount must be positive")
	ErrZeroAmounts = errors.New("computed withdrawal amounts are both zero")
)

// InvalidRatioError reports a submitted signal outside (0, MaxCurrentRatio].
type InvalidRatioError struct {
	Value sdkmath.LegacyDec
	Max   sdkmath.LegacyDec
}

func (e *InvalidRatioError) Error() string {
	return fmt.Sprintf("current ratio %s outside (0, %s]", e.Value, e.Max)
}

// ParamBoundError reports a pool parameter outside its global bound.
type ParamBoundError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParamBoundError) Error() string {
	return fmt.Sprintf("pool parameter %s=%s invalid: %s", e.Field, e.Value, e.Reason)
}

// CooldownError reports a poke before MinPeriod has elapsed.
type CooldownError struct {
	Now          time.Time
	NextEligible time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active: now %s, next eligible %s",
		e.Now.UTC().Format(time.RFC3339), e.NextEligible.UTC().Format(time.RFC3339))
}

// InsufficientSharesError reports a withdrawal exceeding the caller balance.
type InsufficientSharesError struct {
	Requested sdkmath.Int
	Available sdkmath.Int
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares: requested %s, available %s", e.Requested, e.Available)
}

// InvalidYieldSourceError reports an adapter that is not usable at all.
type InvalidYieldSourceError struct {
	Reason string
}

func (e *InvalidYieldSourceError) Error() string {
	return "invalid yield source: " + e.Reason
}

// YieldSourceMismatchError reports an adapter whose backing asset does not
// match the target currency. Distinct from InvalidYieldSourceError.
type YieldSourceMismatchError struct {
	Want Asset
	Got  Asset
}

func (e *YieldSourceMismatchError) Error() string {
	return fmt.Sprintf("yield source backing asset mismatch: want %s, got %s", e.Want, e.Got)
}

// YieldSourceActiveError reports an attempt to clear a live source instead
// of migrating away from it.
type YieldSourceActiveError struct {
	Asset Asset
}

func (e *YieldSourceActiveError) Error() string {
	return fmt.Sprintf("yield source for %s is active and cannot be cleared, migrate instead", e.Asset)
}

// ZeroSharesReceivedError reports a migration destination returning zero
// shares for a non-zero deposit, the symptom of a donation-inflated share
// price. The migration is rolled back in full.
type ZeroSharesReceivedError struct {
	Deposited sdkmath.Int
}

func (e *ZeroSharesReceivedError) Error() string {
	return fmt.Sprintf("yield source returned zero shares for deposit of %s", e.Deposited)
}

// SlippageError reports a pool price outside the caller's tolerance.
type SlippageError struct {
	Expected     sdkmath.LegacyDec
	Actual       sdkmath.LegacyDec
	ToleranceBps uint32
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("price slippage exceeded: expected %s, actual %s, tolerance %d bps",
		e.Expected, e.Actual, e.ToleranceBps)
}

// InsufficientPaymentError reports a native-asset payment below the
// required deposit amount.
type InsufficientPaymentError struct {
	Required sdkmath.Int
	Provided sdkmath.Int
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: required %s, provided %s", e.Required, e.Provided)
}

// NativeTransferError reports a failed asset transfer (refund or treasury
// payout). The surrounding operation is rolled back in full.
type NativeTransferError struct {
	To     Address
	Amount sdkmath.Int
	Cause  error
}

func (e *NativeTransferError) Error() string {
	return fmt.Sprintf("transfer of %s to %s failed: %v", e.Amount, e.To, e.Cause)
}

func (e *NativeTransferError) Unwrap() error { return e.Cause }

// PoolConfiguredError reports a repeated activation of the same pool.
type PoolConfiguredError struct {
	PoolID PoolID
}

func (e *PoolConfiguredError) Error() string {
	return fmt.Sprintf("pool %d is already configured", e.PoolID)
}

// PoolNotFoundError reports an operation against an unactivated pool.
type PoolNotFoundError struct {
	PoolID PoolID
}

func (e *PoolNotFoundError) Error() string {
	return fmt.Sprintf("pool %d is not configured", e.PoolID)
}

// UnauthorizedError reports a caller missing the role a mutation requires.
type UnauthorizedError struct {
	Caller Address
	Role   string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("caller %s lacks role %s", e.Caller, e.Role)
}

// PausedError reports a mutation against a paused pool.
type PausedError struct {
	PoolID PoolID
}

func (e *PausedError) Error() string {
	return fmt.Sprintf("pool %d is paused", e.PoolID)
}
