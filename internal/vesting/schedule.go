package vesting

import (
	"math/bits"

	"github.com/congo-pay/congo_vesting/internal/identity"
)

// Amount is a quantity of native currency in its smallest unit.
type Amount uint64

// Timestamp is a point in time, or a span of time, in milliseconds.
type Timestamp uint64

// MillisPerSecond converts a duration given in seconds to the clock resolution.
const MillisPerSecond = 1000

// Ledger is the state of one linear vesting schedule.
//
// The allocation being vested is not stored: it is read live from custody on every
// evaluation, so funds deposited after StartTime are vested retroactively. See
// Allocation: the schedule runs over the held balance plus ReleasedTotal, never the
// held balance alone, so a release does not shrink what has vested.
type Ledger struct {
	StartTime     Timestamp
	Duration      Timestamp
	ReleasedTotal Amount
	Beneficiary   identity.ID
	// Controller records the deployer. No operation consults it.
	Controller identity.ID
}

// Transfer is the payout a release asks custody to execute.
type Transfer struct {
	To     identity.ID
	Amount Amount
}

// New starts a schedule at now that fully vests durationSeconds later.
func New(beneficiary, controller identity.ID, durationSeconds uint64, now Timestamp) (Ledger, error) {
	if beneficiary.IsZero() {
		return Ledger{}, ErrInvalidBeneficiary
	}
	hi, duration := bits.Mul64(durationSeconds, MillisPerSecond)
	if hi != 0 {
		return Ledger{}, ErrArithmeticOverflow
	}
	l := Ledger{
		StartTime:   now,
		Duration:    Timestamp(duration),
		Beneficiary: beneficiary,
		Controller:  controller,
	}
	if _, err := l.EndTime(); err != nil {
		return Ledger{}, err
	}
	return l, nil
}

// EndTime is StartTime + Duration.
func (l Ledger) EndTime() (Timestamp, error) {
	end, carry := bits.Add64(uint64(l.StartTime), uint64(l.Duration), 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return Timestamp(end), nil
}

// TimeRemaining is the time left until EndTime, or zero once it has passed.
func (l Ledger) TimeRemaining(now Timestamp) (Timestamp, error) {
	end, err := l.EndTime()
	if err != nil {
		return 0, err
	}
	if now >= end {
		return 0, nil
	}
	return end - now, nil
}

// Schedule returns how much of total has vested at the given time.
//
// Before StartTime nothing has vested and from EndTime on everything has. In between
// the vested share grows linearly and is truncated toward zero.
func (l Ledger) Schedule(total Amount, at Timestamp) (Amount, error) {
	end, err := l.EndTime()
	if err != nil {
		return 0, err
	}
	if at < l.StartTime {
		return 0, nil
	}
	// A zero Duration makes end == StartTime, so the division below is unreachable for it.
	if at >= end {
		return total, nil
	}

	elapsed := uint64(at - l.StartTime)
	hi, lo := bits.Mul64(uint64(total), elapsed)
	// elapsed < Duration keeps hi below Duration and the quotient within 64 bits.
	if hi >= uint64(l.Duration) {
		return 0, ErrArithmeticOverflow
	}
	vested, _ := bits.Div64(hi, lo, uint64(l.Duration))
	return Amount(vested), nil
}

// Allocation is the total ever placed under the schedule: what custody holds now
// plus what has already been paid out.
func (l Ledger) Allocation(held Amount) (Amount, error) {
	total, carry := bits.Add64(uint64(held), uint64(l.ReleasedTotal), 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return Amount(total), nil
}

// VestedAmount is the schedule evaluated over the live allocation.
func (l Ledger) VestedAmount(held Amount, now Timestamp) (Amount, error) {
	total, err := l.Allocation(held)
	if err != nil {
		return 0, err
	}
	return l.Schedule(total, now)
}

// ReleasableAmount is what has vested but not yet been paid out.
func (l Ledger) ReleasableAmount(held Amount, now Timestamp) (Amount, error) {
	vested, err := l.VestedAmount(held, now)
	if err != nil {
		return 0, err
	}
	if l.ReleasedTotal > vested {
		return 0, ErrInvariantViolation
	}
	return vested - l.ReleasedTotal, nil
}

// Release computes the next state and the payout owed to the beneficiary. The
// receiver is left untouched; the caller commits the returned state only once
// custody has executed the transfer.
func (l Ledger) Release(held Amount, now Timestamp) (Ledger, Transfer, error) {
	releasable, err := l.ReleasableAmount(held, now)
	if err != nil {
		return l, Transfer{}, err
	}
	if releasable == 0 {
		return l, Transfer{}, ErrZeroReleasableBalance
	}
	released, carry := bits.Add64(uint64(l.ReleasedTotal), uint64(releasable), 0)
	if carry != 0 {
		return l, Transfer{}, ErrArithmeticOverflow
	}
	next := l
	next.ReleasedTotal = Amount(released)
	return next, Transfer{To: l.Beneficiary, Amount: releasable}, nil
}

// Phase names the release state of the schedule.
type Phase string

const (
	// PhasePending means nothing is currently releasable.
	PhasePending Phase = "pending"
	// PhaseReleasable means a release would pay out a positive amount.
	PhaseReleasable Phase = "releasable"
)

// PhaseOf classifies a releasable amount.
func PhaseOf(releasable Amount) Phase {
	if releasable == 0 {
		return PhasePending
	}
	return PhaseReleasable
}
