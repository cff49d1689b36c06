package vesting

import "errors"

var (
	// ErrInvalidBeneficiary rejects a deployment whose beneficiary is the null identity.
	ErrInvalidBeneficiary = errors.New("invalid beneficiary")

	// ErrInvalidFunding rejects an initial funding larger than custody can hold.
	ErrInvalidFunding = errors.New("funding exceeds custody range")

	// ErrZeroReleasableBalance is returned by Release when nothing has vested since the
	// last release. No state changes.
	ErrZeroReleasableBalance = errors.New("zero releasable balance")

	// ErrArithmeticOverflow signals a checked amount or timestamp operation that would
	// wrap. The call is aborted and nothing is persisted.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrInvariantViolation signals accounting that contradicts the schedule, such as
	// more released than ever vested. The call is aborted and nothing is persisted.
	ErrInvariantViolation = errors.New("vesting invariant violated")

	// ErrTransferFailed wraps a custody failure during Release. The release accounting
	// is rolled back with it.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrNotFound is returned for an unknown deployment id.
	ErrNotFound = errors.New("vesting deployment not found")

	// ErrDuplicateDeployment is returned when a deployment address is already taken.
	ErrDuplicateDeployment = errors.New("vesting deployment exists")

	// ErrUnknownQuery is returned by Query for an unsupported query name.
	ErrUnknownQuery = errors.New("unknown query")
)

// IsFault reports whether err is an invariant fault rather than a caller error.
func IsFault(err error) bool {
	return errors.Is(err, ErrArithmeticOverflow) || errors.Is(err, ErrInvariantViolation)
}
