package services

import "errors"

// Validation errors, rejected before any write.
var (
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 1000")
	ErrInvalidTier     = errors.New("invalid tier: must be one of T1..T5")
	ErrInvalidCredits  = errors.New("credits must be a non-negative integer")
	ErrInvalidAmount   = errors.New("transfer amount must be positive")
	ErrSelfTransfer    = errors.New("cannot transfer credits to the same account")
)

// Authorization errors.
var (
	ErrNotAuthorized    = errors.New("insufficient permissions")
	ErrNotOrgMember     = errors.New("user is not a member of the organization")
	ErrNotLicenseHolder = errors.New("user does not hold the parent license")
)

// Not-found errors.
var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrCodeNotFound       = errors.New("redeem code not found")
	ErrPrincipalNotFound  = errors.New("no user found for this credential")
)

// Ledger errors.
var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrTransferTimeout     = errors.New("credit transfer timed out")
)

// Redemption errors.
var (
	ErrCodeRedeemed = errors.New("redeem code has already been redeemed")
	ErrCodeExpired  = errors.New("redeem code has expired")
)

// Sub-license assignment errors.
var ErrEmailTaken = errors.New("email is already assigned to another sub-license")
