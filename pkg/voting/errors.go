package voting

import (
	"errors"

	"github.com/citizenwallet/governance/pkg/acl"
)

var (
	ErrUnauthorized = acl.ErrUnauthorized

	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")

	ErrCreationForbidden  = errors.New("vote creation forbidden")
	ErrTimesForbidden     = errors.New("vote times forbidden")
	ErrVoteCastForbidden  = errors.New("vote cast forbidden")
	ErrExecutionForbidden = errors.New("vote execution forbidden")
	ErrExecutionFailed    = errors.New("vote execution failed")

	ErrParticipationExceeded = errors.New("participation required exceeds 100%")
	ErrSupportExceeded       = errors.New("support required exceeds 100%")
	ErrZeroDuration          = errors.New("min duration must be positive")

	ErrInvalidVoterState = errors.New("invalid voter state")
	ErrProposalNotFound  = errors.New("proposal not found")
)
