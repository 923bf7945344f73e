package common

import (
	"errors"
	"net/http"

	"github.com/citizenwallet/governance/internal/dao"
	"github.com/citizenwallet/governance/internal/registry"
	"github.com/citizenwallet/governance/pkg/acl"
	"github.com/citizenwallet/governance/pkg/bridge"
	"github.com/citizenwallet/governance/pkg/voting"
	"github.com/citizenwallet/governance/pkg/whitelist"
)

var statusCodes = []struct {
	err    error
	status int
}{
	{ErrMissingSignature, http.StatusUnauthorized},
	{ErrInvalidSignature, http.StatusUnauthorized},
	{ErrSignatureExpired, http.StatusUnauthorized},

	{acl.ErrUnauthorized, http.StatusForbidden},
	{voting.ErrCreationForbidden, http.StatusForbidden},
	{voting.ErrVoteCastForbidden, http.StatusForbidden},
	{voting.ErrExecutionForbidden, http.StatusForbidden},

	{voting.ErrTimesForbidden, http.StatusBadRequest},
	{voting.ErrParticipationExceeded, http.StatusBadRequest},
	{voting.ErrSupportExceeded, http.StatusBadRequest},
	{voting.ErrZeroDuration, http.StatusBadRequest},
	{voting.ErrInvalidVoterState, http.StatusBadRequest},
	{registry.ErrEmptyName, http.StatusBadRequest},
	{whitelist.ErrStaleCheckpoint, http.StatusBadRequest},
	{ErrInvalidAddress, http.StatusBadRequest},

	{voting.ErrProposalNotFound, http.StatusNotFound},

	{voting.ErrAlreadyInitialized, http.StatusConflict},
	{registry.ErrAlreadyRegistered, http.StatusConflict},

	// failures of the execution bridge are checked before the generic ones
	{dao.ErrActionFailed, http.StatusBadGateway},
	{bridge.ErrTxFailed, http.StatusBadGateway},
	{bridge.ErrNoExecutedLog, http.StatusBadGateway},
	{voting.ErrExecutionFailed, http.StatusBadGateway},

	{voting.ErrNotInitialized, http.StatusServiceUnavailable},
}

// StatusCode maps a governance error to an http status, 500 when unknown
func StatusCode(err error) int {
	for _, s := range statusCodes {
		if errors.Is(err, s.err) {
			return s.status
		}
	}

	return http.StatusInternalServerError
}
