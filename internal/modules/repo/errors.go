package repo

import "errors"

var (
	ErrLastOwner       = errors.New("cannot remove the last owner")
	ErrInviteAccepted  = errors.New("invite already accepted")
	ErrInviteExpired   = errors.New("invite expired")
	ErrAgentNotInScope = errors.New("agent not in workspace")
)
