package client

import "roomsync/internal/utils"

var (
	ErrNotStarted     = utils.NewChatError(utils.KindState, "no room selected")
	ErrSessionStopped = utils.NewChatError(utils.KindState, "room session stopped")
	ErrClaimFailed    = utils.NewChatError(utils.KindAuthFailed, "claim failed")
)
