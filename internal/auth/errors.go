package auth

import "roomsync/internal/utils"

var (
	ErrNoPrompter = utils.ErrAuthRequired.WithDetails("no password prompt available")
	ErrCancelled  = utils.ErrAuthRequired.WithDetails("password entry cancelled")
	ErrRejected   = utils.ErrAuthFailed.WithDetails("room password rejected")
)
