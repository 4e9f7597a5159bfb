package storage

import "roomsync/internal/utils"

var (
	ErrNotConnected = utils.NewChatError(utils.KindStorage, "store not connected")
	ErrQueueFull    = utils.NewChatError(utils.KindStorage, "state write queue full")
	ErrWriterClosed = utils.NewChatError(utils.KindStorage, "state writer stopped")
)

func storageError(op string, err error) error {
	return utils.NewChatError(utils.KindStorage, op).Wrap(err)
}
