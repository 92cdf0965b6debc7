package telegram

import "sync"

var running sync.Map // chatID -> struct{}: a document of this chat is being processed

// markBusy reserves the chat for one run; false if a run is in progress.
func markBusy(chatID int64) bool {
	_, loaded := running.LoadOrStore(chatID, struct{}{})
	return !loaded
}

func clearBusy(chatID int64) { running.Delete(chatID) }
