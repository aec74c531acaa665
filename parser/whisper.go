package parser

import (
	"time"

	"gitlab.com/zephyrtronium/tmi"

	"twitch-chat-archiver/model"
)

func decodeWhisper(msg *tmi.Message, now time.Time) model.Event {
	text := stripCR(msg.Trailing)
	if msg.Nick == "" || text == "" {
		return model.Unrecognized{}
	}
	return model.Whisper{
		UserID:    tagInt(msg, "user-id"),
		Username:  msg.Nick,
		Target:    target(msg),
		Text:      text,
		Timestamp: now,
	}
}
