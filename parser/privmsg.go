package parser

import (
	"strings"
	"time"

	"gitlab.com/zephyrtronium/tmi"

	"twitch-chat-archiver/model"
)

func decodePrivmsg(msg *tmi.Message, now time.Time) model.Event {
	to := target(msg)
	text := stripCR(msg.Trailing)
	if msg.Nick == "" || !strings.HasPrefix(to, "#") || text == "" {
		return model.Unrecognized{}
	}
	return model.ChannelMessage{
		Target:    to,
		Username:  msg.Nick,
		UserID:    tagInt(msg, "user-id"),
		UserType:  userType(msg),
		SubCount:  subCount(msg),
		Text:      text,
		Timestamp: now,
	}
}
