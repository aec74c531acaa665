package parser

import (
	"strings"
	"time"

	"gitlab.com/zephyrtronium/tmi"

	"twitch-chat-archiver/model"
)

// Логины, под которыми Twitch присылает анонимные подарки и читы.
var anonymousLogins = map[string]bool{
	"ananonymousgifter":  true,
	"ananonymouscheerer": true,
}

func decodeUserNotice(msg *tmi.Message, now time.Time) model.Event {
	to := target(msg)
	login, _ := msg.Tag("login")
	system, ok := msg.Tag("system-msg")
	if !ok || login == "" || !strings.HasPrefix(to, "#") {
		return model.Unrecognized{}
	}

	n := model.SystemNotice{
		Target:    to,
		Username:  login,
		UserID:    tagInt(msg, "user-id"),
		UserType:  userType(msg),
		SubCount:  subCount(msg),
		SystemMsg: strings.ReplaceAll(system, `\s`, " "),
		Text:      stripCR(msg.Trailing),
		Timestamp: now,
	}
	if anonymousLogins[login] {
		n.UserID = 0
		n.UserType = model.UserTypeNotSet
		n.Username = "anonymous"
		n.SubCount = 0
	}
	return n
}
