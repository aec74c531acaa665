// Package parser декодирует строки Twitch IRC в доменные события model.Event.
package parser

import (
	"io"
	"strconv"
	"strings"
	"time"

	"gitlab.com/zephyrtronium/tmi"

	"twitch-chat-archiver/model"
)

// Decoder превращает сырые строки в события; Now задаёт время декодирования.
type Decoder struct {
	Now func() time.Time
}

var std = Decoder{Now: func() time.Time { return time.Now().UTC() }}

// Decode декодирует строку с текущим временем UTC.
func Decode(raw string) model.Event {
	return std.Decode(raw)
}

// Decode никогда не завершается ошибкой: нераспознанная строка даёт model.Unrecognized.
func (d Decoder) Decode(raw string) model.Event {
	msg := tokenize(raw)
	if msg == nil {
		return model.Unrecognized{}
	}
	now := d.now()
	switch msg.Command {
	case "WHISPER":
		return decodeWhisper(msg, now)
	case "PRIVMSG":
		return decodePrivmsg(msg, now)
	case "USERNOTICE":
		return decodeUserNotice(msg, now)
	default:
		return model.Unrecognized{}
	}
}

func (d Decoder) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now()
}

func tokenize(raw string) (msg *tmi.Message) {
	raw = strings.ReplaceAll(strings.TrimRight(raw, "\r\n"), "\r", "")
	if raw == "" {
		return nil
	}
	// Decode обязан быть тотальным, даже если токенизатор запаникует.
	defer func() {
		if recover() != nil {
			msg = nil
		}
	}()
	msg, err := tmi.Parse(strings.NewReader(raw + "\r\n"))
	if err != nil && err != io.EOF {
		return nil
	}
	return msg
}

func target(msg *tmi.Message) string {
	if len(msg.Params) == 0 {
		return ""
	}
	return msg.Params[0]
}

func tagInt(msg *tmi.Message, name string) int32 {
	v, _ := msg.Tag(name)
	return atoi(v)
}

func atoi(s string) int32 {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

// subCount достаёт число месяцев подписки из тега badge-info=subscriber/N.
func subCount(msg *tmi.Message) int32 {
	info, _ := msg.Tag("badge-info")
	for _, badge := range strings.Split(info, ",") {
		if months, ok := strings.CutPrefix(badge, "subscriber/"); ok {
			return atoi(months)
		}
	}
	return 0
}

func userType(msg *tmi.Message) model.UserType {
	v, ok := msg.Tag("mod")
	if !ok {
		return model.UserTypeNotSet
	}
	if atoi(v) == 1 {
		return model.UserTypeModerator
	}
	return model.UserTypeUser
}

func stripCR(s string) string {
	return strings.ReplaceAll(s, "\r", "")
}
