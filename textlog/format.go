package textlog

import (
	"fmt"

	"twitch-chat-archiver/model"
)

// Format возвращает строки лога для события канала; для прочих событий возвращает nil.
func Format(ev model.Event) []string {
	switch ev := ev.(type) {
	case model.ChannelMessage:
		return []string{chatLine(ev.Timestamp.UTC().Format(TimeLayout), ev.UserType, ev.SubCount, ev.Username, ev.Text)}
	case model.SystemNotice:
		ts := ev.Timestamp.UTC().Format(TimeLayout)
		switch {
		case ev.SystemMsg == "":
			return []string{chatLine(ts, ev.UserType, ev.SubCount, ev.Username, ev.Text)}
		case ev.Text != "":
			return []string{
				fmt.Sprintf("%s - [Notice] %s", ts, ev.SystemMsg),
				fmt.Sprintf("%s - [Subscription Message] %s", ts, ev.Text),
			}
		default:
			return []string{fmt.Sprintf("%s - [Notice] %s", ts, ev.SystemMsg)}
		}
	default:
		return nil
	}
}

// FormatAdmin возвращает строку админ-лога для шёпота.
func FormatAdmin(w model.Whisper) string {
	return fmt.Sprintf("%s - %s: %s", w.Timestamp.UTC().Format(TimeLayout), w.Username, w.Text)
}

func chatLine(ts string, typ model.UserType, subs int32, username, text string) string {
	moderator := ""
	if typ == model.UserTypeModerator {
		moderator = "[Moderator]"
	}
	return fmt.Sprintf("%s - %s[%d] %s: %s", ts, moderator, subs, username, text)
}
