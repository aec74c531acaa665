package parser

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"twitch-chat-archiver/model"
)

var fixed = time.Date(2024, 3, 9, 17, 4, 5, 0, time.UTC)

func testDecoder() Decoder {
	return Decoder{Now: func() time.Time { return fixed }}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want model.Event
	}{
		{
			name: "privmsg-moderator-sub",
			raw:  `@badge-info=subscriber/3;badges=moderator/1,subscriber/3;color=#FF0000;display-name=Alice;mod=1;room-id=1;subscriber=1;user-id=42;user-type=mod :alice!alice@alice.tmi.twitch.tv PRIVMSG #mychannel :hello`,
			want: model.ChannelMessage{
				Target:    "#mychannel",
				Username:  "alice",
				UserID:    42,
				UserType:  model.UserTypeModerator,
				SubCount:  3,
				Text:      "hello",
				Timestamp: fixed,
			},
		},
		{
			name: "privmsg-no-badge-info",
			raw:  `@badges=;color=;display-name=Bob;mod=0;user-id=7 :bob!bob@bob.tmi.twitch.tv PRIVMSG #chan :hi there :)`,
			want: model.ChannelMessage{
				Target:    "#chan",
				Username:  "bob",
				UserID:    7,
				UserType:  model.UserTypeUser,
				Text:      "hi there :)",
				Timestamp: fixed,
			},
		},
		{
			name: "privmsg-no-mod-tag",
			raw:  `@user-id=7 :bob!bob@bob.tmi.twitch.tv PRIVMSG #chan :hi`,
			want: model.ChannelMessage{
				Target:    "#chan",
				Username:  "bob",
				UserID:    7,
				UserType:  model.UserTypeNotSet,
				Text:      "hi",
				Timestamp: fixed,
			},
		},
		{
			name: "privmsg-bad-numbers",
			raw:  `@badge-info=subscriber/lots;mod=x;user-id=abc :bob!bob@bob.tmi.twitch.tv PRIVMSG #chan :hi`,
			want: model.ChannelMessage{
				Target:    "#chan",
				Username:  "bob",
				UserType:  model.UserTypeUser,
				Text:      "hi",
				Timestamp: fixed,
			},
		},
		{
			name: "privmsg-carriage-return",
			raw:  "@mod=0;user-id=7 :bob!bob@bob.tmi.twitch.tv PRIVMSG #chan :hi\r\n",
			want: model.ChannelMessage{
				Target:    "#chan",
				Username:  "bob",
				UserID:    7,
				UserType:  model.UserTypeUser,
				Text:      "hi",
				Timestamp: fixed,
			},
		},
		{
			name: "privmsg-embedded-carriage-return",
			raw:  "@mod=0;user-id=7 :bob!bob@bob.tmi.twitch.tv PRIVMSG #chan :hi\rthere",
			want: model.ChannelMessage{
				Target:    "#chan",
				Username:  "bob",
				UserID:    7,
				UserType:  model.UserTypeUser,
				Text:      "hithere",
				Timestamp: fixed,
			},
		},
		{
			name: "whisper-embedded-carriage-return",
			raw:  "@user-id=123 :admin!admin@admin.tmi.twitch.tv WHISPER logbot :pa\ruse",
			want: model.Whisper{
				UserID:    123,
				Username:  "admin",
				Target:    "logbot",
				Text:      "pause",
				Timestamp: fixed,
			},
		},
		{
			name: "whisper",
			raw:  `@badges=;color=;display-name=Admin;emotes=;message-id=3;thread-id=123_456;turbo=0;user-id=123;user-type= :admin!admin@admin.tmi.twitch.tv WHISPER logbot :join #foo bar`,
			want: model.Whisper{
				UserID:    123,
				Username:  "admin",
				Target:    "logbot",
				Text:      "join #foo bar",
				Timestamp: fixed,
			},
		},
		{
			name: "resub-with-message",
			raw:  `@badge-info=subscriber/5;badges=subscriber/3;display-name=Bob;login=bob;mod=0;msg-id=resub;room-id=1;system-msg=bob\ssubscribed\sfor\s5\smonths!;user-id=77 :tmi.twitch.tv USERNOTICE #chan :great stream`,
			want: model.SystemNotice{
				Target:    "#chan",
				Username:  "bob",
				UserID:    77,
				UserType:  model.UserTypeUser,
				SubCount:  5,
				SystemMsg: "bob subscribed for 5 months!",
				Text:      "great stream",
				Timestamp: fixed,
			},
		},
		{
			name: "subgift-without-message",
			raw:  `@badge-info=;badges=;login=carol;mod=1;msg-id=subgift;room-id=1;system-msg=carol\sgifted\sa\sTier\s1\ssub\sto\sdave!;user-id=88 :tmi.twitch.tv USERNOTICE #chan`,
			want: model.SystemNotice{
				Target:    "#chan",
				Username:  "carol",
				UserID:    88,
				UserType:  model.UserTypeModerator,
				SystemMsg: "carol gifted a Tier 1 sub to dave!",
				Timestamp: fixed,
			},
		},
		{
			name: "anonymous-gifter",
			raw:  `@badge-info=subscriber/12;badges=;login=ananonymousgifter;mod=1;msg-id=subgift;room-id=1;system-msg=An\sanonymous\suser\sgifted\sa\ssub!;user-id=274598607 :tmi.twitch.tv USERNOTICE #chan`,
			want: model.SystemNotice{
				Target:    "#chan",
				Username:  "anonymous",
				UserType:  model.UserTypeNotSet,
				SystemMsg: "An anonymous user gifted a sub!",
				Timestamp: fixed,
			},
		},
		{
			name: "anonymous-cheerer",
			raw:  `@badge-info=subscriber/2;login=ananonymouscheerer;mod=0;system-msg=cheer;user-id=9 :tmi.twitch.tv USERNOTICE #chan :cheer100`,
			want: model.SystemNotice{
				Target:    "#chan",
				Username:  "anonymous",
				UserType:  model.UserTypeNotSet,
				SystemMsg: "cheer",
				Text:      "cheer100",
				Timestamp: fixed,
			},
		},
		{
			name: "usernotice-without-system-msg",
			raw:  `@login=bob;mod=0;user-id=77 :tmi.twitch.tv USERNOTICE #chan :hi`,
			want: model.Unrecognized{},
		},
		{
			name: "privmsg-to-user",
			raw:  `@mod=0;user-id=7 :bob!bob@bob.tmi.twitch.tv PRIVMSG notachannel :hi`,
			want: model.Unrecognized{},
		},
		{
			name: "other-command",
			raw:  `:tmi.twitch.tv PING :tmi.twitch.tv`,
			want: model.Unrecognized{},
		},
		{
			name: "roomstate",
			raw:  `@emote-only=0;room-id=1 :tmi.twitch.tv ROOMSTATE #chan`,
			want: model.Unrecognized{},
		},
		{
			name: "empty",
			raw:  "",
			want: model.Unrecognized{},
		},
		{
			name: "garbage",
			raw:  "@@@ :: !!",
			want: model.Unrecognized{},
		},
	}
	dec := testDecoder()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := dec.Decode(c.raw)
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("wrong event (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeAnonymousIgnoresTags(t *testing.T) {
	ids := []string{"0", "1", "274598607", "not-a-number"}
	mods := []string{"0", "1", ""}
	dec := testDecoder()
	for _, id := range ids {
		for _, mod := range mods {
			raw := `@badge-info=subscriber/40;login=ananonymousgifter;mod=` + mod + `;system-msg=x;user-id=` + id + ` :tmi.twitch.tv USERNOTICE #chan`
			ev, ok := dec.Decode(raw).(model.SystemNotice)
			if !ok {
				t.Fatalf("user-id=%s mod=%s: not decoded as notice", id, mod)
			}
			if ev.UserID != 0 || ev.UserType != model.UserTypeNotSet || ev.Username != "anonymous" || ev.SubCount != 0 {
				t.Errorf("user-id=%s mod=%s: anonymity not masked: %+v", id, mod, ev)
			}
		}
	}
}

func TestDecodeTotal(t *testing.T) {
	lines := []string{
		"PRIVMSG",
		"WHISPER",
		"USERNOTICE",
		"@",
		":",
		"@a=b",
		"@a=b :",
		":x!y@z PRIVMSG",
		":x!y@z PRIVMSG #",
		"@login=;system-msg= :tmi.twitch.tv USERNOTICE",
		"\r\n",
		"\x00\x01\x02",
	}
	for _, raw := range lines {
		// Decode не должен паниковать ни на каком входе.
		_ = Decode(raw)
	}
}

func TestDecodeUsesWallClock(t *testing.T) {
	before := time.Now().UTC()
	ev, ok := Decode(`@mod=0;user-id=1 :a!a@a.tmi.twitch.tv PRIVMSG #c :x`).(model.ChannelMessage)
	if !ok {
		t.Fatal("expected channel message")
	}
	if ev.Timestamp.Before(before) || ev.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp %v is not a UTC decode-time clock", ev.Timestamp)
	}
}
