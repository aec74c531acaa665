package model

import "time"

// UserType задаёт роль отправителя в канале.
type UserType int

const (
	UserTypeNotSet UserType = iota
	UserTypeUser
	UserTypeModerator
)

// String возвращает текстовое представление, которое пишется в БД.
func (t UserType) String() string {
	switch t {
	case UserTypeUser:
		return "User"
	case UserTypeModerator:
		return "Moderator"
	default:
		return "NotSet"
	}
}

// Event — декодированное событие чата: Whisper, ChannelMessage, SystemNotice или Unrecognized.
type Event interface {
	// Command возвращает IRC-команду, из которой получено событие.
	Command() string
}

// Whisper описывает личное сообщение боту; через него приходят админ-команды.
type Whisper struct {
	UserID    int32
	Username  string
	Target    string
	Text      string
	Timestamp time.Time
}

// ChannelMessage описывает обычное сообщение в чате канала.
type ChannelMessage struct {
	Target    string
	Username  string
	UserID    int32
	UserType  UserType
	SubCount  int32
	Text      string
	Timestamp time.Time
}

// SystemNotice — системное уведомление канала (подписки, подарки, рейды).
// SystemMsg и Text могут быть пустыми независимо друг от друга.
type SystemNotice struct {
	Target    string
	Username  string
	UserID    int32
	UserType  UserType
	SubCount  int32
	SystemMsg string
	Text      string
	Timestamp time.Time
}

// Unrecognized обозначает строку, не подошедшую ни под одну грамматику.
type Unrecognized struct{}

// Command возвращает IRC-команду, из которой получено событие.
func (Whisper) Command() string        { return "WHISPER" }
func (ChannelMessage) Command() string { return "PRIVMSG" }
func (SystemNotice) Command() string   { return "USERNOTICE" }
func (Unrecognized) Command() string   { return "" }
