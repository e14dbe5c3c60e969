// Package domain contains core concepts of the chat gateway.
// This file defines the Message exchanged between sessions, the bus and the wire.
// Messages are immutable once built.
package domain

import (
	"strconv"
	"time"
)

type MessageType int32

const (
	MessageTypeChat MessageType = iota
	MessageTypeLogin
	MessageTypeLogout
	MessageTypeMembers
	MessageTypeUnread
	MessageTypeConfirm
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeChat:
		return "CHAT"
	case MessageTypeLogin:
		return "LOGIN"
	case MessageTypeLogout:
		return "LOGOUT"
	case MessageTypeMembers:
		return "MEMBERS"
	case MessageTypeUnread:
		return "UNREAD"
	case MessageTypeConfirm:
		return "CONFIRM"
	default:
		return "UNKNOWN"
	}
}

// Message is the single event shape carried on the bus and projected onto outbound frames.
// ServerID is the origin gateway, used by the relay to drop its own records.
type Message struct {
	Type      MessageType
	GroupID   GroupID
	ServerID  int64
	FromUser  string
	Content   string
	CreatedAt time.Time
	Members   []string
}

// Millis truncates t to the millisecond precision kept on the bus.
func Millis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}

func NewChatMessage(serverID int64, groupID GroupID, user, content string, at time.Time) Message {
	return Message{
		Type:      MessageTypeChat,
		GroupID:   groupID,
		ServerID:  serverID,
		FromUser:  user,
		Content:   content,
		CreatedAt: Millis(at),
	}
}

func NewLoginMessage(serverID int64, groupID GroupID, user string, at time.Time) Message {
	return Message{
		Type:      MessageTypeLogin,
		GroupID:   groupID,
		ServerID:  serverID,
		FromUser:  user,
		CreatedAt: Millis(at),
	}
}

func NewLogoutMessage(serverID int64, groupID GroupID, user string, at time.Time) Message {
	return Message{
		Type:      MessageTypeLogout,
		GroupID:   groupID,
		ServerID:  serverID,
		FromUser:  user,
		CreatedAt: Millis(at),
	}
}

// NewConfirmMessage marks the end of a login. It mirrors the LOGIN that precedes it.
func NewConfirmMessage(login Message) Message {
	login.Type = MessageTypeConfirm
	return login
}

// NewMembersMessage carries no author and a zero timestamp, only the member list.
func NewMembersMessage(serverID int64, groupID GroupID, members []string) Message {
	return Message{
		Type:     MessageTypeMembers,
		GroupID:  groupID,
		ServerID: serverID,
		Members:  append([]string(nil), members...),
	}
}

// NewUnreadMessage reports how many backlog messages were replayed since the watermark.
func NewUnreadMessage(serverID int64, groupID GroupID, count int, watermark time.Time) Message {
	return Message{
		Type:      MessageTypeUnread,
		GroupID:   groupID,
		ServerID:  serverID,
		Content:   strconv.Itoa(count),
		CreatedAt: Millis(watermark),
	}
}
