package codec

import (
	"chat-gateway/domain"
	"encoding/json"
)

// Frame is the outbound projection of a Message sent to browsers as a text frame.
type Frame struct {
	Type     string   `json:"type"`
	GroupID  string   `json:"groupId"`
	ServerID int64    `json:"serverId,omitempty"`
	FromUser string   `json:"fromUser,omitempty"`
	Content  string   `json:"content,omitempty"`
	CreateAt int64    `json:"createAt,omitempty"`
	Members  []string `json:"members,omitempty"`
}

func ToFrame(m domain.Message) Frame {
	f := Frame{
		Type:     m.Type.String(),
		GroupID:  string(m.GroupID),
		ServerID: m.ServerID,
		FromUser: m.FromUser,
		Content:  m.Content,
		Members:  m.Members,
	}
	if !m.CreatedAt.IsZero() {
		f.CreateAt = m.CreatedAt.UnixMilli()
	}
	return f
}

// EncodeFrame renders m as the JSON payload of an outbound text frame.
func EncodeFrame(m domain.Message) ([]byte, error) {
	return json.Marshal(ToFrame(m))
}
