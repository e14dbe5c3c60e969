package codec

import (
	"chat-gateway/domain"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the bus message. They are part of the on-bus contract
// between gateway versions and must never be reused.
const (
	fieldType      protowire.Number = 1
	fieldGroupID   protowire.Number = 2
	fieldServerID  protowire.Number = 3
	fieldFromUser  protowire.Number = 4
	fieldContent   protowire.Number = 5
	fieldCreatedAt protowire.Number = 6
	fieldMembers   protowire.Number = 7
)

// EncodeMessage serializes m in protobuf wire format. Zero values are omitted.
func EncodeMessage(m domain.Message) []byte {
	var b []byte
	if m.Type != 0 {
		b = protowire.AppendTag(b, fieldType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Type))
	}
	b = appendString(b, fieldGroupID, string(m.GroupID))
	if m.ServerID != 0 {
		b = protowire.AppendTag(b, fieldServerID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.ServerID))
	}
	b = appendString(b, fieldFromUser, m.FromUser)
	b = appendString(b, fieldContent, m.Content)
	if !m.CreatedAt.IsZero() {
		b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.CreatedAt.UnixMilli()))
	}
	for _, member := range m.Members {
		b = protowire.AppendTag(b, fieldMembers, protowire.BytesType)
		b = protowire.AppendString(b, member)
	}
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// DecodeMessage parses a record produced by EncodeMessage.
// Unknown fields are skipped.
func DecodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return domain.Message{}, fmt.Errorf("decode message tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && (num == fieldType || num == fieldServerID || num == fieldCreatedAt):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return domain.Message{}, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldType:
				m.Type = domain.MessageType(v)
			case fieldServerID:
				m.ServerID = int64(v)
			case fieldCreatedAt:
				m.CreatedAt = time.UnixMilli(int64(v)).UTC()
			}
		case typ == protowire.BytesType && num >= fieldGroupID && num <= fieldMembers && num != fieldServerID && num != fieldCreatedAt:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return domain.Message{}, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldGroupID:
				m.GroupID = domain.GroupID(s)
			case fieldFromUser:
				m.FromUser = s
			case fieldContent:
				m.Content = s
			case fieldMembers:
				m.Members = append(m.Members, s)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return domain.Message{}, fmt.Errorf("skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}
