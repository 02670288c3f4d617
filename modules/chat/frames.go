package chat

import (
	"encoding/json"
	"fmt"
)

// FrameKind is the closed set of inbound frame types.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameChatMessage
	FrameTyping
)

func (k FrameKind) String() string {
	switch k {
	case FrameChatMessage:
		return "chat_message"
	case FrameTyping:
		return "typing"
	default:
		return "unknown"
	}
}

func frameKindOf(s string) FrameKind {
	switch s {
	case "chat_message":
		return FrameChatMessage
	case "typing":
		return FrameTyping
	default:
		return FrameUnknown
	}
}

// ChatPayload is the data of an inbound chat_message frame.
type ChatPayload struct {
	Content     string
	MessageType string
	ReplyTo     string
}

// TypingPayload is the data of an inbound typing frame.
type TypingPayload struct {
	IsTyping bool
}

// InboundFrame is a decoded client frame. Exactly one payload is set for
// known kinds; RawType keeps the original type for logging.
type InboundFrame struct {
	Kind    FrameKind
	RawType string
	Chat    *ChatPayload
	Typing  *TypingPayload
}

type wireFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireChatData struct {
	Content     string `json:"content"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	ReplyTo     string `json:"reply_to"`
}

type wireTypingData struct {
	IsTyping bool `json:"is_typing"`
}

// ParseFrame decodes an inbound frame. Unknown or missing types decode to
// FrameUnknown without error.
func ParseFrame(b []byte) (InboundFrame, error) {
	var w wireFrame
	if err := json.Unmarshal(b, &w); err != nil {
		return InboundFrame{}, fmt.Errorf("decode frame: %w", err)
	}

	f := InboundFrame{Kind: frameKindOf(w.Type), RawType: w.Type}
	switch f.Kind {
	case FrameChatMessage:
		var d wireChatData
		if err := decodeData(w.Data, &d); err != nil {
			return InboundFrame{}, fmt.Errorf("decode chat_message data: %w", err)
		}
		content := d.Content
		if content == "" {
			content = d.Message
		}
		f.Chat = &ChatPayload{Content: content, MessageType: d.MessageType, ReplyTo: d.ReplyTo}
	case FrameTyping:
		var d wireTypingData
		if err := decodeData(w.Data, &d); err != nil {
			return InboundFrame{}, fmt.Errorf("decode typing data: %w", err)
		}
		f.Typing = &TypingPayload{IsTyping: d.IsTyping}
	case FrameUnknown:
	}
	return f, nil
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
