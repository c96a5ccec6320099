package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ChatTarget identifies one destination chat: either a numeric chat ID or a
// public @username (channels, public groups). ID wins when both are set.
type ChatTarget struct {
	ID       int64
	Username string
}

func (t ChatTarget) IsZero() bool { return t.ID == 0 && t.Username == "" }

func (t ChatTarget) String() string {
	if t.ID != 0 {
		return strconv.FormatInt(t.ID, 10)
	}
	if t.Username != "" {
		return "@" + t.Username
	}
	return "<none>"
}

// ParseChatTarget accepts the forms Telegram's HTTP API accepts for chat_id:
// a (possibly negative) integer, or "@channelusername".
func ParseChatTarget(s string) (ChatTarget, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ChatTarget{}, fmt.Errorf("chat id is empty")
	}
	if strings.HasPrefix(s, "@") {
		name := strings.TrimPrefix(s, "@")
		if name == "" {
			return ChatTarget{}, fmt.Errorf("chat username is empty")
		}
		return ChatTarget{Username: name}, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ChatTarget{}, fmt.Errorf("invalid chat id %q (use a numeric id or @username)", s)
	}
	return ChatTarget{ID: id}, nil
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	Silent         bool
}

// Sender delivers text messages to chats. Implementations wrap one concrete
// chat platform; nothing above this interface imports platform SDKs.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
