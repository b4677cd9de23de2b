package lark

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// MessageSender sends raw IM messages
type MessageSender interface {
	SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error)
}

// Messenger formats text and post messages for Lark
type Messenger struct {
	sender        MessageSender
	receiveIDType string
	logger        *zap.Logger
}

// NewMessenger creates a new messenger. receiveIDType defaults to user_id.
func NewMessenger(sender MessageSender, receiveIDType string, logger *zap.Logger) *Messenger {
	if receiveIDType == "" {
		receiveIDType = "user_id"
	}
	return &Messenger{
		sender:        sender,
		receiveIDType: receiveIDType,
		logger:        logger,
	}
}

// SendText sends a plain text message
func (m *Messenger) SendText(ctx context.Context, receiveID, text string) error {
	if receiveID == "" {
		return fmt.Errorf("receive id cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("content cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal text content: %w", err)
	}
	if _, err := m.sender.SendMessage(ctx, m.receiveIDType, receiveID, "text", string(content)); err != nil {
		return fmt.Errorf("failed to send text message: %w", err)
	}
	return nil
}

type postElement struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

type postBody struct {
	Title   string          `json:"title"`
	Content [][]postElement `json:"content"`
}

// SendPost sends a rich text message with a title and one paragraph per line
func (m *Messenger) SendPost(ctx context.Context, receiveID, title string, lines ...string) error {
	if receiveID == "" {
		return fmt.Errorf("receive id cannot be empty")
	}

	body := postBody{Title: title}
	for _, line := range lines {
		body.Content = append(body.Content, []postElement{{Tag: "text", Text: line}})
	}
	content, err := json.Marshal(map[string]postBody{"en_us": body})
	if err != nil {
		return fmt.Errorf("failed to marshal post content: %w", err)
	}

	if _, err := m.sender.SendMessage(ctx, m.receiveIDType, receiveID, "post", string(content)); err != nil {
		return fmt.Errorf("failed to send post message: %w", err)
	}
	return nil
}
