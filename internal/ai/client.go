package ai

import "context"

const defaultMaxTokens = 4096

// Attachment передает документ модели вместе с текстом сообщения.
type Attachment struct {
	MIMEType string
	Data     []byte
}

type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"-"`
}

// Client отправляет сообщения модели и возвращает текст ответа и сырой ответ API.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, []byte, error)
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}
