package ai

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrUnsupportedDocument = errors.New("unsupported document type")

// acceptedDocuments перечисляет форматы выписок и чеков, которые понимает модель.
var acceptedDocuments = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"image/webp",
}

// DetectDocument определяет тип файла по содержимому, игнорируя заявленный клиентом.
func DetectDocument(data []byte) (Attachment, error) {
	if len(data) == 0 {
		return Attachment{}, ErrUnsupportedDocument
	}

	detected := mimetype.Detect(data)
	for _, accepted := range acceptedDocuments {
		if detected.Is(accepted) {
			return Attachment{MIMEType: accepted, Data: data}, nil
		}
	}

	return Attachment{}, ErrUnsupportedDocument
}

// DataURI кодирует документ в форме data:<mime>;base64,<data>.
func DataURI(mimeType string, data []byte) string {
	var builder strings.Builder
	builder.Grow(len(mimeType) + base64.StdEncoding.EncodedLen(len(data)) + 13)
	builder.WriteString("data:")
	builder.WriteString(mimeType)
	builder.WriteString(";base64,")
	builder.WriteString(base64.StdEncoding.EncodeToString(data))
	return builder.String()
}
