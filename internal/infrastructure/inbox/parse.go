package inbox

import (
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/propflow/backend/internal/application/shared"
)

// ParseMessage extracts the sender, subject, plain-text body and attachments
// of an RFC 5322 message.
func ParseMessage(r io.Reader) (shared.InboundMessage, error) {
	var out shared.InboundMessage

	mr, err := mail.CreateReader(r)
	if err != nil {
		return out, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	out.Subject, _ = mr.Header.Subject()
	if date, err := mr.Header.Date(); err == nil {
		out.ReceivedAt = date
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		out.From = from[0].Address
	}

	var plain, html []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to read part: %w", err)
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return out, fmt.Errorf("failed to read part body: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			if contentType == "text/html" {
				html = append(html, string(data))
			} else {
				plain = append(plain, string(data))
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			if filename == "" {
				filename = "attachment"
			}
			out.Attachments = append(out.Attachments, shared.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Data:        data,
			})
		}
	}

	if len(plain) > 0 {
		out.Body = strings.TrimSpace(strings.Join(plain, "\n"))
	} else {
		out.Body = strings.TrimSpace(strings.Join(html, "\n"))
	}
	return out, nil
}
