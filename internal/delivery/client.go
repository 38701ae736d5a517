package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"satchel/internal/config"
	"satchel/internal/queue"
)

const userAgent = "Satchel/0.1.0"

// Attachment is a blob resolved to its raw bytes for one submission.
type Attachment struct {
	ID       string
	FileName string
	MimeType string
	Bytes    []byte
}

// Submission is one queue entry with its attachments fully resolved.
type Submission struct {
	EntryID     string
	CreatedAt   time.Time
	Fields      map[string]string
	Attachments []Attachment
}

// Client submits one resolved entry to the remote endpoint. The returned
// error is opaque to callers; it only drives retry bookkeeping and the
// error message shown for parked entries.
type Client interface {
	Submit(ctx context.Context, sub *Submission) error
}

// HTTPClient posts submissions as multipart/form-data.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient builds the production delivery client from config.
func NewHTTPClient(cfg *config.Config) *HTTPClient {
	timeout := time.Duration(cfg.Delivery.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint: cfg.Delivery.Endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Submit posts the submission's fields and attachments in one multipart
// request. Any transport error or non-2xx response is a delivery failure.
func (c *HTTPClient) Submit(ctx context.Context, sub *Submission) error {
	if sub == nil {
		return queue.Wrap(queue.ErrDelivery, "submit", "submission is nil", nil)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("entry_id", sub.EntryID); err != nil {
		return queue.Wrap(queue.ErrDelivery, "submit", "write entry id", err)
	}
	if err := writer.WriteField("created_at", sub.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return queue.Wrap(queue.ErrDelivery, "submit", "write created at", err)
	}
	for key, value := range sub.Fields {
		if err := writer.WriteField(key, value); err != nil {
			return queue.Wrap(queue.ErrDelivery, "submit", "write field "+key, err)
		}
	}
	for i, attachment := range sub.Attachments {
		part, err := writer.CreatePart(attachmentHeader(i, attachment))
		if err != nil {
			return queue.Wrap(queue.ErrDelivery, "submit", "create attachment part", err)
		}
		if _, err := part.Write(attachment.Bytes); err != nil {
			return queue.Wrap(queue.ErrDelivery, "submit", "write attachment "+attachment.ID, err)
		}
	}
	if err := writer.Close(); err != nil {
		return queue.Wrap(queue.ErrDelivery, "submit", "finalize multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return queue.Wrap(queue.ErrDelivery, "submit", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return queue.Wrap(queue.ErrDelivery, "submit", sub.EntryID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		message := fmt.Sprintf("endpoint returned %d", resp.StatusCode)
		if trimmed := strings.TrimSpace(string(detail)); trimmed != "" {
			message += ": " + trimmed
		}
		return queue.Wrap(queue.ErrDelivery, "submit", message, nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func attachmentHeader(index int, attachment Attachment) textproto.MIMEHeader {
	fileName := attachment.FileName
	if fileName == "" {
		fileName = attachment.ID
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachment_%d"; filename=%q`, index, fileName))
	mimeType := attachment.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)
	return header
}
