package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/notify"
)

// DevTransport records deliveries to local files instead of calling a
// provider. It stands in for the sms, whatsapp and push channels in
// development and in the test environment.
type DevTransport struct {
	method notify.DeliveryMethod
	dir    string
}

// NewDevTransport creates a file-backed transport for the given channel.
// Files are written under dir, which is created if missing.
func NewDevTransport(method notify.DeliveryMethod, dir string) (*DevTransport, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("unsupported delivery method: %q", method)
	}
	if dir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DevTransport{method: method, dir: dir}, nil
}

// Method implements notify.Transport.
func (t *DevTransport) Method() notify.DeliveryMethod {
	return t.method
}

// Send implements notify.Transport. Each delivery becomes one JSON file
// named after the generated message id.
func (t *DevTransport) Send(_ context.Context, job notify.Job) (string, error) {
	messageID := "dev-" + uuid.NewString()

	record := struct {
		MessageID   string          `json:"message_id"`
		Method      string          `json:"method"`
		JobID       uuid.UUID       `json:"job_id"`
		RecipientID uuid.UUID       `json:"recipient_id"`
		Type        string          `json:"type"`
		Content     json.RawMessage `json:"content"`
		DeliveredAt time.Time       `json:"delivered_at"`
	}{
		MessageID:   messageID,
		Method:      string(t.method),
		JobID:       job.ID,
		RecipientID: job.RecipientID,
		Type:        string(job.Type),
		Content:     job.Content,
		DeliveredAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", notify.Permanent(fmt.Errorf("failed to encode delivery record: %w", err))
	}

	path := filepath.Join(t.dir, messageID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", notify.Transient(fmt.Errorf("failed to write delivery record: %w", err))
	}
	return messageID, nil
}
