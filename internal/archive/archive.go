// Package archive stores every completed analysis in R2 as a
// zstd-compressed JSON object so results can be reviewed later.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/garyellow/sedori-linebot-go/internal/metrics"
	"github.com/garyellow/sedori-linebot-go/internal/r2client"
	"github.com/garyellow/sedori-linebot-go/internal/vision"
)

// Record is one archived analysis. User IDs are stored hashed.
type Record struct {
	ID           string           `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	UserHash     string           `json:"user_hash,omitempty"`
	MIMEType     string           `json:"mime_type"`
	ImageBytes   int              `json:"image_bytes"`
	ShippingYen  int              `json:"shipping_yen"`
	ShippingSize string           `json:"shipping_size,omitempty"`
	Analysis     *vision.Analysis `json:"analysis"`
}

// Uploader is the subset of r2client.Client used for writes.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, obj r2client.Object) (string, error)
}

// Archiver writes records under prefix/YYYY/MM/DD/<id>.json.zst.
type Archiver struct {
	uploader Uploader
	prefix   string
	metrics  *metrics.Metrics
}

// New creates an Archiver. metrics may be nil.
func New(uploader Uploader, prefix string, m *metrics.Metrics) *Archiver {
	return &Archiver{uploader: uploader, prefix: prefix, metrics: m}
}

// Store fills in the ID and timestamp when missing, then uploads rec.
// It returns the object key.
func (a *Archiver) Store(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := Encode(rec)
	if err != nil {
		a.metrics.RecordArchiveWrite("error")
		return "", err
	}

	key := Key(a.prefix, rec.CreatedAt, rec.ID)
	obj := r2client.Object{
		ContentType:     "application/json",
		ContentEncoding: "zstd",
	}
	if rec.Analysis != nil && rec.Analysis.Provider != "" {
		obj.Metadata = map[string]string{"provider": rec.Analysis.Provider.String()}
	}
	if _, err := a.uploader.Upload(ctx, key, data, obj); err != nil {
		a.metrics.RecordArchiveWrite("error")
		return "", fmt.Errorf("archive %s: %w", rec.ID, err)
	}
	a.metrics.RecordArchiveWrite("success")
	return key, nil
}

// Key builds the object key for a record.
func Key(prefix string, t time.Time, id string) string {
	t = t.UTC()
	return path.Join(prefix, t.Format("2006"), t.Format("01"), t.Format("02"), id+".json.zst")
}

// HashUserID returns a stable pseudonym for a LINE user ID.
func HashUserID(userID string) string {
	if userID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:8])
}

// Encode marshals rec as JSON and compresses it with zstd.
func Encode(rec Record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("archive: marshal: %w", err)
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("archive: create encoder: %w", err)
	}
	if _, err := enc.Write(raw); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("archive: compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("archive: close encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*Record, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("archive: create decoder: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("archive: decompress: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("archive: unmarshal: %w", err)
	}
	return &rec, nil
}
