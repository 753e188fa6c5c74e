package assets

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/gatherly/contract-esign-portal/internal/s3io"
)

// Uploader persists decoded captures and returns durable URLs. Re-uploading
// for the same field produces a new object and a new URL; the old one is
// simply no longer referenced.
type Uploader interface {
	Upload(ctx context.Context, capture *Capture, eventID, contractID, fieldID string) (string, error)
}

// Store uploads signature assets to S3 under a per-field namespace.
type Store struct {
	S3     s3io.Putter
	Bucket string
	Region string
}

// Upload persists a decoded capture and returns its fetch URL. Empty
// payloads never reach here; DecodeCapture rejects them first.
func (s *Store) Upload(ctx context.Context, capture *Capture, eventID, contractID, fieldID string) (string, error) {
	if capture == nil || len(capture.Bytes) == 0 {
		return "", ErrEmptyAsset
	}
	key := s3io.BuildAssetKey(eventID, contractID, fieldID, ulid.Make().String(), capture.Ext)
	meta := map[string]string{
		"event_id":    eventID,
		"contract_id": contractID,
		"field_id":    fieldID,
	}
	if err := s3io.Put(ctx, s.S3, s.Bucket, key, capture.ContentType, capture.Bytes, meta); err != nil {
		return "", &StorageError{Op: "put", Err: err}
	}
	return s3io.ObjectURL(s.Bucket, s.Region, key), nil
}
