package storage

import (
	"context"
	"fmt"
	"time"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage captures the S3-compatible operations used for exported
// workbooks and remote input files.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportKey names the archived workbook of one session export.
func ExportKey(sessionID string, at time.Time) string {
	return fmt.Sprintf("exports/%s/replenishment_%s.xlsx", sessionID, at.UTC().Format("20060102_150405"))
}
