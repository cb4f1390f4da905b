package storage

import (
	"context"
	"io"
)

// FileStorage stores user uploads and returns the URL they are served from.
type FileStorage interface {
	// Upload stores r under folder/fileName. fileName is expected to be unique already.
	Upload(ctx context.Context, r io.Reader, folder, fileName string) (string, error)
	// Delete removes a previously uploaded file by the URL Upload returned.
	Delete(ctx context.Context, fileURL string) error
}
