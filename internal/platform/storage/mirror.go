package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"comicstore/internal/logger"

	"github.com/antoineross/supabase-go"
	storage_go "github.com/supabase-community/storage-go"
)

type uploader interface {
	UploadFile(bucketID, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
}

// Mirror copies written pages into a Supabase storage bucket, keyed by their
// path relative to the storage root (comics/<comic>/<episode>/<page>).
type Mirror struct {
	up     uploader
	bucket string
	root   string
	log    *logger.Logger
}

func NewSupabaseMirror(url, serviceKey, bucket, storageRoot string) (*Mirror, error) {
	client, err := supabase.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("init supabase client: %w", err)
	}
	return newMirror(client.Storage, bucket, storageRoot), nil
}

func newMirror(up uploader, bucket, storageRoot string) *Mirror {
	return &Mirror{up: up, bucket: bucket, root: filepath.Clean(storageRoot), log: logger.New("Mirror")}
}

// ObjectPath maps a local file under the storage root to its bucket key.
func (m *Mirror) ObjectPath(localPath string) (string, error) {
	rel, err := filepath.Rel(m.root, localPath)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", localPath, m.root)
	}
	return filepath.ToSlash(rel), nil
}

// Put uploads the file, replacing any object already at that key.
func (m *Mirror) Put(ctx context.Context, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := m.ObjectPath(localPath)
	if err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := true
	if _, err := m.up.UploadFile(m.bucket, key, f, storage_go.FileOptions{ContentType: &contentType, Upsert: &upsert}); err != nil {
		return fmt.Errorf("upload %s to bucket %s: %w", key, m.bucket, err)
	}
	m.log.LogDebugf("mirrored %s to %s/%s", localPath, m.bucket, key)
	return nil
}
