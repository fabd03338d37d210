package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// BlobStore is a Store over a gocloud bucket. A folder is a key prefix
// ending in "/".
type BlobStore struct {
	bucket *blob.Bucket
}

// NewBlobStore wraps an open bucket. The store owns the bucket.
func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

// OpenBlobStore opens the bucket at url (gs://, s3://, file://, mem://).
func OpenBlobStore(ctx context.Context, url string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return NewBlobStore(bucket), nil
}

// Bucket returns the underlying bucket.
func (s *BlobStore) Bucket() *blob.Bucket {
	return s.bucket
}

// FindFolder returns the folder prefix if at least one object lives under it.
func (s *BlobStore) FindFolder(ctx context.Context, name string) (string, error) {
	name = strings.Trim(name, "/")
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrFolderNotFound)
	}
	prefix := name + "/"

	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	_, err := iter.Next(ctx)
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: %s", ErrFolderNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("list %s: %w", prefix, err)
	}
	return prefix, nil
}

// ListPage lists the direct children of folderID, skipping sub-directories.
func (s *BlobStore) ListPage(ctx context.Context, folderID, token string, size int) (Page, error) {
	pageToken := blob.FirstPageToken
	if token != "" {
		raw, err := base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			return Page{}, fmt.Errorf("decode page token: %w", err)
		}
		pageToken = raw
	}

	objs, next, err := s.bucket.ListPage(ctx, pageToken, size, &blob.ListOptions{
		Prefix:    folderID,
		Delimiter: "/",
	})
	if err != nil {
		return Page{}, fmt.Errorf("list %s: %w", folderID, err)
	}

	page := Page{}
	for _, obj := range objs {
		if obj.IsDir {
			continue
		}
		page.Files = append(page.Files, RemoteFile{ID: obj.Key, Name: path.Base(obj.Key)})
	}
	if len(next) > 0 {
		page.NextToken = base64.RawURLEncoding.EncodeToString(next)
	}
	return page, nil
}

// Open opens the object with key id.
func (s *BlobStore) Open(ctx context.Context, id string) (Download, error) {
	r, err := s.bucket.NewReader(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	return r, nil
}

// Delete removes the object with key id.
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	if err := s.bucket.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Close closes the bucket.
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}
