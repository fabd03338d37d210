package remote

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveStore is a Store over Google Drive.
type DriveStore struct {
	srv      *drive.Service
	folderID string
}

// NewDriveStore wraps a Drive service. A non-empty folderID is returned by
// FindFolder without a lookup.
func NewDriveStore(srv *drive.Service, folderID string) *DriveStore {
	return &DriveStore{srv: srv, folderID: folderID}
}

// OpenDriveStore creates a Drive service with the given client options.
func OpenDriveStore(ctx context.Context, folderID string, opts ...option.ClientOption) (*DriveStore, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewDriveStore(srv, folderID), nil
}

// FindFolder looks up a non-trashed folder with exactly this name.
func (s *DriveStore) FindFolder(ctx context.Context, name string) (string, error) {
	if s.folderID != "" {
		return s.folderID, nil
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), folderMimeType)
	r, err := s.srv.Files.List().
		Q(q).
		PageSize(10).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("find folder %s: %w", name, err)
	}

	for _, f := range r.Files {
		if f.Name == name {
			return f.Id, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFolderNotFound, name)
}

// ListPage lists files whose parent is folderID.
func (s *DriveStore) ListPage(ctx context.Context, folderID, token string, size int) (Page, error) {
	q := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false", escapeQuery(folderID), folderMimeType)
	call := s.srv.Files.List().
		Q(q).
		PageSize(int64(size)).
		Fields("nextPageToken, files(id, name)").
		Context(ctx)
	if token != "" {
		call = call.PageToken(token)
	}

	r, err := call.Do()
	if err != nil {
		return Page{}, fmt.Errorf("list folder %s: %w", folderID, err)
	}

	page := Page{NextToken: r.NextPageToken}
	for _, f := range r.Files {
		page.Files = append(page.Files, RemoteFile{ID: f.Id, Name: f.Name})
	}
	return page, nil
}

// Open downloads the file content.
func (s *DriveStore) Open(ctx context.Context, id string) (Download, error) {
	resp, err := s.srv.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", id, err)
	}
	return &driveDownload{ReadCloser: resp.Body, size: resp.ContentLength}, nil
}

// Delete permanently deletes the file, bypassing the trash.
func (s *DriveStore) Delete(ctx context.Context, id string) error {
	if err := s.srv.Files.Delete(id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Close is a no-op; the Drive client holds no resources of its own.
func (s *DriveStore) Close() error {
	return nil
}

type driveDownload struct {
	io.ReadCloser
	size int64
}

func (d *driveDownload) Size() int64 {
	return d.size
}

// escapeQuery escapes a string literal for the Drive query language.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
