package remote

import (
	"context"
	"errors"
	"io"
)

// ErrFolderNotFound is returned by FindFolder when no folder has the
// requested name.
var ErrFolderNotFound = errors.New("remote: folder not found")

// RemoteFile identifies one object in a remote folder.
type RemoteFile struct {
	ID   string
	Name string
}

// Page is one listing page. An empty NextToken means the listing is done.
type Page struct {
	Files     []RemoteFile
	NextToken string
}

// Download is an open remote object.
type Download interface {
	io.ReadCloser

	// Size returns the object size in bytes, or -1 when unknown.
	Size() int64
}

// Store is the storage service an export folder lives in.
type Store interface {
	// FindFolder resolves a folder by exact name.
	FindFolder(ctx context.Context, name string) (string, error)

	// ListPage returns up to size files from folderID starting at token.
	// An empty token starts a new listing.
	ListPage(ctx context.Context, folderID, token string, size int) (Page, error)

	// Open starts reading the object's content.
	Open(ctx context.Context, id string) (Download, error)

	// Delete removes the object.
	Delete(ctx context.Context, id string) error

	// Close releases the underlying client.
	Close() error
}
