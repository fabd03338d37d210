// Package downloader drains an export folder into a local directory.
//
// Drain walks the folder one listing page at a time. Each non-empty page is
// handed to FetchBatch, which downloads the page's files in parallel on an
// errgroup bounded by Options.Workers.
//
// # Per-file Protocol
//
// For every file:
//   - Open the remote object and copy it to dir/name in ChunkSize steps
//   - Require a clean end of stream and, when the size is known, every byte
//   - Sync and close the local file
//   - Delete the remote object
//
// A failure at any step before the delete removes the partial local file and
// leaves the remote object in place. The first failure in a batch cancels the
// other downloads of that batch.
//
// # Retries
//
// Options.Retry is applied once around each listing call and once around
// each batch. A retried batch only requests the files the failed attempt did
// not finish, so an already-deleted remote object is never opened again.
//
// # Name Collisions
//
// Two remote files with the same name would overwrite each other on disk.
// Duplicates within a page, or a name already downloaded from an earlier
// page, fail the drain with ErrNameCollision.
package downloader
