// Package remote lists, reads and deletes exported files in cloud storage.
//
// Two stores implement Store:
//   - DriveStore drains a Google Drive folder, the destination Earth Engine
//     table exports write to.
//   - BlobStore drains a key prefix in any gocloud bucket (gs://, s3://,
//     file://, mem://).
//
// Errors returned by either store pass through Classify before they reach
// a retry loop, so quota and server errors are retried while missing
// objects and denied permissions are not.
package remote
