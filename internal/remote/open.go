package remote

import (
	"context"

	"golang.org/x/oauth2/google"

	"github.com/rizkyfirmansyah/glad-alerts/internal/config"
	"github.com/rizkyfirmansyah/glad-alerts/internal/gauth"
)

// Open returns the Store named by cfg.Storage: Google Drive for "drive",
// otherwise a gocloud bucket URL.
func Open(ctx context.Context, cfg *config.Config, creds *google.Credentials) (Store, error) {
	if cfg.Storage == config.StorageDrive {
		return OpenDriveStore(ctx, cfg.FolderID, gauth.ClientOptions(creds)...)
	}
	return OpenBlobStore(ctx, cfg.Storage)
}
