//go:build integration

package remote

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rizkyfirmansyah/glad-alerts/internal/testutils"
)

func TestBlobStoreMinio(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	env := testutils.StartMinioContainer(t, ctx, "exports")
	defer env.Close(ctx)

	store, err := OpenBlobStore(ctx, env.BucketURL)
	if err != nil {
		t.Fatalf("OpenBlobStore: %v", err)
	}
	defer store.Close()

	files := testutils.ShapefileParts("glad_alerts_aoi_23001", 4096)
	testutils.SeedFolder(t, ctx, store.Bucket(), "GLAD", files)

	folder, err := store.FindFolder(ctx, "GLAD")
	if err != nil {
		t.Fatalf("FindFolder: %v", err)
	}

	seen := 0
	token := ""
	for {
		page, err := store.ListPage(ctx, folder, token, 3)
		if err != nil {
			t.Fatalf("ListPage: %v", err)
		}
		for _, f := range page.Files {
			d, err := store.Open(ctx, f.ID)
			if err != nil {
				t.Fatalf("Open %s: %v", f.ID, err)
			}
			data, err := io.ReadAll(d)
			d.Close()
			if err != nil {
				t.Fatalf("read %s: %v", f.ID, err)
			}
			if int64(len(data)) != d.Size() {
				t.Errorf("%s: read %d bytes, size %d", f.Name, len(data), d.Size())
			}
			seen++
		}
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	if seen != len(files) {
		t.Errorf("expected %d files, saw %d", len(files), seen)
	}
}
