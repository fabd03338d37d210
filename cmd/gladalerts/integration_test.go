//go:build integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocloud.dev/blob"

	"github.com/rizkyfirmansyah/glad-alerts/internal/testutils"
)

func TestCLIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	t.Log("Starting Minio container...")
	minio := testutils.StartMinioContainer(t, ctx, "cli-test-bucket")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	}()

	bucket, err := minio.OpenBucket(ctx)
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	files := append(
		testutils.ShapefileParts("glad_alerts_riau_2023-08-01", 64*1024),
		testutils.ShapefileParts("glad_alerts_riau_2023-08-02", 32*1024)...,
	)
	testutils.SeedFolder(t, ctx, bucket, "GLAD", files)

	tempDir := filepath.Join(t.TempDir(), "temp_download")
	t.Setenv("GLAD_STORAGE", minio.BucketURL)
	t.Setenv("GLAD_FOLDER", "GLAD")
	t.Setenv("GLAD_YEAR", "23")
	t.Setenv("GLAD_PAGE_SIZE", "3")
	t.Setenv("GLAD_TEMP_DOWNLOAD", tempDir)
	t.Setenv("GLAD_FINAL_PATH", t.TempDir())
	envPath := filepath.Join(t.TempDir(), "missing.env")

	t.Run("download", func(t *testing.T) {
		if code := runDownload([]string{"-env", envPath}); code != ExitSuccess {
			t.Fatalf("download failed with exit code %d", code)
		}
		for _, f := range files {
			testutils.CompareFileToData(t, filepath.Join(tempDir, f.Name), f.Data)
		}

		iter := bucket.List(&blob.ListOptions{Prefix: "GLAD/"})
		if obj, err := iter.Next(ctx); err == nil {
			t.Errorf("expected remote folder drained, found %s", obj.Key)
		}
	})

	t.Run("download_empty_folder", func(t *testing.T) {
		if code := runDownload([]string{"-env", envPath}); code != ExitSuccess {
			t.Fatalf("second download failed with exit code %d", code)
		}
	})

	t.Run("merge_cleans_up_on_failure", func(t *testing.T) {
		// The seeded parts are not valid shapefiles.
		if code := runMerge([]string{"-env", envPath}); code != ExitMergeFailed {
			t.Fatalf("expected exit %d, got %d", ExitMergeFailed, code)
		}
		entries, err := os.ReadDir(tempDir)
		if err != nil {
			t.Fatalf("read temp dir: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected temp dir emptied, found %d entries", len(entries))
		}
	})
}
