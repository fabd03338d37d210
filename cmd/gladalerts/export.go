package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/rizkyfirmansyah/glad-alerts/internal/config"
	"github.com/rizkyfirmansyah/glad-alerts/internal/export"
	"github.com/rizkyfirmansyah/glad-alerts/internal/gauth"
	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
	"github.com/rizkyfirmansyah/glad-alerts/internal/vector"
)

func runExport(args []string) int {
	a, code := setup("export", `Usage: gladalerts export [options]

Find the latest alert images over the AOI, export each one as a shapefile
and wait for every export to finish.`, args)
	if a == nil {
		return code
	}
	defer a.close()

	if err := exportAlerts(a.ctx, &a.cfg); err != nil {
		a.logger.Error().Err(err).Msg("Export failed")
		return ExitServiceUnavailable
	}
	return ExitSuccess
}

// exportAlerts submits one export per alert day and waits for all of them.
func exportAlerts(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateExport(); err != nil {
		return err
	}
	logger := logctx.FromContext(ctx)

	creds, err := loadCredentials(ctx, cfg, gauth.DefaultScopes...)
	if err != nil {
		return err
	}
	opts := append(gauth.ClientOptions(creds), option.WithEndpoint(export.HighVolumeEndpoint))
	client, err := export.NewEngineClient(ctx, cfg.Project, opts...)
	if err != nil {
		return err
	}

	driver, err := vector.ForPath(cfg.AOI)
	if err != nil {
		return err
	}
	region, err := export.LoadRegion(cfg.AOI, driver)
	if err != nil {
		return err
	}

	req := export.AlertRequest{
		Collection:    cfg.Collection,
		AOISlug:       cfg.AOISlug(),
		MaxDays:       cfg.MaxDays,
		Region:        region,
		BandConf:      cfg.BandConfName(),
		BandAlertDate: cfg.BandAlertDateName(),
		Scale:         cfg.Scale,
		CRS:           cfg.CRS,
	}
	if err := setDestination(&req, cfg); err != nil {
		return err
	}

	jobs, err := client.AlertJobs(ctx, req)
	if err != nil {
		return fmt.Errorf("list alert images: %w", err)
	}
	if len(jobs) == 0 {
		logger.Warn().Msg("No alert images found")
		return nil
	}

	poller := &export.Poller{
		Interval: cfg.PollInterval,
		MaxWait:  cfg.MaxWait,
		Retry:    cfg.Retry.Policy(),
	}
	_, err = export.SubmitAll(ctx, poller, jobs, cfg.Workers)
	return err
}

// loadCredentials reads the key file and checks it belongs to the
// configured service account.
func loadCredentials(ctx context.Context, cfg *config.Config, scopes ...string) (*google.Credentials, error) {
	creds, err := gauth.Load(ctx, cfg.KeyFile, scopes...)
	if err != nil {
		return nil, err
	}
	if err := gauth.CheckAccount(creds, cfg.ServiceAccount); err != nil {
		return nil, err
	}
	return creds, nil
}

// setDestination points the exports at the folder the download step will
// drain: a Drive folder, or folder/ under the prefix of a gs:// bucket.
func setDestination(req *export.AlertRequest, cfg *config.Config) error {
	if cfg.Storage == config.StorageDrive {
		req.Folder = cfg.Folder
		return nil
	}

	u, err := url.Parse(cfg.Storage)
	if err != nil {
		return fmt.Errorf("parse storage url: %w", err)
	}
	if u.Scheme != "gs" {
		return fmt.Errorf("export: storage %q is neither drive nor a gs:// bucket", cfg.Storage)
	}
	req.Bucket = u.Host
	req.Prefix = u.Query().Get("prefix") + strings.TrimSuffix(cfg.Folder, "/") + "/"
	return nil
}
