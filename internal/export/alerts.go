package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/rizkyfirmansyah/glad-alerts/internal/logctx"
)

// AlertRequest selects the alert images to export and where they go.
type AlertRequest struct {
	Collection string
	AOISlug    string
	MaxDays    int
	Region     *Region

	BandConf      string
	BandAlertDate string
	Scale         float64
	CRS           string

	Folder string
	Bucket string
	Prefix string
}

// AlertJobs finds the latest alert images over the region and returns one
// table export per image.
func (c *EngineClient) AlertJobs(ctx context.Context, req AlertRequest) ([]Job, error) {
	images, err := c.LatestAlerts(ctx, req.Collection, req.Region, req.MaxDays)
	if err != nil {
		return nil, err
	}
	logger := logctx.FromContext(ctx)
	logger.Info().Int("images", len(images)).Str("collection", req.Collection).Msg("Found alert images")

	jobs := make([]Job, 0, len(images))
	for _, img := range images {
		jobs = append(jobs, c.TableExport(img, ExportSpec{
			Description:   Description(req.AOISlug, img.Day()),
			Region:        req.Region,
			BandConf:      req.BandConf,
			BandAlertDate: req.BandAlertDate,
			Scale:         req.Scale,
			CRS:           req.CRS,
			Folder:        req.Folder,
			Bucket:        req.Bucket,
			Prefix:        req.Prefix,
		}))
	}
	return jobs, nil
}

// Description names the export of one alert day over an AOI.
func Description(aoiSlug, day string) string {
	return fmt.Sprintf("glad_alerts_%s_%s", strings.ToLower(strings.ReplaceAll(aoiSlug, " ", "_")), day)
}
