// Package export submits GLAD alert exports to Earth Engine and waits for
// them to finish.
//
// The flow for one run:
//
//	jobs, err := client.AlertJobs(ctx, export.AlertRequest{...})
//	outcomes, err := export.SubmitAll(ctx, poller, jobs, workers)
//
// Each job vectorizes one daily alert image (confidence mask, then
// reduceToVectors keyed by confidence with the alert day of year as the
// attribute) and writes it as a shapefile to a Drive folder or a bucket.
//
// Poller is independent of Earth Engine: any Job with Start and Status can
// be waited on. Status errors are retried under the poller's retry policy
// and surfaced once it runs out.
package export
