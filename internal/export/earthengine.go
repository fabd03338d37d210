package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/earthengine/v1"
	"google.golang.org/api/option"
)

// HighVolumeEndpoint serves concurrent automated requests.
const HighVolumeEndpoint = "https://earthengine-highvolume.googleapis.com/"

// EngineClient talks to the Earth Engine REST API.
type EngineClient struct {
	svc     *earthengine.Service
	project string
}

// NewEngineClient creates a client billed to project.
func NewEngineClient(ctx context.Context, project string, opts ...option.ClientOption) (*EngineClient, error) {
	if project == "" {
		return nil, fmt.Errorf("export: project is required")
	}
	svc, err := earthengine.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create earth engine service: %w", err)
	}
	return &EngineClient{svc: svc, project: project}, nil
}

// AlertImage is one image of the alert collection.
type AlertImage struct {
	// ID is the asset id, usable with Image.load.
	ID        string
	StartTime time.Time
}

// Index returns the image's system:index, the last path element of its id.
func (a AlertImage) Index() string {
	return path.Base(a.ID)
}

// Day returns the first five characters of the system:index, used to name
// the export.
func (a AlertImage) Day() string {
	idx := a.Index()
	if len(idx) > 5 {
		return idx[:5]
	}
	return idx
}

// assetName converts an asset id into a REST resource name.
func assetName(id string) string {
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/assets/") {
		return id
	}
	return "projects/earthengine-legacy/assets/" + strings.TrimPrefix(id, "/")
}

// assetID converts a REST resource name back into an asset id.
func assetID(name string) string {
	if rest, ok := strings.CutPrefix(name, "projects/earthengine-legacy/assets/"); ok {
		return rest
	}
	return name
}

// LatestAlerts returns the n most recent images of collection that
// intersect region, newest first.
func (c *EngineClient) LatestAlerts(ctx context.Context, collection string, region *Region, n int) ([]AlertImage, error) {
	call := c.svc.Projects.Assets.ListImages(assetName(collection)).PageSize(1000)
	if region != nil {
		geo, err := region.GeoJSON()
		if err != nil {
			return nil, err
		}
		call = call.Region(geo)
	}

	var images []AlertImage
	token := ""
	for {
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("list images of %s: %w", collection, err)
		}
		for _, img := range resp.Images {
			id := img.Id
			if id == "" {
				id = assetID(img.Name)
			}
			start, _ := time.Parse(time.RFC3339Nano, img.StartTime)
			images = append(images, AlertImage{ID: id, StartTime: start})
		}
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}

	sort.SliceStable(images, func(i, j int) bool {
		return images[i].StartTime.After(images[j].StartTime)
	})
	if n > 0 && len(images) > n {
		images = images[:n]
	}
	return images, nil
}

// ExportSpec describes how an alert image is vectorized and where the
// result is written. Exactly one of Folder (Drive) and Bucket (Cloud
// Storage) is used; Bucket wins when both are set.
type ExportSpec struct {
	Description   string
	Region        *Region
	BandConf      string
	BandAlertDate string
	Scale         float64
	CRS           string

	Folder string
	Bucket string
	Prefix string
}

// TableExport is a Job that vectorizes one alert image and exports it as a
// shapefile.
type TableExport struct {
	client *EngineClient
	image  AlertImage
	spec   ExportSpec
	// requestID makes resubmission after a lost response idempotent.
	requestID string

	mu      sync.Mutex
	name    string
	message string
}

// TableExport creates an export job for img.
func (c *EngineClient) TableExport(img AlertImage, spec ExportSpec) *TableExport {
	return &TableExport{
		client:    c,
		image:     img,
		spec:      spec,
		requestID: uuid.NewString(),
	}
}

// Description returns the export's task description.
func (t *TableExport) Description() string {
	return t.spec.Description
}

// FailureMessage returns the remote error message of a failed export.
func (t *TableExport) FailureMessage() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.message
}

// Request builds the export request.
func (t *TableExport) Request() *earthengine.ExportTableRequest {
	prefix := t.spec.Prefix + t.spec.Description
	opts := &earthengine.TableFileExportOptions{FileFormat: "SHP"}
	if t.spec.Bucket != "" {
		opts.CloudStorageDestination = &earthengine.CloudStorageDestination{
			Bucket:         t.spec.Bucket,
			FilenamePrefix: prefix,
		}
	} else {
		opts.DriveDestination = &earthengine.DriveDestination{
			Folder:         t.spec.Folder,
			FilenamePrefix: prefix,
		}
	}

	return &earthengine.ExportTableRequest{
		Description:       t.spec.Description,
		Expression:        alertVectors(t.image.ID, t.spec),
		FileExportOptions: opts,
		RequestId:         t.requestID,
	}
}

// Start submits the export.
func (t *TableExport) Start(ctx context.Context) (string, error) {
	op, err := t.client.svc.Projects.Table.Export("projects/"+t.client.project, t.Request()).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("submit export %s: %w", t.spec.Description, err)
	}
	t.mu.Lock()
	t.name = op.Name
	t.mu.Unlock()
	return op.Name, nil
}

// Status fetches the export operation and maps it onto a State.
func (t *TableExport) Status(ctx context.Context) (State, error) {
	t.mu.Lock()
	name := t.name
	t.mu.Unlock()
	if name == "" {
		return StateUnknown, fmt.Errorf("export %s not started", t.spec.Description)
	}

	op, err := t.client.svc.Projects.Operations.Get(name).Context(ctx).Do()
	if err != nil {
		return StateUnknown, fmt.Errorf("get operation %s: %w", name, err)
	}

	state := operationState(op)
	if state == StateFailed && op.Error != nil {
		t.mu.Lock()
		t.message = op.Error.Message
		t.mu.Unlock()
	}
	return state, nil
}

// operationMetadata is the subset of OperationMetadata read here.
type operationMetadata struct {
	State string `json:"state"`
}

func operationState(op *earthengine.Operation) State {
	var meta operationMetadata
	if len(op.Metadata) > 0 {
		_ = json.Unmarshal(op.Metadata, &meta)
	}

	if op.Done {
		switch {
		case op.Error != nil && meta.State == "CANCELLED":
			return StateCancelled
		case op.Error != nil:
			return StateFailed
		default:
			return StateSucceeded
		}
	}

	switch meta.State {
	case "PENDING", "":
		return StatePending
	case "RUNNING", "CANCELLING":
		return StateRunning
	case "SUCCEEDED":
		return StateSucceeded
	case "FAILED":
		return StateFailed
	case "CANCELLED":
		return StateCancelled
	default:
		return StateRunning
	}
}
