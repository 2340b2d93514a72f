package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/Lllllllleong/showcaseworker/internal/events"
	"github.com/Lllllllleong/showcaseworker/internal/gcp"
	"github.com/Lllllllleong/showcaseworker/internal/metrics"
	"github.com/Lllllllleong/showcaseworker/internal/models"
	"github.com/Lllllllleong/showcaseworker/internal/transform"
)

const showcaseContentType = "image/png"

// Side-effect operation names, also used as metric labels.
const (
	opDeleteOriginal = "delete-original"
	opMarkFailed     = "mark-failed"
)

// ObjectStore is the blob storage the pipeline reads from and writes to.
type ObjectStore interface {
	Download(ctx context.Context, bucket, name string) ([]byte, error)
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
	MakePublic(ctx context.Context, name string) error
	Delete(ctx context.Context, bucket, name string) error
}

// DocumentStore applies partial updates to character documents.
type DocumentStore interface {
	UpdateFields(ctx context.Context, characterID string, updates []firestore.Update) error
}

// Dependencies are the collaborators a ShowcaseFunction is built from.
type Dependencies struct {
	Objects           ObjectStore
	Documents         DocumentStore
	BackgroundRemover transform.Transform
	// Upscaler is optional; nil skips the upscaling step.
	Upscaler transform.Transform
	Metrics  *metrics.Metrics
}

// ShowcaseFunction turns a raw character upload into a published showcase image.
type ShowcaseFunction struct {
	objects    ObjectStore
	docs       DocumentStore
	status     *StatusTracker
	remover    transform.Transform
	upscaler   transform.Transform
	metrics    *metrics.Metrics
	runTimeout time.Duration
	newRunID   func() string
}

// NewShowcaseFromEnv loads configuration from the environment, builds the GCP
// clients and transforms, and returns a ready ShowcaseFunction.
func NewShowcaseFromEnv(ctx context.Context, m *metrics.Metrics) (*ShowcaseFunction, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	opts := gcp.ClientOptions(config.CredentialsJSON)
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := gcp.NewStorageClient(ctx, opts...)
	if err != nil {
		_ = firestoreClient.Close()
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	remover, upscaler, err := transform.FromConfig(config.Transform)
	if err != nil {
		_ = firestoreClient.Close()
		_ = storageClient.Close()
		return nil, fmt.Errorf("failed to configure transforms: %w", err)
	}

	f, err := NewShowcase(Dependencies{
		Objects:           gcp.NewObjectStore(storageClient, config.StorageBucket),
		Documents:         gcp.NewCharacterStore(firestoreClient, config.CollectionName),
		BackgroundRemover: remover,
		Upscaler:          upscaler,
		Metrics:           m,
	}, config.Showcase)
	if err != nil {
		return nil, err
	}

	slog.Info("Showcase worker initialized.",
		"storageBucket", config.StorageBucket,
		"collection", config.CollectionName,
		"backgroundRemover", remover.Name(),
		"upscalingEnabled", upscaler != nil,
	)
	return f, nil
}

// ShowcaseConfig tunes a ShowcaseFunction.
type ShowcaseConfig struct {
	// RunTimeout bounds a single run. Zero leaves the caller's deadline in charge.
	RunTimeout time.Duration
}

// NewShowcase wires a ShowcaseFunction from explicit dependencies.
func NewShowcase(deps Dependencies, cfg ShowcaseConfig) (*ShowcaseFunction, error) {
	if deps.Objects == nil || deps.Documents == nil || deps.BackgroundRemover == nil {
		return nil, errors.New("object store, document store and background remover are required")
	}
	return &ShowcaseFunction{
		objects:    deps.Objects,
		docs:       deps.Documents,
		status:     NewStatusTracker(deps.Documents),
		remover:    deps.BackgroundRemover,
		upscaler:   deps.Upscaler,
		metrics:    deps.Metrics,
		runTimeout: cfg.RunTimeout,
		newRunID:   uuid.NewString,
	}, nil
}

// ShowcaseObjectPath is where the finished image for key is stored. It depends
// only on the key, so re-running a job overwrites the previous output.
func ShowcaseObjectPath(key models.JobKey) string {
	return fmt.Sprintf("showcase-images/%s/%s/showcase_%s.png", key.UserID, key.CharacterID, key.CharacterID)
}

// Process runs the pipeline for one uploaded object. Objects outside
// raw-uploads/ are skipped without touching any store. Every run starts from
// scratch regardless of the status a previous attempt left behind.
func (f *ShowcaseFunction) Process(ctx context.Context, e models.ObjectEvent) (*models.ShowcaseResult, error) {
	res := &models.ShowcaseResult{RunID: f.newRunID()}
	logCtx := slog.With("runId", res.RunID, "gcsBucket", e.Bucket, "gcsObject", e.Name)

	key, ok := events.ResolveJobKey(e.Name)
	if !ok {
		logCtx.Info("Object is not a raw character upload. Skipping.")
		res.Skipped = true
		f.metrics.ObserveRun("skipped")
		return res, nil
	}
	res.JobKey = key
	logCtx = logCtx.With("userId", key.UserID, "characterId", key.CharacterID)
	logCtx.Info("Processing new raw upload.")

	if f.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.runTimeout)
		defer cancel()
	}

	url, err := f.run(ctx, logCtx, e, key)
	if err != nil {
		return f.handleError(ctx, logCtx, res, err)
	}
	res.Status = models.StatusComplete
	res.ImageURL = url
	logCtx.Info("Showcase committed.", "showcaseImageUrl", url)

	res.Cleanup = f.deleteOriginal(ctx, e)
	f.metrics.ObserveRun("complete")
	return res, nil
}

func (f *ShowcaseFunction) run(ctx context.Context, logCtx *slog.Logger, e models.ObjectEvent, key models.JobKey) (string, error) {
	start := time.Now()
	src, err := f.objects.Download(ctx, e.Bucket, e.Name)
	f.metrics.ObserveStep("download", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrDownload, err)
	}
	logCtx.Info("Download complete.", "bytes", len(src))

	if err := f.status.Report(ctx, key, models.StatusRemovingBackground); err != nil {
		return "", err
	}
	img, err := f.apply(ctx, logCtx, "remove-background", f.remover, src)
	if err != nil {
		return "", err
	}

	if f.upscaler != nil {
		if err := f.status.Report(ctx, key, models.StatusUpscaling); err != nil {
			return "", err
		}
		img, err = f.apply(ctx, logCtx, "upscale", f.upscaler, img)
		if err != nil {
			return "", err
		}
	}

	// Finalizing is a pass-through today; local post-processing belongs here.
	if err := f.status.Report(ctx, key, models.StatusFinalizing); err != nil {
		return "", err
	}

	dest := ShowcaseObjectPath(key)
	start = time.Now()
	url, err := f.publish(ctx, dest, img)
	f.metrics.ObserveStep("upload", time.Since(start))
	if err != nil {
		return "", err
	}
	logCtx.Info("Showcase image uploaded.", "destination", dest, "bytes", len(img))

	updates := []firestore.Update{
		{Path: models.FieldShowcaseImageURL, Value: url},
		{Path: models.FieldIsShowcaseProcessed, Value: true},
		{Path: models.FieldShowcaseStatus, Value: string(models.StatusComplete)},
	}
	if err := f.docs.UpdateFields(ctx, key.CharacterID, updates); err != nil {
		return "", fmt.Errorf("%w: failed to commit showcase result: %w", models.ErrPersistence, err)
	}
	return url, nil
}

func (f *ShowcaseFunction) apply(ctx context.Context, logCtx *slog.Logger, step string, t transform.Transform, in []byte) ([]byte, error) {
	logCtx.Info("Running transform.", "step", step, "provider", t.Name())
	start := time.Now()
	out, err := t.Apply(ctx, in)
	f.metrics.ObserveStep(step, time.Since(start))
	if err != nil {
		return nil, transform.Wrap(t.Name(), err)
	}
	if len(out) == 0 {
		return nil, transform.Wrap(t.Name(), errors.New("transform returned no data"))
	}
	logCtx.Info("Transform complete.", "step", step, "bytes", len(out))
	return out, nil
}

func (f *ShowcaseFunction) publish(ctx context.Context, dest string, img []byte) (string, error) {
	url, err := f.objects.Upload(ctx, dest, img, showcaseContentType)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrUpload, err)
	}
	if err := f.objects.MakePublic(ctx, dest); err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrUpload, err)
	}
	return url, nil
}

// handleError marks the document failed on a best-effort basis and returns
// the original error so the event source can redeliver.
func (f *ShowcaseFunction) handleError(ctx context.Context, logCtx *slog.Logger, res *models.ShowcaseResult, err error) (*models.ShowcaseResult, error) {
	logCtx.Error("Showcase processing failed.", "error", err)
	res.Status = models.StatusFailed

	res.FailureMark = models.SideEffect{Op: opMarkFailed, Attempted: true}
	if markErr := f.status.Report(ctx, res.JobKey, models.StatusFailed); markErr != nil {
		res.FailureMark.Err = markErr
		f.metrics.ObserveSideEffectFailure(opMarkFailed)
	}

	f.metrics.ObserveRun("failed")
	return res, err
}

// deleteOriginal removes the raw upload. The job is already committed, so a
// failure here is reported and otherwise ignored.
func (f *ShowcaseFunction) deleteOriginal(ctx context.Context, e models.ObjectEvent) models.SideEffect {
	se := models.SideEffect{Op: opDeleteOriginal, Attempted: true}
	if err := f.objects.Delete(ctx, e.Bucket, e.Name); err != nil {
		se.Err = err
		f.metrics.ObserveSideEffectFailure(opDeleteOriginal)
	}
	return se
}
