package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/clearwealth/filevault/internal/logger"
	"github.com/clearwealth/filevault/internal/ratelimiter"
	"github.com/clearwealth/filevault/pkg/blob"
	"github.com/clearwealth/filevault/pkg/config"
	"github.com/clearwealth/filevault/pkg/gc"
	"github.com/clearwealth/filevault/pkg/metadata"
	"github.com/clearwealth/filevault/pkg/metrics"
	"github.com/clearwealth/filevault/pkg/registry"
	"github.com/clearwealth/filevault/pkg/upload"
	"github.com/hashicorp/go-multierror"
)

const usage = `filevault - client document vault

Usage:
  filevault [flags] upload <path>...     Upload one or more files
  filevault [flags] list [category]      List files, optionally by category
  filevault [flags] search <term>        Search files by name or description
  filevault [flags] url <id>             Print a signed download URL
  filevault [flags] describe <id> <text> Set a file's description
  filevault [flags] mark-processed <id>  Mark a file as processed
  filevault [flags] rm <id>...           Remove one or more files
  filevault [flags] gc                   Sweep orphaned blobs (see -dry-run, -watch)

Flags:
`

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/filevault/config.yaml)")
	owner := flag.String("owner", "", "Owner identifier (required except for gc)")
	description := flag.String("description", "", "Description for uploaded files")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	dryRun := flag.Bool("dry-run", false, "gc: report orphaned blobs without deleting them")
	watch := flag.Bool("watch", false, "gc: keep running at the configured interval instead of one shot")
	metricsListen := flag.String("metrics-listen", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(*logLevel)
	}
	logger.SetLevel(cfg.Logging.Level)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	action := flag.Arg(0)
	args := flag.Args()[1:]

	if *owner == "" && action != "gc" {
		log.Fatal("Missing required flag: -owner")
	}

	// Cancel on SIGINT/SIGTERM so in-flight store calls stop cleanly
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	blobs, err := config.CreateBlobStore(ctx, &cfg.Blob)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}

	records, err := config.CreateMetadataStore(ctx, &cfg.Metadata)
	if err != nil {
		log.Fatalf("Failed to create metadata store: %v", err)
	}
	defer func() {
		if err := records.Close(); err != nil {
			logger.Warn("Failed to close metadata store: %v", err)
		}
	}()

	var uploadMetrics upload.Metrics
	var registryMetrics registry.Metrics
	if *metricsListen != "" {
		metrics.InitRegistry()
		uploadMetrics = metrics.NewUploadMetrics()
		registryMetrics = metrics.NewRegistryMetrics()

		go func() {
			logger.Info("serving metrics on %s", *metricsListen)
			server := &http.Server{Addr: *metricsListen, Handler: metrics.Handler()}
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed: %v", err)
			}
		}()
	}

	var limiter *ratelimiter.RateLimiter
	if cfg.Upload.RateLimit > 0 {
		limiter = ratelimiter.New(uint(cfg.Upload.RateLimit), uint(cfg.Upload.RateBurst))
	}

	pipeline, err := upload.NewPipeline(upload.PipelineConfig{
		Blobs:   blobs,
		Records: records,
		Limits: upload.Limits{
			MaxFiles:     cfg.Upload.MaxFiles,
			MaxSizeBytes: cfg.Upload.MaxSizeBytes,
			AllowedTypes: cfg.Upload.AllowedTypes,
		},
		Parallelism: cfg.Upload.Parallelism,
		RateLimiter: limiter,
		Metrics:     uploadMetrics,
	})
	if err != nil {
		log.Fatalf("Failed to create upload pipeline: %v", err)
	}

	reg, err := registry.NewRegistry(registry.RegistryConfig{
		Blobs:   blobs,
		Records: records,
		URLTTL:  cfg.Registry.URLTTL,
		Metrics: registryMetrics,
	})
	if err != nil {
		log.Fatalf("Failed to create registry: %v", err)
	}

	if action == "gc" {
		if err := runGC(ctx, blobs, records, cfg, *dryRun, *watch); err != nil {
			log.Fatalf("gc failed: %v", err)
		}
		return
	}

	if err := run(ctx, action, args, *owner, *description, pipeline, reg); err != nil {
		log.Fatalf("%s failed: %v", action, err)
	}
}

// runGC sweeps orphaned blobs: one shot by default, periodic with -watch.
func runGC(ctx context.Context, blobs blob.Store, records metadata.Store, cfg *config.Config, dryRun, watch bool) error {
	collector, err := gc.NewCollector(records, blobs, gc.Config{
		Interval:  cfg.GC.Interval,
		BatchSize: cfg.GC.BatchSize,
		DryRun:    dryRun,
	})
	if err != nil {
		return err
	}

	if !watch {
		stats, err := collector.Collect(ctx)
		if err != nil {
			return err
		}
		fmt.Println(stats.Summary())
		return nil
	}

	collector.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return collector.Stop(stopCtx)
}

func run(
	ctx context.Context,
	action string,
	args []string,
	owner string,
	description string,
	pipeline *upload.Pipeline,
	reg *registry.Registry,
) error {
	switch action {
	case "upload":
		return runUpload(ctx, pipeline, owner, description, args)
	case "list":
		return runList(ctx, reg, owner, args)
	case "search":
		return runSearch(ctx, reg, owner, args)
	case "url":
		return runURL(ctx, reg, owner, args)
	case "describe":
		return runDescribe(ctx, reg, owner, args)
	case "mark-processed":
		return runMarkProcessed(ctx, reg, owner, args)
	case "rm":
		return runRemove(ctx, reg, owner, args)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

func runUpload(ctx context.Context, pipeline *upload.Pipeline, owner, description string, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("upload requires at least one file path")
	}

	files := make([]upload.File, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		name := filepath.Base(path)
		files = append(files, upload.File{
			Name:      name,
			MimeType:  detectMimeType(name),
			SizeBytes: int64(len(content)),
			Content:   content,
		})
	}

	descriptions := make([]string, len(files))
	for i := range descriptions {
		descriptions[i] = description
	}

	progress := make(chan upload.Event, len(files)*8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range progress {
			printProgress(event)
		}
	}()

	uploaded := pipeline.UploadBatch(ctx, owner, files, descriptions, progress)
	close(progress)
	<-done

	for _, record := range uploaded {
		fmt.Printf("uploaded %s (%s, %s, id=%s)\n",
			record.Name, record.Category, formatSize(record.SizeBytes), record.ID)
	}

	if failed := len(files) - len(uploaded); failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(files))
	}
	return nil
}

func printProgress(event upload.Event) {
	switch event.Status {
	case upload.StatusError:
		fmt.Fprintf(os.Stderr, "  %s: error: %v\n", event.FileName, event.Err)
	default:
		fmt.Fprintf(os.Stderr, "  %s: %s (%d%%)\n", event.FileName, event.Status, event.Percent)
	}
}

func runList(ctx context.Context, reg *registry.Registry, owner string, args []string) error {
	files, err := reg.List(ctx, owner)
	if err != nil {
		return err
	}

	if len(args) > 0 && args[0] != registry.CategoryAll {
		category, err := metadata.ParseCategory(args[0])
		if err != nil {
			return err
		}
		files = registry.FilterByCategory(files, category)
	}

	for _, record := range files {
		printRecord(record)
	}
	fmt.Printf("%d file(s), %s total\n", registry.Count(files), formatSize(registry.TotalSize(files)))
	return nil
}

func runSearch(ctx context.Context, reg *registry.Registry, owner string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("search requires a term")
	}

	files, err := reg.List(ctx, owner)
	if err != nil {
		return err
	}

	matches := registry.Search(files, args[0], registry.CategoryAll)
	for _, record := range matches {
		printRecord(record)
	}
	fmt.Printf("%d match(es)\n", len(matches))
	return nil
}

func runURL(ctx context.Context, reg *registry.Registry, owner string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("url requires exactly one file id")
	}

	record, err := findRecord(ctx, reg, owner, args[0])
	if err != nil {
		return err
	}

	url, err := reg.ResolveDownloadURL(ctx, record.StorageKey)
	if err != nil {
		return err
	}

	fmt.Println(url)
	return nil
}

// findRecord resolves a file id to the owner's record, so ownership is
// checked before any blob operation.
func findRecord(ctx context.Context, reg *registry.Registry, owner, id string) (metadata.FileRecord, error) {
	files, err := reg.List(ctx, owner)
	if err != nil {
		return metadata.FileRecord{}, err
	}
	for _, record := range files {
		if record.ID == id {
			return record, nil
		}
	}
	return metadata.FileRecord{}, metadata.NewNotFound(fmt.Sprintf("file %s not found", id))
}

func runDescribe(ctx context.Context, reg *registry.Registry, owner string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("describe requires a file id and a description")
	}

	record, err := reg.UpdateDescription(ctx, args[0], owner, args[1])
	if err != nil {
		return err
	}

	fmt.Printf("updated %s\n", record.ID)
	return nil
}

func runMarkProcessed(ctx context.Context, reg *registry.Registry, owner string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("mark-processed requires exactly one file id")
	}

	record, err := reg.MarkProcessed(ctx, args[0], owner, true)
	if err != nil {
		return err
	}

	fmt.Printf("marked %s as processed\n", record.ID)
	return nil
}

// runRemove deletes each id independently and aggregates failures, so one
// bad id does not stop the rest of the batch.
func runRemove(ctx context.Context, reg *registry.Registry, owner string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("rm requires at least one file id")
	}

	var result *multierror.Error
	for _, id := range args {
		if err := reg.Delete(ctx, id, owner); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", id, err))
			continue
		}
		fmt.Printf("removed %s\n", id)
	}

	return result.ErrorOrNil()
}

func printRecord(record metadata.FileRecord) {
	processed := " "
	if record.Processed {
		processed = "*"
	}
	fmt.Printf("%s %s  %-12s %8s  %s  %s\n",
		processed,
		record.ID,
		record.Category,
		formatSize(record.SizeBytes),
		record.UploadedAt.Local().Format(time.DateTime),
		record.Name,
	)
	if record.Description != "" {
		fmt.Printf("    %s\n", record.Description)
	}
}

// detectMimeType guesses the MIME type from the file extension. Unknown
// extensions fall back to application/octet-stream, which the upload
// validation rejects unless the allow-list permits it.
func detectMimeType(name string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		return "application/octet-stream"
	}
	// TypeByExtension may append charset parameters; the allow-list
	// matches bare types.
	if base, _, found := strings.Cut(mimeType, ";"); found {
		return strings.TrimSpace(base)
	}
	return mimeType
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
