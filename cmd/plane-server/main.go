package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"plane-detect-go/internal/calib"
	"plane-detect-go/internal/config"
	"plane-detect-go/internal/detect"
	"plane-detect-go/internal/ingest"
	"plane-detect-go/internal/output"
	"plane-detect-go/internal/publish"
	"plane-detect-go/internal/sensorapi"
	"plane-detect-go/internal/server"
	"plane-detect-go/internal/simulator"
	"plane-detect-go/internal/source"
	"plane-detect-go/internal/types"
)

func main() {
	var (
		configPath     = flag.String("config", "config/plane_detector.yaml", "Path to the plane detector configuration file")
		depthEndpoint  = flag.String("depth-endpoint", "", "Endpoint of the depth image stream (no distortion), required")
		cameraInfo     = flag.String("camera-info", "", "Path to the camera info file, required; depth and color must share the same distortion-free parameters")
		colorEndpoint  = flag.String("color-endpoint", "", "Endpoint of the color image stream; optional, visualization only. When empty a black image is used instead")
		monitorPort    = flag.Int("monitor-port", 8890, "HTTP port for the monitor endpoints")
		debug          = flag.Bool("debug", false, "Run with simulated frames and the synthetic detector")
		debugAcqRate   = flag.Float64("debug-acq-rate", 30.0, "Simulated acquisition rate (frames/sec)")
		rawLogEnabled  = flag.Bool("raw-log", false, "Write raw CBOR ingest messages to disk")
		rawLogDir      = flag.String("raw-log-dir", "rawlog", "Directory for raw ingest logs")
		ingestLogEvery = flag.Int("ingest-log-every", 100, "Log every Nth ingest error")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to read config: %v", err)
	}
	log.Printf("read config from: %s", *configPath)

	if *cameraInfo == "" {
		log.Fatal("camera-info is required")
	}
	info, err := calib.Load(*cameraInfo)
	if err != nil {
		log.Fatalf("failed to read camera info: %v", err)
	}

	if !*debug && *depthEndpoint == "" {
		log.Fatal("depth-endpoint is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outputs, err := publish.NewOutputs(cfg.PublishEndpoint, publish.Topics{
		ColoredMask: cfg.TopicColoredMask,
		ImageViz:    cfg.TopicImageViz,
		Result:      cfg.TopicResult,
		Pose:        cfg.TopicPose,
	})
	if err != nil {
		log.Fatalf("failed to bind publish endpoint %s: %v", cfg.PublishEndpoint, err)
	}
	defer outputs.Close()

	var statusMu sync.Mutex
	status := map[string]any{
		"detector":   "stream",
		"driver":     "unknown",
		"last_cycle": "",
	}
	setStatus := func(key string, value any) {
		statusMu.Lock()
		status[key] = value
		statusMu.Unlock()
	}

	var recorder ingest.RawRecorder
	if *rawLogEnabled {
		writer, err := output.NewRawLogWriter(*rawLogDir, "raw_cbor")
		if err != nil {
			log.Fatalf("failed to start raw log: %v", err)
		}
		recorder = writer
		go func() {
			<-ctx.Done()
			if err := writer.Close(); err != nil {
				log.Printf("raw log close failed: %v", err)
			}
		}()
	}

	var depthSlot source.DepthSlot
	var colorSlot source.ColorSlot
	colorConfigured := *colorEndpoint != ""

	var detector detect.Detector
	if *debug {
		setStatus("detector", "simulator")
		depthCh, colorCh := simulator.Streams(ctx, info.Height, info.Width, *debugAcqRate)
		go source.FeedDepth(ctx, depthCh, &depthSlot)
		go source.FeedColor(ctx, colorCh, &colorSlot)
		colorConfigured = true
		detector = detect.Synthetic{}
	} else {
		depthCh, err := ingest.StreamDepth(ctx, *depthEndpoint, *ingestLogEvery, recorder)
		if err != nil {
			log.Fatalf("failed to start depth ingest: %v", err)
		}
		go source.FeedDepth(ctx, depthCh, &depthSlot)

		if colorConfigured {
			colorCh, err := ingest.StreamColor(ctx, *colorEndpoint, *ingestLogEvery, recorder)
			if err != nil {
				log.Fatalf("failed to start color ingest: %v", err)
			}
			go source.FeedColor(ctx, colorCh, &colorSlot)
		}

		remote, err := detect.NewRemote(cfg.DetectorEndpoint, info)
		if err != nil {
			log.Fatalf("failed to connect detector %s: %v", cfg.DetectorEndpoint, err)
		}
		defer remote.Close()
		detector = remote
	}

	if cfg.DriverStatusURL != "" {
		go sensorapi.Poll(ctx, cfg.DriverStatusURL, time.Second, func(state string) {
			setStatus("driver", state)
		})
	}

	var sink server.Sink = outputs
	if cfg.DetectionLogDir != "" {
		dl, err := output.NewDetectionLog(cfg.DetectionLogDir)
		if err != nil {
			log.Fatalf("failed to start detection log: %v", err)
		}
		go func() {
			<-ctx.Done()
			if err := dl.Close(); err != nil {
				log.Printf("detection log close failed: %v", err)
			}
		}()
		sink = &loggedSink{Outputs: outputs, dl: dl}
	}

	uiMessages := make(chan any, 16)
	var latestMu sync.Mutex
	var latest server.Summary
	var hasLatest bool

	loop := &server.Loop{
		Depth:    &depthSlot,
		Detector: detector,
		Sink:     sink,
		Poll:     cfg.PollInterval(),
		Notify: func(summary server.Summary) {
			latestMu.Lock()
			latest = summary
			hasLatest = true
			latestMu.Unlock()
			setStatus("last_cycle", summary.Time)
			select {
			case uiMessages <- summary:
			default:
			}
		},
	}
	if colorConfigured {
		loop.Color = &colorSlot
	}

	statusFn := func() map[string]any {
		statusMu.Lock()
		copied := map[string]any{}
		for k, v := range status {
			copied[k] = v
		}
		statusMu.Unlock()
		copied["metrics"] = map[string]any{
			"cycles_total":                 loop.Cycles(),
			"planes_total":                 loop.PlanesTotal(),
			"depth_drops_total":            depthSlot.Drops(),
			"color_drops_total":            colorSlot.Drops(),
			"ingest_decode_failures_total": ingest.DecodeFailures(),
			"publish_errors_total":         outputs.SendErrors(),
		}
		return copied
	}

	snapshotFn := func() any {
		latestMu.Lock()
		defer latestMu.Unlock()
		if !hasLatest {
			return nil
		}
		return latest
	}

	configFn := func() map[string]any {
		return map[string]any{
			"type":               "config",
			"topic_colored_mask": cfg.TopicColoredMask,
			"topic_image_viz":    cfg.TopicImageViz,
			"topic_result":       cfg.TopicResult,
			"topic_pose":         cfg.TopicPose,
			"publish_endpoint":   cfg.PublishEndpoint,
			"detector_endpoint":  cfg.DetectorEndpoint,
			"poll_interval_ms":   cfg.PollIntervalMs,
			"monitor_port":       *monitorPort,
		}
	}

	log.Printf("monitor listening at http://localhost:%d", *monitorPort)
	go func() {
		err := server.RunMonitor(ctx, *monitorPort, uiMessages, statusFn, snapshotFn, configFn)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("monitor stopped: %v", err)
		}
	}()

	if err := loop.Run(ctx); err != nil {
		log.Fatalf("server loop failed: %v", err)
	}
	log.Printf("plane detector server stopped")
}

// loggedSink tees published results into the detection CSV log. The
// mask publish precedes the result publish in every cycle, so the mask
// frame id is current when the rows are written.
type loggedSink struct {
	*publish.Outputs
	dl      *output.DetectionLog
	mu      sync.Mutex
	frameID int
}

func (s *loggedSink) PublishMask(img *types.ColorImage) {
	s.mu.Lock()
	s.frameID = img.FrameID
	s.mu.Unlock()
	s.Outputs.PublishMask(img)
}

func (s *loggedSink) PublishResult(res types.PlanesResult) {
	s.mu.Lock()
	frameID := s.frameID
	s.mu.Unlock()
	planes := make([]types.PlaneParam, res.N)
	for i := range planes {
		copy(planes[i].Normal[:], res.Norms[3*i:3*i+3])
		copy(planes[i].Center3D[:], res.Center3D[3*i:3*i+3])
		copy(planes[i].Center2D[:], res.Center2D[2*i:2*i+2])
		copy(planes[i].MaskColor[:], res.MaskColor[3*i:3*i+3])
	}
	if err := s.dl.WriteCycle(frameID, planes); err != nil {
		log.Printf("detection log write failed: %v", err)
	}
	s.Outputs.PublishResult(res)
}
