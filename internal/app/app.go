package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/transitboard/internal/config"
	"github.com/five82/transitboard/internal/dispatch"
	"github.com/five82/transitboard/internal/entur"
	"github.com/five82/transitboard/internal/logging"
	"github.com/five82/transitboard/internal/metrics"
	"github.com/five82/transitboard/internal/prefs"
	"github.com/five82/transitboard/internal/refresh"
	"github.com/five82/transitboard/internal/retry"
	"github.com/five82/transitboard/internal/schedule"
	"github.com/five82/transitboard/internal/state"
	"github.com/five82/transitboard/internal/ui"
)

const shutdownTimeout = 5 * time.Second

// Options configure the transitboard application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses the config value
	PollEvery  int    // seconds; zero uses the config value
}

// Services is the wired object graph behind the UI.
type Services struct {
	Board      *Board
	Dispatcher *dispatch.Dispatcher
	Timer      *schedule.Timer
	Coord      *refresh.Coordinator
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry

	cancel context.CancelFunc
}

// Run boots transitboard and blocks until the UI exits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PrefsPath != "" {
		cfg.PrefsPath = opts.PrefsPath
	}
	if opts.PollEvery > 0 {
		cfg.RefreshInterval = time.Duration(opts.PollEvery) * time.Second
	}

	logger, closer, err := logging.Open(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closer.Close()

	medium, err := prefs.NewFileMedium(cfg.PrefsPath)
	if err != nil {
		return fmt.Errorf("open prefs: %w", err)
	}

	svc, err := Build(ctx, cfg, medium, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("transitboard starting",
		"prefs", medium.Path(),
		"interval", cfg.RefreshInterval.String(),
		"max_concurrency", cfg.MaxConcurrency,
	)

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, svc.Registry, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", "error", err)
			}
		}()
	}

	svc.Start()

	return ui.Run(ui.Options{
		Context:   ctx,
		Board:     svc.Board,
		ThemeName: svc.Board.Theme(),
		LogPath:   cfg.LogPath,
		Tick:      ui.DefaultUIInterval,
		Interval:  cfg.RefreshInterval,
	})
}

// Build wires every service once. Nothing runs until Start.
func Build(ctx context.Context, cfg config.Config, medium prefs.Medium, logger *slog.Logger) (*Services, error) {
	logger = logging.Discard(logger)
	ctx, cancel := context.WithCancel(ctx)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	dispatcher := dispatch.New(cfg.MaxConcurrency, cfg.DispatchDelay,
		dispatch.WithObserver(collector.RecordDispatch))

	// The HTTP timeout is a backstop; attempts are bounded by the retry policy.
	client := &http.Client{Timeout: 2 * cfg.RequestTimeout}

	httpTransport, err := entur.NewHTTPTransport(cfg.JourneyPlannerURL, cfg.ClientName,
		entur.WithHTTPClient(client),
		entur.WithRequestsPerMinute(cfg.RequestsPerMinute),
		entur.WithRequestObserver(collector.RecordRequest),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("init journey planner transport: %w", err)
	}
	transport := entur.Retrying(
		entur.Throttled(httpTransport, dispatcher),
		cfg.RetryPolicy(),
		logger,
		retry.WithOnRetry(collector.RecordRetry),
	)

	geocoder, err := entur.NewGeocoder(cfg.GeocoderURL, cfg.ClientName, cfg.GeocoderCountyIDs, client)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("init geocoder: %w", err)
	}

	panels := &state.Store{}
	coord := refresh.NewCoordinator(transport, entur.BuildTripQuery, panels, logger,
		refresh.WithLanguage(cfg.Language),
		refresh.WithSearchWindow(cfg.SearchWindowMinutes),
		refresh.WithObserver(collector.RecordRefresh),
	)

	board := &Board{
		ctx:    ctx,
		prefs:  prefs.NewStore(medium, logger),
		medium: medium,
		panels: panels,
		coord:  coord,
		search: entur.NewAutocompleter(geocoder, prefs.ModeBus),
		logger: logger,
		onPass: collector.RecordRefreshPass,
	}
	timer := schedule.New(cfg.RefreshInterval, board.pass, schedule.WithLogger(logger))
	board.timer = timer
	board.sync()

	return &Services{
		Board:      board,
		Dispatcher: dispatcher,
		Timer:      timer,
		Coord:      coord,
		Metrics:    collector,
		Registry:   reg,
		cancel:     cancel,
	}, nil
}

// Start begins periodic refreshing; the first pass runs immediately.
func (s *Services) Start() {
	s.Timer.Start()
}

// Close stops refreshing, abandons outstanding requests and waits for
// running fetches to finish.
func (s *Services) Close() {
	s.Timer.Stop()
	s.cancel()
	s.Board.search.Cancel()
	s.Dispatcher.Close()
	s.Coord.Wait()
}

func startMetricsServer(addr string, gatherer prometheus.Gatherer, logger *slog.Logger) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           metrics.SetupMetricsRoute(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("metrics server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return server
}
