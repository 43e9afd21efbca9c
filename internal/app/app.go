package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"distributed-unit/internal/clock"
	"distributed-unit/internal/common/logger"
	ducontext "distributed-unit/internal/context"
	"distributed-unit/internal/context/cu"
	"distributed-unit/internal/metrics"
	"distributed-unit/internal/timer"
	"distributed-unit/internal/transport"
	"distributed-unit/pkg/config"
	"distributed-unit/pkg/f1ap"

	"github.com/alitto/pond/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// App represents the DU-CP application
type App struct {
	cfg    config.Config
	logger *logger.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	pool     pond.Pool
	timers   *timer.Manager
	clock    *clock.Source
	cells    map[f1ap.CellIndex]*clock.CellTimeSource
	tnla     *transport.SctpConn
	cu       *cu.GNBCU
	du       *ducontext.DuContext
	http     *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new App instance
// It loads the config internally before initializing the application
func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.SetFormat(cfg.Logging.Format)
	log := logger.InitLogger(cfg.Logging.Level, map[string]string{"mod": "app"})

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:    cfg,
		logger: log,
		cells:  make(map[f1ap.CellIndex]*clock.CellTimeSource),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start brings up the clock, the F1-C association and the DU engine, then
// runs F1 Setup in the background.
func (a *App) Start() error {
	a.logger.Info("Starting DU-CP application %s (gNB-DU ID %d)", a.cfg.DU.Name, a.cfg.DU.GnbDuId)

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)
	a.pool = pond.NewPool(a.cfg.Tunables.WorkerPoolSize)
	a.timers = timer.NewManager()
	a.clock = clock.New(clock.Options{
		Subscriber: a.timers,
		Metrics:    a.metrics,
		Logger:     logger.InitLogger(a.cfg.Logging.Level, map[string]string{"mod": "clock"}),
	})

	cells := make(map[f1ap.CellIndex]f1ap.Nrcgi, len(a.cfg.DU.Cells))
	var served []f1ap.ServedCell
	plmn := f1ap.Plmn{Mcc: a.cfg.DU.PLMN.MCC, Mnc: a.cfg.DU.PLMN.MNC}
	for _, c := range a.cfg.DU.Cells {
		nrcgi := f1ap.Nrcgi{Plmn: plmn, NrCellId: c.NrCellId}
		cells[f1ap.CellIndex(c.Index)] = nrcgi
		served = append(served, f1ap.ServedCell{Nrcgi: nrcgi, Pci: c.PCI, Tac: c.TAC})
		cts, err := a.clock.AddCell(c.Index, c.Numerology)
		if err != nil {
			return fmt.Errorf("register cell %d: %w", c.Index, err)
		}
		a.cells[f1ap.CellIndex(c.Index)] = cts
	}

	tnla, err := transport.NewSctpConn(transport.Options{
		LocalAddr:  a.cfg.F1AP.LocalEndpoint(),
		RemoteAddr: a.cfg.F1AP.CUEndpoint(),
		OutStreams: a.cfg.F1AP.SCTP.OutStreams,
		InStreams:  a.cfg.F1AP.SCTP.InStreams,
		Logger:     logger.InitLogger(a.cfg.Logging.Level, map[string]string{"mod": "sctp"}),
	})
	if err != nil {
		return fmt.Errorf("F1-C transport: %w", err)
	}
	if err := tnla.Connect(a.ctx); err != nil {
		return fmt.Errorf("connect to CU %s: %w", a.cfg.F1AP.CUEndpoint(), err)
	}
	a.tnla = tnla

	a.cu, err = cu.New(cu.Options{
		GnbDuId:     a.cfg.DU.GnbDuId,
		GnbDuName:   a.cfg.DU.Name,
		ServedCells: served,
		Tnla:        tnla,
		SetupRetry:  a.cfg.F1AP.Timers.F1SetupRetry,
		Logger:      logger.InitLogger(a.cfg.Logging.Level, map[string]string{"mod": "cu"}),
	})
	if err != nil {
		return err
	}

	duLog := logger.InitLogger(a.cfg.Logging.Level, map[string]string{"mod": "du"})
	a.du, err = ducontext.NewDuContext(ducontext.Options{
		Config: ducontext.Config{
			GnbDuId:               a.cfg.DU.GnbDuId,
			Cells:                 cells,
			MaxUes:                a.cfg.Tunables.MaxUes,
			ReleaseTimeout:        a.cfg.F1AP.Timers.UeReleaseTimeout,
			ReestablishmentWindow: a.cfg.F1AP.Timers.ReestablishmentWindow,
		},
		Manager:  newLocalManager(duLog.With("mod", "du-manager")),
		Notifier: a.cu,
		Rlc:      rlcSink{duLog},
		Timers:   a.timers,
		Pool:     a.pool,
		Metrics:  a.metrics,
		Logger:   duLog,
	})
	if err != nil {
		return err
	}

	a.clock.Start()

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := a.cu.Run(a.ctx, a.du); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("F1-C receive loop stopped: %v", err)
		}
	}()
	go func() {
		defer a.wg.Done()
		if err := a.cu.Setup(a.ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("F1 Setup: %v", err)
		}
	}()

	if addr := a.cfg.Metrics.ListenAddress; addr != "" {
		a.http = &http.Server{
			Addr:              addr,
			Handler:           newRouter(a.registry, a.du, a.cu.IsActive),
			ReadHeaderTimeout: 5 * time.Second,
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("HTTP server: %v", err)
			}
		}()
		a.logger.Info("Serving metrics on %s", addr)
	}

	a.logger.Info("DU-CP application started successfully")
	return nil
}

// DU is the running F1AP-DU engine, for the lower layers.
func (a *App) DU() *ducontext.DuContext { return a.du }

// CellTimeSource is where the lower layers of a cell report slot indications.
func (a *App) CellTimeSource(idx f1ap.CellIndex) (*clock.CellTimeSource, bool) {
	c, ok := a.cells[idx]
	return c, ok
}

// Stop stops the DU-CP application gracefully
func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("Stopping DU-CP application")

	if a.cancel != nil {
		a.cancel()
	}

	var errs []error
	if a.http != nil {
		if err := a.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown HTTP server: %w", err))
		}
	}
	if a.du != nil {
		a.du.Terminate()
	}
	if a.clock != nil {
		for _, c := range a.cells {
			c.Close()
		}
		a.clock.Stop()
	}
	if a.tnla != nil {
		if err := a.tnla.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close F1-C association: %w", err))
		}
	}
	a.wg.Wait()
	if a.pool != nil {
		a.pool.StopAndWait()
	}

	a.logger.Info("DU-CP application stopped")
	return errors.Join(errs...)
}
