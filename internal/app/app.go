package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/harivignesh/cp-tracker/external/atcoder"
	"github.com/harivignesh/cp-tracker/external/codechef"
	"github.com/harivignesh/cp-tracker/external/codeforces"
	"github.com/harivignesh/cp-tracker/external/hackerrank"
	"github.com/harivignesh/cp-tracker/external/leetcode"
	"github.com/harivignesh/cp-tracker/internal/config"
	"github.com/harivignesh/cp-tracker/internal/domain/contest"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/infrastructure/auth"
	"github.com/harivignesh/cp-tracker/internal/infrastructure/reportstore/excel"
	"github.com/harivignesh/cp-tracker/internal/infrastructure/repository/memory"
	"github.com/harivignesh/cp-tracker/internal/infrastructure/repository/postgres"
	"github.com/harivignesh/cp-tracker/internal/interfaces/httpapi"
	"github.com/harivignesh/cp-tracker/internal/platform/cache"
	idgen "github.com/harivignesh/cp-tracker/internal/platform/id"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
	"github.com/harivignesh/cp-tracker/internal/scheduler"
	"github.com/harivignesh/cp-tracker/internal/usecase"
)

// Application bundles the wired process components. Close releases the
// database handle when one was opened.
type Application struct {
	Server    *http.Server
	Scheduler *scheduler.Scheduler
	Close     func() error
}

func NewApplication(cfg config.Config, logger *logging.Logger, httpLogger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.Default()
	}

	lcClient := leetcode.NewClient(leetcode.ClientConfig{
		Endpoint:       cfg.LeetCodeEndpoint,
		Timeout:        cfg.FetchTimeout,
		UserAgent:      cfg.FetchUserAgent,
		Logger:         logger,
		CircuitBreaker: cfg.FetchCircuit,
	})
	cfClient := codeforces.NewClient(codeforces.ClientConfig{
		BaseURL:        cfg.CodeforcesBaseURL,
		Timeout:        cfg.FetchTimeout,
		UserAgent:      cfg.FetchUserAgent,
		Logger:         logger,
		CircuitBreaker: cfg.FetchCircuit,
	})
	ccClient := codechef.NewClient(codechef.ClientConfig{
		BaseURL:        cfg.CodeChefBaseURL,
		Timeout:        cfg.FetchTimeout,
		UserAgent:      cfg.FetchUserAgent,
		Logger:         logger,
		CircuitBreaker: cfg.FetchCircuit,
	})
	hrClient := hackerrank.NewClient(hackerrank.ClientConfig{
		BaseURL:        cfg.HackerRankBaseURL,
		Timeout:        cfg.FetchTimeout,
		UserAgent:      cfg.FetchUserAgent,
		Logger:         logger,
		CircuitBreaker: cfg.FetchCircuit,
	})
	acClient := atcoder.NewClient(atcoder.ClientConfig{
		FeedURL:        cfg.AtCoderFeedURL,
		Timeout:        cfg.FetchTimeout,
		UserAgent:      cfg.FetchUserAgent,
		Logger:         logger,
		CircuitBreaker: cfg.FetchCircuit,
	})

	var (
		students     student.Repository
		performances contest.PerformanceRepository
		closeFn      = func() error { return nil }
	)
	if cfg.UseMemoryStores() {
		students = memory.NewStudentRepository(nil)
		performances = memory.NewPerformanceRepository()
		logger.Warn("DB_URL is empty, running on in-memory repositories")
	} else {
		db, err := sqlx.Connect("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary))
		if err != nil {
			return nil, fmt.Errorf("connect to database %s: %w", dbNameFromURL(cfg.DBURL), err)
		}
		students = postgres.NewStudentRepository(db)
		performances = postgres.NewPerformanceRepository(db)
		closeFn = db.Close
	}

	reportStore, err := excel.NewStore(cfg.ReportDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}

	aggregatorSvc, err := usecase.NewAggregatorService(
		[]usecase.PlatformClient{lcClient, cfClient, ccClient, hrClient},
		logger, cfg.AggregationTimeout)
	if err != nil {
		return nil, fmt.Errorf("build aggregator service: %w", err)
	}

	ids := idgen.NewRandomGenerator()
	studentSvc, err := usecase.NewStudentService(students, aggregatorSvc, ids, logger)
	if err != nil {
		return nil, fmt.Errorf("build student service: %w", err)
	}
	refreshSvc, err := usecase.NewRefreshService(students, performances, aggregatorSvc, ids, logger, cfg.MaxRefreshWorkers)
	if err != nil {
		return nil, fmt.Errorf("build refresh service: %w", err)
	}
	reportSvc, err := usecase.NewReportService(students, cfClient, logger)
	if err != nil {
		return nil, fmt.Errorf("build report service: %w", err)
	}
	reconcileSvc, err := usecase.NewReconcileService(reportStore, logger)
	if err != nil {
		return nil, fmt.Errorf("build reconcile service: %w", err)
	}
	contestSvc, err := usecase.NewContestService(
		[]usecase.UpcomingContestsClient{cfClient, lcClient, acClient},
		cache.NewStore(cfg.CacheTTL), logger)
	if err != nil {
		return nil, fmt.Errorf("build contest service: %w", err)
	}
	dashboardSvc, err := usecase.NewDashboardService(students, cache.NewStore(cfg.CacheTTL), logger)
	if err != nil {
		return nil, fmt.Errorf("build dashboard service: %w", err)
	}

	sched, err := scheduler.New(refreshSvc, dashboardSvc, logger, scheduler.Config{
		RefreshInterval:   cfg.RefreshInterval,
		HeartbeatInterval: cfg.HeartbeatInterval,
		RunOnStart:        cfg.RefreshOnStart,
	})
	if err != nil {
		return nil, fmt.Errorf("build scheduler: %w", err)
	}

	handler := httpapi.NewHandler(studentSvc, refreshSvc, reportSvc, reconcileSvc,
		contestSvc, dashboardSvc, reportStore, httpLogger)
	router := httpapi.NewRouter(handler, auth.NewStaticVerifier(cfg.APIToken), httpLogger, cfg.CORSAllowedOrigins)

	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &Application{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		Scheduler: sched,
		Close:     closeFn,
	}, nil
}
