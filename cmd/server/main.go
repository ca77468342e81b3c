package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/adapters/export/excel"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/adapters/export/pdf"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/adapters/grpc/handler"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/adapters/grpc/middleware"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/adapters/httpapi"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/adapters/repository/postgres"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/account"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/audit"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/employee"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/auth"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/config"
	pg "github.com/ogurasousui/codex-grpc-rrhh/internal/platform/db/postgres"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/logging"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/metrics"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		logrus.Fatalf("failed to initialize logger: %v", err)
	}

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database pool: %v", err)
	}
	defer dbPool.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	auditRepo := postgres.NewAuditRepository(dbPool)
	accountRepo := postgres.NewAccountRepository(dbPool)

	recorder := audit.NewRecorder(auditRepo, nil, appMetrics, logger)
	ledger := audit.NewService(auditRepo)
	employeeSvc := employee.NewService(employeeRepo, recorder, ledger, nil, pg.NewTransactionManager(dbPool))
	exporter := employee.NewExporter(employeeRepo, recorder, map[audit.ExportKind]employee.Renderer{
		audit.ExportExcel: excel.NewRenderer(),
		audit.ExportPDF:   pdf.NewRenderer(),
	}, nil, cfg.Export.CompanyName, appMetrics)

	authenticator := auth.NewAuthenticator(
		auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		account.NewResolver(accountRepo),
	)

	grpcServer := server.New(cfg.Server.ListenAddr, server.Services{
		Employees: handler.NewEmployeeGrpcHandler(employeeSvc, exporter),
		Audit:     handler.NewAuditGrpcHandler(ledger),
	}, grpc.ChainUnaryInterceptor(middleware.UnaryServerInterceptor(logger, authenticator)))

	httpServer := server.NewHTTP(cfg.Server.HTTPAddr, httpapi.NewRouter(httpapi.Deps{
		Logger:   logger,
		Auth:     authenticator,
		Exporter: exporter,
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("gRPC server listening on %s", cfg.Server.ListenAddr)
		return grpcServer.Run(gctx)
	})
	g.Go(func() error {
		logger.Infof("HTTP server listening on %s", cfg.Server.HTTPAddr)
		return httpServer.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("server stopped with error: %v", err)
	}
}
