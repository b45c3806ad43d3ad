package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jhoicas/pos-core/internal/application/billing"
	"github.com/jhoicas/pos-core/internal/application/cash"
	"github.com/jhoicas/pos-core/internal/application/catalog"
	"github.com/jhoicas/pos-core/internal/application/filing"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/application/inventory"
	"github.com/jhoicas/pos-core/internal/application/numbering"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/jhoicas/pos-core/internal/infrastructure/cache"
	infradian "github.com/jhoicas/pos-core/internal/infrastructure/dian"
	"github.com/jhoicas/pos-core/internal/infrastructure/dian/signer"
	"github.com/jhoicas/pos-core/internal/infrastructure/memory"
	"github.com/jhoicas/pos-core/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/pos-core/internal/infrastructure/pdf"
	"github.com/jhoicas/pos-core/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/pos-core/internal/interfaces/http"
	"github.com/jhoicas/pos-core/pkg/config"
	"github.com/jhoicas/pos-core/pkg/jwt"
	"github.com/jhoicas/pos-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Str("dian_env", cfg.DIAN.AppEnv).
		Msg("iniciando aplicación")

	tokens, err := jwt.NewCodec(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		log.Fatal().Err(err).Msg("JWT_SECRET requerido")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ── Persistencia ─────────────────────────────────────────────────────────
	var (
		txRunner repository.TxRunner
		repos    repository.TxRepos
	)
	switch cfg.Store.Driver {
	case "memory":
		store := memory.NewStore()
		txRunner, repos = store, store.Repos()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("aplicar migraciones")
		}
		txRunner, repos = postgres.NewTxRunner(pool), postgres.NewRepos(pool)
	}

	// ── Métricas y Redis (opcionales) ────────────────────────────────────────
	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.New("pos")
	}

	gateOpts := idempotency.Options{
		Lease:  cfg.Idempotency.Lease,
		Logger: log.Component("idempotency"),
	}
	filingOpts := filing.Options{Logger: log.Component("filing")}
	if reg != nil {
		gateOpts.Metrics = reg
		filingOpts.Metrics = reg
	}
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Str("address", cfg.Redis.Address).Msg("conexión a Redis")
		}
		defer rdb.Close()
		gateOpts.Cache = cache.NewReplayCache(rdb, cfg.Idempotency.CacheTTL)
		filingOpts.Locker = cache.NewLocker(rdb)
		log.Info().Str("address", cfg.Redis.Address).Msg("Redis habilitado: caché de idempotencia y lock de envío")
	}

	// ── Documento electrónico ────────────────────────────────────────────────
	cert, err := signer.LoadCertificate(cfg.DIAN.CertPath, cfg.DIAN.CertKeyPath, cfg.DIAN.CertPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("cargar certificado de firma")
	}
	if cert == nil {
		log.Warn().Msg("sin certificado: los documentos se generan sin firma digital")
	} else {
		info, err := signer.Inspect(cert, time.Now())
		if err != nil {
			log.Fatal().Err(err).Str("subject", info.Subject).Msg("certificado de firma no utilizable")
		}
		if info.Remaining < 30*24*time.Hour {
			log.Warn().Time("not_after", info.NotAfter).Msg("el certificado de firma vence en menos de 30 días")
		}
	}
	builder := infradian.NewDocumentBuilder(signer.NewDigitalSignatureService(), cert, cfg.DIAN.TechnicalKey)

	var submitter filing.Submitter
	if cfg.DIAN.AppEnv == "dev" || cfg.DIAN.AppEnv == "" {
		submitter = infradian.NewDevSubmitter()
		log.Warn().Msg("DIAN_APP_ENV=dev: envío simulado, los documentos se aceptan localmente")
	} else {
		soap, err := infradian.NewSOAPClient(cfg.DIAN.AppEnv, cfg.DIAN.TestSetID)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente SOAP DIAN")
		}
		submitter = soap
	}

	dispatcher := filing.NewDispatcher(repos, builder, submitter, filing.Config{
		PollInterval: cfg.Filing.PollInterval,
		BatchSize:    cfg.Filing.BatchSize,
		MaxAttempts:  cfg.Filing.MaxAttempts,
		BaseBackoff:  cfg.Filing.BaseBackoff,
		MaxBackoff:   cfg.Filing.MaxBackoff,
		Lease:        cfg.Filing.Lease,
	}, filingOpts)

	// ── Casos de uso ─────────────────────────────────────────────────────────
	gate := idempotency.NewGate(txRunner, repos.Idempotency, gateOpts)

	var numRecorder numbering.Recorder
	var sagaRecorder billing.Recorder
	if reg != nil {
		numRecorder, sagaRecorder = reg, reg
	}
	allocator := numbering.NewAllocator(repos.Numbering, cfg.Numbering.LowRangeThreshold, numRecorder, log.Component("numbering"))
	invLedger := inventory.NewLedger(log.Component("inventory"))
	cashLedger := cash.NewLedger(gate, repos.Cash, log.Component("cash"))
	orchestrator := billing.NewOrchestrator(gate, allocator, invLedger, cashLedger, dispatcher, sagaRecorder, log.Component("saga"))

	invoiceQueries := billing.NewInvoiceQueryUseCase(repos.Invoices, repos.Filing, repos.Customers)
	invoicePDF := billing.NewPDFUseCase(repos, infrapdf.NewMarotoPDFGenerator())

	// ── HTTP ─────────────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "POS Core API",
	}))

	deps := httpRouter.RouterDeps{
		Orchestrator: orchestrator,
		Invoices:     invoiceQueries,
		InvoicePDF:   invoicePDF,
		Dispatcher:   dispatcher,
		Inventory:    inventory.NewService(gate, invLedger, repos.Products, repos.Stock, repos.Movements),
		Cash:         cashLedger,
		Catalog:      catalog.NewService(repos, log.Component("catalog")),
		Numbering:    numbering.NewService(gate, allocator),
		Gate:         gate,
		ServiceName:  cfg.App.Name,
		Tokens:       tokens,
	}
	if reg != nil {
		deps.Metrics = reg.Handler()
	}
	httpRouter.Router(app, deps)

	// ── Arranque ─────────────────────────────────────────────────────────────
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		if err := dispatcher.Run(ctx); err != nil {
			log.Error().Err(err).Msg("despachador de documentos detenido")
		}
	}()

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	stop()
	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("el despachador no terminó a tiempo")
	}

	log.Info().Msg("aplicación detenida")
}
