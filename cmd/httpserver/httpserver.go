// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/go-petr/pet-ledger/internal/balancedelivery"
	"github.com/go-petr/pet-ledger/internal/balancerepo"
	"github.com/go-petr/pet-ledger/internal/balanceservice"
	"github.com/go-petr/pet-ledger/internal/ledgerdelivery"
	"github.com/go-petr/pet-ledger/internal/ledgerrepo"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/ownerlock"
	"github.com/go-petr/pet-ledger/internal/transactiondelivery"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/internal/transactionservice"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/metricspkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// MeterName is the instrumentation scope of the ledger metrics.
const MeterName = "github.com/go-petr/pet-ledger"

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Redis  *redis.Client
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// Close releases the redis client if one was created.
func (s *Server) Close() error {
	if s.Redis == nil {
		return nil
	}

	return s.Redis.Close()
}

// New creates Server type with instantiated domains and routes.
//
// When config.RedisAddress is empty the ledger runs without the owner lock and relies
// on balance versioning alone.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	balanceRepo := balancerepo.NewRepoPGS(conn)
	transactionRepo := transactionrepo.NewRepoPGS(conn)
	ledgerRepo := ledgerrepo.NewRepoPGS(conn)

	recorder, err := metricspkg.NewRecorder(otel.Meter(MeterName))
	if err != nil {
		return nil, errors.New("cannot create metrics recorder")
	}

	opts := []ledgerservice.Option{
		ledgerservice.WithMetrics(recorder),
		ledgerservice.WithRetry(config.LedgerMaxRetries, config.LedgerRetryBaseDelay),
	}

	var rdb *redis.Client

	if config.RedisAddress != "" {
		rdb = redis.NewClient(&redis.Options{Addr: config.RedisAddress})

		lockOpts := ownerlock.DefaultOptions()
		if config.LockExpiry > 0 {
			lockOpts.Expiry = config.LockExpiry
		}

		if config.LockTries > 0 {
			lockOpts.Tries = config.LockTries
		}

		opts = append(opts, ledgerservice.WithLocker(ownerlock.NewRedisLocker(rdb, lockOpts)))
	}

	balanceService := balanceservice.New(balanceRepo)
	transactionService := transactionservice.New(transactionRepo)
	ledgerService := ledgerservice.New(ledgerRepo, opts...)

	balanceHandler := balancedelivery.NewHandler(balanceService)
	transactionHandler := transactiondelivery.NewHandler(transactionService)
	ledgerHandler := ledgerdelivery.NewHandler(ledgerService)

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))

	users := engine.Group("/users/:owner", middleware.OwnerMiddleware())

	users.POST("/balance", balanceHandler.Open)
	users.GET("/balance", balanceHandler.Get)
	users.PATCH("/balance", balanceHandler.SetActive)

	users.POST("/deposits", ledgerHandler.Deposit)
	users.POST("/withdrawals", ledgerHandler.Withdraw)
	users.POST("/transfers", ledgerHandler.Transfer)

	users.GET("/transactions", transactionHandler.List)
	users.GET("/transactions/:reference", transactionHandler.Get)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("amount", moneypkg.ValidAmount)
		if err != nil {
			return nil, errors.New("cannot register amount validator")
		}
	}

	server := &Server{
		DB:     conn,
		Redis:  rdb,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
