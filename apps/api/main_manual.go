package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/amork0112-rgb/frageedu/apps/api/echo"
	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/admission"
	"github.com/amork0112-rgb/frageedu/core/audit"
	"github.com/amork0112-rgb/frageedu/core/news"
	"github.com/amork0112-rgb/frageedu/core/user"
	emailsvc "github.com/amork0112-rgb/frageedu/services/email"
	logsvc "github.com/amork0112-rgb/frageedu/services/logger"
	mediasvc "github.com/amork0112-rgb/frageedu/services/media"
	throttlesvc "github.com/amork0112-rgb/frageedu/services/throttle"
	"github.com/amork0112-rgb/frageedu/storage/database"
	inmemdb "github.com/amork0112-rgb/frageedu/storage/database/inmem"
	sqlxrepos "github.com/amork0112-rgb/frageedu/storage/database/sqlx"
)

// repositories groups one storage backend's repos.
type repositories struct {
	usr       user.Repository
	adm       admin.Repository
	admission admission.Repository
	news      news.Repository
	audit     audit.Repository
	tx        core.Transactor
	close     func() error
}

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("API"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	dbLogger := logsvc.NewRollbarLogger(zl.Named("DB"), conf)
	dbLogger.Enable(!conf.Debug)

	ctx := context.Background()

	// set up DB
	repos, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up login throttling
	limiter := throttlesvc.NewMemoryLimiter(conf)
	if conf.Redis.Addr != "" {
		rdb, err := throttlesvc.NewRedisClient(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer func() { _ = rdb.Close() }()
		limiter = throttlesvc.NewRedisLimiter(rdb, conf)
	}

	// set up media storage
	var media core.MediaStore
	if conf.Media.GCSBucket != "" {
		store, closeStore, err := mediasvc.NewGCSStore(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up gcs media store: %v", err), err)
		}
		defer func() { _ = closeStore() }()
		media = store
	} else {
		if media, err = mediasvc.NewLocalStore(conf); err != nil {
			logger.Fatal(fmt.Sprintf("setting up local media store: %v", err), err)
		}
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	admissionSvc := admission.NewService(repos.admission)
	usrSvc := user.NewService(repos.usr, admissionSvc, repos.tx, mailSvc, logger, conf)
	admSvc := admin.NewService(repos.adm, repos.tx)
	newsSvc := news.NewService(repos.news, conf)
	auditSvc := audit.NewService(repos.audit)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	admin.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	admin.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			UserSvc:      usrSvc,
			AdmissionSvc: admissionSvc,
			AdminSvc:     admSvc,
			NewsSvc:      newsSvc,
			AuditSvc:     auditSvc,
			Limiter:      limiter,
			Media:        media,
			Validate:     validate,
			Translator:   translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpDB migrates and wires the postgres repos, or the in-memory ones when configured.
func setUpDB(conf *core.Config) (repositories, error) {
	if conf.Database.InMemory {
		db := inmemdb.Open()
		return repositories{
			usr:       inmemdb.NewUserRepository(db),
			adm:       inmemdb.NewAdminRepository(db),
			admission: inmemdb.NewAdmissionRepository(db),
			news:      inmemdb.NewNewsRepository(db),
			audit:     inmemdb.NewAuditRepository(db),
			tx:        inmemdb.NewTransactor(),
			close:     func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return repositories{}, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return repositories{}, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return repositories{}, err
	}
	return repositories{
		usr:       sqlxrepos.NewUserRepository(db),
		adm:       sqlxrepos.NewAdminRepository(db),
		admission: sqlxrepos.NewAdmissionRepository(db),
		news:      sqlxrepos.NewNewsRepository(db),
		audit:     sqlxrepos.NewAuditRepository(db),
		tx:        database.NewTransactor(db),
		close:     db.Close,
	}, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
