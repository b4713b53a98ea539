package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/account"
	"github.com/trezcool/darasa/core/nav"
	"github.com/trezcool/darasa/core/profile"
	"github.com/trezcool/darasa/core/provision"
	appfs "github.com/trezcool/darasa/fs"
	cachesvc "github.com/trezcool/darasa/services/cache"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

// stores are the repositories and transactor of one storage engine.
type stores struct {
	accounts  account.Repository
	profiles  profile.Repository
	academics academics.Repository
	tx        provision.Transactor
	close     func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	if conf.Debug {
		logger.Enable(false)
	}
	defer logger.Close()

	if missing := conf.MissingEnv(); len(missing) > 0 && !conf.Debug {
		logger.Warn("missing settings, some features may not work: " + strings.Join(missing, ", "))
	}

	// set up storage
	st, err := setUpStores(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = st.close(); err != nil {
			logger.Error(fmt.Sprintf("closing storage: %v", err), err)
		}
	}()

	// set up listing cache
	var cache core.ListCache
	if conf.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		redisCache := cachesvc.NewRedisCache(rdb, conf.Redis.CacheTTL)
		stopWatching := watchInvalidations(redisCache, logger)
		defer stopWatching()
		cache = redisCache
	} else {
		cache = cachesvc.NewMemoryCache(conf.Redis.CacheTTL)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	accSvc := account.NewService(st.accounts)
	provisionSvc := provision.NewService(st.tx, cache, mailSvc, logger)
	academicsSvc := academics.NewService(st.academics, cache, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	profile.InitValidators(validate, translator)
	academics.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.TemplatesDir, true, logger)

	fallback := account.Role(strings.ToUpper(conf.Nav.FallbackRole))
	navResolver := nav.NewResolver(nav.DefaultConfig(), fallback, conf.Debug && fallback != "")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Database.Engine)

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
			AccountSvc:   accSvc,
			ProvisionSvc: provisionSvc,
			AcademicsSvc: academicsSvc,
			Profiles:     st.profiles,
			Cache:        cache,
			Nav:          navResolver,
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

type invalidationSubscriber interface {
	Subscribe(ctx context.Context, fn func(path string)) error
}

// watchInvalidations logs the listing routes invalidated by any instance until the returned stop is called.
// stop blocks until the subscription is closed.
func watchInvalidations(sub invalidationSubscriber, logger core.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := sub.Subscribe(ctx, func(path string) {
			logger.Debug("listing invalidated: " + path)
		})
		if err != nil {
			logger.Error(fmt.Sprintf("listing invalidation subscription: %v", err), err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// setUpStores opens the storage engine selected by `database.engine`.
func setUpStores(conf *core.Config) (*stores, error) {
	if conf.Database.Engine == "memory" {
		db := inmemdb.Open()
		return &stores{
			accounts:  inmemdb.NewAccountRepository(db),
			profiles:  inmemdb.NewProfileRepository(db),
			academics: inmemdb.NewAcademicsRepository(db),
			tx:        db,
			close:     func() error { return nil },
		}, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return nil, err
	}
	return &stores{
		accounts:  sqlxrepos.NewAccountRepository(db),
		profiles:  sqlxrepos.NewProfileRepository(db),
		academics: sqlxrepos.NewAcademicsRepository(db),
		tx:        sqlxrepos.NewStore(db),
		close:     db.Close,
	}, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
