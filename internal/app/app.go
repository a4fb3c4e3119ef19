// Package app wires configuration into the running components shared by the
// worker-manager service and the command line tools.
package app

import (
	"context"
	"fmt"
	"time"

	"dealer-workers/internal/common/audit"
	awsclients "dealer-workers/internal/common/aws"
	"dealer-workers/internal/common/config"
	"dealer-workers/internal/common/database"
	commonhttp "dealer-workers/internal/common/http"
	"dealer-workers/internal/common/lock"
	"dealer-workers/internal/common/logger"
	"dealer-workers/internal/common/observability"
	"dealer-workers/internal/expiration"
	"dealer-workers/internal/filecache"
	"dealer-workers/internal/fipe"
	"dealer-workers/internal/notify"
	"dealer-workers/internal/scheduler"
	"dealer-workers/internal/store"
)

// App holds the wired components and the connections they share.
type App struct {
	Config        *config.Config
	Logger        logger.Logger
	Observability *observability.Observability

	Postgres      *database.PostgresClient
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient

	Store     *store.Store
	Job       *expiration.Job
	Scheduler *scheduler.Scheduler
	Cache     *filecache.Cache
	Fipe      *fipe.Client
}

// Options tune how much of the stack is brought up.
type Options struct {
	ServiceName string
	// Retries is the number of connection attempts per backing service.
	Retries    int
	RetryDelay time.Duration
}

// RetryWithBackoff attempts operation up to maxRetries times, doubling the delay each time.
func RetryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// New connects to the backing services and builds every component.
// Redis and Elasticsearch are optional: a failure there is logged and the
// dependent feature (run lock, audit trail) is switched off.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	if opts.Retries <= 0 {
		opts.Retries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.ServiceName == "" {
		opts.ServiceName = cfg.App.Name
	}

	a := &App{
		Config:        cfg,
		Logger:        log,
		Observability: observability.New(opts.ServiceName),
	}

	// --- PostgreSQL (required) ---
	err := RetryWithBackoff(func() error {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return err
		}
		a.Postgres = pg
		return nil
	}, opts.Retries, opts.RetryDelay, log, "PostgreSQL connection")
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Postgres.ApplySchema(ctx, store.Schema); err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store.New(a.Postgres.GetDB())
	log.Info("PostgreSQL connected successfully", nil)

	// --- Redis (optional run lock) ---
	var locker lock.Locker
	if cfg.Database.Redis.Enabled() {
		err := RetryWithBackoff(func() error {
			rc, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				rc.Close()
				return err
			}
			a.Redis = rc
			return nil
		}, opts.Retries, opts.RetryDelay, log, "Redis connection")
		if err != nil {
			log.WithError(err).Warn("redis unavailable, running without the job run lock", nil)
		} else {
			locker = lock.NewRedisLocker(a.Redis.GetClient())
			log.Info("Redis connected successfully", nil)
		}
	}

	// --- Elasticsearch (optional audit trail) ---
	var sink audit.Sink = audit.Discard{}
	if cfg.Search.Elasticsearch.Enabled() {
		err := RetryWithBackoff(func() error {
			es, err := database.NewElasticsearch(cfg.Search.Elasticsearch, nil)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			a.Elasticsearch = es
			return nil
		}, opts.Retries, opts.RetryDelay, log, "Elasticsearch connection")
		if err != nil {
			log.WithError(err).Warn("elasticsearch unavailable, usage audit disabled", nil)
		} else {
			sink = audit.NewElasticsearchSink(a.Elasticsearch.Client, cfg.Search.AuditIndex)
			log.Info("Elasticsearch connected successfully", nil)
		}
	}

	// --- Notification channels ---
	pusher, mailer, err := Channels(ctx, cfg, a.Store.Subscriptions, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	// --- Expiration job and its schedule ---
	jobCfg := cfg.Jobs.ExpirationTriggers
	a.Job = expiration.NewJob(expiration.Deps{
		Templates:     a.Store.Templates,
		Accounts:      a.Store.Accounts,
		UsageLogs:     a.Store.UsageLogs,
		Pusher:        pusher,
		Mailer:        mailer,
		Locker:        locker,
		Audit:         sink,
		Observability: a.Observability,
	}, expiration.Config{
		Concurrency: jobCfg.Concurrency,
		LockTTL:     config.GetDuration(jobCfg.LockTTL),
		PlansURL:    cfg.Links.PlansURL(),
	}, log)

	a.Scheduler = scheduler.New(scheduler.RunnerFunc(func(ctx context.Context) error {
		_, err := a.Job.Run(ctx)
		return err
	}), scheduler.Config{
		Name:       expiration.JobName,
		Spec:       jobCfg.Schedule,
		Location:   jobCfg.JobLocation(),
		RunTimeout: config.GetDuration(jobCfg.Timeout),
	}, log)

	// --- FIPE pricing client over the file cache ---
	a.Cache = filecache.New(cfg.Cache.Directory, log)
	a.Fipe = fipe.NewClient(
		commonhttp.NewClient(config.GetDuration(cfg.Fipe.Timeout)),
		cfg.Fipe.BaseURL,
		a.Cache,
		FipeTTLs(cfg.Fipe),
		log,
	)

	return a, nil
}

// Channels builds the push and email senders selected by configuration.
// Disabled channels are replaced by senders that always report failure.
func Channels(ctx context.Context, cfg *config.Config, endpoints notify.EndpointStore, log logger.Logger) (notify.Pusher, notify.Mailer, error) {
	n := cfg.Notifications
	var pusher notify.Pusher = notify.DisabledPusher{}
	var mailer notify.Mailer = notify.DisabledMailer{}

	needAWS := n.Push.Enabled || (n.Email.Enabled && n.Email.Provider == "ses")
	var clients *awsclients.Clients
	if needAWS {
		var err error
		clients, err = awsclients.NewClients(ctx, n.AWS.Region)
		if err != nil {
			return nil, nil, err
		}
	}

	if n.Push.Enabled {
		pusher = notify.NewSNSPusher(clients.SNS, endpoints, log)
	}

	if n.Email.Enabled {
		switch n.Email.Provider {
		case "smtp":
			mailer = notify.NewSMTPMailer(notify.SMTPConfig{
				Host:     n.SMTP.Host,
				Port:     n.SMTP.Port,
				Username: n.SMTP.Username,
				Password: n.SMTP.Password,
				From:     n.Email.FromEmail,
				UseTLS:   n.SMTP.UseTLS,
			}, log)
		default:
			mailer = notify.NewSESMailer(clients.SES, n.Email.FromEmail, log)
		}
	}

	log.Info("notification channels configured", map[string]interface{}{
		"push":          n.Push.Enabled,
		"email":         n.Email.Enabled,
		"emailProvider": n.Email.Provider,
	})
	return pusher, mailer, nil
}

// FipeTTLs converts the configured hours, falling back to the defaults.
func FipeTTLs(cfg config.FipeConfig) fipe.TTLs {
	ttls := fipe.DefaultTTLs
	if cfg.CatalogTTL > 0 {
		ttls.Catalog = time.Duration(cfg.CatalogTTL) * time.Hour
	}
	if cfg.PriceTTL > 0 {
		ttls.Price = time.Duration(cfg.PriceTTL) * time.Hour
	}
	return ttls
}

// Ready reports whether the required backing services answer.
func (a *App) Ready(ctx context.Context) error {
	if a.Postgres == nil {
		return fmt.Errorf("postgres not connected")
	}
	return a.Postgres.Ping(ctx)
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.WithError(err).Warn("error closing redis", nil)
		}
	}
	if a.Postgres != nil {
		if err := a.Postgres.Close(); err != nil {
			a.Logger.WithError(err).Warn("error closing postgres", nil)
		}
	}
	a.Observability.Shutdown()
}
