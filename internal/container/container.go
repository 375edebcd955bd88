package container

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/redis/go-redis/v9"
	"github.com/siwarga/rwrt-backend/internal/accounts"
	"github.com/siwarga/rwrt-backend/internal/api"
	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/auth"
	"github.com/siwarga/rwrt-backend/internal/aws"
	"github.com/siwarga/rwrt-backend/internal/config"
	"github.com/siwarga/rwrt-backend/internal/database"
	"github.com/siwarga/rwrt-backend/internal/live"
	"github.com/siwarga/rwrt-backend/internal/logging"
	"github.com/siwarga/rwrt-backend/internal/notifications"
	"github.com/siwarga/rwrt-backend/internal/photos"
	"github.com/siwarga/rwrt-backend/internal/queue"
	"github.com/siwarga/rwrt-backend/internal/requests"
	"github.com/siwarga/rwrt-backend/internal/residents"
	"github.com/siwarga/rwrt-backend/internal/store"
)

type Container struct {
	Config        *config.Config
	Database      *database.Database
	Store         *store.Postgres
	Accounts      *accounts.Repository
	Queue         *queue.TaskQueue
	RedisClient   *redis.Client
	AuthService   *auth.AuthService
	Authenticator *auth.Authenticator
	S3Service     *aws.S3Service
	Requests      *requests.Service
	Hub           *live.Hub
	Server        *api.Server
	Spec          *openapi3.T
}

func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			c.Cleanup()
		}
	}()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, err
	}
	c.Database = db
	logging.Info("Connected to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port)

	if err := db.Migrate(ctx); err != nil {
		return nil, err
	}

	c.Queue, err = queue.NewQueue(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	// Two separate Redis connection pools are used: the asynq task
	// queue manages its own connection, and this client is used
	// for refresh tokens.
	c.RedisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	jwtService, err := auth.NewJWTService([]byte(cfg.JWT.SigningKey), cfg.JWT.Issuer, cfg.JWT.Expiry)
	if err != nil {
		return nil, err
	}

	c.Store = store.NewPostgres(db.Pool())
	c.Accounts = accounts.NewRepository(db.Pool(), cfg.Auth.BcryptCost)
	c.AuthService = auth.NewAuthService(c.RedisClient, jwtService, c.Accounts, cfg.Auth)
	c.Authenticator = auth.NewAuthenticator(jwtService, c.Accounts)

	c.S3Service, err = aws.NewS3Service(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}

	// localstack-specific config (buckets are not managed by app in prod)
	if cfg.AWS.EndpointURL != "" {
		if err := c.S3Service.CreateBucket(ctx); err != nil {
			logging.Info("S3 bucket creation attempted", "bucket", cfg.AWS.Bucket, "result", err)
		}
	}

	overrides, err := approval.LoadFlowOverrides(cfg.Workflow.FlowOverridesPath)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		logging.Info("Loaded permit flow overrides", "count", len(overrides), "path", cfg.Workflow.FlowOverridesPath)
	}

	templates, err := notifications.LoadTemplates()
	if err != nil {
		return nil, err
	}
	dispatcher := notifications.NewNotificationDispatcher(
		c.Queue,
		templates,
		notifications.NewAdminLookupFunc(c.Accounts),
		notifications.Options{
			PublicURL:       cfg.Server.PublicURL,
			NotifyResidents: cfg.Workflow.NotifyResidents,
		},
	)

	c.Requests = requests.NewService(c.Store, approval.NewResolver(overrides), dispatcher)
	residentSvc := residents.NewService(c.Store)
	c.Hub = live.NewHub(c.Store, c.Requests, residentSvc)

	c.Spec, err = api.LoadSpec()
	if err != nil {
		return nil, err
	}

	c.Server = api.NewServer(api.Deps{
		Requests:  c.Requests,
		Residents: residentSvc,
		Photos:    photos.NewService(c.S3Service, c.Requests, cfg.AWS.PresignExpiry),
		Accounts:  c.Accounts,
		Auth:      c.AuthService,
		Hub:       c.Hub,
		Checks: map[string]api.PingFunc{
			"database": db.Ping,
			"queue":    func(context.Context) error { return c.Queue.Ping() },
			"redis":    func(ctx context.Context) error { return c.RedisClient.Ping(ctx).Err() },
			"storage":  c.S3Service.Ping,
		},
		AccessTTL:      cfg.JWT.Expiry,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	ok = true
	return c, nil
}

// NewWorker builds the mail delivery worker. It only needs Redis and SES.
func NewWorker(ctx context.Context, cfg *config.Config) (*queue.Worker, error) {
	emailSvc, err := aws.NewEmailService(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email service: %w", err)
	}

	// localstack-specific config (email identity not managed by app in prod)
	if cfg.AWS.EndpointURL != "" {
		if _, err := emailSvc.VerifyEmailIdentity(ctx); err != nil {
			logging.Error("Failed to verify email identity", "error", err)
		}
	}

	logging.Info("Email worker configured", "sender", emailSvc.Sender())
	return queue.NewWorker(&cfg.Redis, emailSvc), nil
}

func (c *Container) Cleanup() {
	if c.Queue != nil {
		c.Queue.Close()
		logging.Info("Queue client closed")
	}
	if c.RedisClient != nil {
		c.RedisClient.Close()
		logging.Info("Redis client closed")
	}
	if c.Database != nil {
		c.Database.Close()
		logging.Info("Database connection closed")
	}
}
