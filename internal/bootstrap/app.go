package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	appsvc "savora/internal/app"
	"savora/internal/cache"
	"savora/internal/config"
	"savora/internal/imaging"
	"savora/internal/logging"
	mongoClient "savora/internal/platform/mongo"
	mysqlClient "savora/internal/platform/mysql"
	rabbitmqClient "savora/internal/platform/rabbitmq"
	redisClient "savora/internal/platform/redis"
	"savora/internal/repository"
	"savora/internal/repository/memory"
	"savora/internal/repository/mongodb"
	"savora/internal/storage"
	"savora/internal/worker"
)

type App struct {
	Config *config.Config
	Log    *logrus.Logger

	Mongo  *mongo.Client
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Users   repository.UserStore
	Recipes repository.RecipeStore

	Images         appsvc.ImageStore
	LocalImages    *storage.LocalStore
	ImageProcessor appsvc.ImageProcessor
	CleanupQueue   appsvc.ImageCleanupPublisher
	CleanupWorker  *worker.ImageCleanupWorker
	RecipeCache    appsvc.RecipeCache
	LoginRateLimit *cache.LoginLimiter

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg, logging.New(cfg.Log))
}

// NewWithConfig connects everything cfg enables. On error the clients opened
// so far are closed.
func NewWithConfig(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	app := &App{
		Config:    cfg,
		Log:       log,
		StartedAt: time.Now(),
	}
	if err := app.init(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	if err := a.initStores(ctx); err != nil {
		return err
	}
	if err := a.initImages(ctx); err != nil {
		return err
	}

	if a.Config.Redis.Enabled {
		client, err := redisClient.New(ctx, redisClient.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		if err != nil {
			return err
		}
		a.Redis = client
		a.RecipeCache = cache.NewRecipeCache(client, time.Duration(a.Config.Redis.RecipeTTLSeconds)*time.Second)
		a.LoginRateLimit = cache.NewLoginLimiter(client, a.Config.Auth.LoginRateLimit, time.Duration(a.Config.Auth.LoginWindowSeconds)*time.Second)
	}

	if a.Config.RabbitMQ.Enabled {
		conn, err := rabbitmqClient.New(ctx, a.Config.RabbitMQ.URL, a.Config.RabbitMQ.ImageCleanupQueue)
		if err != nil {
			return err
		}
		a.MQConn = conn
		a.CleanupQueue = rabbitmqClient.NewImageCleanupPublisher(conn, a.Config.RabbitMQ.ImageCleanupQueue)

		a.CleanupWorker = worker.NewImageCleanupWorker(conn, a.Images, a.Config.RabbitMQ.ImageCleanupQueue, a.Log)
		if err := a.CleanupWorker.Start(ctx); err != nil {
			return fmt.Errorf("start image cleanup worker failed: %w", err)
		}
	}

	a.Log.WithFields(logrus.Fields{
		"driver":   a.Config.Database.Driver,
		"storage":  a.Config.Storage.Driver,
		"redis":    a.Redis != nil,
		"rabbitmq": a.MQConn != nil,
	}).Info("application initialised")
	return nil
}

func (a *App) initStores(ctx context.Context) error {
	switch a.Config.Database.Driver {
	case config.DriverMongo:
		client, err := mongoClient.New(ctx, a.Config.Mongo.URI)
		if err != nil {
			return err
		}
		a.Mongo = client

		db := client.Database(a.Config.Mongo.DB)
		users := mongodb.NewUserRepository(db)
		recipes := mongodb.NewRecipeRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			return err
		}
		if err := recipes.EnsureIndexes(ctx); err != nil {
			return err
		}
		a.Users, a.Recipes = users, recipes

	case config.DriverMySQL:
		db, err := mysqlClient.New(ctx, a.Config.MySQLDSN())
		if err != nil {
			return err
		}
		a.MySQL = db
		if err := mysqlClient.Migrate(db); err != nil {
			return err
		}
		a.Users = repository.NewUserRepository(db)
		a.Recipes = repository.NewRecipeRepository(db)

	case config.DriverMemory:
		a.Log.Warn("using in-memory stores, data is lost on restart")
		a.Users = memory.NewUserStore()
		a.Recipes = memory.NewRecipeStore()

	default:
		return fmt.Errorf("unsupported database driver %q", a.Config.Database.Driver)
	}
	return nil
}

func (a *App) initImages(ctx context.Context) error {
	sc := a.Config.Storage
	if sc.MaxImageSide > 0 {
		a.ImageProcessor = imaging.NewDownscaler(sc.MaxImageSide, sc.MaxImagePixels)
	}
	switch sc.Driver {
	case config.StorageS3:
		store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:       sc.S3Bucket,
			Region:       sc.S3Region,
			Endpoint:     sc.S3Endpoint,
			AccessKey:    sc.S3AccessKey,
			SecretKey:    sc.S3SecretKey,
			PublicURL:    sc.S3PublicURL,
			UsePathStyle: sc.S3UsePathStyle,
		})
		if err != nil {
			return err
		}
		a.Images = store
	default:
		store, err := storage.NewLocalStore(sc.LocalDir, sc.PublicPrefix)
		if err != nil {
			return err
		}
		a.Images = store
		a.LocalImages = store
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.CleanupWorker != nil {
		a.CleanupWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MySQL != nil {
		if err := mysqlClient.Close(a.MySQL); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
