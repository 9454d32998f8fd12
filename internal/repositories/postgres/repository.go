package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/openclass/quiz-service/internal/cache"
	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories"
)

// Repository implements repositories.Repository over gorm and Redis.
type Repository struct {
	db          *gorm.DB
	redisClient *redis.Client
	caches      *cache.Manager

	user     repositories.UserRepository
	question repositories.QuestionRepository
	quiz     repositories.QuizRepository
	attempt  repositories.AttemptRepository
}

func NewRepository(db *gorm.DB, redisClient *redis.Client) *Repository {
	return newRepository(db, redisClient, cache.NewManager(redisClient))
}

func newRepository(db *gorm.DB, redisClient *redis.Client, caches *cache.Manager) *Repository {
	return &Repository{
		db:          db,
		redisClient: redisClient,
		caches:      caches,
		user:        &userStore{db: db},
		question:    &questionStore{db: db, cache: caches.Question, quizCache: caches.Quiz},
		quiz:        &quizStore{db: db, cache: caches.Quiz},
		attempt:     &attemptStore{db: db},
	}
}

// Migrate creates or updates the schema for all tracked models.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuizAttempt{},
	)
}

func (r *Repository) User() repositories.UserRepository         { return r.user }
func (r *Repository) Question() repositories.QuestionRepository { return r.question }
func (r *Repository) Quiz() repositories.QuizRepository         { return r.quiz }
func (r *Repository) Attempt() repositories.AttemptRepository   { return r.attempt }

// WithTransaction rebinds every store to one gorm transaction and runs
// fn against the bound repository.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepository(tx, r.redisClient, r.caches))
	})
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if r.redisClient != nil {
		if err := r.caches.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping: %w", err)
		}
	}
	return nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}
	return nil
}

// paginate applies page/size bounds to a query. Page numbers are
// 1-based; out-of-range values fall back to sane defaults.
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
