package store

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"smartats/internal/config"
	"smartats/internal/errors"
)

// Store persists analysis reviews on Postgres. A nil *Store is a valid
// disabled store: every method is nil-safe so callers need no enabled checks.
type Store struct {
	db     *gorm.DB
	logger *errors.Logger
}

// ReviewStats aggregates the persisted reviews
type ReviewStats struct {
	TotalReviews    int64   `json:"total_reviews"`
	AverageMatch    float64 `json:"average_match"`
	FallbackReviews int64   `json:"fallback_reviews"`
}

// Open connects to Postgres and migrates the schema. Returns nil when the
// store is disabled in configuration.
func Open(cfg config.StoreConfig, logger *errors.Logger) (*Store, error) {
	if !cfg.Enabled {
		if logger != nil {
			logger.Debug("Review store disabled")
		}
		return nil, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to connect to review database", err)
	}

	if err := db.AutoMigrate(&Review{}); err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to migrate review schema", err)
	}

	logger.Info("Review store connected and migrated")

	return &Store{db: db, logger: logger}, nil
}

// Enabled reports whether the store is connected
func (s *Store) Enabled() bool {
	return s != nil && s.db != nil
}

// CreateReview persists one analysis review
func (s *Store) CreateReview(ctx context.Context, review *Review) error {
	if !s.Enabled() {
		return nil
	}

	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to persist review", err)
	}
	return nil
}

// ListReviews returns one page of reviews, newest first, plus the total
// count. limit is clamped to 1..100, page to >= 1.
func (s *Store) ListReviews(ctx context.Context, page, limit int) ([]Review, int64, error) {
	if !s.Enabled() {
		return []Review{}, 0, nil
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&Review{}).Count(&total).Error; err != nil {
		return nil, 0, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to count reviews", err)
	}

	var reviews []Review
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to list reviews", err)
	}

	return reviews, total, nil
}

// GetReview returns one review by ID
func (s *Store) GetReview(ctx context.Context, id uuid.UUID) (*Review, error) {
	if !s.Enabled() {
		return nil, errors.NewStoreError(errors.ErrCodeNotFound,
			"Review store is disabled", nil)
	}

	var review Review
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&review).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewStoreError(errors.ErrCodeNotFound,
				"Review not found", err).WithContext("id", id.String())
		}
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to load review", err)
	}

	return &review, nil
}

// Stats returns aggregates across all persisted reviews. The average skips
// fallback reviews, whose neutral score is a placeholder, not a measurement.
func (s *Store) Stats(ctx context.Context) (*ReviewStats, error) {
	if !s.Enabled() {
		return &ReviewStats{}, nil
	}

	stats := &ReviewStats{}

	if err := s.db.WithContext(ctx).Model(&Review{}).Count(&stats.TotalReviews).Error; err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to count reviews", err)
	}

	if err := s.db.WithContext(ctx).Model(&Review{}).
		Where("fallback = ?", true).
		Count(&stats.FallbackReviews).Error; err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to count fallback reviews", err)
	}

	var avg *float64
	err := s.db.WithContext(ctx).Model(&Review{}).
		Where("fallback = ?", false).
		Select("AVG(match_percent)").
		Scan(&avg).Error
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to aggregate match percentages", err)
	}
	if avg != nil {
		stats.AverageMatch = *avg
	}

	return stats, nil
}

// Ping checks database connectivity for health reporting
func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to access database handle", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Review database unreachable", err)
	}
	return nil
}

// Close releases the database connection
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
