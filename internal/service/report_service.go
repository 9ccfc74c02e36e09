package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/observability"
	"github.com/noah-isme/codegrade-api/internal/repository"
)

// ReportCacheInvalidator drops cached report views for a user.
type ReportCacheInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// ReportService produces the caller's gated reports overview.
type ReportService interface {
	ReportCacheInvalidator
	Overview(ctx context.Context, userID string) (dto.ReportsOverviewResponse, error)
}

type reportService struct {
	tasks       repository.TaskRepository
	evaluations repository.EvaluationRepository
	payments    repository.PaymentRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewReportService builds the reports aggregator. A nil cache disables caching.
func NewReportService(tasks repository.TaskRepository, evaluations repository.EvaluationRepository, payments repository.PaymentRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ReportService {
	return &reportService{
		tasks:       tasks,
		evaluations: evaluations,
		payments:    payments,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "report_service").Logger(),
	}
}

func reportsCacheKey(userID string) string {
	return fmt.Sprintf("reports:user:%s", userID)
}

func (s *reportService) Overview(ctx context.Context, userID string) (dto.ReportsOverviewResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return dto.ReportsOverviewResponse{}, ErrMissingIdentifiers
	}
	cacheKey := reportsCacheKey(userID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ReportsOverviewResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.ReportsCacheRequests().WithLabelValues("hit").Inc()
				s.logger.Debug().Str("user_id", userID).Msg("reports cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read reports cache")
		}
		observability.ReportsCacheRequests().WithLabelValues("miss").Inc()
	}

	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return dto.ReportsOverviewResponse{}, err
	}

	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}

	evaluations, err := s.evaluations.LatestByTasks(ctx, ids)
	if err != nil {
		return dto.ReportsOverviewResponse{}, err
	}

	payments, err := s.payments.ListByTasks(ctx, ids)
	if err != nil {
		return dto.ReportsOverviewResponse{}, err
	}

	response := dto.NewReportsOverview(tasks, evaluations, payments)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store reports cache")
			}
		}
	}

	return response, nil
}

func (s *reportService) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil || userID == "" {
		return
	}
	if err := s.cache.Del(ctx, reportsCacheKey(userID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to invalidate reports cache")
	}
}

func invalidateReports(ctx context.Context, reports ReportCacheInvalidator, userID string) {
	if reports != nil {
		reports.Invalidate(ctx, userID)
	}
}
