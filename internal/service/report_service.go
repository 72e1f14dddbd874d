package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/dormdesk/maintenance-service/internal/domain"
	"github.com/dormdesk/maintenance-service/internal/events"
	"github.com/dormdesk/maintenance-service/internal/persistence"
	"github.com/dormdesk/maintenance-service/internal/repository"
	apperrors "github.com/dormdesk/maintenance-service/pkg/util"
)

const ratingsCacheKey = "reports:technician_ratings"

// ReportService computes per-technician rating statistics from ticket
// history. It is read-only; the ratings aggregate is cached in Redis for a
// short TTL and invalidated whenever a new rating lands.
type ReportService struct {
	reports  repository.ReportRepository
	users    repository.UserRepository
	cache    *persistence.Redis
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(reports repository.ReportRepository, users repository.UserRepository, cache *persistence.Redis, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	return &ReportService{
		reports:  reports,
		users:    users,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// RegisterInvalidation drops the cached aggregate when a ticket is rated.
func (s *ReportService) RegisterInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketRated, func(ctx context.Context, _ events.Event) error {
		s.invalidateRatings(ctx)
		return nil
	})
}

// TechnicianRatings returns one row per technician: rated-ticket count, mean
// rating rounded to one decimal (nil with zero ratings) and total tickets
// ever assigned. Rows are ordered by average rating descending, unrated
// technicians last.
func (s *ReportService) TechnicianRatings(ctx context.Context) ([]domain.TechnicianRating, error) {
	if cached := s.cachedRatings(ctx); cached != nil {
		return cached, nil
	}

	techs, err := s.users.ListTechnicians(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	assignments, err := s.reports.TechnicianAssignments(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ratings := foldRatings(techs, assignments)
	s.storeRatings(ctx, ratings)
	return ratings, nil
}

// TechnicianReviews returns every rated ticket for one technician, newest
// first.
func (s *ReportService) TechnicianReviews(ctx context.Context, technicianID int64) ([]domain.TechnicianReview, error) {
	tech, err := s.users.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return nil, apperrors.MapError(err)
	}
	if tech.Role != domain.RoleTechnician {
		return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
	}

	reviews, err := s.reports.ReviewsByTechnician(ctx, technicianID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reviews, nil
}

// foldRatings aggregates assignment rows into per-technician statistics.
// Every technician appears in the output, even with zero tickets.
func foldRatings(techs []domain.User, assignments []domain.TechnicianAssignment) []domain.TechnicianRating {
	byID := make(map[int64]*domain.TechnicianRating, len(techs))
	result := make([]domain.TechnicianRating, 0, len(techs))
	for _, tech := range techs {
		result = append(result, domain.TechnicianRating{
			TechnicianID: tech.ID,
			Name:         tech.Name,
		})
	}
	for i := range result {
		byID[result[i].TechnicianID] = &result[i]
	}

	sums := make(map[int64]int, len(techs))
	for _, row := range assignments {
		entry, ok := byID[row.TechnicianID]
		if !ok {
			continue
		}
		entry.TotalTickets++
		if row.Rating != nil {
			entry.TotalRatings++
			sums[row.TechnicianID] += int(*row.Rating)
		}
	}
	for i := range result {
		if result[i].TotalRatings == 0 {
			continue
		}
		avg := float64(sums[result[i].TechnicianID]) / float64(result[i].TotalRatings)
		rounded := math.Round(avg*10) / 10
		result[i].AvgRating = &rounded
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i].AvgRating, result[j].AvgRating
		switch {
		case a != nil && b != nil:
			return *a > *b
		case a != nil:
			return true
		default:
			return false
		}
	})
	return result
}

func (s *ReportService) cachedRatings(ctx context.Context) []domain.TechnicianRating {
	if s.cache == nil || s.cache.Client == nil || s.cacheTTL <= 0 {
		return nil
	}
	raw, err := s.cache.Client.Get(ctx, ratingsCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var ratings []domain.TechnicianRating
	if err := json.Unmarshal(raw, &ratings); err != nil {
		return nil
	}
	return ratings
}

func (s *ReportService) storeRatings(ctx context.Context, ratings []domain.TechnicianRating) {
	if s.cache == nil || s.cache.Client == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(ratings)
	if err != nil {
		return
	}
	if err := s.cache.Client.Set(ctx, ratingsCacheKey, raw, s.cacheTTL).Err(); err != nil && s.logger != nil {
		s.logger.Debug("ratings cache write failed", zap.Error(err))
	}
}

func (s *ReportService) invalidateRatings(ctx context.Context) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	if err := s.cache.Client.Del(ctx, ratingsCacheKey).Err(); err != nil && s.logger != nil {
		s.logger.Debug("ratings cache invalidation failed", zap.Error(err))
	}
}
