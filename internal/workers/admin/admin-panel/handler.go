// internal/workers/admin/admin-panel/handler.go
package adminpanel

import (
	"context"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/models"
	"applicant-gate/internal/store"
)

const (
	ComponentName = "admin-panel"
	StatsCacheKey = "admin:stats"
)

// SessionDropper discards an applicant's in-progress questionnaire.
type SessionDropper interface {
	DropSession(applicantID uint64) bool
}

// ClaimReleaser forgets the single-use decision claim of an applicant.
type ClaimReleaser interface {
	ReleaseClaim(ctx context.Context, applicantID uint64) error
}

type Handler struct {
	config   *Config
	store    store.Store
	cache    *StatsCache
	sessions SessionDropper
	claims   ClaimReleaser
	logger   logger.Logger
}

// NewHandler builds the admin panel. cache may be nil.
func NewHandler(cfg *Config, st store.Store, cache *StatsCache, sessions SessionDropper, claims ClaimReleaser, log logger.Logger) *Handler {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	return &Handler{
		config:   cfg,
		store:    st,
		cache:    cache,
		sessions: sessions,
		claims:   claims,
		logger:   logger.ForComponent(log, ComponentName),
	}
}

func (h *Handler) authorize(actorID int64) error {
	if actorID == 0 || actorID != h.config.AdminChatID {
		return apperrors.NewForbiddenError(actorID)
	}
	return nil
}

// Authorize exposes the moderator check for commands that only render.
func (h *Handler) Authorize(actorID int64) error {
	return h.authorize(actorID)
}

// Stats returns approved and rejected counts, from cache when fresh.
func (h *Handler) Stats(ctx context.Context, actorID int64) (*Stats, error) {
	if err := h.authorize(actorID); err != nil {
		return nil, err
	}

	if cached, ok := h.cache.Get(ctx); ok {
		return cached, nil
	}

	approved, err := h.store.CountByStatus(ctx, models.StatusApproved)
	if err != nil {
		return nil, err
	}
	rejected, err := h.store.CountByStatus(ctx, models.StatusRejected)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Approved: approved, Rejected: rejected}
	h.cache.Set(ctx, stats)

	h.logger.Info("stats computed", map[string]interface{}{
		"approved": approved,
		"rejected": rejected,
	})
	return stats, nil
}

// ListApproved returns one page of approved applicants, newest approval first.
func (h *Handler) ListApproved(ctx context.Context, actorID int64, page int) (*Page, error) {
	if err := h.authorize(actorID); err != nil {
		return nil, err
	}
	if page < 0 {
		page = 0
	}

	size := h.config.PageSize
	rows, err := h.store.ListApproved(ctx, page*size, size+1)
	if err != nil {
		return nil, err
	}

	out := &Page{Page: page}
	if len(rows) > size {
		out.HasNext = true
		rows = rows[:size]
	}
	out.Items = rows
	return out, nil
}

// Purge erases an applicant: store rows, live session and decision claim.
func (h *Handler) Purge(ctx context.Context, actorID int64, applicantID uint64) error {
	if err := h.authorize(actorID); err != nil {
		return err
	}

	if err := h.store.PurgeApplicant(ctx, applicantID); err != nil {
		return err
	}

	dropped := false
	if h.sessions != nil {
		dropped = h.sessions.DropSession(applicantID)
	}
	if h.claims != nil {
		if err := h.claims.ReleaseClaim(ctx, applicantID); err != nil {
			h.logger.Warn("claim not released after purge", map[string]interface{}{
				"applicantId": applicantID,
				"error":       err,
			})
		}
	}
	h.InvalidateStats(ctx)

	h.logger.Info("applicant purged", map[string]interface{}{
		"applicantId":    applicantID,
		"moderatorId":    actorID,
		"sessionDropped": dropped,
	})
	return nil
}

// InvalidateStats drops the cached counters.
func (h *Handler) InvalidateStats(ctx context.Context) {
	h.cache.InvalidateStats(ctx)
}
