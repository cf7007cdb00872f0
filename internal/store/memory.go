package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/common/keyedlock"
	"applicant-gate/internal/models"
)

// Memory is an in-process Store used by tests and by the "memory" driver.
// Per-applicant mutations are serialised with a keyed lock; the maps
// themselves are guarded by mu.
type Memory struct {
	keys *keyedlock.Locker

	mu          sync.RWMutex
	applicants  map[uint64]*models.Applicant
	submissions map[uint64]models.Submission
	records     []models.ModerationRecord
	nextID      int64
	lastTick    time.Time
	now         func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		keys:        keyedlock.New(),
		applicants:  make(map[uint64]*models.Applicant),
		submissions: make(map[uint64]models.Submission),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) UpsertApplicant(_ context.Context, id uint64, displayName string) error {
	unlock := m.keys.Lock(id)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.tick()
	if a, ok := m.applicants[id]; ok {
		a.DisplayName = displayName
		a.UpdatedAt = now
		return nil
	}
	m.applicants[id] = &models.Applicant{
		ID:          id,
		DisplayName: displayName,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (m *Memory) GetStatus(_ context.Context, id uint64) (models.Status, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.applicants[id]
	if !ok {
		return "", false, nil
	}
	return a.Status, true, nil
}

func (m *Memory) HasLiveSubmission(_ context.Context, id uint64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.submissions[id]
	return ok, nil
}

func (m *Memory) CommitSubmission(_ context.Context, sub models.Submission) error {
	if err := validateSubmission(sub); err != nil {
		return err
	}

	unlock := m.keys.Lock(sub.ApplicantID)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.applicants[sub.ApplicantID]
	if !ok {
		return apperrors.NewNotFoundError("applicant", sub.ApplicantID)
	}
	if a.Status != models.StatusPending {
		return apperrors.NewConflictError("applicant already decided",
			fmt.Sprintf("applicantId: %d, status: %s", sub.ApplicantID, a.Status))
	}
	if _, live := m.submissions[sub.ApplicantID]; live {
		return apperrors.NewConflictError("live submission already exists",
			fmt.Sprintf("applicantId: %d", sub.ApplicantID))
	}

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = m.tick()
	}
	a.DisplayName = sub.DisplayName
	a.UpdatedAt = sub.CreatedAt
	m.submissions[sub.ApplicantID] = sub
	return nil
}

func (m *Memory) RecordDecision(_ context.Context, id uint64, moderatorID int64, decision models.Decision) (*models.ModerationRecord, error) {
	if err := validateDecision(decision); err != nil {
		return nil, err
	}

	unlock := m.keys.Lock(id)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.applicants[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("applicant", id)
	}

	now := m.tick()
	m.nextID++
	record := models.ModerationRecord{
		ID:          m.nextID,
		ApplicantID: id,
		ModeratorID: moderatorID,
		Decision:    decision,
		DecidedAt:   now,
	}
	a.Status = decision.Status()
	a.UpdatedAt = now
	m.records = append(m.records, record)
	delete(m.submissions, id)

	return &record, nil
}

func (m *Memory) ListApproved(_ context.Context, offset, limit int) ([]models.ApprovedApplicant, error) {
	offset, limit = normalizePage(offset, limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[uint64]time.Time)
	for _, r := range m.records {
		if r.Decision == models.DecisionApproved && r.DecidedAt.After(latest[r.ApplicantID]) {
			latest[r.ApplicantID] = r.DecidedAt
		}
	}

	var rows []models.ApprovedApplicant
	for _, a := range m.applicants {
		if a.Status != models.StatusApproved {
			continue
		}
		at, ok := latest[a.ID]
		if !ok {
			at = a.UpdatedAt
		}
		rows = append(rows, models.ApprovedApplicant{ID: a.ID, DisplayName: a.DisplayName, ApprovedAt: at})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].ApprovedAt.Equal(rows[j].ApprovedAt) {
			return rows[i].ApprovedAt.After(rows[j].ApprovedAt)
		}
		return rows[i].ID > rows[j].ID
	})

	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (m *Memory) CountByStatus(_ context.Context, status models.Status) (int, error) {
	if err := validateStatus(status); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, a := range m.applicants {
		if a.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *Memory) PurgeApplicant(_ context.Context, id uint64) error {
	unlock := m.keys.Lock(id)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.applicants[id]; !ok {
		return apperrors.NewNotFoundError("applicant", id)
	}
	delete(m.applicants, id)
	delete(m.submissions, id)

	kept := m.records[:0]
	for _, r := range m.records {
		if r.ApplicantID != id {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return nil
}

func (m *Memory) GetSubmission(_ context.Context, id uint64) (*models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.submissions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("submission", id)
	}
	return &sub, nil
}

func (m *Memory) ListPending(_ context.Context) ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := make([]models.Submission, 0, len(m.submissions))
	for id, sub := range m.submissions {
		if a, ok := m.applicants[id]; ok && a.Status == models.StatusPending {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.Before(subs[j].CreatedAt)
		}
		return subs[i].ApplicantID < subs[j].ApplicantID
	})

	ids := make([]uint64, len(subs))
	for i, s := range subs {
		ids[i] = s.ApplicantID
	}
	return ids, nil
}

func (m *Memory) ListDecisions(_ context.Context, id uint64) ([]models.ModerationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.ModerationRecord
	for _, r := range m.records {
		if r.ApplicantID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

// tick returns a strictly increasing timestamp so orderings stay stable
// even when calls land within the clock's resolution.
func (m *Memory) tick() time.Time {
	now := m.now()
	if last := m.lastTick; !now.After(last) {
		now = last.Add(time.Microsecond)
	}
	m.lastTick = now
	return now
}
