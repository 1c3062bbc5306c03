package service

import (
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/repository"
	"anchor_gate_backend/internal/util"
	"anchor_gate_backend/pkg/logger"
	"anchor_gate_backend/pkg/monitoring"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// allocRetries bounds the optimistic-insert loop; the unique index on
// (student_id, anchor_tag_id, attempt_number) stays the correctness backstop.
const allocRetries = 3

// lockShards bounds the lock footprint: pairs hash onto a fixed shard array
// instead of growing a mutex per pair for the life of the process. Distinct
// pairs sharing a shard only serialize a little more.
const lockShards = 64

type LedgerService struct {
	Attempts *repository.AttemptRepository
	Tags     *repository.AnchorTagRepository
	Audit    *repository.AuditRepository

	// per-(student, tag) locks shard local contention so concurrent starts
	// from the same process rarely hit the index. Correctness never depends
	// on them; other processes run the same ledger against the same table.
	locks [lockShards]sync.Mutex
}

func NewLedgerService(attempts *repository.AttemptRepository, tags *repository.AnchorTagRepository, audit *repository.AuditRepository) *LedgerService {
	return &LedgerService{
		Attempts: attempts,
		Tags:     tags,
		Audit:    audit,
	}
}

func (s *LedgerService) pairLock(studentID, tagID uint) *sync.Mutex {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d:%d", studentID, tagID)
	return &s.locks[h.Sum32()%lockShards]
}

// StartAttempt allocates the next attempt number for the pair and inserts the
// record in one optimistic step. A duplicated-key failure means another
// caller won that number; the allocation re-reads the maximum and retries.
func (s *LedgerService) StartAttempt(studentID, tagID uint) (*model.AnchorAttempt, error) {
	tag, err := s.Tags.FindByID(tagID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTagNotFound
		}
		return nil, err
	}
	if tag.Status == model.TagArchived {
		return nil, util.ErrTagArchived
	}

	lock := s.pairLock(studentID, tagID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.Attempts.FindInProgress(studentID, tagID); err == nil {
		return nil, util.ErrAttemptInProgress
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for i := 0; i < allocRetries; i++ {
		max, err := s.Attempts.MaxAttemptNumber(studentID, tagID)
		if err != nil {
			return nil, err
		}

		attempt := &model.AnchorAttempt{
			StudentID:     studentID,
			AnchorTagID:   tagID,
			AttemptNumber: max + 1,
			Status:        model.AttemptInProgress,
			StartedAt:     time.Now(),
		}

		err = s.Attempts.Create(attempt)
		if err == nil {
			monitoring.AttemptsStarted.Inc()
			s.writeAudit("start", attempt, nil)
			return attempt, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}

		// Lost the race for this number. If the winner is still open the
		// pair already has its one in-progress attempt.
		if _, err := s.Attempts.FindInProgress(studentID, tagID); err == nil {
			return nil, util.ErrAttemptInProgress
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, util.ErrAllocationContention
}

// ResumeAttempt returns the open attempt unchanged.
func (s *LedgerService) ResumeAttempt(attemptID uint) (*model.AnchorAttempt, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.Terminal() {
		return nil, util.ErrAttemptNotFound
	}
	return attempt, nil
}

// CompleteAttempt folds a verification outcome into the attempt:
// IN_PROGRESS -> COMPLETED when correct, IN_PROGRESS -> FAILED otherwise.
// Terminal attempts are immutable.
func (s *LedgerService) CompleteAttempt(attemptID uint, isCorrect bool, score float64) (*model.AnchorAttempt, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	status := model.AttemptFailed
	action := "fail"
	if isCorrect {
		status = model.AttemptCompleted
		action = "complete"
	}

	now := time.Now()
	ok, err := s.Attempts.Close(attemptID, status, isCorrect, score, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrAttemptTerminal
	}

	attempt.Status = status
	attempt.IsCorrect = &isCorrect
	attempt.Score = &score
	attempt.CompletedAt = &now

	monitoring.AttemptsClosed.WithLabelValues(string(status)).Inc()
	s.writeAudit(action, attempt, map[string]interface{}{"score": score})
	return attempt, nil
}

// AbandonAttempt closes an open attempt as failed, used when a session times
// out or the student walks away.
func (s *LedgerService) AbandonAttempt(attemptID uint) (*model.AnchorAttempt, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	now := time.Now()
	ok, err := s.Attempts.Close(attemptID, model.AttemptFailed, false, 0, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrAttemptTerminal
	}

	isCorrect := false
	score := 0.0
	attempt.Status = model.AttemptFailed
	attempt.IsCorrect = &isCorrect
	attempt.Score = &score
	attempt.CompletedAt = &now

	monitoring.AttemptsClosed.WithLabelValues("abandoned").Inc()
	s.writeAudit("abandon", attempt, nil)
	return attempt, nil
}

// History returns the non-deleted attempts for the pair, attempt number
// ascending. The gating derivation reads from here.
func (s *LedgerService) History(studentID, tagID uint) ([]model.AnchorAttempt, error) {
	return s.Attempts.History(studentID, tagID)
}

// AuditTrail returns the transition records for one of the student's own
// attempts, oldest first.
func (s *LedgerService) AuditTrail(studentID, attemptID uint) ([]model.AuditRecord, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrAttemptNotFound
	}
	if s.Audit == nil {
		return []model.AuditRecord{}, nil
	}
	return s.Audit.ListByAttempt(attemptID)
}

// StudentAuditTrail pages through every recorded transition for one student,
// newest first. Author/admin review path.
func (s *LedgerService) StudentAuditTrail(studentID uint, page, limit int) ([]model.AuditRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if s.Audit == nil {
		return []model.AuditRecord{}, 0, nil
	}
	return s.Audit.ListByStudent(studentID, page, limit)
}

// AbandonExpired sweeps attempts that have been open longer than maxAge.
func (s *LedgerService) AbandonExpired(maxAge time.Duration) (int, error) {
	stale, err := s.Attempts.FindStaleInProgress(time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range stale {
		if _, err := s.AbandonAttempt(stale[i].ID); err != nil {
			if errors.Is(err, util.ErrAttemptTerminal) {
				continue
			}
			return swept, err
		}
		swept++
	}
	return swept, nil
}

func (s *LedgerService) writeAudit(action string, attempt *model.AnchorAttempt, extra map[string]interface{}) {
	if s.Audit == nil {
		return
	}
	meta := map[string]interface{}{
		"attemptNumber": attempt.AttemptNumber,
	}
	for k, v := range extra {
		meta[k] = v
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}

	record := &model.AuditRecord{
		StudentID:     attempt.StudentID,
		AnchorTagID:   attempt.AnchorTagID,
		AttemptID:     attempt.ID,
		Action:        action,
		SchemaVersion: model.AuditMetadataSchemaVersion,
		Metadata:      data,
	}
	if err := s.Audit.Create(record); err != nil {
		logger.Log.Error("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
