package service

import (
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/repository"
	"anchor_gate_backend/internal/util"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestLedger(t *testing.T) (*LedgerService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// A single connection keeps the in-memory database alive and serializes
	// concurrent access the way a pooled MySQL connection would not block.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.AnchorTag{}, &model.AnchorAttempt{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	attempts := repository.NewAttemptRepository(db)
	tags := repository.NewAnchorTagRepository(db, nil)
	return NewLedgerService(attempts, tags, nil), db
}

func seedTag(t *testing.T, db *gorm.DB, status model.AnchorTagStatus) *model.AnchorTag {
	t.Helper()
	tag := &model.AnchorTag{
		ContentType: model.ContentModule,
		ContentRef:  1,
		IsMandatory: true,
		Status:      status,
	}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("seed tag: %v", err)
	}
	return tag
}

func TestStartAttemptNumbering(t *testing.T) {
	ledger, db := newTestLedger(t)
	tag := seedTag(t, db, model.TagActive)

	for want := 1; want <= 3; want++ {
		attempt, err := ledger.StartAttempt(7, tag.ID)
		if err != nil {
			t.Fatalf("StartAttempt #%d: %v", want, err)
		}
		if attempt.AttemptNumber != want {
			t.Errorf("AttemptNumber = %d, want %d", attempt.AttemptNumber, want)
		}
		if attempt.Status != model.AttemptInProgress {
			t.Errorf("Status = %s, want in_progress", attempt.Status)
		}

		if _, err := ledger.CompleteAttempt(attempt.ID, false, 40); err != nil {
			t.Fatalf("CompleteAttempt #%d: %v", want, err)
		}
	}

	history, err := ledger.History(7, tag.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	for i, a := range history {
		if a.AttemptNumber != i+1 {
			t.Errorf("history[%d].AttemptNumber = %d, want %d", i, a.AttemptNumber, i+1)
		}
	}
}

func TestStartAttemptRejectsSecondOpen(t *testing.T) {
	ledger, db := newTestLedger(t)
	tag := seedTag(t, db, model.TagActive)

	if _, err := ledger.StartAttempt(7, tag.ID); err != nil {
		t.Fatalf("first StartAttempt: %v", err)
	}
	if _, err := ledger.StartAttempt(7, tag.ID); !errors.Is(err, util.ErrAttemptInProgress) {
		t.Errorf("second StartAttempt error = %v, want ErrAttemptInProgress", err)
	}

	// Another student on the same tag is unaffected.
	if _, err := ledger.StartAttempt(8, tag.ID); err != nil {
		t.Errorf("other student StartAttempt: %v", err)
	}
}

func TestStartAttemptConcurrent(t *testing.T) {
	ledger, db := newTestLedger(t)
	tag := seedTag(t, db, model.TagActive)

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = ledger.StartAttempt(7, tag.ID)
		}(i)
	}
	wg.Wait()

	started := 0
	for _, err := range errs {
		switch {
		case err == nil:
			started++
		case errors.Is(err, util.ErrAttemptInProgress):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if started != 1 {
		t.Errorf("started = %d attempts, want exactly 1", started)
	}

	var count int64
	if err := db.Model(&model.AnchorAttempt{}).
		Where("student_id = ? AND anchor_tag_id = ?", 7, tag.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("persisted attempts = %d, want 1", count)
	}
}

func TestStartAttemptTagStates(t *testing.T) {
	ledger, db := newTestLedger(t)

	if _, err := ledger.StartAttempt(7, 999); !errors.Is(err, util.ErrTagNotFound) {
		t.Errorf("missing tag error = %v, want ErrTagNotFound", err)
	}

	archived := seedTag(t, db, model.TagArchived)
	if _, err := ledger.StartAttempt(7, archived.ID); !errors.Is(err, util.ErrTagArchived) {
		t.Errorf("archived tag error = %v, want ErrTagArchived", err)
	}
}

func TestCompleteAttemptTransitions(t *testing.T) {
	ledger, db := newTestLedger(t)
	tag := seedTag(t, db, model.TagActive)

	attempt, err := ledger.StartAttempt(7, tag.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	closed, err := ledger.CompleteAttempt(attempt.ID, true, 100)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if closed.Status != model.AttemptCompleted {
		t.Errorf("Status = %s, want completed", closed.Status)
	}
	if closed.IsCorrect == nil || !*closed.IsCorrect {
		t.Error("IsCorrect not recorded")
	}
	if closed.Score == nil || *closed.Score != 100 {
		t.Errorf("Score = %v, want 100", closed.Score)
	}
	if closed.CompletedAt == nil {
		t.Error("CompletedAt not recorded")
	}

	// Terminal attempts are immutable, whichever transition is retried.
	if _, err := ledger.CompleteAttempt(attempt.ID, false, 0); !errors.Is(err, util.ErrAttemptTerminal) {
		t.Errorf("re-complete error = %v, want ErrAttemptTerminal", err)
	}
	if _, err := ledger.AbandonAttempt(attempt.ID); !errors.Is(err, util.ErrAttemptTerminal) {
		t.Errorf("abandon terminal error = %v, want ErrAttemptTerminal", err)
	}

	var stored model.AnchorAttempt
	if err := db.First(&stored, attempt.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != model.AttemptCompleted || stored.Score == nil || *stored.Score != 100 {
		t.Errorf("terminal attempt mutated: %+v", stored)
	}
}

func TestAbandonAttempt(t *testing.T) {
	ledger, db := newTestLedger(t)
	tag := seedTag(t, db, model.TagActive)

	attempt, err := ledger.StartAttempt(7, tag.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	closed, err := ledger.AbandonAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("AbandonAttempt: %v", err)
	}
	if closed.Status != model.AttemptFailed {
		t.Errorf("Status = %s, want failed", closed.Status)
	}
	if closed.IsCorrect == nil || *closed.IsCorrect {
		t.Error("abandoned attempt should record isCorrect = false")
	}

	// The pair is free for a fresh attempt afterwards.
	next, err := ledger.StartAttempt(7, tag.ID)
	if err != nil {
		t.Fatalf("restart after abandon: %v", err)
	}
	if next.AttemptNumber != 2 {
		t.Errorf("AttemptNumber = %d, want 2", next.AttemptNumber)
	}
}

func TestResumeAttempt(t *testing.T) {
	ledger, db := newTestLedger(t)
	tag := seedTag(t, db, model.TagActive)

	attempt, err := ledger.StartAttempt(7, tag.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	resumed, err := ledger.ResumeAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("ResumeAttempt: %v", err)
	}
	if resumed.ID != attempt.ID || resumed.Status != model.AttemptInProgress {
		t.Errorf("resumed = %+v", resumed)
	}

	if _, err := ledger.CompleteAttempt(attempt.ID, true, 100); err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if _, err := ledger.ResumeAttempt(attempt.ID); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Errorf("resume terminal error = %v, want ErrAttemptNotFound", err)
	}
	if _, err := ledger.ResumeAttempt(999); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Errorf("resume missing error = %v, want ErrAttemptNotFound", err)
	}
}

func TestAbandonExpired(t *testing.T) {
	ledger, db := newTestLedger(t)
	tag := seedTag(t, db, model.TagActive)

	stale, err := ledger.StartAttempt(7, tag.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if err := db.Model(&model.AnchorAttempt{}).
		Where("id = ?", stale.ID).
		Update("started_at", time.Now().Add(-3*time.Hour)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	fresh, err := ledger.StartAttempt(8, tag.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	swept, err := ledger.AbandonExpired(2 * time.Hour)
	if err != nil {
		t.Fatalf("AbandonExpired: %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1", swept)
	}

	var reloaded model.AnchorAttempt
	if err := db.First(&reloaded, stale.ID).Error; err != nil {
		t.Fatalf("reload stale: %v", err)
	}
	if reloaded.Status != model.AttemptFailed {
		t.Errorf("stale attempt status = %s, want failed", reloaded.Status)
	}

	var reloadedFresh model.AnchorAttempt
	if err := db.First(&reloadedFresh, fresh.ID).Error; err != nil {
		t.Fatalf("reload fresh: %v", err)
	}
	if reloadedFresh.Status != model.AttemptInProgress {
		t.Errorf("fresh attempt status = %s, want in_progress", reloadedFresh.Status)
	}
}

func TestMaxAttemptNumberEmpty(t *testing.T) {
	_, db := newTestLedger(t)
	attempts := repository.NewAttemptRepository(db)

	max, err := attempts.MaxAttemptNumber(1, 1)
	if err != nil {
		t.Fatalf("MaxAttemptNumber: %v", err)
	}
	if max != 0 {
		t.Errorf("max = %d, want 0 for empty ledger", max)
	}
}

func TestPairLockReuse(t *testing.T) {
	ledger, _ := newTestLedger(t)

	a := ledger.pairLock(1, 2)
	b := ledger.pairLock(1, 2)
	if a != b {
		t.Error("pairLock returned distinct mutexes for the same pair")
	}
}

func TestPairLockBounded(t *testing.T) {
	ledger, _ := newTestLedger(t)

	// The lock footprint stays fixed no matter how many pairs pass through;
	// distinct pairs may share a shard.
	seen := make(map[*sync.Mutex]struct{})
	for student := uint(1); student <= 200; student++ {
		for tag := uint(1); tag <= 10; tag++ {
			seen[ledger.pairLock(student, tag)] = struct{}{}
		}
	}
	if len(seen) > lockShards {
		t.Errorf("pairLock handed out %d mutexes, want at most %d", len(seen), lockShards)
	}
}

func BenchmarkStartAbandon(b *testing.B) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		b.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.AnchorTag{}, &model.AnchorAttempt{}); err != nil {
		b.Fatalf("migrate: %v", err)
	}

	tag := &model.AnchorTag{ContentType: model.ContentModule, ContentRef: 1, Status: model.TagActive}
	if err := db.Create(tag).Error; err != nil {
		b.Fatalf("seed tag: %v", err)
	}

	ledger := NewLedgerService(repository.NewAttemptRepository(db), repository.NewAnchorTagRepository(db, nil), nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		attempt, err := ledger.StartAttempt(uint(i%100), tag.ID)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := ledger.AbandonAttempt(attempt.ID); err != nil {
			b.Fatal(err)
		}
	}
}
