package service

import (
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/repository"
	"anchor_gate_backend/internal/util"
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestProgression(t *testing.T, knowledge KnowledgeLookup) (*ProgressionService, *gorm.DB) {
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
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.AnchorTag{}, &model.AnchorAttempt{}, &model.QuizGroup{}, &model.QuizQuestion{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	attempts := repository.NewAttemptRepository(db)
	tags := repository.NewAnchorTagRepository(db, nil)
	quizzes := repository.NewQuizGroupRepository(db)

	ledger := NewLedgerService(attempts, tags, nil)
	gating := NewGatingService(attempts, tags)
	engine := &VerificationService{
		Knowledge:       knowledge,
		QuestionTimeout: time.Second,
		WorkerLimit:     4,
	}

	return NewProgressionService(ledger, gating, engine, tags, quizzes), db
}

// seedQuizTag creates a quiz group with two multiple choice questions and a
// mandatory tag gating on it. Correct answers are "B" and "C".
func seedQuizTag(t *testing.T, db *gorm.DB) (*model.AnchorTag, []model.QuizQuestion) {
	t.Helper()

	group := &model.QuizGroup{Title: "Closures", Description: "captured variables"}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("seed group: %v", err)
	}

	questions := []model.QuizQuestion{
		{QuizGroupID: group.ID, QuestionType: model.MultipleChoice, Content: "q1", Answer: "B", Order: 1},
		{QuizGroupID: group.ID, QuestionType: model.MultipleChoice, Content: "q2", Answer: "C", Order: 2},
	}
	for i := range questions {
		if err := db.Create(&questions[i]).Error; err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}

	tag := &model.AnchorTag{
		ContentType: model.ContentChapter,
		ContentRef:  12,
		IsMandatory: true,
		QuizGroupID: &group.ID,
		Status:      model.TagActive,
	}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("seed tag: %v", err)
	}
	return tag, questions
}

func TestSubmitAllCorrectPasses(t *testing.T) {
	knowledge := &stubKnowledge{available: true, moduleCtx: "ref", summary: "well done"}
	progression, db := newTestProgression(t, knowledge)
	tag, questions := seedQuizTag(t, db)

	attempt, err := progression.Start(7, tag.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	outcome, err := progression.Submit(context.Background(), 7, attempt.ID, []SubmittedAnswer{
		{QuestionID: questions[0].ID, Answer: "B"},
		{QuestionID: questions[1].ID, Answer: "C"},
	}, 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if outcome.Attempt.Status != model.AttemptCompleted {
		t.Errorf("attempt status = %s, want completed", outcome.Attempt.Status)
	}
	if outcome.Attempt.Score == nil || *outcome.Attempt.Score != 100 {
		t.Errorf("attempt score = %v, want 100", outcome.Attempt.Score)
	}
	if outcome.Status != GatePassed {
		t.Errorf("gate status = %s, want passed", outcome.Status)
	}
	if !outcome.Result.KnowledgeAvailable {
		t.Error("KnowledgeAvailable = false, want true")
	}

	// Retrieval went through the tag's content key, not the group title.
	if knowledge.retrievedContentType != model.ContentChapter || knowledge.retrievedContentRef != 12 {
		t.Errorf("retrieval key = (%s, %d), want (chapter, 12)",
			knowledge.retrievedContentType, knowledge.retrievedContentRef)
	}

	var stored model.AnchorAttempt
	if err := db.First(&stored, attempt.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != model.AttemptCompleted {
		t.Errorf("persisted status = %s, want completed", stored.Status)
	}
}

func TestSubmitPartiallyCorrectFails(t *testing.T) {
	progression, db := newTestProgression(t, &stubKnowledge{available: true, summary: "almost"})
	tag, questions := seedQuizTag(t, db)

	attempt, err := progression.Start(7, tag.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// One of two correct: the pass rule demands a flawless batch.
	outcome, err := progression.Submit(context.Background(), 7, attempt.ID, []SubmittedAnswer{
		{QuestionID: questions[0].ID, Answer: "B"},
		{QuestionID: questions[1].ID, Answer: "A"},
	}, 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if outcome.Attempt.Status != model.AttemptFailed {
		t.Errorf("attempt status = %s, want failed", outcome.Attempt.Status)
	}
	if outcome.Attempt.Score == nil || *outcome.Attempt.Score != 50 {
		t.Errorf("attempt score = %v, want 50", outcome.Attempt.Score)
	}
	if outcome.Status != GateRetryRequired {
		t.Errorf("gate status = %s, want retry_required", outcome.Status)
	}

	// Failure never locks the gate; the student can go again.
	next, err := progression.Start(7, tag.ID)
	if err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
	if next.AttemptNumber != 2 {
		t.Errorf("AttemptNumber = %d, want 2", next.AttemptNumber)
	}
}

func TestSubmitAcknowledgementTag(t *testing.T) {
	progression, db := newTestProgression(t, &stubKnowledge{available: true})

	// No quiz group: reaching the tag and submitting is the whole gate.
	tag := &model.AnchorTag{
		ContentType: model.ContentBibliography,
		ContentRef:  3,
		IsMandatory: true,
		Status:      model.TagActive,
	}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("seed tag: %v", err)
	}

	attempt, err := progression.Start(7, tag.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	outcome, err := progression.Submit(context.Background(), 7, attempt.ID, nil, 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if outcome.Attempt.Status != model.AttemptCompleted {
		t.Errorf("attempt status = %s, want completed", outcome.Attempt.Status)
	}
	if outcome.Attempt.Score == nil || *outcome.Attempt.Score != 100 {
		t.Errorf("attempt score = %v, want 100", outcome.Attempt.Score)
	}
	if outcome.Status != GatePassed {
		t.Errorf("gate status = %s, want passed", outcome.Status)
	}
	if outcome.Result.TotalQuestions != 0 {
		t.Errorf("TotalQuestions = %d, want 0", outcome.Result.TotalQuestions)
	}
}

func TestSubmitDegradedClosesFailed(t *testing.T) {
	progression, db := newTestProgression(t, &stubKnowledge{available: false})
	tag, questions := seedQuizTag(t, db)

	attempt, err := progression.Start(7, tag.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The knowledge source is down: the submission still lands, the attempt
	// closes failed, and the gate stays re-attemptable.
	outcome, err := progression.Submit(context.Background(), 7, attempt.ID, []SubmittedAnswer{
		{QuestionID: questions[0].ID, Answer: "B"},
		{QuestionID: questions[1].ID, Answer: "C"},
	}, 0)
	if err != nil {
		t.Fatalf("Submit: %v, want degraded outcome instead of error", err)
	}

	if outcome.Result.KnowledgeAvailable {
		t.Error("KnowledgeAvailable = true, want false")
	}
	if outcome.Attempt.Status != model.AttemptFailed {
		t.Errorf("attempt status = %s, want failed", outcome.Attempt.Status)
	}
	if outcome.Attempt.Score == nil || *outcome.Attempt.Score != 0 {
		t.Errorf("attempt score = %v, want 0", outcome.Attempt.Score)
	}
	if outcome.Status != GateRetryRequired {
		t.Errorf("gate status = %s, want retry_required", outcome.Status)
	}

	if _, err := progression.Start(7, tag.ID); err != nil {
		t.Errorf("restart after degraded submit: %v", err)
	}
}

func TestSubmitGuards(t *testing.T) {
	progression, db := newTestProgression(t, &stubKnowledge{available: true})
	tag, questions := seedQuizTag(t, db)

	attempt, err := progression.Start(7, tag.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Another student cannot submit into this attempt.
	if _, err := progression.Submit(context.Background(), 8, attempt.ID, nil, 0); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Errorf("foreign submit error = %v, want ErrAttemptNotFound", err)
	}

	// Leaving a question unanswered rejects the submission without closing.
	if _, err := progression.Submit(context.Background(), 7, attempt.ID, []SubmittedAnswer{
		{QuestionID: questions[0].ID, Answer: "B"},
	}, 0); !errors.Is(err, util.ErrMissingAnswer) {
		t.Errorf("partial submit error = %v, want ErrMissingAnswer", err)
	}

	answers := []SubmittedAnswer{
		{QuestionID: questions[0].ID, Answer: "B"},
		{QuestionID: questions[1].ID, Answer: "C"},
	}
	if _, err := progression.Submit(context.Background(), 7, attempt.ID, answers, 0); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Terminal attempts reject a second submission.
	if _, err := progression.Submit(context.Background(), 7, attempt.ID, answers, 0); !errors.Is(err, util.ErrAttemptTerminal) {
		t.Errorf("resubmit error = %v, want ErrAttemptTerminal", err)
	}
}
