package service

import (
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/repository"
	"anchor_gate_backend/internal/util"
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// ProgressionService drives the start -> submit -> close flow: the ledger
// supplies attempt identity, the engine supplies the judgment, the gating
// derivation reports where the student stands afterwards.
type ProgressionService struct {
	Ledger  *LedgerService
	Gating  *GatingService
	Engine  *VerificationService
	Tags    *repository.AnchorTagRepository
	Quizzes *repository.QuizGroupRepository
}

func NewProgressionService(ledger *LedgerService, gating *GatingService, engine *VerificationService,
	tags *repository.AnchorTagRepository, quizzes *repository.QuizGroupRepository) *ProgressionService {
	return &ProgressionService{
		Ledger:  ledger,
		Gating:  gating,
		Engine:  engine,
		Tags:    tags,
		Quizzes: quizzes,
	}
}

type SubmittedAnswer struct {
	QuestionID uint   `json:"questionId" binding:"required"`
	Answer     string `json:"answer"`
}

type SubmissionOutcome struct {
	Attempt *model.AnchorAttempt `json:"attempt"`
	Result  *VerificationResult  `json:"result"`
	Status  GateStatus           `json:"status"`
}

func (s *ProgressionService) Start(studentID, tagID uint) (*model.AnchorAttempt, error) {
	return s.Ledger.StartAttempt(studentID, tagID)
}

func (s *ProgressionService) Resume(studentID, attemptID uint) (*model.AnchorAttempt, error) {
	attempt, err := s.Ledger.ResumeAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *ProgressionService) Abandon(studentID, attemptID uint) (*model.AnchorAttempt, error) {
	attempt, err := s.ownedAttempt(studentID, attemptID)
	if err != nil {
		return nil, err
	}
	return s.Ledger.AbandonAttempt(attempt.ID)
}

// Submit scores the student's answers for an open attempt and closes it with
// the outcome. An attempt passes only when every question in the batch came
// back correct; a degraded verification closes it as failed but stays
// re-attemptable.
func (s *ProgressionService) Submit(ctx context.Context, studentID, attemptID uint, answers []SubmittedAnswer, maxResults int) (*SubmissionOutcome, error) {
	attempt, err := s.ownedAttempt(studentID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Terminal() {
		return nil, util.ErrAttemptTerminal
	}

	tag, err := s.Tags.FindByID(attempt.AnchorTagID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTagNotFound
		}
		return nil, err
	}

	// Tags without a quiz group gate by acknowledgement.
	if tag.QuizGroupID == nil {
		closed, err := s.Ledger.CompleteAttempt(attempt.ID, true, 100)
		if err != nil {
			return nil, err
		}
		empty, err := s.Engine.Verify(ctx, &VerificationBatch{})
		if err != nil {
			return nil, err
		}
		return s.outcome(closed, empty)
	}

	batch, err := s.buildBatch(tag, answers, maxResults)
	if err != nil {
		return nil, err
	}

	result, err := s.Engine.Verify(ctx, batch)
	if err != nil {
		return nil, err
	}

	passed := result.TotalQuestions > 0 && result.CorrectAnswers == result.TotalQuestions
	closed, err := s.Ledger.CompleteAttempt(attempt.ID, passed, float64(result.ScorePercentage))
	if err != nil {
		return nil, err
	}

	return s.outcome(closed, result)
}

func (s *ProgressionService) buildBatch(tag *model.AnchorTag, answers []SubmittedAnswer, maxResults int) (*VerificationBatch, error) {
	group, err := s.Quizzes.FindGroupByID(*tag.QuizGroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizGroupNotFound
		}
		return nil, err
	}

	questions, err := s.Quizzes.ListQuestions(group.ID)
	if err != nil {
		return nil, err
	}

	answerByQuestion := make(map[uint]string, len(answers))
	for _, a := range answers {
		answerByQuestion[a.QuestionID] = a.Answer
	}

	// The tag's content key routes retrieval to the unit's own documents;
	// the group title is only the keyword fallback.
	batch := &VerificationBatch{
		ContentType:       tag.ContentType,
		ContentRef:        tag.ContentRef,
		ModuleTitle:       group.Title,
		ModuleDescription: group.Description,
		Questions:         make([]BatchQuestion, len(questions)),
		MaxResults:        maxResults,
		RequireQuestions:  true,
	}

	for i, q := range questions {
		answer, ok := answerByQuestion[q.ID]
		if !ok {
			return nil, util.ErrMissingAnswer
		}

		var options []string
		if len(q.Options) > 0 {
			// Options are stored as a JSON array; a malformed blob only
			// loses the option echo, not the scoring.
			_ = json.Unmarshal(q.Options, &options)
		}

		batch.Questions[i] = BatchQuestion{
			Question:      q.Content,
			QuestionType:  q.QuestionType,
			Options:       options,
			CorrectAnswer: q.Answer,
			Explanation:   q.Explanation,
			UserAnswer:    answer,
		}
	}

	return batch, nil
}

func (s *ProgressionService) outcome(attempt *model.AnchorAttempt, result *VerificationResult) (*SubmissionOutcome, error) {
	status, err := s.Gating.TagStatus(attempt.StudentID, attempt.AnchorTagID)
	if err != nil {
		return nil, err
	}
	return &SubmissionOutcome{
		Attempt: attempt,
		Result:  result,
		Status:  status,
	}, nil
}

func (s *ProgressionService) ownedAttempt(studentID, attemptID uint) (*model.AnchorAttempt, error) {
	attempt, err := s.Ledger.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrAttemptNotFound
	}
	return attempt, nil
}
