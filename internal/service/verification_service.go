package service

import (
	"anchor_gate_backend/internal/config"
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/util"
	"anchor_gate_backend/pkg/monitoring"
	"context"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultQuestionTimeout = 8 * time.Second
	defaultWorkerLimit     = 4

	feedbackUnavailable    = "Automated verification could not be performed: no reference knowledge is available for this module. Your answers were recorded."
	feedbackNothingToGrade = "There was nothing to grade in this submission."
	feedbackFallback       = "Verification finished. Review the per-question results below."
)

type BatchQuestion struct {
	Question      string             `json:"question"`
	QuestionType  model.QuestionType `json:"questionType"`
	Options       []string           `json:"options,omitempty"`
	CorrectAnswer string             `json:"correctAnswer,omitempty"` // stored option, multiple choice only
	Explanation   string             `json:"explanation,omitempty"`
	UserAnswer    string             `json:"userAnswer"`
}

// VerificationBatch is ephemeral; nothing in it is persisted by the engine.
// The content key, when set, routes knowledge retrieval to the documents
// stored for that unit instead of a keyword search.
type VerificationBatch struct {
	ContentType       model.ContentType `json:"contentType,omitempty"`
	ContentRef        uint              `json:"contentRef,omitempty"`
	ModuleTitle       string            `json:"moduleTitle"`
	ModuleDescription string            `json:"moduleDescription"`
	Questions         []BatchQuestion   `json:"questions"`
	MaxResults        int               `json:"maxResults,omitempty"` // 0 = full breakdown
	RequireQuestions  bool              `json:"-"`
}

type QuestionResult struct {
	QuestionIndex int                `json:"questionIndex"`
	Question      string             `json:"question"`
	QuestionType  model.QuestionType `json:"questionType"`
	UserAnswer    string             `json:"userAnswer"`
	IsCorrect     bool               `json:"isCorrect"`
	CorrectAnswer string             `json:"correctAnswer,omitempty"`
	Explanation   *string            `json:"explanation"`
	Feedback      *string            `json:"feedback"`
	Score         float64            `json:"score"`
}

type VerificationResult struct {
	TotalQuestions     int              `json:"totalQuestions"`
	CorrectAnswers     int              `json:"correctAnswers"`
	ScorePercentage    int              `json:"scorePercentage"`
	OverallFeedback    string           `json:"overallFeedback"`
	KnowledgeAvailable bool             `json:"knowledgeAvailable"`
	QuestionsResults   []QuestionResult `json:"questionsResults"`
}

// VerificationService scores one batch at a time. It is stateless and
// side-effect free; the caller folds the result into the ledger.
type VerificationService struct {
	Knowledge       KnowledgeLookup
	QuestionTimeout time.Duration
	WorkerLimit     int
}

func NewVerificationService(knowledge KnowledgeLookup, cfg config.VerificationConfig) *VerificationService {
	timeout := cfg.QuestionTimeout
	if timeout <= 0 {
		timeout = defaultQuestionTimeout
	}
	limit := cfg.WorkerLimit
	if limit <= 0 {
		limit = defaultWorkerLimit
	}
	return &VerificationService{
		Knowledge:       knowledge,
		QuestionTimeout: timeout,
		WorkerLimit:     limit,
	}
}

// Verify scores the whole batch and only then aggregates: a partially
// resolved batch is never returned. Knowledge-source failures degrade
// individual questions (or the whole batch) to indeterminate instead of
// becoming errors.
func (s *VerificationService) Verify(ctx context.Context, batch *VerificationBatch) (*VerificationResult, error) {
	if len(batch.Questions) == 0 {
		if batch.RequireQuestions {
			return nil, util.ErrNoQuestions
		}
		return &VerificationResult{
			OverallFeedback:    feedbackNothingToGrade,
			KnowledgeAvailable: true,
			QuestionsResults:   []QuestionResult{},
		}, nil
	}

	for _, q := range batch.Questions {
		if strings.TrimSpace(q.UserAnswer) == "" {
			return nil, util.ErrMissingAnswer
		}
	}

	moduleContext, available := s.Knowledge.RetrieveContext(batch.ContentType, batch.ContentRef, batch.ModuleTitle, batch.ModuleDescription)
	if !available {
		monitoring.VerificationBatches.WithLabelValues("degraded").Inc()
		return s.degradedResult(batch), nil
	}

	results := make([]QuestionResult, len(batch.Questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.WorkerLimit)
	for i := range batch.Questions {
		g.Go(func() error {
			results[i] = s.scoreQuestion(gctx, moduleContext, batch.Questions[i], i)
			return nil
		})
	}
	_ = g.Wait()

	result := s.aggregate(ctx, moduleContext, batch, results)
	monitoring.VerificationBatches.WithLabelValues("available").Inc()
	return result, nil
}

func (s *VerificationService) scoreQuestion(ctx context.Context, moduleContext string, q BatchQuestion, index int) QuestionResult {
	res := QuestionResult{
		QuestionIndex: index,
		Question:      q.Question,
		QuestionType:  q.QuestionType,
		UserAnswer:    q.UserAnswer,
	}

	switch q.QuestionType {
	case model.MultipleChoice:
		// Exact match against the stored option: trimmed, case-sensitive.
		res.CorrectAnswer = q.CorrectAnswer
		if strings.TrimSpace(q.UserAnswer) == strings.TrimSpace(q.CorrectAnswer) {
			res.IsCorrect = true
			res.Score = 1.0
		}
		if q.Explanation != "" {
			explanation := q.Explanation
			res.Explanation = &explanation
		}

	case model.OpenEnded:
		qctx, cancel := context.WithTimeout(ctx, s.QuestionTimeout)
		defer cancel()

		verdict, err := s.Knowledge.VerifyAnswer(qctx, moduleContext, q.Question, q.UserAnswer)
		if err != nil {
			// One slow or failing lookup marks only this question
			// indeterminate; the rest of the batch proceeds.
			if qctx.Err() != nil {
				monitoring.VerificationQuestionTimeouts.Inc()
			}
			return res
		}

		res.IsCorrect = verdict.IsCorrect
		res.Score = verdict.Score
		if verdict.Explanation != "" {
			explanation := verdict.Explanation
			res.Explanation = &explanation
		}
		if verdict.Feedback != "" {
			feedback := verdict.Feedback
			res.Feedback = &feedback
		}
	}

	return res
}

func (s *VerificationService) aggregate(ctx context.Context, moduleContext string, batch *VerificationBatch, results []QuestionResult) *VerificationResult {
	stats := SummaryStats{TotalQuestions: len(results)}
	for _, r := range results {
		switch r.QuestionType {
		case model.MultipleChoice:
			stats.ChoiceTotal++
			if r.IsCorrect {
				stats.ChoiceCorrect++
			}
		case model.OpenEnded:
			stats.OpenTotal++
			if r.IsCorrect {
				stats.OpenCorrect++
			}
		}
		if r.IsCorrect {
			stats.CorrectAnswers++
		}
	}

	feedback, err := s.Knowledge.Summarize(ctx, moduleContext, stats)
	if err != nil || strings.TrimSpace(feedback) == "" {
		feedback = feedbackFallback
	}

	return &VerificationResult{
		TotalQuestions:     stats.TotalQuestions,
		CorrectAnswers:     stats.CorrectAnswers,
		ScorePercentage:    scorePercentage(stats.CorrectAnswers, stats.TotalQuestions),
		OverallFeedback:    feedback,
		KnowledgeAvailable: true,
		QuestionsResults:   truncate(results, batch.MaxResults),
	}
}

// degradedResult is the whole-batch downgrade: a valid response where every
// question is indeterminate, not an error.
func (s *VerificationService) degradedResult(batch *VerificationBatch) *VerificationResult {
	results := make([]QuestionResult, len(batch.Questions))
	for i, q := range batch.Questions {
		results[i] = QuestionResult{
			QuestionIndex: i,
			Question:      q.Question,
			QuestionType:  q.QuestionType,
			UserAnswer:    q.UserAnswer,
		}
	}

	return &VerificationResult{
		TotalQuestions:     len(results),
		CorrectAnswers:     0,
		ScorePercentage:    0,
		OverallFeedback:    feedbackUnavailable,
		KnowledgeAvailable: false,
		QuestionsResults:   truncate(results, batch.MaxResults),
	}
}

func scorePercentage(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(total)))
}

// truncate caps the per-question breakdown in original request order;
// aggregate totals keep reflecting the full batch.
func truncate(results []QuestionResult, maxResults int) []QuestionResult {
	if maxResults > 0 && maxResults < len(results) {
		return results[:maxResults]
	}
	return results
}
