package service

import (
	"anchor_gate_backend/internal/config"
	"anchor_gate_backend/internal/model"
	"anchor_gate_backend/internal/repository"
	"anchor_gate_backend/internal/util"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Verdict is the knowledge lookup's judgment of one open-ended answer.
type Verdict struct {
	IsCorrect   bool    `json:"is_correct"`
	Score       float64 `json:"score"` // partial credit in [0,1]
	Explanation string  `json:"explanation"`
	Feedback    string  `json:"feedback"`
}

type SummaryStats struct {
	TotalQuestions int
	CorrectAnswers int
	ChoiceTotal    int
	ChoiceCorrect  int
	OpenTotal      int
	OpenCorrect    int
}

// KnowledgeLookup is what the verification engine needs from the knowledge
// source. Outages surface as errors or ok=false; the engine downgrades them,
// it never propagates them.
type KnowledgeLookup interface {
	RetrieveContext(contentType model.ContentType, contentRef uint, moduleTitle, moduleDescription string) (string, bool)
	VerifyAnswer(ctx context.Context, moduleContext, question, answer string) (*Verdict, error)
	Summarize(ctx context.Context, moduleContext string, stats SummaryStats) (string, error)
}

type aiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []aiChatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message aiChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// KnowledgeService binds the lookup to an OpenAI-compatible completion API
// plus the local reference document store.
type KnowledgeService struct {
	config config.KnowledgeConfig
	Docs   *repository.KnowledgeRepository
	client *http.Client
}

func NewKnowledgeService(cfg config.KnowledgeConfig, docs *repository.KnowledgeRepository) *KnowledgeService {
	return &KnowledgeService{
		config: cfg,
		Docs:   docs,
		client: &http.Client{},
	}
}

type KnowledgeDocumentRequest struct {
	ContentType model.ContentType `json:"contentType" binding:"required"`
	ContentRef  uint              `json:"contentRef" binding:"required"`
	Title       string            `json:"title" binding:"required"`
	Content     string            `json:"content" binding:"required"`
}

// AddDocument stores reference material; modules without any documents have
// no retrievable knowledge and their verifications degrade.
func (s *KnowledgeService) AddDocument(req KnowledgeDocumentRequest) (*model.KnowledgeDocument, error) {
	switch req.ContentType {
	case model.ContentModule, model.ContentChapter, model.ContentBibliography:
	default:
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidContentType, req.ContentType)
	}

	doc := &model.KnowledgeDocument{
		ContentType: req.ContentType,
		ContentRef:  req.ContentRef,
		Title:       req.Title,
		Content:     req.Content,
	}
	if err := s.Docs.CreateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *KnowledgeService) DocumentsFor(contentType model.ContentType, contentRef uint) ([]model.KnowledgeDocument, error) {
	return s.Docs.FindByContent(contentType, contentRef)
}

// RetrieveContext gathers reference material for the unit. Documents keyed by
// the unit's (contentType, contentRef) take the indexed path; callers without
// a content key fall back to a keyword search over title and description. No
// matching documents either way means the unit has no retrievable knowledge
// and verification must degrade.
func (s *KnowledgeService) RetrieveContext(contentType model.ContentType, contentRef uint, moduleTitle, moduleDescription string) (string, bool) {
	if contentType != "" && contentRef != 0 {
		docs, err := s.Docs.FindByContent(contentType, contentRef)
		if err == nil && len(docs) > 0 {
			return joinDocuments(docs), true
		}
	}

	keyword := moduleTitle
	if keyword == "" {
		keyword = moduleDescription
	}
	if keyword == "" {
		return "", false
	}

	docs, err := s.Docs.Search(keyword, 3)
	if err != nil || len(docs) == 0 {
		return "", false
	}
	return joinDocuments(docs), true
}

func joinDocuments(docs []model.KnowledgeDocument) string {
	var sb strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&sb, "[Reference] %s\n%s\n\n", d.Title, d.Content)
	}
	return sb.String()
}

func (s *KnowledgeService) VerifyAnswer(ctx context.Context, moduleContext, question, answer string) (*Verdict, error) {
	system := "You are a grading assistant. Judge the student's answer strictly against the reference material. " +
		"Respond with a single JSON object and nothing else: " +
		`{"is_correct": bool, "score": number between 0 and 1, "explanation": string, "feedback": string}`

	user := fmt.Sprintf("Reference material:\n%s\nQuestion: %s\nStudent answer: %s", moduleContext, question, answer)

	content, err := s.chat(ctx, system, user)
	if err != nil {
		return nil, err
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &verdict); err != nil {
		return nil, fmt.Errorf("knowledge lookup returned unparseable verdict: %w", err)
	}

	if verdict.Score < 0 {
		verdict.Score = 0
	}
	if verdict.Score > 1 {
		verdict.Score = 1
	}
	return &verdict, nil
}

func (s *KnowledgeService) Summarize(ctx context.Context, moduleContext string, stats SummaryStats) (string, error) {
	system := "You are a grading assistant. Write one or two sentences of overall feedback for the student. " +
		"Name the question category they were weakest in. Plain text only."

	user := fmt.Sprintf(
		"Results: %d of %d correct overall. Multiple choice: %d of %d. Open-ended: %d of %d.",
		stats.CorrectAnswers, stats.TotalQuestions,
		stats.ChoiceCorrect, stats.ChoiceTotal,
		stats.OpenCorrect, stats.OpenTotal,
	)

	return s.chat(ctx, system, user)
}

func (s *KnowledgeService) chat(ctx context.Context, system, user string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: s.config.Model,
		Messages: []aiChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("knowledge API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("knowledge API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("knowledge API returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
