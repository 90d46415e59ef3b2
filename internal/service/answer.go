package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks insightflow/internal/service Generator

import (
	"context"
	"errors"
	"fmt"

	"insightflow/internal/contextutil"
	"insightflow/internal/llm"
	"insightflow/internal/metrics"
)

// DefaultMaxOutputTokens caps the generated answer length.
const DefaultMaxOutputTokens = 256

// Generator produces text from chat messages.
// This interface is defined from the service layer's perspective (consumer-first).
type Generator interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Answer is the outcome of one generation: either Text or Err is meaningful.
type Answer struct {
	Text string
	Err  error
}

// OK reports whether generation succeeded.
func (a Answer) OK() bool {
	return a.Err == nil
}

// Display returns the text to show the user.
func (a Answer) Display() string {
	if a.Err != nil {
		return "Error generating response: " + cause(a.Err)
	}
	return a.Text
}

func cause(err error) string {
	var gen *GenerationServiceError
	if errors.As(err, &gen) && gen.Err != nil {
		return gen.Err.Error()
	}
	return err.Error()
}

// AnswerService turns a question and retrieved context into an answer.
type AnswerService struct {
	generator Generator
	model     string
	maxTokens int
}

// NewAnswerService creates an AnswerService. A nil generator disables answering.
func NewAnswerService(generator Generator, model string, maxTokens int) *AnswerService {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	return &AnswerService{
		generator: generator,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Enabled reports whether a generator is configured.
func (s *AnswerService) Enabled() bool {
	return s.generator != nil
}

// BuildPrompt renders the single user message sent for a question.
func BuildPrompt(question, contextText string) string {
	return fmt.Sprintf("Answer the question clearly.\n\nQuestion: %s\n\nContext:\n%s", question, contextText)
}

// Answer asks the generator once and returns its text verbatim.
// It never returns an error directly; failures are carried in Answer.Err.
func (s *AnswerService) Answer(ctx context.Context, question, contextText string) Answer {
	logger := contextutil.LoggerFromContext(ctx)

	if s.generator == nil {
		return Answer{Err: &GenerationServiceError{
			Model: s.model,
			Err:   fmt.Errorf("%w: no API key configured", ErrDisabled),
		}}
	}

	prompt := BuildPrompt(question, contextText)
	logger.DebugContext(ctx, "sending prompt", "question_length", len(question), "context_length", len(contextText))

	text, err := s.generator.ChatWithMessages(ctx, []llm.Message{
		{Role: "user", Content: prompt},
	}, llm.ChatParams{
		Model:     s.model,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("error").Inc()
		logger.ErrorContext(ctx, "failed to generate answer", "error", err)
		return Answer{Err: &GenerationServiceError{Model: s.model, Err: err}}
	}

	metrics.GenerationTotal.WithLabelValues("ok").Inc()
	logger.InfoContext(ctx, "answer generated", "answer_length", len(text))
	return Answer{Text: text}
}
