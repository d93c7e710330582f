package usecase

import (
	"context"
	"fmt"

	"codeagent/internal/adapter/fs"
	"codeagent/internal/domain"
	"codeagent/internal/port"
	"codeagent/internal/prompt"
)

// ReviewService runs an LLM review over a single file.
type ReviewService struct {
	chat port.ChatModel
}

func NewReviewService(chat port.ChatModel) *ReviewService {
	return &ReviewService{chat: chat}
}

// Review reads the file at path and asks the model for a review of the
// given kind (general, security, performance, style).
func (s *ReviewService) Review(ctx context.Context, path, kind string) (string, error) {
	content, err := fs.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	system, err := prompt.RenderReviewSystem(kind)
	if err != nil {
		return "", err
	}
	user, err := prompt.RenderReviewUser(path, domain.DetectLanguage(path), content)
	if err != nil {
		return "", err
	}

	review, err := s.chat.Generate(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("review generation failed: %w", err)
	}
	return review, nil
}
