package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"qna_catalog/internal/domain/model"
)

// ConcurrentAggregator fans out one fetch-and-assemble pass per question.
type ConcurrentAggregator struct {
	source SubtreeSource
}

func NewConcurrentAggregator(source SubtreeSource) *ConcurrentAggregator {
	return &ConcurrentAggregator{source: source}
}

// BuildMany assembles every question's forest concurrently. Each slot is
// written by input index, so response order matches request order no matter
// which fetch completes first. Every fetch runs its own pooled connection;
// no transaction is shared across goroutines. The first failure cancels the
// group and fails the whole call; partial listings are never returned.
func (a *ConcurrentAggregator) BuildMany(ctx context.Context, questions []model.Question) ([]model.QuestionResponse, error) {
	g, ctx := errgroup.WithContext(ctx)
	responses := make([]model.QuestionResponse, len(questions))

	for i, question := range questions {
		i, question := i, question
		g.Go(func() error {
			rows, err := a.source.Fetch(ctx, question.ID)
			if err != nil {
				return fmt.Errorf("fetch subtree of question %d: %w", question.ID, err)
			}
			forest, err := BuildHierarchy(rows)
			if err != nil {
				return fmt.Errorf("assemble subtree of question %d: %w", question.ID, err)
			}
			responses[i] = model.QuestionResponse{Question: question, SubQuestions: forest}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}
