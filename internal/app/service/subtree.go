package service

import (
	"context"
	"fmt"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
	"qna_catalog/internal/domain/repository"
)

// SubtreeSource yields the flat sub-question rows of one question.
type SubtreeSource interface {
	Fetch(ctx context.Context, questionID int64) ([]model.SubQuestion, error)
}

// SubtreeFetcher retrieves every sub-question belonging, directly or
// transitively, to a question: one query for the direct children, then
// breadth-first frontier expansion over parent_subquestion_id until the
// frontier is empty. Read-only; a question without sub-questions yields an
// empty slice.
type SubtreeFetcher struct {
	subQuestionRepo repository.SubQuestionRepository
}

func NewSubtreeFetcher(subQuestionRepo repository.SubQuestionRepository) *SubtreeFetcher {
	return &SubtreeFetcher{subQuestionRepo: subQuestionRepo}
}

func (f *SubtreeFetcher) Fetch(ctx context.Context, questionID int64) ([]model.SubQuestion, error) {
	direct, err := f.subQuestionRepo.ListByParentQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	all := make([]model.SubQuestion, 0, len(direct))
	seen := make(map[int64]bool, len(direct))
	frontier := make([]int64, 0, len(direct))
	for _, row := range direct {
		all = append(all, row)
		seen[row.ID] = true
		frontier = append(frontier, row.ID)
	}

	for len(frontier) > 0 {
		next, err := f.subQuestionRepo.ListByParentSubQuestions(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, row := range next {
			if seen[row.ID] {
				// A row reappearing on a later frontier means the parent
				// chain loops back on itself. That is store corruption.
				return nil, fmt.Errorf("sub-question %d reached twice while expanding question %d: %w",
					row.ID, questionID, common.ErrMalformedHierarchy)
			}
			seen[row.ID] = true
			all = append(all, row)
			frontier = append(frontier, row.ID)
		}
	}
	return all, nil
}
