package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
)

func TestSubtreeFetchWalksEveryLevel(t *testing.T) {
	subs := newMemSubQuestionRepo()
	ctx := context.Background()

	questionID := int64(1)
	first := &model.SubQuestion{Text: "a", Depth: 1, ParentQuestionID: &questionID}
	require.NoError(t, subs.Create(ctx, nil, first))
	second := &model.SubQuestion{Text: "b", Depth: 2, ParentSubQuestionID: &first.ID}
	require.NoError(t, subs.Create(ctx, nil, second))
	third := &model.SubQuestion{Text: "c", Depth: 3, ParentSubQuestionID: &second.ID}
	require.NoError(t, subs.Create(ctx, nil, third))

	rows, err := NewSubtreeFetcher(subs).Fetch(ctx, questionID)
	require.NoError(t, err)

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	assert.ElementsMatch(t, []int64{first.ID, second.ID, third.ID}, ids)
}

func TestSubtreeFetchEmptyQuestion(t *testing.T) {
	rows, err := NewSubtreeFetcher(newMemSubQuestionRepo()).Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// A row reappearing on a later frontier means the parent pointers loop.
// The walk must stop with an error instead of expanding forever.
func TestSubtreeFetchRejectsLoopingParentChain(t *testing.T) {
	subs := newMemSubQuestionRepo()
	questionID := int64(1)
	idA, idB := int64(1001), int64(1002)

	// Corrupt rows seeded directly: A claims both the question and B as
	// parents, B claims A, so expanding B leads straight back to A.
	subs.rows[idA] = model.SubQuestion{
		ID: idA, Text: "a", Depth: 1,
		ParentQuestionID:    &questionID,
		ParentSubQuestionID: &idB,
	}
	subs.rows[idB] = model.SubQuestion{
		ID: idB, Text: "b", Depth: 2,
		ParentSubQuestionID: &idA,
	}
	subs.nextID = idB

	_, err := NewSubtreeFetcher(subs).Fetch(context.Background(), questionID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedHierarchy))
}
