package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
)

func subRow(id int64, parentQuestion, parentSub int64, depth, number int) model.SubQuestion {
	sq := model.SubQuestion{ID: id, Depth: depth, Number: number}
	if parentQuestion > 0 {
		sq.ParentQuestionID = &parentQuestion
	}
	if parentSub > 0 {
		sq.ParentSubQuestionID = &parentSub
	}
	return sq
}

func TestBuildHierarchyEmptyInput(t *testing.T) {
	forest, err := BuildHierarchy(nil)
	require.NoError(t, err)
	assert.Empty(t, forest)
}

func TestBuildHierarchyConcreteScenario(t *testing.T) {
	rows := []model.SubQuestion{
		subRow(5, 1, 0, 1, 0),
		subRow(9, 0, 5, 2, 0),
	}

	forest, err := BuildHierarchy(rows)
	require.NoError(t, err)
	require.Len(t, forest, 1)

	require.Equal(t, int64(5), forest[0].ID)
	assert.Equal(t, 1, forest[0].Depth)
	require.Len(t, forest[0].SubQuestions, 1)
	assert.Equal(t, int64(9), forest[0].SubQuestions[0].ID)
	assert.Equal(t, 2, forest[0].SubQuestions[0].Depth)
}

func TestBuildHierarchyDepthInvariant(t *testing.T) {
	rows := []model.SubQuestion{
		subRow(10, 1, 0, 1, 1),
		subRow(11, 1, 0, 1, 2),
		subRow(20, 0, 10, 2, 1),
		subRow(21, 0, 10, 2, 2),
		subRow(30, 0, 21, 3, 1),
	}

	forest, err := BuildHierarchy(rows)
	require.NoError(t, err)

	var walk func(parentDepth int, nodes []*model.SubQuestionNode)
	walk = func(parentDepth int, nodes []*model.SubQuestionNode) {
		for _, node := range nodes {
			assert.Equal(t, parentDepth+1, node.Depth, "node %d", node.ID)
			walk(node.Depth, node.SubQuestions)
		}
	}
	walk(0, forest)
}

func TestBuildHierarchyRoundTrip(t *testing.T) {
	rows := []model.SubQuestion{
		subRow(30, 0, 21, 3, 1), // deliberately out of order
		subRow(10, 1, 0, 1, 1),
		subRow(21, 0, 10, 2, 2),
		subRow(11, 1, 0, 1, 2),
		subRow(20, 0, 10, 2, 1),
	}

	forest, err := BuildHierarchy(rows)
	require.NoError(t, err)

	got := map[int64]model.ParentRef{}
	var flatten func(nodes []*model.SubQuestionNode)
	flatten = func(nodes []*model.SubQuestionNode) {
		for _, node := range nodes {
			parent, ok := node.Parent()
			require.True(t, ok)
			got[node.ID] = parent
			flatten(node.SubQuestions)
		}
	}
	flatten(forest)

	want := map[int64]model.ParentRef{}
	for _, row := range rows {
		parent, ok := row.Parent()
		require.True(t, ok)
		want[row.ID] = parent
	}
	assert.Equal(t, want, got)
}

func TestBuildHierarchySiblingOrderByNumber(t *testing.T) {
	rows := []model.SubQuestion{
		subRow(3, 1, 0, 1, 3),
		subRow(1, 1, 0, 1, 1),
		subRow(2, 1, 0, 1, 2),
	}

	forest, err := BuildHierarchy(rows)
	require.NoError(t, err)
	require.Len(t, forest, 3)
	assert.Equal(t, int64(1), forest[0].ID)
	assert.Equal(t, int64(2), forest[1].ID)
	assert.Equal(t, int64(3), forest[2].ID)
}

func TestBuildHierarchySiblingOrderStableOnTies(t *testing.T) {
	rows := []model.SubQuestion{
		subRow(7, 1, 0, 1, 0),
		subRow(4, 1, 0, 1, 0),
		subRow(6, 1, 0, 1, 0),
	}

	forest, err := BuildHierarchy(rows)
	require.NoError(t, err)
	require.Len(t, forest, 3)
	assert.Equal(t, int64(7), forest[0].ID)
	assert.Equal(t, int64(4), forest[1].ID)
	assert.Equal(t, int64(6), forest[2].ID)
}

func TestBuildHierarchyOrphanPromotedToTopLevel(t *testing.T) {
	rows := []model.SubQuestion{
		subRow(5, 1, 0, 1, 1),
		subRow(9, 0, 999, 2, 2), // parent 999 is not in the batch
	}

	forest, err := BuildHierarchy(rows)
	require.NoError(t, err)
	require.Len(t, forest, 2)
	assert.Equal(t, int64(5), forest[0].ID)
	assert.Equal(t, int64(9), forest[1].ID)
	assert.Empty(t, forest[1].SubQuestions)
}

func TestBuildHierarchyCycleRejected(t *testing.T) {
	rows := []model.SubQuestion{
		subRow(5, 1, 0, 1, 1),
		subRow(8, 0, 9, 2, 1),
		subRow(9, 0, 8, 2, 2),
	}

	_, err := BuildHierarchy(rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedHierarchy))
}
