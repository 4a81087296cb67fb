package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qna_catalog/internal/domain/model"
)

type fakeSubtreeSource struct {
	rows   map[int64][]model.SubQuestion
	delays map[int64]time.Duration
	errs   map[int64]error
}

func (f *fakeSubtreeSource) Fetch(ctx context.Context, questionID int64) ([]model.SubQuestion, error) {
	if d, ok := f.delays[questionID]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.errs[questionID]; ok {
		return nil, err
	}
	return f.rows[questionID], nil
}

func TestBuildManyPreservesRequestOrder(t *testing.T) {
	parent2 := int64(2)
	source := &fakeSubtreeSource{
		rows: map[int64][]model.SubQuestion{
			2: {{ID: 50, ParentQuestionID: &parent2, Depth: 1}},
		},
		// The middle question finishes last; its slot must still be second.
		delays: map[int64]time.Duration{2: 80 * time.Millisecond},
	}
	aggregator := NewConcurrentAggregator(source)

	questions := []model.Question{{ID: 1}, {ID: 2}, {ID: 3}}
	responses, err := aggregator.BuildMany(context.Background(), questions)
	require.NoError(t, err)
	require.Len(t, responses, 3)

	assert.Equal(t, int64(1), responses[0].ID)
	assert.Equal(t, int64(2), responses[1].ID)
	assert.Equal(t, int64(3), responses[2].ID)

	assert.Empty(t, responses[0].SubQuestions)
	require.Len(t, responses[1].SubQuestions, 1)
	assert.Equal(t, int64(50), responses[1].SubQuestions[0].ID)
}

func TestBuildManyAbortsOnFirstFailure(t *testing.T) {
	fetchErr := errors.New("connection reset")
	source := &fakeSubtreeSource{
		errs:   map[int64]error{2: fetchErr},
		delays: map[int64]time.Duration{3: 5 * time.Second},
	}
	aggregator := NewConcurrentAggregator(source)

	start := time.Now()
	_, err := aggregator.BuildMany(context.Background(), []model.Question{{ID: 1}, {ID: 2}, {ID: 3}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetchErr))
	// The failing slot must cancel the slow sibling instead of waiting it out.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestBuildManyEmptyBatch(t *testing.T) {
	aggregator := NewConcurrentAggregator(&fakeSubtreeSource{})
	responses, err := aggregator.BuildMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, responses)
}
