package workerpool_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agora-labs/gatekeeper/domain/workerpool"
)

func TestDispatcher_RunsAllJobs(t *testing.T) {
	const jobCount = 50

	dispatcher := workerpool.NewDispatcher[int](4)

	go dispatcher.Run(context.Background())

	go func() {
		for i := 0; i < jobCount; i++ {
			i := i
			dispatcher.Submit(workerpool.Job[int]{
				Task: func(ctx context.Context) (int, error) {
					return i, nil
				},
			})
		}
		dispatcher.Close()
	}()

	var results []int
	for result := range dispatcher.Results() {
		require.NoError(t, result.Err)
		results = append(results, result.Result)
	}

	require.Len(t, results, jobCount)

	sort.Ints(results)
	for i := 0; i < jobCount; i++ {
		require.Equal(t, i, results[i])
	}
}

func TestDispatcher_PropagatesErrors(t *testing.T) {
	expectedErr := errors.New("task failed")

	dispatcher := workerpool.NewDispatcher[struct{}](2)

	go dispatcher.Run(context.Background())

	go func() {
		dispatcher.Submit(workerpool.Job[struct{}]{
			Task: func(ctx context.Context) (struct{}, error) {
				return struct{}{}, expectedErr
			},
		})
		dispatcher.Close()
	}()

	result, ok := <-dispatcher.Results()
	require.True(t, ok)
	require.ErrorIs(t, result.Err, expectedErr)

	_, ok = <-dispatcher.Results()
	require.False(t, ok)
}
