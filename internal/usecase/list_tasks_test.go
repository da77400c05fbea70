package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/testutil"
)

func seedChain(repo *testutil.MockRepository) {
	repo.AddTask(&domain.TaskRecord{ID: "a", Title: "Design", CreatedAt: testNow, Labels: domain.Refs("design")})
	repo.AddTask(&domain.TaskRecord{ID: "b", Title: "Build", CreatedAt: testNow.Add(1), Dependencies: domain.Refs("a"), Assignees: domain.Refs("u1")})
	repo.AddTask(&domain.TaskRecord{ID: "c", Title: "Ship", CreatedAt: testNow.Add(2), Dependencies: domain.Refs("a", "b")})
	repo.AddTask(&domain.TaskRecord{ID: "old", Title: "Kickoff", CreatedAt: testNow.Add(-1), Done: true})
}

func TestListTasks_Execute_DerivesBlockedState(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedChain(repo)
	uc := NewListTasks(repo)

	// Execute
	out, err := uc.Execute(context.Background(), ListTasksInput{})

	// Assert
	require.NoError(t, err)
	require.Len(t, out.Tasks, 3)
	assert.Equal(t, "a", out.Tasks[0].Task.ID)
	assert.False(t, out.Tasks[0].Blocked)
	assert.True(t, out.Tasks[1].Blocked)
	assert.True(t, out.Tasks[2].Blocked)
}

func TestListTasks_Execute_Filters(t *testing.T) {
	tests := []struct {
		name string
		in   ListTasksInput
		want []string
	}{
		{name: "include done", in: ListTasksInput{IncludeDone: true}, want: []string{"old", "a", "b", "c"}},
		{name: "by assignee", in: ListTasksInput{Assignee: "u1"}, want: []string{"b"}},
		{name: "by label", in: ListTasksInput{Labels: []string{"design"}}, want: []string{"a"}},
		{name: "blocked only", in: ListTasksInput{BlockedOnly: true}, want: []string{"b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := testutil.NewMockRepository()
			seedChain(repo)

			out, err := NewListTasks(repo).Execute(context.Background(), tt.in)

			require.NoError(t, err)
			ids := make([]string, 0, len(out.Tasks))
			for _, s := range out.Tasks {
				ids = append(ids, s.Task.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListTasks_Execute_DoneDependencyDoesNotBlock(t *testing.T) {
	repo := testutil.NewMockRepository()
	repo.AddTask(&domain.TaskRecord{ID: "a", Title: "Design", Done: true})
	repo.AddTask(&domain.TaskRecord{ID: "b", Title: "Build", Dependencies: domain.Refs("a", "ghost")})

	out, err := NewListTasks(repo).Execute(context.Background(), ListTasksInput{})

	require.NoError(t, err)
	require.Len(t, out.Tasks, 1)
	assert.False(t, out.Tasks[0].Blocked, "done and dangling dependencies do not block")
}

func TestListTasks_Execute_StoreError(t *testing.T) {
	repo := testutil.NewMockRepository()
	repo.ListErr = errors.New("read failed")

	_, err := NewListTasks(repo).Execute(context.Background(), ListTasksInput{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list tasks")
}
