package list_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasklog/internal/app/list"
	"github.com/slok/tasklog/internal/model"
)

type fakeLister struct {
	tasks []model.Task
	err   error
}

func (f fakeLister) ListTasks(ctx context.Context) ([]model.Task, error) {
	return f.tasks, f.err
}

func statusPtr(s model.TaskStatus) *model.TaskStatus { return &s }

func TestServiceRun(t *testing.T) {
	backendTasks := []model.Task{
		{ID: "t1", Name: "build", Status: model.TaskStatusRunning},
		{ID: "t2", Name: "deploy", Status: model.TaskStatusPending},
		{ID: "t3", Name: "cleanup", Status: model.TaskStatusRunning},
	}

	tests := map[string]struct {
		lister   fakeLister
		request  list.Request
		expTasks []model.Task
		expErr   bool
	}{
		"all tasks should be returned without a filter": {
			lister:   fakeLister{tasks: backendTasks},
			request:  list.Request{},
			expTasks: backendTasks,
		},
		"status filter should only keep matching tasks": {
			lister:  fakeLister{tasks: backendTasks},
			request: list.Request{StatusFilter: statusPtr(model.TaskStatusRunning)},
			expTasks: []model.Task{
				{ID: "t1", Name: "build", Status: model.TaskStatusRunning},
				{ID: "t3", Name: "cleanup", Status: model.TaskStatusRunning},
			},
		},
		"filter matching nothing should return empty": {
			lister:   fakeLister{tasks: backendTasks},
			request:  list.Request{StatusFilter: statusPtr(model.TaskStatusFailed)},
			expTasks: []model.Task{},
		},
		"backend error should fail": {
			lister:  fakeLister{err: fmt.Errorf("something")},
			request: list.Request{},
			expErr:  true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			svc, err := list.NewService(list.ServiceConfig{TaskLister: test.lister})
			require.NoError(err)

			got, err := svc.Run(context.Background(), test.request)

			if test.expErr {
				require.Error(err)
			} else {
				require.NoError(err)
				assert.Equal(t, test.expTasks, got)
			}
		})
	}
}

func TestNewService(t *testing.T) {
	_, err := list.NewService(list.ServiceConfig{})
	require.Error(t, err)
}
