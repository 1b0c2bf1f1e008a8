package logs_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasklog/internal/app/logs"
	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/storage/storagemock"
)

func TestServiceRun(t *testing.T) {
	storedEvents := []model.LogEvent{
		{TaskID: "t1", Sequence: 1, Kind: model.EventKindLogLine, Line: "building"},
		{TaskID: "t1", Sequence: 2, Kind: model.EventKindStatusChange, Status: model.TaskStatusRunning},
	}

	tests := map[string]struct {
		request   logs.Request
		mock      func(m *storagemock.MockEventRepository)
		expEvents []model.LogEvent
		expErr    bool
	}{
		"stored events should be returned": {
			request: logs.Request{TaskID: "t1"},
			mock: func(m *storagemock.MockEventRepository) {
				m.On("ListEvents", mock.Anything, "t1", int64(0), 0).Once().Return(storedEvents, nil)
			},
			expEvents: storedEvents,
		},
		"from sequence and limit should be forwarded to the repository": {
			request: logs.Request{TaskID: "t1", FromSequence: 5, Limit: 10},
			mock: func(m *storagemock.MockEventRepository) {
				m.On("ListEvents", mock.Anything, "t1", int64(5), 10).Once().Return([]model.LogEvent{}, nil)
			},
			expEvents: []model.LogEvent{},
		},
		"missing task id should fail": {
			request: logs.Request{},
			mock:    func(m *storagemock.MockEventRepository) {},
			expErr:  true,
		},
		"repository error should fail": {
			request: logs.Request{TaskID: "t1"},
			mock: func(m *storagemock.MockEventRepository) {
				m.On("ListEvents", mock.Anything, "t1", int64(0), 0).Once().Return(nil, fmt.Errorf("something"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			repo := &storagemock.MockEventRepository{}
			test.mock(repo)

			svc, err := logs.NewService(logs.ServiceConfig{Repository: repo})
			require.NoError(err)

			got, err := svc.Run(context.Background(), test.request)

			if test.expErr {
				require.Error(err)
			} else {
				require.NoError(err)
				assert.Equal(t, test.expEvents, got)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestNewService(t *testing.T) {
	_, err := logs.NewService(logs.ServiceConfig{})
	require.Error(t, err)
}
