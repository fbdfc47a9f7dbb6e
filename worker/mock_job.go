// Hand-written mock in the shape MockGen produces.
// Source: github.com/twitter/jobcore/job (interfaces: Job)

package worker

import (
	context "context"
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"

	job "github.com/twitter/jobcore/job"
)

// MockJob is a mock of the Job interface.
type MockJob struct {
	ctrl     *gomock.Controller
	recorder *MockJobMockRecorder
}

// MockJobMockRecorder is the mock recorder for MockJob.
type MockJobMockRecorder struct {
	mock *MockJob
}

// NewMockJob creates a new mock instance.
func NewMockJob(ctrl *gomock.Controller) *MockJob {
	mock := &MockJob{ctrl: ctrl}
	mock.recorder = &MockJobMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockJob) EXPECT() *MockJobMockRecorder {
	return m.recorder
}

func (m *MockJob) ID() string {
	ret := m.ctrl.Call(m, "ID")
	ret0, _ := ret[0].(string)
	return ret0
}

func (mr *MockJobMockRecorder) ID() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ID", reflect.TypeOf((*MockJob)(nil).ID))
}

func (m *MockJob) Name() string {
	ret := m.ctrl.Call(m, "Name")
	ret0, _ := ret[0].(string)
	return ret0
}

func (mr *MockJobMockRecorder) Name() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Name", reflect.TypeOf((*MockJob)(nil).Name))
}

func (m *MockJob) Run(ctx context.Context) {
	m.ctrl.Call(m, "Run", ctx)
}

func (mr *MockJobMockRecorder) Run(ctx interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Run", reflect.TypeOf((*MockJob)(nil).Run), ctx)
}

func (m *MockJob) Progress() int {
	ret := m.ctrl.Call(m, "Progress")
	ret0, _ := ret[0].(int)
	return ret0
}

func (mr *MockJobMockRecorder) Progress() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Progress", reflect.TypeOf((*MockJob)(nil).Progress))
}

func (m *MockJob) CanStart() bool {
	ret := m.ctrl.Call(m, "CanStart")
	ret0, _ := ret[0].(bool)
	return ret0
}

func (mr *MockJobMockRecorder) CanStart() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CanStart", reflect.TypeOf((*MockJob)(nil).CanStart))
}

func (m *MockJob) NextSpawnedJob() job.Job {
	ret := m.ctrl.Call(m, "NextSpawnedJob")
	ret0, _ := ret[0].(job.Job)
	return ret0
}

func (mr *MockJobMockRecorder) NextSpawnedJob() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NextSpawnedJob", reflect.TypeOf((*MockJob)(nil).NextSpawnedJob))
}

func (m *MockJob) Cleanup() {
	m.ctrl.Call(m, "Cleanup")
}

func (mr *MockJobMockRecorder) Cleanup() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Cleanup", reflect.TypeOf((*MockJob)(nil).Cleanup))
}

func (m *MockJob) ReportError(code int) {
	m.ctrl.Call(m, "ReportError", code)
}

func (mr *MockJobMockRecorder) ReportError(code interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReportError", reflect.TypeOf((*MockJob)(nil).ReportError), code)
}

func (m *MockJob) Stop() {
	m.ctrl.Call(m, "Stop")
}

func (mr *MockJobMockRecorder) Stop() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Stop", reflect.TypeOf((*MockJob)(nil).Stop))
}

func (m *MockJob) Cancelled() bool {
	ret := m.ctrl.Call(m, "Cancelled")
	ret0, _ := ret[0].(bool)
	return ret0
}

func (mr *MockJobMockRecorder) Cancelled() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Cancelled", reflect.TypeOf((*MockJob)(nil).Cancelled))
}

func (m *MockJob) ErrorCode() int {
	ret := m.ctrl.Call(m, "ErrorCode")
	ret0, _ := ret[0].(int)
	return ret0
}

func (mr *MockJobMockRecorder) ErrorCode() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ErrorCode", reflect.TypeOf((*MockJob)(nil).ErrorCode))
}

func (m *MockJob) Finished() bool {
	ret := m.ctrl.Call(m, "Finished")
	ret0, _ := ret[0].(bool)
	return ret0
}

func (mr *MockJobMockRecorder) Finished() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Finished", reflect.TypeOf((*MockJob)(nil).Finished))
}

func (m *MockJob) Spawned() bool {
	ret := m.ctrl.Call(m, "Spawned")
	ret0, _ := ret[0].(bool)
	return ret0
}

func (mr *MockJobMockRecorder) Spawned() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Spawned", reflect.TypeOf((*MockJob)(nil).Spawned))
}

func (m *MockJob) AddDependency(dep job.Job) {
	m.ctrl.Call(m, "AddDependency", dep)
}

func (mr *MockJobMockRecorder) AddDependency(dep interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AddDependency", reflect.TypeOf((*MockJob)(nil).AddDependency), dep)
}
