package service

import (
	"context"
	"sort"
	"sync"

	"github.com/garyjia/employee-requests/internal/application/port"
	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

// memoryRepo is an in-memory RequestRepository with the same optimistic checks as the sqlite store
type memoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*workflow.Request

	appendDecisionFunc func(ctx context.Context, id int64, d workflow.Decision, expected int) error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, requests: map[int64]*workflow.Request{}}
}

func (m *memoryRepo) Create(ctx context.Context, req *workflow.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = m.nextID
	req.Version = 1
	m.nextID++
	m.requests[req.ID] = req.Clone()
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*workflow.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, workflow.ErrRequestNotFound
	}
	return req.Clone(), nil
}

func (m *memoryRepo) List(ctx context.Context, filter port.RequestFilter) ([]*workflow.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*workflow.Request
	for _, req := range m.requests {
		if filter.Kind != "" && req.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryRepo) ListActions(ctx context.Context, id int64) ([]workflow.Decision, error) {
	req, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return req.AdminActions, nil
}

func (m *memoryRepo) AppendDecision(ctx context.Context, id int64, d workflow.Decision, expected int) error {
	if m.appendDecisionFunc != nil {
		return m.appendDecisionFunc(ctx, id, d, expected)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return workflow.ErrRequestNotFound
	}
	if len(req.AdminActions) != expected || req.HasDecision(d.Department) {
		return workflow.ErrConflictingDecision
	}
	req.AdminActions = append(req.AdminActions, d)
	return nil
}

func (m *memoryRepo) SetDerivedFields(ctx context.Context, id int64, fields port.DerivedFields) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return 0, workflow.ErrRequestNotFound
	}
	if req.Version != fields.ExpectedVersion {
		return 0, workflow.ErrConflictingDecision
	}
	req.Status = fields.Status
	req.Details = fields.Details
	req.Version++
	// keep the stored details independent of the caller's snapshot
	m.requests[id] = req.Clone()
	return req.Version, nil
}

type mockPermissions struct {
	caps map[string]workflow.Capabilities
}

func (m *mockPermissions) CapabilitiesFor(ctx context.Context, actorID, moduleSlug string) (workflow.Capabilities, error) {
	return m.caps[actorID], nil
}

type mockDirectory struct {
	actorsFunc func(ctx context.Context, moduleSlug, capability string) ([]string, error)
}

func (m *mockDirectory) ActorsWithCapability(ctx context.Context, moduleSlug, capability string) ([]string, error) {
	if m.actorsFunc != nil {
		return m.actorsFunc(ctx, moduleSlug, capability)
	}
	return nil, nil
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []port.Notification
	err  error
}

func (m *mockNotifier) Notify(ctx context.Context, n port.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, n := range m.sent {
		out[i] = n.RecipientID
	}
	return out
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
