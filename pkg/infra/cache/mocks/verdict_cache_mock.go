package mocks

import (
	"context"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/stretchr/testify/mock"
)

type MockVerdictCache struct {
	mock.Mock
}

func (m *MockVerdictCache) Get(ctx context.Context, kind moderation.Kind, content []byte) (*moderation.Response, bool) {
	args := m.Called(ctx, kind, content)
	resp, _ := args.Get(0).(*moderation.Response)
	return resp, args.Bool(1)
}

func (m *MockVerdictCache) Set(ctx context.Context, kind moderation.Kind, content []byte, resp *moderation.Response) {
	m.Called(ctx, kind, content, resp)
}

func (m *MockVerdictCache) Invalidate(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
