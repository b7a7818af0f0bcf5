package mocks

import (
	"context"

	appModeration "github.com/NeuralTrust/TrustModeration/pkg/app/moderation"
	domainModeration "github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/stretchr/testify/mock"
)

type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) Moderate(ctx context.Context, req appModeration.Request) (*domainModeration.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*domainModeration.Response)
	return resp, args.Error(1)
}

func (m *MockOrchestrator) ModerateMIME(ctx context.Context, mimeType string, data []byte) (*domainModeration.Response, error) {
	args := m.Called(ctx, mimeType, data)
	resp, _ := args.Get(0).(*domainModeration.Response)
	return resp, args.Error(1)
}
