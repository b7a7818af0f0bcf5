package mocks

import (
	"context"
	"image"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/stretchr/testify/mock"
)

type MockTextAnalyzer struct {
	mock.Mock
}

func (m *MockTextAnalyzer) Analyze(ctx context.Context, text string) (*moderation.Verdict, error) {
	args := m.Called(ctx, text)
	v, _ := args.Get(0).(*moderation.Verdict)
	return v, args.Error(1)
}

type MockImageAnalyzer struct {
	mock.Mock
}

func (m *MockImageAnalyzer) Analyze(ctx context.Context, img image.Image) (*moderation.Verdict, error) {
	args := m.Called(ctx, img)
	v, _ := args.Get(0).(*moderation.Verdict)
	return v, args.Error(1)
}

type MockAudioAnalyzer struct {
	mock.Mock
}

func (m *MockAudioAnalyzer) Analyze(ctx context.Context, data []byte) (*moderation.Verdict, error) {
	args := m.Called(ctx, data)
	v, _ := args.Get(0).(*moderation.Verdict)
	return v, args.Error(1)
}

type MockVideoAnalyzer struct {
	mock.Mock
}

func (m *MockVideoAnalyzer) Analyze(ctx context.Context, data []byte) (*moderation.Verdict, error) {
	args := m.Called(ctx, data)
	v, _ := args.Get(0).(*moderation.Verdict)
	return v, args.Error(1)
}
