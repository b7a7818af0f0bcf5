package mocks

import (
	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(resp *moderation.Response, digest string) {
	m.Called(resp, digest)
}

func (m *MockPublisher) StartWorkers(n int) {
	m.Called(n)
}

func (m *MockPublisher) Shutdown() {
	m.Called()
}
