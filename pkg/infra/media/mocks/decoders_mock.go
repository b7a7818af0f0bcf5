package mocks

import (
	"context"
	"image"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/media"
	"github.com/stretchr/testify/mock"
)

type MockImageDecoder struct {
	mock.Mock
}

func (m *MockImageDecoder) Decode(data []byte) (image.Image, string, error) {
	args := m.Called(data)
	img, _ := args.Get(0).(image.Image)
	return img, args.String(1), args.Error(2)
}

type MockAudioDecoder struct {
	mock.Mock
}

func (m *MockAudioDecoder) Decode(ctx context.Context, data []byte) (moderation.PCM, error) {
	args := m.Called(ctx, data)
	pcm, _ := args.Get(0).(moderation.PCM)
	return pcm, args.Error(1)
}

type MockVideoDecoder struct {
	mock.Mock
}

func (m *MockVideoDecoder) Open(ctx context.Context, data []byte) (media.FrameSource, error) {
	args := m.Called(ctx, data)
	src, _ := args.Get(0).(media.FrameSource)
	return src, args.Error(1)
}

type MockFrameSource struct {
	mock.Mock
}

func (m *MockFrameSource) Info() media.VideoInfo {
	args := m.Called()
	info, _ := args.Get(0).(media.VideoInfo)
	return info
}

func (m *MockFrameSource) Next(ctx context.Context) (media.Frame, error) {
	args := m.Called(ctx)
	f, _ := args.Get(0).(media.Frame)
	return f, args.Error(1)
}

func (m *MockFrameSource) Close() error {
	args := m.Called()
	return args.Error(0)
}
