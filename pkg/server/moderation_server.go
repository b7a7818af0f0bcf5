package server

import (
	"fmt"

	"github.com/NeuralTrust/TrustModeration/pkg/config"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustModeration/pkg/server/router"
	"github.com/sirupsen/logrus"
)

type (
	ModerationServerDI struct {
		Config  *config.Config
		Logger  *logrus.Logger
		Routers []router.ServerRouter
	}
	ModerationServer struct {
		*BaseServer
	}
)

func NewModerationServer(di ModerationServerDI) *ModerationServer {
	if di.Config.Metrics.Enabled {
		prometheus.Initialize(prometheus.MetricsConfig{
			EnableLatency:         di.Config.Metrics.EnableLatency,
			EnableProviderLatency: di.Config.Metrics.EnableProviderLatency,
			EnableInflight:        di.Config.Metrics.EnableInflight,
		})
	}

	s := &ModerationServer{
		BaseServer: NewBaseServer(di.Config, di.Logger).WithRouters(di.Routers...),
	}
	s.BaseServer.setupMetricsEndpoint()
	return s
}

func (s *ModerationServer) Run() error {
	addr := fmt.Sprintf(":%d", s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("starting moderation server")
	return s.listen(addr)
}

func (s *ModerationServer) Shutdown() error {
	return s.shutdown()
}
