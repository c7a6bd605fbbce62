package job

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// RouterConfig tunes redelivery of failed job messages.
type RouterConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		MaxRetries:      3,
		InitialInterval: time.Second,
	}
}

// NewRouter builds a watermill router that feeds messages from subscriber on
// the service topic into ProcessJobMessage.
func NewRouter(cfg RouterConfig, subscriber message.Subscriber, service *JobService, logger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.InitialInterval,
			Logger:          logger,
		}.Middleware,
	)

	router.AddNoPublisherHandler(
		"job_processor",
		service.Topic(),
		subscriber,
		service.ProcessJobMessage,
	)

	return router, nil
}
