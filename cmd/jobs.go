package cmd

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/spf13/viper"

	jobctrl "pdfqa/src/infrastructure/job"
)

func amqpPublisher(logger watermill.LoggerAdapter) (message.Publisher, error) {
	publisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create amqp publisher: %w", err)
	}
	return publisher, nil
}

func amqpSubscriber(logger watermill.LoggerAdapter) (message.Subscriber, error) {
	subscriberConfig := amqp.NewDurableQueueConfig(viper.GetString("amqp.url"))
	subscriberConfig.Consume.NoRequeueOnNack = true
	subscriber, err := amqp.NewSubscriber(subscriberConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create amqp subscriber: %w", err)
	}
	return subscriber, nil
}

// startInProcessJobs runs the job router inside the API process over an
// in-memory channel. It returns the service and a stop function.
func startInProcessJobs(ctx context.Context, a *app, logger watermill.LoggerAdapter) (*jobctrl.JobService, func(), error) {
	repo, err := a.jobRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	archive, err := a.pdfArchive(ctx)
	if err != nil {
		return nil, nil, err
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
	task := jobctrl.NewIngestTask(archive, a.files, a.ingestor)
	service := jobctrl.NewJobService(pubSub, repo, logger, viper.GetString("jobs.topic"), archive, task)

	router, err := jobctrl.NewRouter(jobctrl.DefaultRouterConfig(), pubSub, service, logger)
	if err != nil {
		return nil, nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := router.Run(runCtx); err != nil {
			logger.Error("Job router stopped", err, nil)
		}
	}()
	<-router.Running()

	stop := func() {
		cancel()
		_ = router.Close()
		_ = pubSub.Close()
	}
	return service, stop, nil
}

// remoteJobs publishes jobs to the broker for a separate worker process.
func remoteJobs(ctx context.Context, a *app, logger watermill.LoggerAdapter) (*jobctrl.JobService, func(), error) {
	if a.db == nil {
		return nil, nil, fmt.Errorf("amqp jobs need a postgres-backed job repository")
	}
	repo, err := a.jobRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	archive, err := a.pdfArchive(ctx)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := amqpPublisher(logger)
	if err != nil {
		return nil, nil, err
	}

	service := jobctrl.NewJobService(publisher, repo, logger, viper.GetString("jobs.topic"), archive, nil)
	return service, func() { _ = publisher.Close() }, nil
}
