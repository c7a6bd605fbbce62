package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	jobctrl "pdfqa/src/infrastructure/job"
	"pdfqa/src/log"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background ingestion worker",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	if !viper.GetBool("amqp.enabled") {
		return fmt.Errorf("worker needs amqp.enabled; without a broker the server ingests in process")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db == nil {
		return fmt.Errorf("worker needs a postgres-backed job repository")
	}
	if err := a.migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	logger := log.NewWatermillAdapter()

	repo, err := a.jobRepository(ctx)
	if err != nil {
		return err
	}
	archive, err := a.pdfArchive(ctx)
	if err != nil {
		return err
	}

	subscriber, err := amqpSubscriber(logger)
	if err != nil {
		return err
	}
	defer subscriber.Close()

	task := jobctrl.NewIngestTask(archive, a.files, a.ingestor)
	jobService := jobctrl.NewJobService(nil, repo, logger, viper.GetString("jobs.topic"), archive, task)

	router, err := jobctrl.NewRouter(jobctrl.DefaultRouterConfig(), subscriber, jobService, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(ctx)
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-c:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("router stopped: %w", err)
		}
		return nil
	}

	log.Info("shutting down worker")
	cancel()
	if err := <-errCh; err != nil {
		log.Error(err, "router stopped with error")
	}
	log.Info("router stopped")

	return nil
}
