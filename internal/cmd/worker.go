package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/servak/topology-manager/internal/config"
	"github.com/servak/topology-manager/internal/domain"
	"github.com/servak/topology-manager/internal/orchestrator"
	"github.com/servak/topology-manager/internal/queue"
	"github.com/servak/topology-manager/internal/reachability"
	"github.com/servak/topology-manager/internal/sshsession"
	"github.com/servak/topology-manager/internal/store/mongostore"
	"github.com/servak/topology-manager/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the discovery queue consumer",
	Long:  `Consumes discovery jobs from the durable discovery queue and runs them against live network devices`,
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.New(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		return fmt.Errorf("worker: connect store: %w", err)
	}
	defer st.Close(context.Background())
	log.Info("connected to document store", "db", cfg.DBName)

	publisher, err := queue.Dial(ctx, cfg.AMQPURL(), 3, log)
	if err != nil {
		return fmt.Errorf("worker: dial broker: %w", err)
	}
	defer publisher.Close()
	log.Info("connected to broker", "host", cfg.RabbitHost)

	prober := reachability.New(st, cfg.ReachabilityCacheTTL)
	timeouts := sshsession.Timeouts{
		Connect:     cfg.SSHConnectTimeout,
		Command:     cfg.SSHCommandTimeout,
		ChainedRead: cfg.ChainedReadTimeout,
		ChainedStep: cfg.ChainedStepTimeout,
	}
	orch := orchestrator.New(st, prober, publisher, log, timeouts)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	handler := func(ctx context.Context, job domain.DiscoveryJob) error {
		return orch.Run(ctx, job)
	}

	log.Info("worker started, consuming discovery queue", "prefetch", cfg.PrefetchCount)
	if err := queue.Run(ctx, cfg.AMQPURL(), cfg.PrefetchCount, handler, log); err != nil && ctx.Err() == nil {
		return fmt.Errorf("worker: consumer exited: %w", err)
	}

	log.Info("worker shut down cleanly")
	return nil
}
