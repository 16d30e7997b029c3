package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/YetAnotherDeepLab/digitflow/dataset"
	"github.com/YetAnotherDeepLab/digitflow/dataset/mnist"
	"github.com/YetAnotherDeepLab/digitflow/device"
	"github.com/YetAnotherDeepLab/digitflow/internal/config"
	"github.com/YetAnotherDeepLab/digitflow/trainer"
)

func main() {
	cfgPath := flag.String("config", "configs/mnist.yaml", "Path to YAML config")
	dataRoot := flag.String("data-root", "", "Override dataset root directory")
	epochs := flag.Int("epochs", 0, "Number of training epochs")
	batchSize := flag.Int("batch-size", 0, "Mini-batch size")
	numWorkers := flag.Int("workers", 0, "Number of data loader workers")
	seed := flag.Int64("seed", 0, "PRNG seed")
	logEvery := flag.Int("log-every", 0, "Log every N batches")
	smoke := flag.Bool("smoke", false, "Run a single synthetic batch and exit")

	flag.Parse()

	if *smoke {
		if err := trainer.Smoke(*seed, os.Stdout); err != nil {
			log.Fatalf("smoke run failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cfg.ApplyOverrides(config.Overrides{
		DataRoot:   *dataRoot,
		Epochs:     *epochs,
		BatchSize:  *batchSize,
		NumWorkers: *numWorkers,
		Seed:       *seed,
		LogEvery:   *logEvery,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	dev := device.Detect()
	log.Printf("device: %s", dev)
	workers := dev.Workers(cfg.NumWorkers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trainSet, err := mnist.Load(mnist.Config{
		Root:     cfg.DataRoot,
		Train:    true,
		Download: cfg.Download,
		Mean:     0.1307,
		Std:      0.3081,
	})
	if err != nil {
		log.Fatalf("loading training set: %v", err)
	}
	testSet, err := mnist.Load(mnist.Config{
		Root:     cfg.DataRoot,
		Train:    false,
		Download: cfg.Download,
		Mean:     0.1307,
		Std:      0.3081,
	})
	if err != nil {
		log.Fatalf("loading test set: %v", err)
	}
	log.Printf("train=%d test=%d workers=%d", trainSet.Len(), testSet.Len(), workers)

	trainLoader, err := dataset.NewLoader(trainSet, dataset.LoaderConfig{
		BatchSize:  cfg.BatchSize,
		Shuffle:    true,
		NumWorkers: workers,
		Seed:       cfg.Seed,
	})
	if err != nil {
		log.Fatalf("train loader: %v", err)
	}
	testLoader, err := dataset.NewLoader(testSet, dataset.LoaderConfig{
		BatchSize:  cfg.EvalBatchSize,
		NumWorkers: workers,
	})
	if err != nil {
		log.Fatalf("test loader: %v", err)
	}

	net, err := trainer.NewDigitNet(cfg.Seed)
	if err != nil {
		log.Fatalf("building network: %v", err)
	}
	log.Printf("network has %d parameters", net.NumParams())

	stats, err := trainer.Run(ctx, net, trainLoader, trainer.RunConfig{
		Epochs:        cfg.Epochs,
		LR:            cfg.LR,
		Momentum:      cfg.Momentum,
		LogEvery:      cfg.LogEvery,
		CheckpointDir: cfg.CheckpointDir,
	})
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	if stats.CheckpointPath != "" {
		log.Printf("checkpoint saved to %s", stats.CheckpointPath)
	}

	if _, err := trainer.Evaluate(ctx, net, testLoader, os.Stdout); err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}
}
