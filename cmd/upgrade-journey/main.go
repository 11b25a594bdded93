package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/maxpoletaev/journey/cluster"
	"github.com/maxpoletaev/journey/cluster/docker"
	"github.com/maxpoletaev/journey/config"
	"github.com/maxpoletaev/journey/dataclient/weaviate"
	"github.com/maxpoletaev/journey/journey"
	"github.com/maxpoletaev/journey/verify"
	"github.com/maxpoletaev/journey/versions"
	"github.com/maxpoletaev/journey/workload"
)

func main() {
	os.Exit(run())
}

func run() int {
	appctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	args := parseCliArgs()

	if !args.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	logger = kitlog.With(logger, "run_id", uuid.NewString())

	conf := config.Default()

	if args.configPath != "" {
		loaded, err := config.Load(args.configPath)
		if err != nil {
			logger.Log("msg", "failed to load config", "path", args.configPath, "err", err)
			return 1
		}

		conf = loaded
	}

	if args.versionList != "" {
		conf.Versions = strings.Split(args.versionList, ",")
	}

	if args.clusterSize > 0 {
		conf.Cluster.Size = args.clusterSize
	}

	if args.image != "" {
		conf.Cluster.Image = args.image
	}

	if err := conf.Validate(); err != nil {
		logger.Log("msg", "invalid configuration", "err", err)
		return 1
	}

	seq, err := versions.New(conf.Versions)
	if err != nil {
		logger.Log("msg", "invalid version sequence", "err", err)
		return 1
	}

	runtime, err := docker.New(docker.Config{
		Image:        conf.Cluster.Image,
		Prefix:       conf.Cluster.Prefix,
		HostPortBase: conf.Cluster.HostPortBase,
		Env:          conf.Cluster.Env,
		NodeEnv:      nodeEnv(conf.Cluster.Prefix),
		Logger:       logger,
	})
	if err != nil {
		logger.Log("msg", "failed to create docker runtime", "err", err)
		return 1
	}

	if err := runtime.SetupNetwork(appctx); err != nil {
		logger.Log("msg", "failed to set up network", "err", err)
		return 1
	}

	defer func() {
		// The app context may already be cancelled at this point.
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := runtime.Teardown(ctx); err != nil {
			logger.Log("msg", "teardown failed", "err", err)
		}
	}()

	hosts := make([]string, conf.Cluster.Size)
	for i := range hosts {
		hosts[i] = runtime.NodeAddr(i)
	}

	clusterConf := cluster.DefaultConfig()
	clusterConf.Size = conf.Cluster.Size
	clusterConf.Logger = logger
	clusterConf.ReadyInterval = time.Duration(conf.Health.Interval)
	clusterConf.ReadyAttempts = conf.Health.Attempts

	checker := weaviate.NewReadyChecker(conf.Service.Scheme, hosts)
	ctrl := cluster.New(runtime, checker, clusterConf)

	// All data operations go through the first node; the cluster is expected
	// to replicate them to the rest.
	client := weaviate.New(conf.Service.Scheme, runtime.NodeAddr(0))
	driver := workload.New(client, logger)

	verifyConf := verify.DefaultConfig()
	verifyConf.Logger = logger
	verifyConf.ReadInterval = time.Duration(conf.Read.Interval)
	verifyConf.ReadAttempts = conf.Read.Attempts

	verifier := verify.New(client, verifyConf)

	runner := journey.NewRunner(seq, ctrl, driver, verifier, logger)

	result := runner.Run(appctx)
	if result.Failed() {
		logger.Log(
			"msg", "upgrade journey failed",
			"step", result.FailedStep,
			"from", result.FromVersion,
			"to", result.ToVersion,
			"err", result.Err,
		)

		return 1
	}

	level.Info(logger).Log("msg", "upgrade journey passed", "steps", result.Steps)

	return 0
}

// nodeEnv returns the per-node environment: a unique hostname inside the
// cluster network, and the address of the first node to join.
func nodeEnv(prefix string) func(index int) []string {
	return func(index int) []string {
		env := []string{
			fmt.Sprintf("CLUSTER_HOSTNAME=%s-node-%d", prefix, index),
		}

		if index > 0 {
			env = append(env, fmt.Sprintf("CLUSTER_JOIN=%s-node-0:7100", prefix))
		}

		return env
	}
}
