package cluster

import (
	"context"
	"fmt"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/juju/clock"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/maxpoletaev/journey/internal/poll"
)

// Config holds the parameters of a cluster controller.
type Config struct {
	Size          int
	Logger        kitlog.Logger
	Clock         clock.Clock
	ReadyInterval time.Duration
	ReadyAttempts int
}

// DefaultConfig returns a config with sane defaults for everything but the
// cluster size.
func DefaultConfig() Config {
	return Config{
		Logger:        kitlog.NewNopLogger(),
		Clock:         clock.WallClock,
		ReadyInterval: 2 * time.Second,
		ReadyAttempts: 30,
	}
}

// Controller owns a fixed-size set of cluster nodes and drives their
// lifecycle through the bootstrap and rolling-update operations. It is not
// safe for concurrent use: the harness is strictly sequential.
type Controller struct {
	runtime NodeRuntime
	health  HealthChecker
	logger  kitlog.Logger
	clock   clock.Clock

	readyInterval time.Duration
	readyAttempts int

	nodes []Node
}

// New creates a controller for a cluster of conf.Size stopped nodes.
func New(runtime NodeRuntime, health HealthChecker, conf Config) *Controller {
	nodes := make([]Node, conf.Size)
	for i := range nodes {
		nodes[i] = Node{Index: i, Status: StatusStopped}
	}

	return &Controller{
		runtime:       runtime,
		health:        health,
		logger:        conf.Logger,
		clock:         conf.Clock,
		readyInterval: conf.ReadyInterval,
		readyAttempts: conf.ReadyAttempts,
		nodes:         nodes,
	}
}

// Nodes returns a copy of the current node states, so that partial-failure
// states left behind by an aborted rolling update remain inspectable.
func (c *Controller) Nodes() []Node {
	return slices.Clone(c.nodes)
}

// Size returns the number of nodes in the cluster.
func (c *Controller) Size() int {
	return len(c.nodes)
}

// StartAllNodes brings up all nodes of the cluster at the given version
// simultaneously and blocks until every node reports ready.
func (c *Controller) StartAllNodes(ctx context.Context, version string) error {
	level.Info(c.logger).Log("msg", "starting all nodes", "version", version, "size", len(c.nodes))

	errg, startCtx := errgroup.WithContext(ctx)

	for i := range c.nodes {
		i := i

		errg.Go(func() error {
			if err := c.runtime.StartNode(startCtx, i, version); err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			return nil
		})
	}

	if err := errg.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrClusterStart, err)
	}

	for i := range c.nodes {
		c.nodes[i].Status = StatusStarting
		c.nodes[i].Version = version
	}

	for i := range c.nodes {
		if err := c.waitNodeReady(ctx, i); err != nil {
			return fmt.Errorf("%w: %w", ErrClusterStart, err)
		}

		c.nodes[i].Status = StatusRunning
	}

	level.Info(c.logger).Log("msg", "cluster is ready", "version", version)

	return nil
}

// RollingUpdate upgrades the nodes to the target version one at a time, in
// ascending index order so that runs are reproducible. Each node must rejoin
// and the whole cluster must report healthy before the next node is touched.
// On failure the update stops immediately; nodes already upgraded keep the
// target version and the rest keep the old one.
func (c *Controller) RollingUpdate(ctx context.Context, target string) error {
	level.Info(c.logger).Log("msg", "rolling update started", "target", target)

	for i := range c.nodes {
		if err := c.replaceNode(ctx, i, target); err != nil {
			return &RollingUpdateError{NodeIndex: i, Err: err}
		}
	}

	level.Info(c.logger).Log("msg", "rolling update complete", "target", target)

	return nil
}

func (c *Controller) replaceNode(ctx context.Context, index int, target string) error {
	node := &c.nodes[index]

	level.Debug(c.logger).Log("msg", "replacing node", "node", index, "from", node.Version, "to", target)

	if err := c.runtime.StopNode(ctx, index); err != nil {
		return fmt.Errorf("stop node: %w", err)
	}

	node.Status = StatusStopped

	if err := c.runtime.StartNode(ctx, index, target); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	node.Status = StatusStarting
	node.Version = target

	if err := c.waitNodeReady(ctx, index); err != nil {
		return err
	}

	node.Status = StatusRunning

	// The rejoining node may report ready before the rest of the cluster has
	// settled, so the whole cluster is probed before moving on.
	if err := c.waitClusterHealthy(ctx); err != nil {
		return err
	}

	level.Debug(c.logger).Log("msg", "node replaced", "node", index, "version", target)

	return nil
}

func (c *Controller) waitNodeReady(ctx context.Context, index int) error {
	cfg := poll.Config{
		Interval: c.readyInterval,
		Attempts: c.readyAttempts,
		Clock:    c.clock,
	}

	return poll.Until(ctx, cfg, fmt.Sprintf("node %d ready", index), func(ctx context.Context) error {
		return c.health.NodeReady(ctx, index)
	})
}

func (c *Controller) waitClusterHealthy(ctx context.Context) error {
	cfg := poll.Config{
		Interval: c.readyInterval,
		Attempts: c.readyAttempts,
		Clock:    c.clock,
	}

	return poll.Until(ctx, cfg, "cluster healthy", func(ctx context.Context) error {
		for i := range c.nodes {
			if !c.nodes[i].IsRunning() {
				continue
			}

			if err := c.health.NodeReady(ctx, i); err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
		}

		return nil
	})
}
