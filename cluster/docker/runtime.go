package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const httpPort = nat.Port("8080/tcp")

// Config holds the parameters of a docker-backed node runtime.
type Config struct {
	// Image is the repository the node image is pulled from. The running
	// version is selected by tag, <Image>:<version>.
	Image string

	// Prefix is prepended to container and network names so that multiple
	// harness runs on the same host do not clash.
	Prefix string

	// HostPortBase is the first host port to publish node HTTP ports on.
	// Node i is reachable at 127.0.0.1:<HostPortBase+i>.
	HostPortBase int

	// Env is passed to every node container.
	Env []string

	// NodeEnv, when set, returns additional per-node environment, such as a
	// unique hostname inside the cluster network.
	NodeEnv func(index int) []string

	Logger kitlog.Logger
}

// Runtime runs cluster nodes as docker containers on the local daemon. It
// implements cluster.NodeRuntime.
type Runtime struct {
	client *client.Client
	conf   Config
	logger kitlog.Logger

	networkID  string
	containers map[int]string
	pulled     map[string]bool
}

// New connects to the local docker daemon.
func New(conf Config) (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}

	logger := conf.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}

	return &Runtime{
		client:     cli,
		conf:       conf,
		logger:     logger,
		containers: make(map[int]string),
		pulled:     make(map[string]bool),
	}, nil
}

// SetupNetwork creates the bridge network shared by all node containers.
// Must be called once before the first StartNode.
func (r *Runtime) SetupNetwork(ctx context.Context) error {
	resp, err := r.client.NetworkCreate(ctx, r.networkName(), types.NetworkCreate{
		CheckDuplicate: true,
		Driver:         "bridge",
	})
	if err != nil {
		return fmt.Errorf("create network: %w", err)
	}

	r.networkID = resp.ID

	level.Debug(r.logger).Log("msg", "network created", "name", r.networkName())

	return nil
}

// Teardown removes all node containers and the network.
func (r *Runtime) Teardown(ctx context.Context) error {
	for index := range r.containers {
		if err := r.StopNode(ctx, index); err != nil {
			return err
		}
	}

	if r.networkID != "" {
		if err := r.client.NetworkRemove(ctx, r.networkID); err != nil {
			return fmt.Errorf("remove network: %w", err)
		}

		r.networkID = ""
	}

	return nil
}

// StartNode creates and starts the container for the given node at the given
// version. The container is attached to the cluster network under a stable
// alias, so replacements started at a new version keep the same identity.
func (r *Runtime) StartNode(ctx context.Context, index int, version string) error {
	ref := r.conf.Image + ":" + version

	if err := r.ensureImage(ctx, ref); err != nil {
		return err
	}

	env := append([]string(nil), r.conf.Env...)
	if r.conf.NodeEnv != nil {
		env = append(env, r.conf.NodeEnv(index)...)
	}

	hostPort := strconv.Itoa(r.conf.HostPortBase + index)

	containerConfig := container.Config{
		Image:        ref,
		Env:          env,
		Hostname:     r.nodeName(index),
		ExposedPorts: nat.PortSet{httpPort: struct{}{}},
	}

	hostConfig := container.HostConfig{
		NetworkMode: container.NetworkMode(r.networkName()),
		PortBindings: nat.PortMap{
			httpPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: hostPort}},
		},
	}

	networkingConfig := network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			r.networkName(): {Aliases: []string{r.nodeName(index)}},
		},
	}

	resp, err := r.client.ContainerCreate(ctx, &containerConfig, &hostConfig, &networkingConfig, nil, r.nodeName(index))
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}

	if err := r.client.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("start container: %w", err)
	}

	r.containers[index] = resp.ID

	level.Debug(r.logger).Log("msg", "container started", "node", index, "image", ref, "port", hostPort)

	return nil
}

// StopNode stops and removes the container of the given node, so that its
// name, alias and host port can be reused by a replacement.
func (r *Runtime) StopNode(ctx context.Context, index int) error {
	id, ok := r.containers[index]
	if !ok {
		return fmt.Errorf("node %d is not running", index)
	}

	if err := r.client.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("stop container: %w", err)
	}

	err := r.client.ContainerRemove(ctx, id, types.ContainerRemoveOptions{RemoveVolumes: true})
	if err != nil {
		return fmt.Errorf("remove container: %w", err)
	}

	delete(r.containers, index)

	level.Debug(r.logger).Log("msg", "container removed", "node", index)

	return nil
}

// NodeAddr returns the host address the node's HTTP port is published on.
func (r *Runtime) NodeAddr(index int) string {
	return fmt.Sprintf("127.0.0.1:%d", r.conf.HostPortBase+index)
}

// NodeName returns the stable in-network name of the node.
func (r *Runtime) NodeName(index int) string {
	return r.nodeName(index)
}

func (r *Runtime) ensureImage(ctx context.Context, ref string) error {
	if r.pulled[ref] {
		return nil
	}

	rc, err := r.client.ImagePull(ctx, ref, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}

	defer rc.Close()

	// The pull is complete only once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}

	r.pulled[ref] = true

	return nil
}

func (r *Runtime) networkName() string {
	return r.conf.Prefix + "-net"
}

func (r *Runtime) nodeName(index int) string {
	return fmt.Sprintf("%s-node-%d", r.conf.Prefix, index)
}
