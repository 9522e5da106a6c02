package build

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cloudbees-io/docker-build/internal/events"
	"github.com/cloudbees-io/docker-build/internal/registryauth"
)

const (
	dockerConfigJsonEnvVar = "DOCKERCONFIGJSON"
	buildArgsEnvVar        = "DOCKER_BUILD_ARGS"
	labelsEnvVar           = "DOCKER_LABELS"
)

// Config is the action configuration, bound to CLI flags.
type Config struct {
	// DaemonURL is the base URL of the remote Docker daemon API.
	DaemonURL string
	// Dockerfile is the path to the Dockerfile to build, relative to the
	// build context. Empty means the daemon's default discovery applies.
	Dockerfile string
	// ContextDir is the path to the build context.
	ContextDir string
	// Destination is a comma separated list of image references to apply
	// to the built image.
	Destination string
	// Remote, when set, is a URL the daemon fetches the context from.
	Remote string

	Quiet       bool
	NoCache     bool
	Pull        bool
	ForceRemove bool
	Platform    string
	Target      string
}

// Run submits the configured build and publishes the lifecycle event.
func (c *Config) Run(ctx context.Context) error {
	authConfigs, err := c.loadAuthConfigs()
	if err != nil {
		return fmt.Errorf("dockerConfigJson validation failed: %w", err)
	}

	opts := BuildOptions{
		ContextDir:     c.ContextDir,
		Tags:           c.processDestinations(),
		Remote:         c.Remote,
		SuppressOutput: c.Quiet,
		NoCache:        c.NoCache,
		Remove:         true,
		ForceRemove:    c.ForceRemove,
		Pull:           c.Pull,
		Platform:       c.Platform,
		Target:         c.Target,
		BuildArgs:      parseKeyValues(os.Getenv(buildArgsEnvVar)),
		Labels:         parseKeyValues(os.Getenv(labelsEnvVar)),
		AuthConfigs:    authConfigs,
		Output:         os.Stdout,
	}
	if c.Dockerfile != "" {
		opts.Dockerfile = &c.Dockerfile
	}

	if err := NewClient(c.DaemonURL, nil).Build(ctx, opts); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	evt, err := events.NewImageBuildSubmitted(events.ImageBuildPayload{
		Tags:       opts.Tags,
		Dockerfile: c.Dockerfile,
		Remote:     c.Remote,
	})
	if err != nil {
		return err
	}
	if err := events.Publish(evt); err != nil {
		return fmt.Errorf("publishing build event: %w", err)
	}

	logrus.WithField("tags", opts.Tags).Info("build submitted")
	return nil
}

func (c *Config) loadAuthConfigs() (registryauth.AuthConfigs, error) {
	raw := os.Getenv(dockerConfigJsonEnvVar)
	if raw == "" {
		return nil, nil
	}
	return registryauth.ParseDockerConfigJSON([]byte(raw))
}

func (c *Config) processDestinations() []string {
	if c.Destination == "" {
		return nil
	}
	parts := strings.Split(c.Destination, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseKeyValues(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	kv := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, _ := strings.Cut(pair, "=")
		kv[strings.TrimSpace(key)] = value
	}
	return kv
}
