package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cloudbees-io/docker-build/internal/build"
)

var (
	cmd = &cobra.Command{
		Use:   "docker-build-action",
		Short: "Build container images on a remote Docker daemon",
		Long:  "Build container images on a remote Docker daemon",
		Args: func(command *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unknown arguments: %v", args)
			}
			return nil
		},
		RunE: run,
	}
	cfg build.Config
)

func Execute() error {
	return cmd.Execute()
}

func run(command *cobra.Command, args []string) error {
	// Local overrides for dev runs; harmless in CI.
	_ = godotenv.Load()

	newContext, cancel := context.WithCancel(context.Background())
	osChannel := make(chan os.Signal, 1)
	signal.Notify(osChannel, os.Interrupt)
	go func() {
		<-osChannel
		cancel()
	}()

	return cfg.Run(newContext)
}

func init() {
	cmd.Flags().StringVar(&cfg.DaemonURL, "daemon-url", "http://localhost:2375", "DaemonURL is the base URL of the remote Docker daemon API")
	cmd.Flags().StringVar(&cfg.Dockerfile, "dockerfile", "", "Dockerfile is the path to the Dockerfile to build")
	cmd.Flags().StringVar(&cfg.ContextDir, "context", "", "Context is the path to the build context")
	cmd.Flags().StringVar(&cfg.Destination, "destination", "", "Destination is a comma separated list of image references for the built image")
	cmd.Flags().StringVar(&cfg.Remote, "remote", "", "Remote is a URL the daemon fetches the build context from")
	cmd.Flags().BoolVar(&cfg.Quiet, "quiet", false, "Suppress verbose build output")
	cmd.Flags().BoolVar(&cfg.NoCache, "no-cache", false, "Do not use the build cache")
	cmd.Flags().BoolVar(&cfg.Pull, "pull", false, "Always pull newer versions of base images")
	cmd.Flags().BoolVar(&cfg.ForceRemove, "force-rm", false, "Always remove intermediate containers")
	cmd.Flags().StringVar(&cfg.Platform, "platform", "", "Platform of the built image, e.g. linux/amd64")
	cmd.Flags().StringVar(&cfg.Target, "target", "", "Target build stage")
}
