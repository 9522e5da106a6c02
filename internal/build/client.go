// Package build submits image build requests to a remote Docker daemon.
//
// The submission pipeline is strictly ordered: validate options, resolve the
// Dockerfile against the context root, package the context (carrying out a
// relocation when the Dockerfile lives outside it), attach registry
// credentials, transmit. Failures before transmission leave no side effects
// beyond a consumed context stream.
package build

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cloudbees-io/docker-build/internal/archive"
	"github.com/cloudbees-io/docker-build/internal/registryauth"
)

const contentTypeTar = "application/x-tar"

// Client talks to one daemon endpoint. The zero value is not usable; use
// NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for the daemon at baseURL, e.g.
// "http://docker-daemon:2375". A nil httpClient falls back to
// http.DefaultClient; connection management belongs to the caller.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Build submits one image build. The response stream is copied to
// opts.Output when set; it is not decoded.
func (c *Client) Build(ctx context.Context, opts BuildOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	// Remote contexts are fetched by the daemon itself; the dockerfile
	// parameter passes through verbatim and no resolution or packaging
	// happens on this side.
	var dockerfilePath string
	var relocation *archive.Relocation
	contextDir := opts.ContextDir
	if opts.Remote != "" {
		if opts.Dockerfile != nil {
			dockerfilePath = *opts.Dockerfile
		}
	} else {
		abs, err := filepath.Abs(contextDir)
		if err != nil {
			return fmt.Errorf("resolving build context %s: %w", contextDir, err)
		}
		contextDir = abs

		resolved := ResolveDockerfile(opts.Dockerfile, contextDir)
		dockerfilePath = resolved.ContextPath
		if resolved.RelocationSource != "" {
			relocation = &archive.Relocation{
				Name:   resolved.ContextPath,
				Source: resolved.RelocationSource,
			}
			logrus.WithFields(logrus.Fields{
				"source": resolved.RelocationSource,
				"name":   resolved.ContextPath,
			}).Debug("dockerfile outside build context, relocating")
		}
	}

	params, err := opts.queryParams(dockerfilePath)
	if err != nil {
		return err
	}

	var body io.Reader
	var pipe *io.PipeReader
	headers := map[string]string{}
	if opts.Remote == "" {
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(archive.TarContext(contextDir, pw, relocation))
		}()
		body, pipe = pr, pr
		headers["Content-Type"] = contentTypeTar
	}

	headers, err = registryauth.AttachHeaders(headers, opts.AuthConfigs)
	if err != nil {
		if pipe != nil {
			pipe.Close()
		}
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/build?"+params.Encode(), body)
	if err != nil {
		if pipe != nil {
			pipe.Close()
		}
		return fmt.Errorf("building request: %w", err)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	logrus.WithFields(logrus.Fields{
		"tags":   opts.Tags,
		"remote": opts.Remote,
	}).Info("submitting build")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submitting build: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("daemon rejected build: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("reading build output: %w", err)
	}
	return nil
}
