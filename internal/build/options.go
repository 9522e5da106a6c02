package build

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/cloudbees-io/docker-build/internal/registryauth"
)

// Container limit keys the daemon understands on the build endpoint.
const (
	LimitMemory     = "memory"
	LimitMemorySwap = "memswap"
	LimitCPUShares  = "cpushares"
	LimitCPUSetCPUs = "cpusetcpus"
)

var allowedContainerLimits = map[string]struct{}{
	LimitMemory:     {},
	LimitMemorySwap: {},
	LimitCPUShares:  {},
	LimitCPUSetCPUs: {},
}

// tagRegexp accepts an image reference: an optional registry host (with
// optional port), a lowercase repository path, and an optional tag.
var tagRegexp = regexp.MustCompile(
	`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?` +
		`(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?)*(?::[0-9]+)?/)?` +
		`[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*` +
		`(?:/[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*)*` +
		`(?::[a-zA-Z0-9_][a-zA-Z0-9._-]{0,127})?$`)

// BuildOptions describes one image build request.
type BuildOptions struct {
	// ContextDir is the build context root. Ignored when Remote is set.
	ContextDir string
	// Dockerfile is the optional Dockerfile location, interpreted relative
	// to the context root. Nil means the daemon applies its default
	// discovery.
	Dockerfile *string
	// Tags are the image references applied to the result.
	Tags []string
	// Remote, when set, tells the daemon to fetch the context itself from
	// the given URL; no context body is sent.
	Remote string

	SuppressOutput bool
	NoCache        bool
	Remove         bool
	ForceRemove    bool
	Pull           bool
	Platform       string
	Target         string

	BuildArgs map[string]string
	Labels    map[string]string
	// ContainerLimits constrains the build containers; keys are restricted
	// to the Limit* constants.
	ContainerLimits map[string]string

	// AuthConfigs carries per-registry credentials attached as a request
	// header, never as build parameters.
	AuthConfigs registryauth.AuthConfigs

	// Output receives the raw daemon response stream when non-nil.
	Output io.Writer
}

// Validate rejects option combinations the daemon would refuse, before any
// context packaging or network I/O happens.
func (o *BuildOptions) Validate() error {
	if o.ContextDir == "" && o.Remote == "" {
		return fmt.Errorf("either a context directory or a remote context URL is required")
	}
	for _, tag := range o.Tags {
		if !tagRegexp.MatchString(tag) {
			return fmt.Errorf("invalid tag %q", tag)
		}
	}
	for key := range o.ContainerLimits {
		if _, ok := allowedContainerLimits[key]; !ok {
			return fmt.Errorf("invalid container limit %q, allowed keys: %s",
				key, strings.Join(allowedLimitKeys(), ", "))
		}
	}
	return nil
}

func allowedLimitKeys() []string {
	keys := make([]string, 0, len(allowedContainerLimits))
	for k := range allowedContainerLimits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// queryParams assembles the /build query string. The dockerfile argument is
// the already-resolved context-relative path, empty when no override was
// requested.
func (o *BuildOptions) queryParams(dockerfile string) (url.Values, error) {
	params := url.Values{}
	for _, tag := range o.Tags {
		params.Add("t", tag)
	}
	if dockerfile != "" {
		params.Set("dockerfile", dockerfile)
	}
	if o.Remote != "" {
		params.Set("remote", o.Remote)
	}
	if o.SuppressOutput {
		params.Set("q", "1")
	}
	if o.NoCache {
		params.Set("nocache", "1")
	}
	if o.Remove {
		params.Set("rm", "1")
	}
	if o.ForceRemove {
		params.Set("forcerm", "1")
	}
	if o.Pull {
		params.Set("pull", "1")
	}
	if o.Platform != "" {
		params.Set("platform", o.Platform)
	}
	if o.Target != "" {
		params.Set("target", o.Target)
	}
	if len(o.BuildArgs) > 0 {
		buf, err := json.Marshal(o.BuildArgs)
		if err != nil {
			return nil, fmt.Errorf("encoding build args: %w", err)
		}
		params.Set("buildargs", string(buf))
	}
	if len(o.Labels) > 0 {
		buf, err := json.Marshal(o.Labels)
		if err != nil {
			return nil, fmt.Errorf("encoding labels: %w", err)
		}
		params.Set("labels", string(buf))
	}
	for key, value := range o.ContainerLimits {
		params.Set(key, value)
	}
	return params, nil
}
