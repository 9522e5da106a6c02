package build

import (
	"os"
	"strings"
)

const (
	// WindowsLongPathPrefix is prepended to absolute paths on Windows to
	// bypass the legacy MAX_PATH limit. It is stripped before any path
	// comparison; the prefix cannot occur in a meaningful POSIX path, so
	// its presence is itself the platform check.
	WindowsLongPathPrefix = `\\?\`

	// RelocatedDockerfileName is the reserved in-context name a Dockerfile
	// is copied to when it lives outside the build context.
	RelocatedDockerfileName = ".dockerfile"
)

// ResolvedDockerfile is the outcome of resolving a Dockerfile option against
// a build context root.
type ResolvedDockerfile struct {
	// ContextPath is the forward-slash, context-relative path sent to the
	// daemon as the dockerfile build parameter. Empty when no Dockerfile
	// was requested.
	ContextPath string

	// RelocationSource, when non-empty, is the absolute path of a
	// Dockerfile outside the context that must be copied into the context
	// under ContextPath before the archive is finalized.
	RelocationSource string
}

// ResolveDockerfile resolves a user-supplied Dockerfile path against the
// build context root. Resolution is purely lexical: no stat calls and no
// symlink following, so a symlink can never silently escape the context.
// A Dockerfile outside the context is mapped to RelocatedDockerfileName and
// reported as a relocation for the packager to carry out. Traversal that
// exits and re-enters the context root is judged by net position, not
// textual form, and is returned as-is.
//
// A nil dockerfile means no override was requested; an empty string is an
// explicit (if odd) Dockerfile name and resolves to the context root.
func ResolveDockerfile(dockerfile *string, contextRoot string) ResolvedDockerfile {
	if dockerfile == nil {
		return ResolvedDockerfile{}
	}

	spec := toSlash(trimLongPathPrefix(*dockerfile))
	root := toSlash(trimLongPathPrefix(contextRoot))
	if !isAbsPath(root) {
		if wd, err := os.Getwd(); err == nil {
			root = joinPath(toSlash(wd), root)
		}
	}

	abs := cleanPath(spec)
	if !isAbsPath(spec) {
		abs = joinPath(root, spec)
	}

	rel, sameVolume := relativePath(abs, root)
	if !sameVolume || escapes(rel) {
		return ResolvedDockerfile{
			ContextPath:      RelocatedDockerfileName,
			RelocationSource: abs,
		}
	}
	if spec == "" || isAbsPath(spec) {
		return ResolvedDockerfile{ContextPath: rel}
	}
	return ResolvedDockerfile{ContextPath: spec}
}

func trimLongPathPrefix(p string) string {
	return strings.TrimPrefix(p, WindowsLongPathPrefix)
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// volumeName returns the leading drive specifier ("C:") of a
// slash-normalized path, or "" when there is none.
func volumeName(p string) string {
	if len(p) >= 2 && p[1] == ':' && isDriveLetter(p[0]) {
		return p[:2]
	}
	return ""
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isAbsPath(p string) bool {
	if v := volumeName(p); v != "" {
		p = p[len(v):]
	}
	return strings.HasPrefix(p, "/")
}

// cleanPath collapses "." and ".." segments lexically, preserving the volume
// and rootedness of the input. ".." never climbs above the root of an
// absolute path.
func cleanPath(p string) string {
	vol := volumeName(p)
	rest := p[len(vol):]
	rooted := strings.HasPrefix(rest, "/")

	var out []string
	for _, seg := range strings.Split(rest, "/") {
		switch seg {
		case "", ".":
		case "..":
			if n := len(out); n > 0 && out[n-1] != ".." {
				out = out[:n-1]
			} else if !rooted {
				out = append(out, "..")
			}
		default:
			out = append(out, seg)
		}
	}

	joined := strings.Join(out, "/")
	switch {
	case rooted:
		return vol + "/" + joined
	case joined == "":
		return vol + "."
	default:
		return vol + joined
	}
}

func joinPath(base, p string) string {
	if p == "" {
		return cleanPath(base)
	}
	return cleanPath(base + "/" + p)
}

// relativePath computes target relative to base, segment by segment. Both
// inputs must be absolute slash-normalized paths. The second result is false
// when the paths live on different volumes and no relative path exists.
func relativePath(target, base string) (string, bool) {
	tVol, bVol := volumeName(target), volumeName(base)
	if !strings.EqualFold(tVol, bVol) {
		return "", false
	}

	t := pathSegments(cleanPath(target)[len(tVol):])
	b := pathSegments(cleanPath(base)[len(bVol):])

	common := 0
	for common < len(t) && common < len(b) && t[common] == b[common] {
		common++
	}

	segs := make([]string, 0, len(b)-common+len(t)-common)
	for range b[common:] {
		segs = append(segs, "..")
	}
	segs = append(segs, t[common:]...)
	if len(segs) == 0 {
		return ".", true
	}
	return strings.Join(segs, "/"), true
}

func pathSegments(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			segs = append(segs, s)
		}
	}
	return segs
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../")
}
