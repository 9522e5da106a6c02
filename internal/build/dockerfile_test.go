package build

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"
)

func strptr(s string) *string {
	return &s
}

func Test_ResolveDockerfile(t *testing.T) {
	base := "/build/ctx"

	t.Run("no dockerfile requested", func(t *testing.T) {
		require.Equal(t, ResolvedDockerfile{}, ResolveDockerfile(nil, base))
	})

	t.Run("plain name", func(t *testing.T) {
		got := ResolveDockerfile(strptr("Dockerfile"), base)
		require.Equal(t, ResolvedDockerfile{ContextPath: "Dockerfile"}, got)
	})

	t.Run("nested path", func(t *testing.T) {
		got := ResolveDockerfile(strptr("foo/Dockerfile.foo"), base)
		require.Equal(t, ResolvedDockerfile{ContextPath: "foo/Dockerfile.foo"}, got)
	})

	t.Run("traversal escaping the context", func(t *testing.T) {
		got := ResolveDockerfile(strptr("../Dockerfile"), base+"/foo")
		require.Equal(t, RelocatedDockerfileName, got.ContextPath)
		require.Equal(t, "/build/ctx/Dockerfile", got.RelocationSource)
	})

	t.Run("net-neutral traversal stays relative", func(t *testing.T) {
		got := ResolveDockerfile(strptr("../baz/Dockerfile.baz"), base+"/baz")
		require.Equal(t, ResolvedDockerfile{ContextPath: "../baz/Dockerfile.baz"}, got)
	})

	t.Run("absolute spec inside context is relativized", func(t *testing.T) {
		got := ResolveDockerfile(strptr("/build/ctx/foo/Dockerfile.foo"), base)
		require.Equal(t, ResolvedDockerfile{ContextPath: "foo/Dockerfile.foo"}, got)
	})

	t.Run("absolute spec outside context relocates", func(t *testing.T) {
		got := ResolveDockerfile(strptr("/elsewhere/Dockerfile"), base)
		require.Equal(t, RelocatedDockerfileName, got.ContextPath)
		require.Equal(t, "/elsewhere/Dockerfile", got.RelocationSource)
	})

	t.Run("empty spec names the context root", func(t *testing.T) {
		got := ResolveDockerfile(strptr(""), base)
		require.Equal(t, ResolvedDockerfile{ContextPath: "."}, got)
	})

	t.Run("deep escape", func(t *testing.T) {
		got := ResolveDockerfile(strptr("../../../etc/passwd"), base)
		require.Equal(t, RelocatedDockerfileName, got.ContextPath)
		require.Equal(t, "/etc/passwd", got.RelocationSource)
	})
}

func Test_ResolveDockerfile_RejoinInvariant(t *testing.T) {
	// Joining the context root back onto the returned relative path must
	// land on the resolved location.
	base := "/build/ctx"
	for _, spec := range []string{"Dockerfile", "foo/Dockerfile.foo", "foo/bar/Dockerfile.bar"} {
		got := ResolveDockerfile(strptr(spec), base)
		require.Empty(t, got.RelocationSource, spec)
		require.Equal(t, path.Join(base, spec), path.Join(base, got.ContextPath), spec)
	}
}

func Test_ResolveDockerfile_RelativeContextRoot(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	t.Run("inside", func(t *testing.T) {
		got := ResolveDockerfile(strptr("Dockerfile"), "somedir")
		require.Equal(t, ResolvedDockerfile{ContextPath: "Dockerfile"}, got)
	})

	t.Run("escape resolves against working directory", func(t *testing.T) {
		got := ResolveDockerfile(strptr("../Dockerfile"), "somedir")
		require.Equal(t, RelocatedDockerfileName, got.ContextPath)
		require.Equal(t, toSlash(wd)+"/Dockerfile", got.RelocationSource)
	})
}

func Test_ResolveDockerfile_WindowsLongPathPrefix(t *testing.T) {
	pre := func(p string) string {
		return WindowsLongPathPrefix + p
	}
	base := `C:\build\ctx`

	t.Run("no dockerfile requested", func(t *testing.T) {
		require.Equal(t, ResolvedDockerfile{}, ResolveDockerfile(nil, pre(base)))
	})

	t.Run("plain name", func(t *testing.T) {
		got := ResolveDockerfile(strptr("Dockerfile"), pre(base))
		require.Equal(t, ResolvedDockerfile{ContextPath: "Dockerfile"}, got)
	})

	t.Run("backslash spec is slash-normalized", func(t *testing.T) {
		got := ResolveDockerfile(strptr(`foo\Dockerfile.foo`), pre(base))
		require.Equal(t, ResolvedDockerfile{ContextPath: "foo/Dockerfile.foo"}, got)
	})

	t.Run("traversal escaping the context", func(t *testing.T) {
		got := ResolveDockerfile(strptr("../Dockerfile"), pre(base+`\foo`))
		require.Equal(t, RelocatedDockerfileName, got.ContextPath)
		require.Equal(t, "C:/build/ctx/Dockerfile", got.RelocationSource)
	})

	t.Run("net-neutral traversal stays relative", func(t *testing.T) {
		got := ResolveDockerfile(strptr("../baz/Dockerfile.baz"), pre(base+"/baz"))
		require.Equal(t, ResolvedDockerfile{ContextPath: "../baz/Dockerfile.baz"}, got)
	})

	t.Run("different drive relocates", func(t *testing.T) {
		got := ResolveDockerfile(strptr(`D:\other\Dockerfile`), pre(base))
		require.Equal(t, RelocatedDockerfileName, got.ContextPath)
		require.Equal(t, "D:/other/Dockerfile", got.RelocationSource)
	})

	t.Run("drive letter case is ignored", func(t *testing.T) {
		got := ResolveDockerfile(strptr(`c:\build\ctx\Dockerfile`), pre(base))
		require.Equal(t, ResolvedDockerfile{ContextPath: "Dockerfile"}, got)
	})
}

func Test_cleanPath(t *testing.T) {
	cases := map[string]string{
		"/a/b/../c":    "/a/c",
		"/a/./b/":      "/a/b",
		"/..":          "/",
		"a/../../b":    "../b",
		"a/b/..":       "a",
		".":            ".",
		"":             ".",
		"C:/a/../b":    "C:/b",
		"C:/a/b/../c/": "C:/a/c",
	}
	for in, want := range cases {
		require.Equal(t, want, cleanPath(in), "cleanPath(%q)", in)
	}
}
