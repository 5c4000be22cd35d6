package archive_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cernvm/litescript/pkg/archive"
	"github.com/cernvm/litescript/pkg/compiler"
	"github.com/cernvm/litescript/pkg/execs"
)

func TestCompression(t *testing.T) {
	t.Parallel()

	tcs := map[archive.Compression]struct {
		flag string
		ext  string
	}{
		archive.CompressionBzip2: {flag: "j", ext: "tbz2"},
		archive.CompressionGzip:  {flag: "z", ext: "tgz"},
		archive.CompressionXZ:    {flag: "J", ext: "txz"},
	}

	for c, tc := range tcs {
		t.Run(string(c), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.flag, c.Flag())
			assert.Equal(t, tc.ext, c.Ext())
		})
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		output string
		want   string
	}{
		"extension": {
			output: "out/prepare.sh",
			want:   "prepare-files.tbz2",
		},
		"no extension": {
			output: "prepare",
			want:   "prepare-files.tbz2",
		},
		"last extension only": {
			output: "/tmp/boot.v2.sh",
			want:   "boot.v2-files.tbz2",
		},
		"dotfile": {
			output: ".prepare",
			want:   ".prepare-files.tbz2",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, archive.Name(tc.output, archive.CompressionBzip2))
		})
	}

	assert.Equal(t, filepath.Join("out", "prepare-files.tgz"), archive.Path("out/prepare.sh", archive.CompressionGzip))
}

func TestConfig(t *testing.T) {
	t.Parallel()

	cfg := archive.NewConfig()
	assert.Equal(t, archive.DefaultBaseDir, cfg.BaseDir)
	assert.Equal(t, archive.DefaultTool, cfg.Tool)
	assert.Equal(t, archive.CompressionBzip2, cfg.Compression)
	require.NoError(t, cfg.Validate())

	cfg.Compression = "zstd"
	require.ErrorIs(t, cfg.Validate(), archive.ErrInvalidConfig)

	cfg = archive.NewConfig()
	cfg.EnvFrom = []execs.EnvFromSource{{CallerRef: &execs.CallerRef{Pattern: "("}}}
	require.ErrorIs(t, cfg.Validate(), archive.ErrInvalidConfig)
}

func TestArchiverArgs(t *testing.T) {
	t.Parallel()

	wd, err := os.Getwd()
	require.NoError(t, err)

	tcs := map[string]struct {
		cfg  *archive.Config
		spec compiler.ArchiveSpec
		want []string
	}{
		"defaults": {
			spec: compiler.ArchiveSpec{
				IncludeDirs:     []string{"etc/ssh", "opt"},
				ExcludePatterns: []string{"*.pyc"},
			},
			want: []string{
				"-cjf", "out.tbz2", "-C", archive.DefaultBaseDir,
				"--exclude=*.pyc", "--", "etc/ssh", "opt",
			},
		},
		"empty": {
			spec: compiler.ArchiveSpec{},
			want: []string{
				"-cjf", "out.tbz2", "-C", archive.DefaultBaseDir,
				"--files-from=/dev/null",
			},
		},
		"extra args": {
			cfg: &archive.Config{
				BaseDir:     "/srv/root",
				Compression: archive.CompressionXZ,
				Args:        []string{"--numeric-owner"},
			},
			spec: compiler.ArchiveSpec{IncludeDirs: []string{"var"}},
			want: []string{
				"-cJf", "out.tbz2", "-C", "/srv/root",
				"--numeric-owner", "--", "var",
			},
		},
		"relative base dir": {
			cfg:  &archive.Config{BaseDir: "rootfs"},
			spec: compiler.ArchiveSpec{IncludeDirs: []string{"etc"}},
			want: []string{
				"-cjf", "out.tbz2", "-C", filepath.Join(wd, "rootfs"),
				"--", "etc",
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a, err := archive.NewArchiver(tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, a.Args(tc.spec, "out.tbz2"))
		})
	}
}

func writeTool(t *testing.T, body string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "fake-tar")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755))

	return p
}

func TestArchiverBuild(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		argsFile := filepath.Join(dir, "args")
		tool := writeTool(t, "printf '%s\\n' \"$@\" > \"$ARGS_FILE\"\nprintf archive > \"$2\"\n")

		a, err := archive.NewArchiver(&archive.Config{
			Tool: tool,
			Env:  []execs.EnvVar{{Name: "ARGS_FILE", Value: argsFile}},
		}, archive.WithEnviron([]string{"PATH=" + os.Getenv("PATH")}))
		require.NoError(t, err)

		out := filepath.Join(dir, "prepare-files.tbz2")
		res, err := a.Build(t.Context(), compiler.ArchiveSpec{IncludeDirs: []string{"etc"}}, out)
		require.NoError(t, err)
		assert.Equal(t, out, res.Path)
		assert.Equal(t, int64(len("archive")), res.Size)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "archive", string(data))

		args, err := os.ReadFile(argsFile)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(string(args)), "\n")
		require.Len(t, lines, 6)
		assert.Equal(t, "-cjf", lines[0])
		assert.NotEqual(t, out, lines[1], "tool must write to a temporary file")
		assert.Equal(t, []string{"-C", archive.DefaultBaseDir, "--", "etc"}, lines[2:])

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("tool failure", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		tool := writeTool(t, "echo 'cannot stat etc' >&2\nexit 2\n")

		a, err := archive.NewArchiver(&archive.Config{Tool: tool})
		require.NoError(t, err)

		out := filepath.Join(dir, "prepare-files.tbz2")
		_, err = a.Build(t.Context(), compiler.ArchiveSpec{IncludeDirs: []string{"etc"}}, out)
		require.ErrorIs(t, err, archive.ErrBuild)
		require.ErrorIs(t, err, execs.ErrCommandExecution)
		assert.Contains(t, err.Error(), "cannot stat etc")

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestArchiverBuild_RelativePaths(t *testing.T) {
	t.Parallel()

	wd, err := os.Getwd()
	require.NoError(t, err)

	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "etc"), 0o700))

	tool := writeTool(t, "[ -d \"$4/etc\" ] || { echo \"no such dir $4\" >&2; exit 2; }\nprintf archive > \"$2\"\n")

	relBase, err := filepath.Rel(wd, base)
	require.NoError(t, err)

	relTool, err := filepath.Rel(wd, tool)
	require.NoError(t, err)

	a, err := archive.NewArchiver(&archive.Config{Tool: relTool, BaseDir: relBase})
	require.NoError(t, err)
	assert.Equal(t, base, a.BaseDir())

	out := filepath.Join(t.TempDir(), "prepare-files.tbz2")
	_, err = a.Build(t.Context(), compiler.ArchiveSpec{IncludeDirs: []string{"etc"}}, out)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestArchiverStage(t *testing.T) {
	t.Parallel()

	tool := writeTool(t, "printf archive > \"$2\"\n")

	a, err := archive.NewArchiver(&archive.Config{Tool: tool})
	require.NoError(t, err)

	t.Run("discard keeps existing archive", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		out := filepath.Join(dir, "prepare-files.tbz2")
		require.NoError(t, os.WriteFile(out, []byte("previous"), 0o600))

		st, err := a.Stage(t.Context(), compiler.ArchiveSpec{IncludeDirs: []string{"etc"}}, out)
		require.NoError(t, err)
		assert.Equal(t, int64(len("archive")), st.Size)

		st.Discard()

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "previous", string(data))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("commit replaces archive", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		out := filepath.Join(dir, "prepare-files.tbz2")
		require.NoError(t, os.WriteFile(out, []byte("previous"), 0o600))

		st, err := a.Stage(t.Context(), compiler.ArchiveSpec{IncludeDirs: []string{"etc"}}, out)
		require.NoError(t, err)
		require.NoError(t, st.Commit(t.Context()))

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "archive", string(data))
	})
}

func TestExcluded(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		name     string
		patterns []string
		want     bool
	}{
		"basename glob":     {name: "opt/app/main.pyc", patterns: []string{"*.pyc"}, want: true},
		"descendant":        {name: "opt/app/cache/x", patterns: []string{"app/cache"}, want: false},
		"trailing dir":      {name: "opt/app/cache", patterns: []string{"app/cache/"}, want: true},
		"double star":       {name: "opt/a/b/c.log", patterns: []string{"opt/**/*.log"}, want: true},
		"no match":          {name: "etc/hosts", patterns: []string{"*.pyc"}, want: false},
		"no patterns":       {name: "etc/hosts", want: false},
		"full path literal": {name: "etc/hosts", patterns: []string{"etc/hosts"}, want: true},
		"star crosses dirs": {name: "usr/share/lib/doc", patterns: []string{"usr/*/doc"}, want: true},
		"star one level":    {name: "usr/share/doc", patterns: []string{"usr/*/doc"}, want: true},
		"suffix wildcard":   {name: "var/cache/a/b.bin", patterns: []string{"cache/*.bin"}, want: true},
		"mid path no match": {name: "usr/share/docs", patterns: []string{"usr/*/doc"}, want: false},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, archive.Excluded(tc.name, tc.patterns))
		})
	}
}

func TestFiles(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"etc/hosts":              {Data: []byte("127.0.0.1 localhost\n")},
		"etc/ssh/sshd_config":    {},
		"opt/app/main.py":        {},
		"opt/app/main.pyc":       {},
		"opt/app/cache/blob.bin": {},
	}

	got, err := archive.Files(fsys, compiler.ArchiveSpec{
		IncludeDirs:     []string{"opt", "etc/ssh", "opt"},
		ExcludePatterns: []string{"*.pyc", "cache"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"opt",
		"opt/app",
		"opt/app/main.py",
		"etc/ssh",
		"etc/ssh/sshd_config",
	}, got)

	_, err = archive.Files(fsys, compiler.ArchiveSpec{IncludeDirs: []string{"missing"}})
	require.Error(t, err)

	_, err = archive.Files(fsys, compiler.ArchiveSpec{ExcludePatterns: []string{"[a-"}})
	require.ErrorIs(t, err, archive.ErrInvalidPattern)
}
