package build_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/cernvm/litescript/api/v1beta1/configs"
	"github.com/cernvm/litescript/pkg/archive"
	"github.com/cernvm/litescript/pkg/build"
	"github.com/cernvm/litescript/pkg/compiler"
	"github.com/cernvm/litescript/pkg/script"
)

const rules = `# CernVM lite
copy:etc:etc/ssh/*_key
readonly:usr
writable:var:log run
post-touch:etc/motd:0644
set:CVM_VERSION:3.0
`

// fakeTool writes a tar stand-in that records its invocation in a marker
// file and writes "archive" to its output argument.
func fakeTool(t *testing.T, exitCode int) (tool, marker string) {
	t.Helper()

	dir := t.TempDir()
	tool = filepath.Join(dir, "fake-tar")
	marker = filepath.Join(dir, "invoked")

	body := "#!/bin/sh\ntouch " + marker + "\n"
	if exitCode != 0 {
		body += "echo 'tar: etc: Cannot stat' >&2\nexit 2\n"
	} else {
		body += "printf archive > \"$2\"\n"
	}

	require.NoError(t, os.WriteFile(tool, []byte(body), 0o755))

	return tool, marker
}

func newBuilder(t *testing.T, tool string, opts ...build.Opt) *build.Builder {
	t.Helper()

	cfg := configs.New()
	cfg.Archive.Tool = tool
	cfg.Archive.BaseDir = t.TempDir()

	opts = append([]build.Opt{build.WithEnviron([]string{"PATH=" + os.Getenv("PATH")})}, opts...)

	b, err := build.New(cfg, opts...)
	require.NoError(t, err)

	return b
}

func writeRules(t *testing.T, dir, content string) string {
	t.Helper()

	p := filepath.Join(dir, "cvm.rules")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

	return p
}

func TestBuild(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	tool, marker := fakeTool(t, 0)
	b := newBuilder(t, tool, build.WithTracerProvider(tp))

	dir := t.TempDir()
	in := writeRules(t, dir, rules)
	out := filepath.Join(dir, "prepare.sh")

	res, err := b.Build(t.Context(), in, out)
	require.NoError(t, err)
	assert.FileExists(t, marker)
	assert.Equal(t, out, res.Script)
	assert.Equal(t, filepath.Join(dir, "prepare-files.tbz2"), res.Archive.Path)
	assert.Equal(t, []string{"etc"}, res.Program.Archive.IncludeDirs)

	want, err := script.Bytes(res.Program, script.Archive{
		Name:        "prepare-files.tbz2",
		Compression: archive.CompressionBzip2,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
	assert.Contains(t, string(got), "CVM_VERSION='3.0'\n")
	assert.Contains(t, string(got), "\ttar -C ${GUEST_DIR} -jxf ${SCRIPT_DIR}/prepare-files.tbz2\n")

	names := []string{}
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}

	assert.ElementsMatch(t, []string{"compile", "archive", "build"}, names)
}

func TestBuild_Failures(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		rules    string
		exitCode int
		err      error
		invoked  bool
		outIsDir bool
	}{
		"missing argument": {
			rules: "readonly\n",
			err:   compiler.ErrMissingArgument,
		},
		"unknown verb": {
			rules: "symlink:a:b\n",
			err:   compiler.ErrUnknownVerb,
		},
		"invalid parameter": {
			rules: "set:not-a-name:1\n",
			err:   script.ErrInvalidParameter,
		},
		"archive tool fails": {
			rules:    "copy:etc\n",
			exitCode: 2,
			err:      archive.ErrBuild,
			invoked:  true,
		},
		"script write fails": {
			rules:    "copy:etc\n",
			outIsDir: true,
			invoked:  true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tool, marker := fakeTool(t, tc.exitCode)
			b := newBuilder(t, tool)

			dir := t.TempDir()
			in := writeRules(t, dir, tc.rules)
			out := filepath.Join(dir, "prepare.sh")

			want := []string{"cvm.rules"}
			if tc.outIsDir {
				require.NoError(t, os.MkdirAll(filepath.Join(out, "keep"), 0o700))

				want = append(want, "prepare.sh")
			}

			_, err := b.Build(t.Context(), in, out)
			require.Error(t, err)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			}

			assert.NoFileExists(t, out)
			assert.NoFileExists(t, filepath.Join(dir, "prepare-files.tbz2"))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)

			names := []string{}
			for _, e := range entries {
				names = append(names, e.Name())
			}

			assert.ElementsMatch(t, want, names)

			if tc.invoked {
				assert.FileExists(t, marker)
			} else {
				assert.NoFileExists(t, marker)
			}
		})
	}
}

func TestBuild_KeepsArchiveWhenScriptFails(t *testing.T) {
	t.Parallel()

	tool, marker := fakeTool(t, 0)
	b := newBuilder(t, tool)

	dir := t.TempDir()
	in := writeRules(t, dir, "copy:etc\n")
	out := filepath.Join(dir, "prepare.sh")
	archivePath := filepath.Join(dir, "prepare-files.tbz2")

	require.NoError(t, os.WriteFile(archivePath, []byte("previous"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(out, "keep"), 0o700))

	_, err := b.Build(t.Context(), in, out)
	require.Error(t, err)
	assert.FileExists(t, marker)

	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestBuild_RelativeBaseDir(t *testing.T) {
	t.Parallel()

	wd, err := os.Getwd()
	require.NoError(t, err)

	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "etc"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(base, "etc", "fstab"), nil, 0o600))

	rel, err := filepath.Rel(wd, base)
	require.NoError(t, err)

	dir := t.TempDir()
	tool := filepath.Join(dir, "fake-tar")
	body := "#!/bin/sh\n[ -f \"$4/etc/fstab\" ] || { echo \"no such dir $4\" >&2; exit 2; }\nprintf archive > \"$2\"\n"
	require.NoError(t, os.WriteFile(tool, []byte(body), 0o755))

	cfg := configs.New()
	cfg.Archive.Tool = tool
	cfg.Archive.BaseDir = rel

	b, err := build.New(cfg, build.WithEnviron([]string{"PATH=" + os.Getenv("PATH")}))
	require.NoError(t, err)

	in := writeRules(t, dir, "copy:etc\n")
	out := filepath.Join(dir, "out", "prepare.sh")
	require.NoError(t, os.Mkdir(filepath.Dir(out), 0o700))

	p, err := b.Plan(t.Context(), in)
	require.NoError(t, err)

	files, err := b.Files(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"etc", "etc/fstab"}, files)

	_, err = b.Build(t.Context(), in, out)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "prepare-files.tbz2"))
}

func TestBuild_MissingRuleset(t *testing.T) {
	t.Parallel()

	tool, _ := fakeTool(t, 0)
	b := newBuilder(t, tool)

	dir := t.TempDir()
	_, err := b.Build(t.Context(), filepath.Join(dir, "missing.rules"), filepath.Join(dir, "out.sh"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	tool, _ := fakeTool(t, 0)
	b := newBuilder(t, tool)

	dir := t.TempDir()
	in := writeRules(t, dir, rules)
	out := filepath.Join(dir, "prepare.sh")

	_, err := b.Build(t.Context(), in, out)
	require.NoError(t, err)

	first, err := os.ReadFile(out)
	require.NoError(t, err)

	_, err = b.Build(t.Context(), in, out)
	require.NoError(t, err)

	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCheck(t *testing.T) {
	t.Parallel()

	tool, _ := fakeTool(t, 0)
	b := newBuilder(t, tool)

	dir := t.TempDir()
	in := writeRules(t, dir, rules)
	out := filepath.Join(dir, "prepare.sh")

	err := b.Check(t.Context(), in, out)
	require.ErrorIs(t, err, build.ErrOutOfDate)

	_, err = b.Build(t.Context(), in, out)
	require.NoError(t, err)
	require.NoError(t, b.Check(t.Context(), in, out))

	writeRules(t, dir, rules+"readonly:opt\n")

	err = b.Check(t.Context(), in, out)
	require.ErrorIs(t, err, build.ErrOutOfDate)
	assert.Contains(t, err.Error(), "+\tMACRO_RO opt")
}

func TestPlanAndFiles(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "etc", "ssh"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(base, "etc", "hosts"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(base, "etc", "ssh", "host_key"), nil, 0o600))

	cfg := configs.New()
	cfg.Archive.BaseDir = base

	b, err := build.New(cfg)
	require.NoError(t, err)

	in := writeRules(t, t.TempDir(), rules)

	p, err := b.Plan(t.Context(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"etc/ssh/*_key"}, p.Archive.ExcludePatterns)
	assert.Len(t, p.Pre, 3)
	assert.Len(t, p.Post, 2)

	files, err := b.Files(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"etc", "etc/hosts", "etc/ssh"}, files)
}
