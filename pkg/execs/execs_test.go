package execs_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cernvm/litescript/pkg/execs"
)

func TestCommand_Run(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		args       []string
		wantStdout string
		wantErr    bool
		errMsg     string
	}{
		"success": {
			args:       []string{"-c", "echo ok"},
			wantStdout: "ok\n",
		},
		"runs in dir": {
			args:       []string{"-c", "test -f marker && echo found"},
			wantStdout: "found\n",
		},
		"non-zero exit includes stderr": {
			args:    []string{"-c", "echo 'cannot stat usr' >&2; exit 2"},
			wantErr: true,
			errMsg:  "cannot stat usr",
		},
		"environment is filtered": {
			args:       []string{"-c", `printf '%s' "${LITESCRIPT_TEST_SECRET:-unset}"`},
			wantStdout: "unset",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			require.NoError(t, os.WriteFile(dir+"/marker", nil, 0o600))

			base := append(os.Environ(), "LITESCRIPT_TEST_SECRET=x")
			cmd := execs.NewCommand("sh", base, tc.args...)

			res, err := cmd.Run(t.Context(), dir)
			if tc.wantErr {
				require.ErrorIs(t, err, execs.ErrCommandExecution)
				assert.Contains(t, err.Error(), tc.errMsg)
				require.NotNil(t, res)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantStdout, res.Stdout)
		})
	}
}

func TestCommand_Run_Errors(t *testing.T) {
	t.Parallel()

	t.Run("empty command", func(t *testing.T) {
		t.Parallel()

		_, err := execs.NewCommand("", nil).Run(t.Context(), t.TempDir())
		require.ErrorIs(t, err, execs.ErrEmptyCommand)
	})

	t.Run("missing executable", func(t *testing.T) {
		t.Parallel()

		_, err := execs.NewCommand("litescript-no-such-tool", os.Environ()).Run(t.Context(), t.TempDir())
		require.ErrorIs(t, err, execs.ErrCommandExecution)
	})

	t.Run("invalid env pattern", func(t *testing.T) {
		t.Parallel()

		cmd := execs.NewCommand("true", os.Environ())
		cmd.EnvFrom = []execs.EnvFromSource{{CallerRef: &execs.CallerRef{Pattern: "("}}}

		_, err := cmd.Run(t.Context(), t.TempDir())
		require.Error(t, err)
		assert.NotErrorIs(t, err, execs.ErrCommandExecution)
	})
}

func TestCommand_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tar", execs.NewCommand("tar", nil).String())
	assert.Equal(t, "tar -cjf out.tbz2 usr", execs.NewCommand("tar", nil, "-cjf", "out.tbz2", "usr").String())
}
