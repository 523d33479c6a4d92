package commands

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/output"
	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/testutil"
	testlog "github.com/Datus-ai/datus-semantic-adapter/internal/testutil"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var invalidResult = &core.ValidationResult{
	Valid: false,
	Issues: []core.ValidationIssue{
		{Severity: core.SeverityError, Message: "metric revenue references unknown measure amount"},
		{Severity: core.SeverityWarning, Message: "dimension region has no description"},
	},
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		useStubAdapter(t, &stubAdapter{validation: &core.ValidationResult{Valid: true, Issues: []core.ValidationIssue{}}})

		stdout, _, err := runCommand(t, NewValidateCommand(), testConfig("json"))
		require.NoError(t, err)

		var got core.ValidationResult
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		assert.True(t, got.Valid)
		assert.Empty(t, got.Issues)
	})

	t.Run("invalid exits with error", func(t *testing.T) {
		useStubAdapter(t, &stubAdapter{validation: invalidResult})

		stdout, _, err := runCommand(t, NewValidateCommand(), testConfig("json"))
		assert.ErrorIs(t, err, ErrValidationFailed)

		var got core.ValidationResult
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		assert.False(t, got.Valid)
		assert.Len(t, got.Issues, 2)
	})

	t.Run("adapter error", func(t *testing.T) {
		useStubAdapter(t, &stubAdapter{err: &adapter.ConfigError{Field: "cli_path", Reason: "mf not found"}})

		_, _, err := runCommand(t, NewValidateCommand(), testConfig("json"))
		require.Error(t, err)
		assert.ErrorIs(t, err, adapter.ErrConfig)
		assert.NotErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "validation could not run")
	})
}

func TestRenderValidation(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		tr := testutil.NewTestRendererAuto()
		require.NoError(t, renderValidation(tr.Renderer, invalidResult))

		out := tr.Output()
		testutil.AssertValidMarkdown(t, out)
		assert.Contains(t, out, "- **Valid:** false")
		assert.Contains(t, out, "- **Errors:** 1")
		assert.Contains(t, out, "- **Warnings:** 1")
		assert.Contains(t, out, "## Issues")
		assert.Contains(t, out, "- **warning:** dimension region has no description")
	})

	t.Run("text", func(t *testing.T) {
		tr := testutil.NewTestRenderer(output.ModeText, false)
		require.NoError(t, renderValidation(tr.Renderer, invalidResult))

		out := tr.Output()
		testutil.AssertNoANSI(t, out)
		assert.Contains(t, out, "invalid (1 errors)")
		assert.Contains(t, out, "error")
		assert.Contains(t, out, "metric revenue references unknown measure amount")
	})

	t.Run("text valid", func(t *testing.T) {
		tr := testutil.NewTestRenderer(output.ModeText, false)
		require.NoError(t, renderValidation(tr.Renderer, &core.ValidationResult{Valid: true}))
		assert.Contains(t, tr.Output(), "✓ Semantic configuration is valid")
	})

	t.Run("csv", func(t *testing.T) {
		tr := testutil.NewTestRenderer(output.ModeCSV, false)
		require.NoError(t, renderValidation(tr.Renderer, invalidResult))
		assert.Contains(t, tr.Output(), "error,metric revenue references unknown measure amount")
	})
}

func TestWatchAndValidate(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "models"), 0o750))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchAndValidate(ctx, root, 10*time.Millisecond, testlog.NewTestLogger(t), func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()

	// The watcher may not be registered yet when the first write happens.
	target := filepath.Join(root, "models", "metrics.yml")
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(target, []byte("metrics: []\n"), 0o600)
		return runs.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}

func TestWatchAndValidate_StopsOnError(t *testing.T) {
	root := t.TempDir()
	boom := errors.New("boom")

	done := make(chan error, 1)
	go func() {
		done <- watchAndValidate(context.Background(), root, 10*time.Millisecond, testlog.NewTestLogger(t), func(context.Context) error {
			return boom
		})
	}()

	target := filepath.Join(root, "semantic_models.yaml")
	var err error
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(target, []byte("semantic_models: []\n"), 0o600)
		select {
		case err = <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
	assert.ErrorIs(t, err, boom)
}

func TestIsSemanticFile(t *testing.T) {
	tests := map[string]bool{
		"models/metrics.yml":   true,
		"models/orders.YAML":   true,
		"models/orders.sql":    false,
		"dbt_project.yml":      true,
		"target/manifest.json": false,
	}
	for path, want := range tests {
		assert.Equal(t, want, isSemanticFile(path), path)
	}
}
