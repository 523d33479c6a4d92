package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Datus-ai/datus-semantic-adapter/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name     string
		setupDir func(t *testing.T, dir string)
		args     []string
		wantErr  bool
		wantFile string
	}{
		{
			name:     "init empty directory",
			args:     []string{},
			wantFile: "semantic.yaml",
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "semantic.yaml"), []byte("existing"), 0o600))
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "semantic.yaml"), []byte("existing"), 0o600))
			},
			args:     []string{"--force"},
			wantFile: "semantic.yaml",
		},
		{
			name:     "init into new subdirectory",
			args:     []string{"analytics"},
			wantFile: "analytics/semantic.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			content, err := os.ReadFile(filepath.Join(tmpDir, tt.wantFile))
			require.NoError(t, err)
			assert.NotEqual(t, "existing", string(content))
			assert.Contains(t, buf.String(), "Next steps:")
		})
	}
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("force"), "--force flag should exist")
}

func TestInitCreatesLoadableConfig(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "finance")
	require.NoError(t, os.Mkdir(tmpDir, 0o750))
	t.Chdir(tmpDir)

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	cfg, err := config.Load(filepath.Join(tmpDir, "semantic.yaml"), nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "metricflow", cfg.Adapter.Type)
	assert.Equal(t, "finance", cfg.Adapter.Namespace, "namespace defaults to the directory name")
	assert.Equal(t, "mf", cfg.Adapter.Params["cli_path"])
	assert.Equal(t, tmpDir, cfg.Adapter.Params["project_root"])
	assert.EqualValues(t, 300, cfg.Adapter.Params["timeout"])
}

func TestInitUsesConfiguredNamespace(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv("DATUS_SEMANTIC_ADAPTER__NAMESPACE", "sales")

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile(filepath.Join(tmpDir, "semantic.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "namespace: sales")
}

func TestRenderConfigTemplate(t *testing.T) {
	content, err := renderConfigTemplate(configTemplateData{
		Adapter:   "metricflow",
		Namespace: "sales",
		CLIPath:   "/opt/venv/bin/mf",
		Timeout:   60,
	})
	require.NoError(t, err)

	s := string(content)
	assert.Contains(t, s, "type: metricflow")
	assert.Contains(t, s, "cli_path: /opt/venv/bin/mf")
	assert.Contains(t, s, "timeout: 60")
}
