package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "kbchat", cfg.App.Name)
	assert.Equal(t, 5, cfg.Chat.ContextWindow)
	assert.Equal(t, 30, cfg.Chat.TitleMaxLen)
	assert.Equal(t, "kb.ingest.jobs", cfg.RabbitMQ.IngestQueue)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
}

func TestLoadFromFileAndEnv(t *testing.T) {
	content := `
[app]
port = 9090

[knowledge_base]
knowledge_base_id = "kb-from-file"

[knowledge_base.data_sources]
resume = "ds-resume"
projects = "ds-projects"
`
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("KB_ID", "kb-from-env")
	t.Setenv("CHAT_CONTEXT_WINDOW", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	// Env wins over file.
	assert.Equal(t, "kb-from-env", cfg.KnowledgeBase.KnowledgeBaseID)
	assert.Equal(t, 8, cfg.Chat.ContextWindow)
	assert.Equal(t, map[string]string{
		"resume":   "ds-resume",
		"projects": "ds-projects",
	}, cfg.KnowledgeBase.DataSources)
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "app"
	cfg.MySQL.Password = "pw"
	cfg.MySQL.Host = "db.local"
	cfg.MySQL.Port = 3307
	cfg.MySQL.DB = "kbchat"
	cfg.MySQL.Params = "parseTime=true"

	assert.Equal(t, "app:pw@tcp(db.local:3307)/kbchat?parseTime=true", cfg.MySQLDSN())
}
