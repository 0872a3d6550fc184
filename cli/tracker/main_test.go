package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unibus/tracker/cli/tracker/config"
	"github.com/unibus/tracker/cli/tracker/server/domain"
)

const testConfigPath = "../../configs/tracker.test.yaml"

func resetLogging() {
	log.StandardLogger().ReplaceHooks(make(log.LevelHooks))
	log.SetOutput(io.Discard)
}

func TestGetConfig(t *testing.T) {
	_, err := getConfig("")
	assert.Error(t, err)

	cfg, err := getConfig(testConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "logs/tracker_test.log", cfg.LogFilePath)
}

func TestLogFileCreationAndContent(t *testing.T) {
	defer resetLogging()

	cfg, err := config.New(testConfigPath)
	require.NoError(t, err)
	cfg.LogFilePath = filepath.Join(t.TempDir(), "nested", "tracker.log")

	configureLogging(cfg)
	log.SetOutput(io.Discard)

	msg := "UNIQUE_TEST_MESSAGE_" + time.Now().Format(time.RFC3339Nano)
	log.Info(msg)

	content, err := os.ReadFile(cfg.LogFilePath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), msg), "log file content: %s", content)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestNewFileHookRotationSettings(t *testing.T) {
	defer resetLogging()

	compress := false
	cfg := config.Settings{
		LogFilePath:   filepath.Join(t.TempDir(), "a", "b", "tracker.log"),
		LogMaxSizeMB:  5,
		LogMaxBackups: 3,
		LogMaxAgeDays: 7,
		LogCompress:   &compress,
	}
	hook, err := newFileHook(cfg)
	require.NoError(t, err)
	assert.ElementsMatch(t, log.AllLevels, hook.Levels())

	_, err = os.Stat(filepath.Dir(cfg.LogFilePath))
	assert.NoError(t, err)
}

func TestBuildAuthorizer(t *testing.T) {
	resetLogging()

	assert.IsType(t, domain.AllowAll{}, buildAuthorizer(config.Settings{}))

	auth := buildAuthorizer(config.Settings{Auth: config.AuthSettings{IPWhiteList: []string{"10.*"}}})
	assert.NoError(t, auth.Authorize(domain.Sender{IP: "10.1.1.1"}))
	assert.Error(t, auth.Authorize(domain.Sender{IP: "192.168.1.1"}))
}

func TestBuildDirectory(t *testing.T) {
	resetLogging()

	cfg, err := config.New(testConfigPath)
	require.NoError(t, err)

	dir, closeDir, err := buildDirectory(context.Background(), cfg)
	require.NoError(t, err)
	defer closeDir()

	bus, err := dir.Resolve(context.Background(), "bus_7")
	require.NoError(t, err)
	assert.Equal(t, "Campus Loop", bus.Name)

	cfg.Directory.Source = "ldap"
	_, _, err = buildDirectory(context.Background(), cfg)
	assert.Error(t, err)
}
