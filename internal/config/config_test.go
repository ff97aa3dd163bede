// Package config provides configuration management for vigil.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	// Save and override HOME
	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	os.RemoveAll(s.tempDir)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultOracleURL, cfg.OracleURL)
	s.Equal(DefaultOracleModel, cfg.OracleModel)
	s.Equal(30, cfg.CheckIntervalSeconds)
	s.Equal(DefaultSnoozeMinutes, cfg.SnoozeMinutes)
	s.Equal(DefaultWhitelistMinutes, cfg.WhitelistMinutes)
	s.Equal(DefaultStrictMinutes, cfg.StrictMinutes)
	s.Equal(1.0, cfg.MiningRatePerMinute)
	s.Equal(-50.0, cfg.BankruptcyThreshold)
	s.Equal(60, cfg.ConfidenceThreshold)
	s.Equal(4, cfg.MaxConns)
	s.Equal(DefaultWorkKeywords, cfg.WorkKeywords)
	s.Equal(DefaultDistractionKeywords, cfg.DistractionKeywords)
}

// TestDataDir tests data directory path.
func (s *ConfigSuite) TestDataDir() {
	dir := DataDir()
	s.Contains(dir, ".vigil")
}

// TestDBPath tests database path.
func (s *ConfigSuite) TestDBPath() {
	path := DBPath()
	s.Contains(path, "vigil.db")
}

// TestSettingsPath tests settings file path.
func (s *ConfigSuite) TestSettingsPath() {
	path := SettingsPath()
	s.Contains(path, "settings.yaml")
}

// TestEnsureDataDir tests data directory creation.
func (s *ConfigSuite) TestEnsureDataDir() {
	err := EnsureDataDir()
	s.NoError(err)

	dir := DataDir()
	info, err := os.Stat(dir)
	s.NoError(err)
	s.True(info.IsDir())
}

// TestEnsureSettings tests settings file creation.
func (s *ConfigSuite) TestEnsureSettings() {
	err := EnsureDataDir()
	s.NoError(err)

	err = EnsureSettings()
	s.NoError(err)

	path := SettingsPath()
	info, err := os.Stat(path)
	s.NoError(err)
	s.False(info.IsDir())

	// Second call should not error (file exists)
	err = EnsureSettings()
	s.NoError(err)
}

// TestEnsureAll tests full initialization.
func (s *ConfigSuite) TestEnsureAll() {
	err := EnsureAll()
	s.NoError(err)

	_, err = os.Stat(DataDir())
	s.NoError(err)
	_, err = os.Stat(SettingsPath())
	s.NoError(err)
}

// TestLoad_TableDriven tests configuration loading with various scenarios.
func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name             string
		settingsYAML     string
		expectedURL      string
		expectedInterval int
		expectedSnooze   int
	}{
		{
			name:             "no settings file",
			settingsYAML:     "",
			expectedURL:      DefaultOracleURL,
			expectedInterval: 30,
			expectedSnooze:   DefaultSnoozeMinutes,
		},
		{
			name:             "custom oracle url",
			settingsYAML:     "VIGIL_ORACLE_URL: http://localhost:9999/api/chat",
			expectedURL:      "http://localhost:9999/api/chat",
			expectedInterval: 30,
			expectedSnooze:   DefaultSnoozeMinutes,
		},
		{
			name:             "custom interval",
			settingsYAML:     "VIGIL_CHECK_INTERVAL_SECONDS: 15",
			expectedURL:      DefaultOracleURL,
			expectedInterval: 15,
			expectedSnooze:   DefaultSnoozeMinutes,
		},
		{
			name: "multiple settings",
			settingsYAML: "VIGIL_ORACLE_URL: http://localhost:8080/api/chat\n" +
				"VIGIL_CHECK_INTERVAL_SECONDS: 45\n" +
				"VIGIL_SNOOZE_MINUTES: 20",
			expectedURL:      "http://localhost:8080/api/chat",
			expectedInterval: 45,
			expectedSnooze:   20,
		},
		{
			name:             "invalid YAML returns defaults",
			settingsYAML:     "{invalid: [",
			expectedURL:      DefaultOracleURL,
			expectedInterval: 30,
			expectedSnooze:   DefaultSnoozeMinutes,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			tempDir, err := os.MkdirTemp("", "config-test-*")
			s.Require().NoError(err)
			defer os.RemoveAll(tempDir)

			os.Setenv("HOME", tempDir)

			err = os.MkdirAll(filepath.Join(tempDir, ".vigil"), 0750)
			s.Require().NoError(err)

			if tt.settingsYAML != "" {
				writeErr := os.WriteFile(
					filepath.Join(tempDir, ".vigil", "settings.yaml"),
					[]byte(tt.settingsYAML),
					0600,
				)
				s.Require().NoError(writeErr)
			}

			cfg, err := Load()
			s.NoError(err)
			s.NotNil(cfg)
			s.Equal(tt.expectedURL, cfg.OracleURL)
			s.Equal(tt.expectedInterval, cfg.CheckIntervalSeconds)
			s.Equal(tt.expectedSnooze, cfg.SnoozeMinutes)
		})
	}
}

// TestLoad_EnvOverride tests environment overrides winning over file settings.
func TestLoad_EnvOverride(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-env-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	origHome := os.Getenv("HOME")
	os.Setenv("HOME", tempDir)
	defer os.Setenv("HOME", origHome)

	err = os.MkdirAll(filepath.Join(tempDir, ".vigil"), 0750)
	require.NoError(t, err)

	err = os.WriteFile(
		filepath.Join(tempDir, ".vigil", "settings.yaml"),
		[]byte("VIGIL_CHECK_INTERVAL_SECONDS: 45"),
		0600,
	)
	require.NoError(t, err)

	os.Setenv("VIGIL_CHECK_INTERVAL_SECONDS", "15")
	defer os.Unsetenv("VIGIL_CHECK_INTERVAL_SECONDS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.CheckIntervalSeconds)
}

// TestLoad_KeywordCSV tests keyword list overrides.
func TestLoad_KeywordCSV(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-kw-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	origHome := os.Getenv("HOME")
	os.Setenv("HOME", tempDir)
	defer os.Setenv("HOME", origHome)

	os.Setenv("VIGIL_WORK_KEYWORDS", "vim, emacs ,repl")
	defer os.Unsetenv("VIGIL_WORK_KEYWORDS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"vim", "emacs", "repl"}, cfg.WorkKeywords)
	assert.Equal(t, DefaultDistractionKeywords, cfg.DistractionKeywords)
}

// TestCheckInterval tests interval derivation.
func TestCheckInterval(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 30*time.Second, cfg.CheckInterval())

	cfg.CheckIntervalSeconds = 0
	assert.Equal(t, DefaultCheckInterval, cfg.CheckInterval())

	cfg.CheckIntervalSeconds = 90
	assert.Equal(t, 90*time.Second, cfg.CheckInterval())
}

// TestSplitTrim tests the splitTrim helper function.
func TestSplitTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "single value",
			input:    "youtube",
			expected: []string{"youtube"},
		},
		{
			name:     "multiple values",
			input:    "youtube,netflix,reddit",
			expected: []string{"youtube", "netflix", "reddit"},
		},
		{
			name:     "values with spaces",
			input:    " youtube , netflix , reddit ",
			expected: []string{"youtube", "netflix", "reddit"},
		},
		{
			name:     "empty values filtered",
			input:    "youtube,,netflix,,",
			expected: []string{"youtube", "netflix"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitTrim(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
