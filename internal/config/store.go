package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"gopkg.in/ini.v1"
)

// Store holds the session settings and persists them as an INI file.
//
// INI format:
//
//	[server]
//	url = https://files.example.com/index.php
//	username = alice
//	password = secret
//
//	[network]
//	proxy_mode = no-proxy
//	proxy_host =
//	proxy_port = 0
//	proxy_user =
//	proxy_password =
//	no_proxy =
//	proxy_warmup = false
//
//	[staging]
//	dir = /tmp/eft-staging
//
// Safe for concurrent use. Readers get copies.
type Store struct {
	mu       sync.RWMutex
	path     string
	settings Settings
}

// NewStore creates an in-memory store backed by path (not read).
func NewStore(path string, s Settings) *Store {
	return &Store{path: path, settings: s}
}

// LoadStore reads the settings file at path.
// If the file doesn't exist, returns a store with empty settings and no error.
// If the file exists but is invalid, returns an error.
func LoadStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultSettingsPath()
	}
	st := &Store{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return st, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	server := iniFile.Section("server")
	st.settings.ServerURL = server.Key("url").String()
	st.settings.Username = server.Key("username").String()
	st.settings.Password = server.Key("password").String()

	network := iniFile.Section("network")
	st.settings.Proxy.Mode = network.Key("proxy_mode").MustString("no-proxy")
	st.settings.Proxy.Host = network.Key("proxy_host").String()
	st.settings.Proxy.Port = network.Key("proxy_port").MustInt(0)
	st.settings.Proxy.User = network.Key("proxy_user").String()
	st.settings.Proxy.Password = network.Key("proxy_password").String()
	st.settings.Proxy.NoProxy = network.Key("no_proxy").String()
	st.settings.Proxy.Warmup = network.Key("proxy_warmup").MustBool(false)

	st.settings.StagingDir = iniFile.Section("staging").Key("dir").String()

	return st, nil
}

// Path returns the file the store saves to.
func (s *Store) Path() string {
	return s.path
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Credentials returns a snapshot of the server URL and login pair.
func (s *Store) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Credentials
}

// StagingDir returns the configured staging directory or the default.
func (s *Store) StagingDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings.StagingDir == "" {
		return DefaultStagingDirectory()
	}
	return s.settings.StagingDir
}

// SetCredentials replaces the server URL and login pair.
func (s *Store) SetCredentials(c Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Credentials = c
}

// Update applies fn to the settings under the write lock.
func (s *Store) Update(fn func(*Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.settings)
}

// Save writes the settings file.
// Creates parent directories if they don't exist. The password is stored in
// the file, so it is written with owner-only permissions.
func (s *Store) Save() error {
	settings := s.Settings()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	server, err := iniFile.NewSection("server")
	if err != nil {
		return fmt.Errorf("failed to create server section: %w", err)
	}
	server.Key("url").SetValue(settings.ServerURL)
	server.Key("username").SetValue(settings.Username)
	server.Key("password").SetValue(settings.Password)

	network, err := iniFile.NewSection("network")
	if err != nil {
		return fmt.Errorf("failed to create network section: %w", err)
	}
	network.Key("proxy_mode").SetValue(settings.Proxy.Mode)
	network.Key("proxy_host").SetValue(settings.Proxy.Host)
	network.Key("proxy_port").SetValue(strconv.Itoa(settings.Proxy.Port))
	network.Key("proxy_user").SetValue(settings.Proxy.User)
	network.Key("proxy_password").SetValue(settings.Proxy.Password)
	network.Key("no_proxy").SetValue(settings.Proxy.NoProxy)
	network.Key("proxy_warmup").SetValue(strconv.FormatBool(settings.Proxy.Warmup))

	staging, err := iniFile.NewSection("staging")
	if err != nil {
		return fmt.Errorf("failed to create staging section: %w", err)
	}
	staging.Key("dir").SetValue(settings.StagingDir)

	// Temporary file + rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set settings permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}
