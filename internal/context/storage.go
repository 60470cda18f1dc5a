package context

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"alpaca/internal/client"
)

const (
	contextsFileName = "contexts.yaml"
	userConfigDir    = ".config/alpaca"
)

// Storage provides thread-safe access to contexts.yaml.
type Storage struct {
	mu         sync.RWMutex
	configPath string
	getenv     func(string) string
}

// NewStorage creates a Storage rooted at ~/.config/alpaca.
func NewStorage() (*Storage, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}
	return NewStorageWithPath(filepath.Join(homeDir, userConfigDir)), nil
}

// NewStorageWithPath creates a Storage rooted at configPath, the directory
// also given to --config-path.
func NewStorageWithPath(configPath string) *Storage {
	return &Storage{
		configPath: configPath,
		getenv:     os.Getenv,
	}
}

// Path returns the location of contexts.yaml.
func (s *Storage) Path() string {
	return filepath.Join(s.configPath, contextsFileName)
}

// Load reads contexts.yaml. A missing file yields an empty ContextConfig.
func (s *Storage) Load() (*ContextConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadLocked()
}

func (s *Storage) loadLocked() (*ContextConfig, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ContextConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read contexts file: %w", err)
	}

	var config ContextConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse contexts file %s: %w", s.Path(), err)
	}
	return &config, nil
}

// Save writes config to contexts.yaml, creating the directory if needed.
func (s *Storage) Save(config *ContextConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(config)
}

func (s *Storage) saveLocked(config *ContextConfig) error {
	if err := os.MkdirAll(s.configPath, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal contexts config: %w", err)
	}

	// Contexts may carry passwords.
	if err := os.WriteFile(s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write contexts file: %w", err)
	}
	return nil
}

// update loads the file, applies fn and saves the result under the write lock.
func (s *Storage) update(fn func(*ContextConfig) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, err := s.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(config); err != nil {
		return err
	}
	return s.saveLocked(config)
}

// GetCurrentContext returns the current context, or nil when none is set
// or the name no longer resolves.
func (s *Storage) GetCurrentContext() (*Context, error) {
	config, err := s.Load()
	if err != nil {
		return nil, err
	}
	if config.CurrentContext == "" {
		return nil, nil
	}
	return config.GetContext(config.CurrentContext), nil
}

// GetCurrentContextName returns the current context name, "" if unset.
func (s *Storage) GetCurrentContextName() (string, error) {
	config, err := s.Load()
	if err != nil {
		return "", err
	}
	return config.CurrentContext, nil
}

// SetCurrentContext makes name the current context.
func (s *Storage) SetCurrentContext(name string) error {
	return s.update(func(config *ContextConfig) error {
		if !config.HasContext(name) {
			return &ContextNotFoundError{Name: name}
		}
		config.CurrentContext = name
		return nil
	})
}

// AddContext adds a new context. The connection needs at least a host.
func (s *Storage) AddContext(name string, conn client.Connection, settings *ContextSettings) error {
	if err := ValidateContextName(name); err != nil {
		return err
	}
	if conn.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	return s.update(func(config *ContextConfig) error {
		if config.HasContext(name) {
			return fmt.Errorf("context %q already exists", name)
		}
		config.AddOrUpdateContext(Context{Name: name, Connection: conn, Settings: settings})
		return nil
	})
}

// UpdateContext replaces the connection and settings of an existing context.
func (s *Storage) UpdateContext(name string, conn client.Connection, settings *ContextSettings) error {
	return s.update(func(config *ContextConfig) error {
		if !config.HasContext(name) {
			return &ContextNotFoundError{Name: name}
		}
		config.AddOrUpdateContext(Context{Name: name, Connection: conn, Settings: settings})
		return nil
	})
}

// DeleteContext removes a context by name.
func (s *Storage) DeleteContext(name string) error {
	return s.update(func(config *ContextConfig) error {
		if !config.RemoveContext(name) {
			return &ContextNotFoundError{Name: name}
		}
		return nil
	})
}

// ListContexts returns all contexts sorted by name.
func (s *Storage) ListContexts() ([]Context, error) {
	config, err := s.Load()
	if err != nil {
		return nil, err
	}
	contexts := append([]Context(nil), config.Contexts...)
	sort.Slice(contexts, func(i, j int) bool { return contexts[i].Name < contexts[j].Name })
	return contexts, nil
}

// GetContext returns the named context, or nil if it does not exist.
func (s *Storage) GetContext(name string) (*Context, error) {
	config, err := s.Load()
	if err != nil {
		return nil, err
	}
	return config.GetContext(name), nil
}

// GetContextNames returns all context names, for shell completion.
func (s *Storage) GetContextNames() ([]string, error) {
	contexts, err := s.ListContexts()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(contexts))
	for i, ctx := range contexts {
		names[i] = ctx.Name
	}
	return names, nil
}

// Select picks the context for a command: the explicit name (--context)
// first, then ALPACA_CONTEXT, then current-context. It returns nil without
// error when none of them is set. An explicit or environment name that does
// not exist is an error; a dangling current-context is ignored.
func (s *Storage) Select(explicit string) (*Context, error) {
	name := explicit
	if name == "" {
		name = s.getenv(ContextEnvVar)
	}
	if name == "" {
		return s.GetCurrentContext()
	}

	ctx, err := s.GetContext(name)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		return nil, &ContextNotFoundError{Name: name}
	}
	return ctx, nil
}
