// Package file implements the repository contracts against a plain
// directory tree: one JSON document per entity plus a *_state.json
// file enumerating enabled/disabled paths, per spec.md §4.1 File
// backend and §6 File layout. GetState re-reads the entity files on
// every call, so it reflects writes from sibling processes sharing the
// same data directory; the fsnotify watcher over servers/ and agents/
// only drains and discards its events.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
)

// Store is the shared filesystem handle every entity-kind repository
// in this package reads and writes through.
type Store struct {
	root    string
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu sync.Mutex
}

// Open ensures the well-known subdirectories exist under cfg.FileBackendDir
// and starts an fsnotify watcher over them.
func Open(cfg *config.Config, logger *zap.Logger) (*Store, error) {
	root := cfg.FileBackendDir
	for _, sub := range []string{"servers", "agents", "security_scans", "scopes", "federation"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s directory: %w", sub, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("starting file watcher: %w", err)
	}
	for _, sub := range []string{"servers", "agents"} {
		if err := watcher.Add(filepath.Join(root, sub)); err != nil {
			logger.Warn("failed to watch directory for sibling-process changes", zap.String("dir", sub), zap.Error(err))
		}
	}

	s := &Store{root: root, logger: logger, watcher: watcher}
	go s.drainWatcherEvents()
	return s, nil
}

// drainWatcherEvents discards fsnotify events; callers re-read state
// files on every GetState call rather than caching, so the watcher
// only needs to keep its internal buffer from filling.
func (s *Store) drainWatcherEvents() {
	for {
		select {
		case _, ok := <-s.watcher.Events:
			if !ok {
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (s *Store) Close() error {
	return s.watcher.Close()
}

// pathToFilename implements spec.md §4.1's mapping: strip leading
// slash, replace / with _, append .json (or _agent.json for agents).
func pathToFilename(path string, agent bool) string {
	trimmed := strings.TrimPrefix(path, "/")
	flattened := strings.ReplaceAll(trimmed, "/", "_")
	if agent {
		return flattened + "_agent.json"
	}
	return flattened + ".json"
}

func (s *Store) serversDir() string { return filepath.Join(s.root, "servers") }
func (s *Store) agentsDir() string  { return filepath.Join(s.root, "agents") }

func (s *Store) serverPath(path string) string {
	return filepath.Join(s.serversDir(), pathToFilename(path, false))
}

func (s *Store) agentPath(path string) string {
	return filepath.Join(s.agentsDir(), pathToFilename(path, true))
}

func (s *Store) scopesDir() string     { return filepath.Join(s.root, "scopes") }
func (s *Store) federationDir() string { return filepath.Join(s.root, "federation") }

func (s *Store) scopePath(name string) string {
	return filepath.Join(s.scopesDir(), pathToFilename(name, false))
}

func (s *Store) federationPath(name string) string {
	return filepath.Join(s.federationDir(), pathToFilename(name, false))
}

func (s *Store) scansDir() string {
	return filepath.Join(s.root, "security_scans")
}

func (s *Store) serverStatePath() string  { return filepath.Join(s.root, "servers", "server_state.json") }
func (s *Store) agentStatePath() string   { return filepath.Join(s.root, "agents", "agent_state.json") }

type stateFile struct {
	Enabled  []string `json:"enabled"`
	Disabled []string `json:"disabled"`
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func listJSONFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, "_state.json") {
			continue
		}
		if suffix != "" && !strings.HasSuffix(name, suffix) {
			continue
		}
		if suffix == "" && strings.HasSuffix(name, "_agent.json") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}
