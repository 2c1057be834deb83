// SPDX-License-Identifier: MIT
package gitpost

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/skaphos/gitpost/internal/config"
	"github.com/skaphos/gitpost/internal/discovery"
	"github.com/skaphos/gitpost/internal/dlog"
	"github.com/skaphos/gitpost/internal/engine"
	"github.com/skaphos/gitpost/internal/model"
	"github.com/skaphos/gitpost/internal/registry"
)

// loadConfig resolves and loads the active config. A missing config file
// is not an error: every command works against defaults until `gitpost
// init` writes one.
func loadConfig() (*config.Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	cfgPath, err := config.ResolveConfigPath(flagConfig, cwd)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, "", err
		}
		defaults := config.DefaultConfig()
		cfg = &defaults
	}
	return cfg, cfgPath, nil
}

// saveRegistry persists the registry to wherever the config keeps it:
// a standalone file when registry_path is set, otherwise inline in the
// config file itself.
func saveRegistry(cfg *config.Config, cfgPath string, reg *registry.Registry) error {
	if cfg.RegistryPath != "" {
		return registry.Save(reg, config.ResolveRegistryPath(cfgPath, cfg.RegistryPath))
	}
	cfg.Registry = reg
	return config.Save(cfg, cfgPath)
}

// requireRegistry returns the loaded registry or a hint to create one.
func requireRegistry(cfg *config.Config) (*registry.Registry, error) {
	if cfg.Registry == nil || len(cfg.Registry.Entries) == 0 {
		return nil, fmt.Errorf("no stores registered (run `gitpost init` in a repository or `gitpost discover --write`)")
	}
	return cfg.Registry, nil
}

// storeRoot resolves the repository root holding the store: the path
// argument when given, the working directory otherwise.
func storeRoot(ctx context.Context, arg string) (string, error) {
	path := arg
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		path = cwd
	}
	root, err := discovery.FindRepoRoot(ctx, nil, path)
	if err != nil {
		return "", fmt.Errorf("%s is not inside a git repository", path)
	}
	return root, nil
}

// openSession builds an engine session for the store rooted at root,
// configured from cfg. An empty remote falls back to the configured
// default. The caller owns Close.
func openSession(cfg *config.Config, root, remote string) *engine.Session {
	if remote == "" {
		remote = cfg.Defaults.RemoteName
	}
	return engine.NewSession(
		model.Handle{Path: root, Remote: remote},
		engine.WithSyncInterval(cfg.SyncInterval()),
		engine.WithOpTimeout(cfg.OpTimeout()),
		engine.WithLogger(sessionLogger()),
	)
}

// sessionLogger maps the CLI verbosity flags onto the engine's logger.
func sessionLogger() *zap.Logger {
	level := dlog.LevelNone
	switch {
	case flagQuiet:
		level = dlog.LevelNone
	case flagVerbose >= 2:
		level = dlog.LevelDebug
	case flagVerbose == 1:
		level = dlog.LevelInfo
	}
	log, err := dlog.GetLogger(level)
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// entryForSession records a session's current state as a registry entry.
// The store identity comes from the inspected status since the session
// itself only knows the handle.
func entryForSession(sess *engine.Session, status *model.StoreStatus) registry.Entry {
	access := string(model.AccessWritable)
	if sess.ReadOnly() {
		access = string(model.AccessReadOnly)
	}
	entry := registry.Entry{
		StoreID:      status.StoreID,
		Path:         sess.Handle().Path,
		RemoteURL:    status.RemoteURL,
		RemoteName:   sess.Handle().Remote,
		WorktreePath: sess.WorktreePath(),
		Access:       access,
		LastSeen:     time.Now(),
		Status:       registry.StatusPresent,
	}
	if last := sess.LastSync(); last != nil {
		entry.LastSyncAt = last.At
		entry.LastSyncOK = last.OK
	}
	return entry
}
