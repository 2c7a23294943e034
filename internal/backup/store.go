// Package backup persists one immutable JSON artifact per reporting period
// and reads back the previous period's seen-set.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"jubo/internal/commontypes"
)

type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// LoadLatestSeen returns the seen-set from the newest artifact that parses.
// Corrupt artifacts are skipped; if nothing parses the set is empty and the
// run treats every fetched message as new (cold start).
func (s *Store) LoadLatestSeen() map[string]struct{} {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Info("No backup directory yet, starting fresh", zap.String("dir", s.dir))
		return map[string]struct{}{}
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	// Artifact names are period start dates, so lexical order is date order.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, name := range names {
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("Skipping unreadable backup", zap.String("file", name), zap.Error(err))
			continue
		}
		var b commontypes.Backup
		if err := json.Unmarshal(data, &b); err != nil {
			s.logger.Warn("Skipping corrupt backup", zap.String("file", name), zap.Error(err))
			continue
		}
		seen := make(map[string]struct{}, len(b.SeenTs))
		for _, ts := range b.SeenTs {
			seen[ts] = struct{}{}
		}
		s.logger.Info("Previous backup loaded",
			zap.String("file", name),
			zap.Int("seen_ts", len(seen)))
		return seen
	}

	s.logger.Info("No previous backup found, starting fresh")
	return map[string]struct{}{}
}

// Save writes the artifact for a period, keyed by the period's start date.
// Artifacts are written once and never merged or rewritten in place.
func (s *Store) Save(periodKey string, b commontypes.Backup) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup dir: %w", err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding backup: %w", err)
	}
	path := filepath.Join(s.dir, periodKey+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	return path, nil
}
