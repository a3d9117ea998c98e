// Package rules loads read-only JSON rule packs from disk and filters
// them by jurisdiction and category, per spec §6.
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adcompliance/auditor/internal/metrics"
	"github.com/adcompliance/auditor/internal/models"
	"github.com/rs/zerolog/log"
)

const commonCategory = "common"

// Repository lazily loads and caches rule packs keyed by
// (country, region, category). The cache is invalidated wholesale on any
// filesystem change under Root, via pipelineconfig.WatchRulePackRoot.
type Repository struct {
	root string

	mu    sync.RWMutex
	cache map[string][]models.Rule
}

func New(root string) *Repository {
	return &Repository{root: root, cache: make(map[string][]models.Rule)}
}

// Invalidate drops the entire cache. Call this from the fsnotify callback.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string][]models.Rule)
	metrics.RulePackInvalidationsTotal.Inc()
	log.Info().Msg("rule pack cache invalidated")
}

// Get returns the filtered rule set for (country, region, category).
// GCC carries an extra region directory level; other countries ignore
// region.
func (r *Repository) Get(country, region, category string) ([]models.Rule, error) {
	key := cacheKey(country, region, category)

	r.mu.RLock()
	if cached, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	rules, err := r.load(country, region, category)
	if err != nil {
		metrics.RulePackLoadsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.RulePackLoadsTotal.WithLabelValues("succeeded").Inc()

	r.mu.Lock()
	r.cache[key] = rules
	r.mu.Unlock()

	return rules, nil
}

func (r *Repository) load(country, region, category string) ([]models.Rule, error) {
	country = strings.ToLower(strings.TrimSpace(country))
	countryDir := filepath.Join(r.root, country)

	var dirs []string
	if country == "gcc" && region != "" {
		dirs = append(dirs, filepath.Join(countryDir, strings.ToLower(region), commonCategory))
		dirs = append(dirs, filepath.Join(countryDir, strings.ToLower(region), category))
	} else {
		dirs = append(dirs, filepath.Join(countryDir, commonCategory))
		dirs = append(dirs, filepath.Join(countryDir, category))
	}

	var rules []models.Rule
	for _, dir := range dirs {
		loaded, err := loadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("loading rule pack dir %s: %w", dir, err)
		}
		rules = append(rules, loaded...)
	}
	return rules, nil
}

func loadDir(dir string) ([]models.Rule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var rules []models.Rule
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable rule pack file")
			continue
		}
		var fileRules []models.Rule
		if err := json.Unmarshal(data, &fileRules); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping malformed rule pack file")
			continue
		}
		rules = append(rules, fileRules...)
	}
	return rules, nil
}

func cacheKey(country, region, category string) string {
	return strings.ToLower(country) + "|" + strings.ToLower(region) + "|" + strings.ToLower(category)
}
