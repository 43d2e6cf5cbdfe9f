package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys lists every valid dotted key in the config file, kept in sync
// with the struct tags in config.go.
var knownKeys = map[string]bool{
	"source.path": true,
	"backend.binary": true, "backend.domain": true, "backend.use_sso": true,
	"backend.host": true, "backend.call_timeout": true,
	"personal.enabled": true, "personal.name": true, "personal.letter": true, "personal.path": true,
	"auth.provider": true, "auth.tenant_id": true, "auth.client_id": true,
	"auth.upn_suffix": true, "auth.token_url": true, "auth.graph_url": true,
	"auth.retry_attempts": true,
	"reconcile.cleanup_foreign": true, "reconcile.verify_mount": true,
	"reconcile.verify_interval": true, "reconcile.verify_budget": true,
	"logging.level": true, "logging.file": true, "logging.max_size_mb": true,
	"logging.max_backups": true,
	"journal.enabled": true, "journal.path": true,
	"install.download_page": true, "install.marker_path": true,
	"install.firewall_tcp": true, "install.firewall_udp": true,
}

// knownKeysList is the sorted slice form for Levenshtein matching. Sorted
// for deterministic suggestions when two candidates tie.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns an
// error with a "did you mean?" suggestion for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	for _, key := range undecoded {
		keyStr := key.String()

		suggestion := closestMatch(keyStr, knownKeysList)
		if suggestion != "" {
			errs = append(errs, fmt.Errorf("unknown config key %q — did you mean %q?", keyStr, suggestion))
			continue
		}

		errs = append(errs, fmt.Errorf("unknown config key %q", keyStr))
	}

	return errors.Join(errs...)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
// Keys in the same section compare on the leaf name so that
// "backend.binari" suggests "backend.binary" rather than nothing.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(leafOf(unknown, k), strings.TrimPrefix(k, sectionOf(unknown)))
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// sectionOf returns the "section." prefix of a dotted key, or "".
func sectionOf(key string) string {
	if i := strings.Index(key, "."); i >= 0 {
		return key[:i+1]
	}

	return ""
}

// leafOf strips the unknown key's section prefix when it matches the
// candidate's, so distances are computed between leaf names.
func leafOf(unknown, candidate string) string {
	sec := sectionOf(unknown)
	if sec != "" && strings.HasPrefix(candidate, sec) {
		return strings.TrimPrefix(unknown, sec)
	}

	return unknown
}

// levenshtein computes the edit distance between two strings using the
// single-row optimization.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
