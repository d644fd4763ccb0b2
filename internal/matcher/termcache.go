// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matcher

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

const (
	termCacheTTL      = 30 * time.Minute
	termCacheCapacity = 64
)

// termSets caches TermSets built from term files so that every dictionary
// built from the same file and settings shares one read-only set. Keys
// include the file's modification time, so an edited file is re-read.
var termSets = ttlcache.New[string, *TermSet](
	ttlcache.WithTTL[string, *TermSet](termCacheTTL),
	ttlcache.WithCapacity[string, *TermSet](termCacheCapacity),
)

// termLoads collapses concurrent reads of the same term file.
var termLoads singleflight.Group

// loadTermSet returns the TermSet for path merged with inline terms.
func loadTermSet(path string, inline []string, minLen int, ignoreCase bool) (*TermSet, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving terms file %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("reading terms file %s: %w", path, err)
	}

	key := fmt.Sprintf("%s@%d|%t|%d|%x", abs, info.ModTime().UnixNano(), ignoreCase, minLen,
		xxhash.Sum64String(strings.Join(inline, "\n")))
	if item := termSets.Get(key); item != nil {
		return item.Value(), nil
	}

	v, err, _ := termLoads.Do(key, func() (any, error) {
		terms, err := readTerms(abs)
		if err != nil {
			return nil, err
		}
		terms = append(terms, inline...)
		set := NewTermSet(FilterTerms(terms, minLen), ignoreCase)
		termSets.Set(key, set, ttlcache.DefaultTTL)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TermSet), nil
}

// readTerms reads one term per line. Blank lines and lines starting with
// '#' are skipped. For tab-separated files only the first column is used.
func readTerms(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening terms file %s: %w", path, err)
	}
	defer f.Close()

	var terms []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if tab := strings.IndexByte(line, '\t'); tab >= 0 {
			line = strings.TrimSpace(line[:tab])
		}
		if line != "" {
			terms = append(terms, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading terms file %s: %w", path, err)
	}
	return terms, nil
}
