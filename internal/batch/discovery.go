package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/MeKo-Tech/platefinder/internal/utils"
)

// DiscoverImageFiles expands args into image paths. Directories are walked,
// descending into subdirectories only when recursive is set. Files named
// explicitly are kept when they pass the patterns. Paths found in one
// directory are returned in lexical order.
func DiscoverImageFiles(args []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var imageFiles []string
	seen := make(map[string]bool)

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			imageFiles = append(imageFiles, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			files, err := discoverInDirectory(arg, recursive, includePatterns, excludePatterns)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
		} else if shouldIncludeFile(arg, includePatterns, excludePatterns) {
			add(arg)
		}
	}

	return imageFiles, nil
}

// discoverInDirectory walks dir and collects matching files.
func discoverInDirectory(dir string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == dir {
				return nil
			}
			if !recursive || matchesAnyPattern(path, excludePatterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if shouldIncludeFile(path, includePatterns, excludePatterns) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

// shouldIncludeFile determines if a file should be included based on include/exclude patterns.
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	if matchesAnyPattern(path, excludePatterns) {
		return false
	}

	// Without include patterns every decodable image qualifies
	if len(includePatterns) == 0 {
		return utils.IsSupportedImage(path)
	}

	return matchesAnyPattern(path, includePatterns)
}

// matchesAnyPattern checks the base name of path against the glob patterns.
func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
