// Package pdf pulls the embedded raster images out of PDF documents so that
// scanned or photographed pages can be searched for plates.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ExtractImages extracts all images from a PDF file using pdfcpu's extract
// functionality. Images are grouped by 1-based page number and kept in the
// order pdfcpu wrote them.
func ExtractImages(filename string, pageRange string) (map[int][]image.Image, error) {
	pageNumbers, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "platefinder-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	if len(pageNumbers) > 0 {
		pageStrings = make([]string, len(pageNumbers))
		for i, pageNum := range pageNumbers {
			pageStrings[i] = strconv.Itoa(pageNum)
		}
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	result, err := collectExtractedImages(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}

	return result, nil
}

// PageCount returns the number of pages of the document.
func PageCount(filename string) (int, error) {
	n, err := api.PageCountFile(filename)
	if err != nil {
		return 0, fmt.Errorf("count pages of %s: %w", filename, err)
	}
	return n, nil
}

// collectExtractedImages walks dir and groups the decodable images by page.
func collectExtractedImages(dir string) (map[int][]image.Image, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	result := make(map[int][]image.Image)
	for _, path := range names {
		pageNum, err := parsePageFromFilename(filepath.Base(path))
		if err != nil {
			continue
		}
		img, _, err := utils.LoadImage(path)
		if err != nil {
			// Masks and exotic color spaces come out undecodable
			continue
		}
		result[pageNum] = append(result[pageNum], img)
	}
	return result, nil
}

// parsePageFromFilename extracts the page number from an extracted image
// name. pdfcpu writes <document>_<page>_<resource>.<ext>; the older
// page_<page>_image_<idx>.<ext> layout is accepted as well.
func parsePageFromFilename(filename string) (int, error) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return 0, errors.New("not a page image file")
	}

	field := parts[len(parts)-2]
	if parts[0] == "page" {
		field = parts[1]
	}

	pageNum, err := strconv.Atoi(field)
	if err != nil || pageNum < 1 {
		return 0, fmt.Errorf("invalid page number in %q", filename)
	}
	return pageNum, nil
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil // Empty means all pages
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}

	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := parsePage(rangeParts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := parsePage(rangeParts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := parsePage(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("page %d out of range", n)
	}
	return n, nil
}
