// Package pdf turns PDF documents into recognition inputs by extracting the
// embedded page images. Invoices and statements frequently arrive as PDFs
// rather than photos.
package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/fleetlens/fleetlens/internal/recognize"
)

// ExtractInputs extracts every embedded image from the PDF and returns them
// as ordered recognition inputs: ascending page number, then image index
// within the page. The ordering matters because it fixes merge priority for
// the batch built from the document.
func ExtractInputs(filename string, pageRange string) ([]recognize.Input, error) {
	pages, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "fleetlens-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}

	if err := api.ExtractImagesFile(filename, tempDir, selected, nil); err != nil {
		return nil, fmt.Errorf("extract images from PDF: %w", err)
	}

	return collectInputs(tempDir)
}

// pageImage orders extracted files by their position in the document.
type pageImage struct {
	page  int
	index int
	path  string
}

// collectInputs loads the extracted image files in document order.
func collectInputs(dir string) ([]recognize.Input, error) {
	var found []pageImage

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		page, index, perr := parseImageFilename(info.Name())
		if perr != nil {
			// Not an extracted page image; skip.
			return nil
		}
		found = append(found, pageImage{page: page, index: index, path: path})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].page != found[j].page {
			return found[i].page < found[j].page
		}
		return found[i].index < found[j].index
	})

	inputs := make([]recognize.Input, 0, len(found))
	for _, f := range found {
		data, err := os.ReadFile(f.path)
		if err != nil {
			// Unreadable extraction artifact; skip rather than fail the batch.
			continue
		}
		inputs = append(inputs, recognize.Input{Data: data})
	}
	return inputs, nil
}

// parseImageFilename decodes pdfcpu's page_<num>_image_<idx>.<ext> naming
// (older pdfcpu releases emit <base>_<page>_Im<idx>.<ext>, also accepted).
func parseImageFilename(filename string) (page, index int, err error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return 0, 0, errors.New("not a page image file")
	}

	if parts[0] == "page" && len(parts) >= 4 {
		page, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, errors.New("invalid page number")
		}
		index, err = strconv.Atoi(parts[3])
		if err != nil {
			index = 0
		}
		return page, index, nil
	}

	// Fallback: second-to-last token is the page, last is ImN.
	last := parts[len(parts)-1]
	pageTok := parts[len(parts)-2]
	page, err = strconv.Atoi(pageTok)
	if err != nil {
		return 0, 0, errors.New("invalid page number")
	}
	index, _ = strconv.Atoi(strings.TrimPrefix(last, "Im"))
	return page, index, nil
}

// parsePageRange parses "1-5" or "1,3,5" style ranges. Empty means all pages.
func parsePageRange(pageRange string) ([]int, error) {
	if pageRange == "" {
		return nil, nil
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

// parseRangeToken parses a single page ("3") or a range ("1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", bounds[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", bounds[1])
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
	page, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}
