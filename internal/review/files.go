package review

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nhle/threadboard/internal/mailparse"
)

// Orders accepted by ListMessages.
const (
	OrderDate = "date"
	OrderName = "name"
)

// ListMessages returns the message files of dir in a stable order. Only
// regular, non-hidden files directly inside dir count. A Maildir folder
// (one holding cur/ and new/) is expanded to the files of both.
//
// OrderDate sorts by Date header, oldest first, with undated files first
// and ties broken by file name. OrderName sorts by file name alone.
func ListMessages(dir, order string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	dirs := []string{dir}
	if isMaildir(dir) {
		dirs = []string{filepath.Join(dir, "cur"), filepath.Join(dir, "new")}
	}

	var files []string
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", d, err)
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			files = append(files, filepath.Join(d, e.Name()))
		}
	}

	switch order {
	case OrderName, "":
		sort.SliceStable(files, func(i, j int) bool { return lessByName(files[i], files[j]) })
	case OrderDate:
		sortByDate(files)
	default:
		return nil, fmt.Errorf("unknown review order %q", order)
	}
	return files, nil
}

func isMaildir(dir string) bool {
	for _, sub := range []string{"cur", "new"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

func lessByName(a, b string) bool {
	if ba, bb := filepath.Base(a), filepath.Base(b); ba != bb {
		return ba < bb
	}
	return a < b
}

func sortByDate(files []string) {
	dates := make(map[string]time.Time, len(files))
	for _, f := range files {
		dates[f] = headerDate(f)
	}
	sort.SliceStable(files, func(i, j int) bool {
		di, dj := dates[files[i]], dates[files[j]]
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return lessByName(files[i], files[j])
	})
}

// headerDate returns the Date header of path, or the zero time when the
// file cannot be read or has no usable date.
func headerDate(path string) time.Time {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}
	}
	defer f.Close()
	s, err := mailparse.ReadHeaderSummary(f)
	if err != nil {
		return time.Time{}
	}
	return s.Date
}

// maildirKey is a file name without its Maildir info suffix, so
// "1700000000.M1.host:2,S" and "1700000000.M1.host" share a key.
func maildirKey(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

// Relocate finds a message file that was renamed after the scan, as mail
// clients do when they move a message from new/ to cur/ or change its
// flags. It searches the file's own directory and, inside a Maildir,
// the sibling cur/ and new/ directories.
func Relocate(path string) (string, bool) {
	dir, key := filepath.Dir(path), maildirKey(filepath.Base(path))
	dirs := []string{dir}
	if base := filepath.Base(dir); base == "cur" || base == "new" {
		root := filepath.Dir(dir)
		dirs = []string{filepath.Join(root, "cur"), filepath.Join(root, "new")}
	}
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil {
			continue
		}
		for _, e := range entries {
			candidate := filepath.Join(d, e.Name())
			if e.Type().IsRegular() && candidate != path && maildirKey(e.Name()) == key {
				return candidate, true
			}
		}
	}
	return "", false
}
