package datasource

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/podds"
	"github.com/richard-senior/matchpredict/pkg/store"
	"github.com/richard-senior/matchpredict/pkg/transport"
)

// SQLitePrefix marks a source that names a sqlite store rather than a file
const SQLitePrefix = "sqlite:"

// DefaultCacheTTL is how long a downloaded file is reused
const DefaultCacheTTL = 12 * time.Hour

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Loader resolves a source string (file path, http(s) url or sqlite:path)
// into match records
type Loader struct {
	CacheDir string
	CacheTTL time.Duration
	Client   *http.Client
}

func NewLoader(cacheDir string) *Loader {
	return &Loader{CacheDir: cacheDir, CacheTTL: DefaultCacheTTL}
}

// Load reads every record from source
func (l *Loader) Load(ctx context.Context, source string) ([]podds.MatchRecord, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return nil, fmt.Errorf("no data source given")
	case strings.HasPrefix(source, SQLitePrefix):
		return loadStore(strings.TrimPrefix(source, SQLitePrefix))
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		data, err := l.fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		return Parse(data, path.Ext(strings.SplitN(source, "?", 2)[0]))
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", source, err)
		}
		return Parse(data, filepath.Ext(source))
	}
}

// Parse picks the HTML or CSV parser from the extension, sniffing the content when unsure
func Parse(data []byte, ext string) ([]podds.MatchRecord, error) {
	switch strings.ToLower(ext) {
	case ".html", ".htm":
		return ParseHTML(bytes.NewReader(data))
	case ".csv":
		return ParseCSV(bytes.NewReader(data))
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("<")) {
		return ParseHTML(bytes.NewReader(data))
	}
	return ParseCSV(bytes.NewReader(data))
}

// fetch downloads url, reusing a cached copy younger than CacheTTL
func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	cacheFile := l.cacheFile(url)
	if cacheFile != "" {
		if fi, err := os.Stat(cacheFile); err == nil && time.Since(fi.ModTime()) < l.CacheTTL {
			if data, err := os.ReadFile(cacheFile); err == nil {
				logger.Debug("Returning data from cached file for", url)
				return data, nil
			}
		}
	}

	logger.Info("Fetching match data from", url)
	client := l.Client
	if client == nil {
		client = transport.GetCustomHTTPClient()
	}
	data, err := transport.FetchWith(ctx, client, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from external source: %w", err)
	}

	if cacheFile != "" {
		if err := os.MkdirAll(l.CacheDir, 0o755); err != nil {
			logger.Warn("Failed to create cache directory", l.CacheDir, err)
		} else if err := os.WriteFile(cacheFile, data, 0o644); err != nil {
			logger.Warn("Failed to write cache file", cacheFile, err)
		} else {
			logger.Info("Cached data to", cacheFile)
		}
	}
	return data, nil
}

func (l *Loader) cacheFile(url string) string {
	if l.CacheDir == "" || l.CacheTTL <= 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(url))
	base := unsafeChars.ReplaceAllString(path.Base(strings.SplitN(url, "?", 2)[0]), "_")
	return filepath.Join(l.CacheDir, hex.EncodeToString(sum[:6])+"-"+base)
}

func loadStore(dbPath string) ([]podds.MatchRecord, error) {
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.LoadMatches(store.MatchFilter{})
}
