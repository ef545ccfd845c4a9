package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/flowscribe/internal/metrics"
)

// Partition is an isolated storage namespace selected by payload shape.
type Partition string

const (
	// PartitionText holds structured chat/vision responses as JSON.
	PartitionText Partition = "text"
	// PartitionImages holds image-generation responses as msgpack.
	PartitionImages Partition = "images"
)

// Partitions returns every partition in a stable order.
func Partitions() []Partition {
	return []Partition{PartitionText, PartitionImages}
}

// PartitionFor returns the partition a request kind is stored in. Image
// generation goes to PartitionImages; every other kind is structured text.
func PartitionFor(kind string) Partition {
	if kind == "image" {
		return PartitionImages
	}
	return PartitionText
}

// ParsePartition maps a partition name to a Partition.
func ParsePartition(name string) (Partition, error) {
	switch Partition(name) {
	case PartitionText, PartitionImages:
		return Partition(name), nil
	default:
		return "", fmt.Errorf("unknown cache partition %q (want %q or %q)", name, PartitionText, PartitionImages)
	}
}

// Entry is the persisted unit of memoization.
type Entry struct {
	Timestamp     time.Time `json:"timestamp" msgpack:"timestamp"`
	RequestParams Params    `json:"request_params" msgpack:"request_params"`
	Response      any       `json:"response" msgpack:"response"`
}

// Stats reports what is on disk at the time of the call.
type Stats struct {
	Dir        string  `json:"dir"`
	TextCount  int     `json:"text_cache_count"`
	ImageCount int     `json:"image_cache_count"`
	TotalCount int     `json:"total_cached_items"`
	TotalBytes int64   `json:"total_size_bytes"`
	TotalMB    float64 `json:"total_size_mb"`
}

// Options configures a Store.
type Options struct {
	Enabled bool
	// Dir is the cache root. Empty selects the platform cache directory.
	Dir     string
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Store is a file-per-entry response cache.
type Store struct {
	dir     string
	enabled bool
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Store and its partition directories.
func New(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if !opts.Enabled {
		return &Store{enabled: false, logger: logger, metrics: opts.Metrics}, nil
	}
	dir := opts.Dir
	if dir == "" {
		d, err := defaultCacheDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	for _, p := range Partitions() {
		if err := os.MkdirAll(filepath.Join(dir, string(p)), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	return &Store{
		dir:     dir,
		enabled: true,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Get returns the cached response for params in partition p. Missing,
// unreadable and malformed entries all report a miss.
func (s *Store) Get(params Params, p Partition) (any, bool) {
	if !s.enabled {
		return nil, false
	}
	c, err := codecFor(p)
	if err != nil {
		s.logger.Warn("cache lookup skipped", zap.Error(err))
		return nil, false
	}
	key, err := Fingerprint(params)
	if err != nil {
		s.logger.Warn("cache lookup skipped", zap.String("partition", string(p)), zap.Error(err))
		return nil, false
	}
	log := s.logger.With(zap.String("partition", string(p)), zap.String("key", shortKey(key)))

	data, err := os.ReadFile(s.entryPath(key, p, c))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("cache miss")
			s.metrics.ObserveLookup(string(p), metrics.LookupMiss)
			return nil, false
		}
		log.Warn("cache entry unreadable, will regenerate", zap.Error(err))
		s.metrics.ObserveLookup(string(p), metrics.LookupCorrupt)
		return nil, false
	}

	var entry Entry
	if err := c.unmarshal(data, &entry); err != nil {
		log.Warn("cache entry corrupted, will regenerate", zap.Error(err))
		s.metrics.ObserveLookup(string(p), metrics.LookupCorrupt)
		return nil, false
	}
	if entry.Response == nil {
		log.Warn("cache entry has no response, will regenerate")
		s.metrics.ObserveLookup(string(p), metrics.LookupCorrupt)
		return nil, false
	}

	log.Info("cache hit")
	s.metrics.ObserveLookup(string(p), metrics.LookupHit)
	return entry.Response, true
}

// Set stores response for params in partition p, replacing any existing
// entry. A failed write is logged and returned; the store remains usable and
// the entry simply stays uncached.
func (s *Store) Set(params Params, response any, p Partition) error {
	if !s.enabled {
		return nil
	}
	err := s.write(params, response, p)
	s.metrics.ObserveWrite(string(p), err)
	if err != nil {
		s.logger.Warn("failed to cache response", zap.String("partition", string(p)), zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) write(params Params, response any, p Partition) error {
	c, err := codecFor(p)
	if err != nil {
		return err
	}
	key, err := Fingerprint(params)
	if err != nil {
		return err
	}
	data, err := c.marshal(Entry{
		Timestamp:     time.Now(),
		RequestParams: params,
		Response:      response,
	})
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	dir := s.partitionDir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	// Write to a temp file in the same directory, then rename over the entry.
	tmp, err := os.CreateTemp(dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing cache entry: %w", err)
	}
	if err := os.Rename(tmpPath, s.entryPath(key, p, c)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming cache entry: %w", err)
	}

	s.logger.Info("cached response", zap.String("partition", string(p)), zap.String("key", shortKey(key)))
	return nil
}

// Clear removes every entry in the given partitions, or in all partitions
// when none are named, and returns the number of entries removed. Temp files
// from interrupted writes are removed too but not counted.
func (s *Store) Clear(partitions ...Partition) (int, error) {
	if !s.enabled || s.dir == "" {
		return 0, nil
	}
	if len(partitions) == 0 {
		partitions = Partitions()
	}
	var removed int
	for _, p := range partitions {
		c, err := codecFor(p)
		if err != nil {
			return removed, err
		}
		entries, err := os.ReadDir(s.partitionDir(p))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("reading cache directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch filepath.Ext(e.Name()) {
			case c.ext():
			case ".tmp":
				// Left behind by a write that never reached its rename.
				if err := os.Remove(filepath.Join(s.partitionDir(p), e.Name())); err != nil {
					s.logger.Warn("removing temp file", zap.String("file", e.Name()), zap.Error(err))
				}
				continue
			default:
				continue
			}
			if err := os.Remove(filepath.Join(s.partitionDir(p), e.Name())); err != nil {
				s.logger.Warn("removing cache entry", zap.String("file", e.Name()), zap.Error(err))
				continue
			}
			removed++
		}
	}
	s.logger.Info("cleared cached responses", zap.Int("count", removed))
	return removed, nil
}

// Stats scans the partitions and returns current counts and sizes.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{Dir: s.dir}
	if !s.enabled || s.dir == "" {
		return stats, nil
	}
	for _, p := range Partitions() {
		count, size, err := s.scan(p)
		if err != nil {
			return stats, err
		}
		switch p {
		case PartitionText:
			stats.TextCount = count
		case PartitionImages:
			stats.ImageCount = count
		}
		stats.TotalBytes += size
	}
	stats.TotalCount = stats.TextCount + stats.ImageCount
	stats.TotalMB = math.Round(float64(stats.TotalBytes)/(1024*1024)*100) / 100
	return stats, nil
}

func (s *Store) scan(p Partition) (int, int64, error) {
	c, err := codecFor(p)
	if err != nil {
		return 0, 0, err
	}
	entries, err := os.ReadDir(s.partitionDir(p))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("reading cache directory: %w", err)
	}
	var count int
	var size int64
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != c.ext() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		count++
		size += info.Size()
	}
	return count, size, nil
}

// Path returns the file an entry for params in partition p is stored at.
func (s *Store) Path(params Params, p Partition) (string, error) {
	c, err := codecFor(p)
	if err != nil {
		return "", err
	}
	key, err := Fingerprint(params)
	if err != nil {
		return "", err
	}
	return s.entryPath(key, p, c), nil
}

// Dir returns the cache root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Enabled returns whether caching is enabled.
func (s *Store) Enabled() bool {
	return s.enabled
}

func (s *Store) partitionDir(p Partition) string {
	return filepath.Join(s.dir, string(p))
}

func (s *Store) entryPath(key string, p Partition, c codec) string {
	return filepath.Join(s.partitionDir(p), key+c.ext())
}

func defaultCacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "flowscribe"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "flowscribe"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "flowscribe", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "flowscribe", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "flowscribe"), nil
	}
}
