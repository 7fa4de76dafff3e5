// Package assetcache is the app-shell asset cache: a fixed manifest is
// installed into a named, versioned redis cache at startup, and a
// cache-first middleware serves exact path matches from it, passing
// everything else through untouched.
package assetcache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Entry is one manifest item. Entries with a URL are fetched over HTTP at
// install time and served under Path; entries without one resolve locally.
type Entry struct {
	Path string
	URL  string
}

// LocalResolver resolves a manifest path to embedded app-shell content.
type LocalResolver func(path string) (contentType string, body []byte, err error)

type stagedAsset struct {
	path        string
	contentType string
	body        []byte
}

type Cache struct {
	client *redis.Client
	name   string
	local  LocalResolver

	httpClient *http.Client
	installed  atomic.Bool
}

func New(client *redis.Client, name string, local LocalResolver) *Cache {
	return &Cache{
		client: client,
		name:   name,
		local:  local,
	}
}

func (c *Cache) webClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return http.DefaultClient
}

// Name returns the versioned cache name.
func (c *Cache) Name() string {
	return c.name
}

// Installed reports whether the install phase committed successfully.
func (c *Cache) Installed() bool {
	return c.installed.Load()
}

func (c *Cache) assetKey(path string) string {
	return c.name + ":asset:" + path
}

// Install fetches every manifest entry and commits them under the cache
// name. It is atomic at the manifest level: if any entry cannot be
// fetched, nothing is committed and the cache stays uninstalled. Stale
// versions of the same cache family are swept before the commit.
func (c *Cache) Install(ctx context.Context, manifest []Entry) error {
	if len(manifest) == 0 {
		return fmt.Errorf("assetcache: manifest is empty")
	}

	staged := make([]stagedAsset, 0, len(manifest))
	for _, entry := range manifest {
		contentType, body, err := c.fetch(ctx, entry)
		if err != nil {
			return fmt.Errorf("assetcache: failed to fetch manifest entry %s: %w", entry.Path, err)
		}
		staged = append(staged, stagedAsset{
			path:        entry.Path,
			contentType: contentType,
			body:        body,
		})
	}

	if err := c.sweepStaleVersions(ctx); err != nil {
		slog.Warn("assetcache: failed to sweep stale cache versions", "error", err)
	}

	pipe := c.client.Pipeline()
	for _, asset := range staged {
		pipe.HSet(ctx, c.assetKey(asset.path), "type", asset.contentType, "body", asset.body)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("assetcache: failed to store manifest: %w", err)
	}

	c.installed.Store(true)
	slog.Info("asset cache installed", "cache", c.name, "entries", len(staged))
	return nil
}

func (c *Cache) fetch(ctx context.Context, entry Entry) (string, []byte, error) {
	if entry.URL == "" {
		if c.local == nil {
			return "", nil, fmt.Errorf("no local resolver for %s", entry.Path)
		}
		return c.local(entry.Path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := c.webClient().Do(req)
	if err != nil {
		return "", nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, entry.URL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return contentType, body, nil
}

// Lookup checks the cache for an exact path match.
func (c *Cache) Lookup(ctx context.Context, path string) (string, []byte, bool, error) {
	values, err := c.client.HGetAll(ctx, c.assetKey(path)).Result()
	if err != nil {
		return "", nil, false, err
	}
	body, ok := values["body"]
	if !ok {
		return "", nil, false, nil
	}
	return values["type"], []byte(body), true, nil
}

// sweepStaleVersions deletes keys belonging to older versions of the same
// cache family. Bumping the version suffix in the cache name is the only
// supported upgrade path.
func (c *Cache) sweepStaleVersions(ctx context.Context) error {
	idx := strings.LastIndex(c.name, "-v")
	if idx <= 0 {
		return nil
	}
	family := c.name[:idx]

	iter := c.client.Scan(ctx, 0, family+"-v*", 0).Iterator()
	var stale []string
	for iter.Next(ctx) {
		key := iter.Val()
		if !strings.HasPrefix(key, c.name+":") {
			stale = append(stale, key)
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, stale...).Err(); err != nil {
		return err
	}
	slog.Info("swept stale asset cache keys", "cache", c.name, "removed", len(stale))
	return nil
}
