package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"

	"readaloud/internal/config"
	"readaloud/internal/storage"
	"readaloud/internal/tts"

	"github.com/sirupsen/logrus"
)

// AudioCache maps a content key to a playable URL. Entries are
// content-addressed and never invalidated.
type AudioCache interface {
	Get(ctx context.Context, key string) (string, bool)
	// Put stores result and returns the URL to hand to the client.
	Put(ctx context.Context, key string, result *tts.Result) (string, error)
}

// AudioCacheKey hashes everything that changes the produced audio.
func AudioCacheKey(engine string, request tts.Request) string {
	h := sha256.New()
	for _, part := range []string{
		strings.ToLower(engine),
		request.Voice,
		tts.NormalizeSpeed(request.Speed),
		strconv.FormatBool(request.SSML),
		request.Text,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewAudioCache builds the cache selected by mode.
func NewAudioCache(mode string, maxEntries int, store storage.Storage, publicBase string) AudioCache {
	switch mode {
	case config.AudioCacheNone:
		return noopAudioCache{}
	case config.AudioCacheStorage:
		if store == nil {
			logrus.Warn("audio cache storage mode without storage backend, using memory")
			return NewMemoryAudioCache(maxEntries)
		}
		return NewStorageAudioCache(store, publicBase, maxEntries)
	default:
		return NewMemoryAudioCache(maxEntries)
	}
}

type noopAudioCache struct{}

func (noopAudioCache) Get(context.Context, string) (string, bool) {
	return "", false
}

func (noopAudioCache) Put(_ context.Context, _ string, result *tts.Result) (string, error) {
	return result.PlayableURL(), nil
}

// MemoryAudioCache keeps at most maxEntries URLs. Once full, new keys are
// not stored; existing entries are never evicted.
type MemoryAudioCache struct {
	mu         sync.RWMutex
	entries    map[string]string
	maxEntries int
}

func NewMemoryAudioCache(maxEntries int) *MemoryAudioCache {
	if maxEntries <= 0 {
		maxEntries = 2000
	}
	return &MemoryAudioCache{entries: make(map[string]string), maxEntries: maxEntries}
}

func (c *MemoryAudioCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	url, ok := c.entries[key]
	return url, ok
}

func (c *MemoryAudioCache) Put(_ context.Context, key string, result *tts.Result) (string, error) {
	url := result.PlayableURL()
	c.store(key, url)
	return url, nil
}

func (c *MemoryAudioCache) store(key, url string) {
	if url == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxEntries {
		return
	}
	c.entries[key] = url
}

// Len returns the number of cached entries.
func (c *MemoryAudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StorageAudioCache writes audio bytes to object storage under the content
// key and serves them from the public base. Vendor-hosted URLs are kept in
// memory since there are no bytes to store.
type StorageAudioCache struct {
	store      storage.Storage
	publicBase string
	hosted     *MemoryAudioCache
}

func NewStorageAudioCache(store storage.Storage, publicBase string, maxEntries int) *StorageAudioCache {
	return &StorageAudioCache{
		store:      store,
		publicBase: publicBase,
		hosted:     NewMemoryAudioCache(maxEntries),
	}
}

func saveOptions(key string) storage.SaveOptions {
	return storage.SaveOptions{
		Category:         "tts",
		Extension:        "mp3",
		BaseName:         key,
		ContentAddressed: true,
		SkipIfExists:     true,
	}
}

func (c *StorageAudioCache) Get(ctx context.Context, key string) (string, bool) {
	if url, ok := c.hosted.Get(ctx, key); ok {
		return url, true
	}
	objectKey := c.store.ResolveKey(saveOptions(key))
	exists, err := c.store.Exists(ctx, objectKey)
	if err != nil {
		logrus.WithError(err).WithField("object_key", objectKey).Warn("audio_cache_lookup_failed")
		return "", false
	}
	if !exists {
		return "", false
	}
	return storage.PublicURL(c.publicBase, objectKey), true
}

func (c *StorageAudioCache) Put(ctx context.Context, key string, result *tts.Result) (string, error) {
	if len(result.Audio) == 0 {
		return c.hosted.Put(ctx, key, result)
	}
	objectKey, err := c.store.Save(ctx, result.Audio, saveOptions(key))
	if err != nil {
		// 存储失败时退回内联音频，不影响本次播放
		logrus.WithError(err).Warn("audio_cache_save_failed")
		return result.PlayableURL(), nil
	}
	return storage.PublicURL(c.publicBase, objectKey), nil
}
