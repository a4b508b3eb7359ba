package cache

import (
	"context"
	"math/rand"
	"testing"

	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
)

const (
	smallTileSize  = 1024      // 1KB
	mediumTileSize = 10 * 1024 // 10KB
	largeTileSize  = 50 * 1024 // 50KB
)

func generateTileData(size int) []byte {
	data := make([]byte, size)
	rand.Read(data)
	return data
}

func generateRandomKey() TileCacheKey {
	return TileCacheKey{
		Source: "osm",
		X:      rand.Intn(1000),
		Y:      rand.Intn(1000),
		Z:      rand.Intn(20),
	}
}

func setupSQLiteCache(b *testing.B) (TileCache, func()) {
	b.Helper()
	cache, err := NewSQLiteCache("file:bench?mode=memory&cache=shared", logger.NewNop())
	if err != nil {
		b.Fatalf("Failed to create SQLite cache: %v", err)
	}
	return cache, func() {
		cache.Close()
	}
}

func setupMapCache(b *testing.B) (TileCache, func()) {
	b.Helper()
	return NewMapCache(), func() {}
}

func setupRistrettoCache(b *testing.B) (TileCache, func()) {
	b.Helper()
	cache, err := NewRistrettoCache(256 << 20)
	if err != nil {
		b.Fatalf("Failed to create ristretto cache: %v", err)
	}
	return cache, func() {
		cache.Close()
	}
}

func setupCompressedMapCache(b *testing.B) (TileCache, func()) {
	b.Helper()
	cache, err := NewCompressed(NewMapCache())
	if err != nil {
		b.Fatalf("Failed to create compressed cache: %v", err)
	}
	return cache, func() {
		cache.Close()
	}
}

var backends = []struct {
	name  string
	setup func(b *testing.B) (TileCache, func())
}{
	{"SQLite", setupSQLiteCache},
	{"Map", setupMapCache},
	{"Ristretto", setupRistrettoCache},
	{"CompressedMap", setupCompressedMapCache},
}

var sizes = []struct {
	name string
	size int
}{
	{"Small", smallTileSize},
	{"Medium", mediumTileSize},
	{"Large", largeTileSize},
}

func BenchmarkSet(b *testing.B) {
	ctx := context.Background()
	for _, backend := range backends {
		for _, size := range sizes {
			b.Run(backend.name+"_"+size.name, func(b *testing.B) {
				cache, cleanup := backend.setup(b)
				defer cleanup()
				data := generateTileData(size.size)

				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					key := TileCacheKey{Source: "osm", X: i % 1000, Y: i % 1000, Z: i % 20}
					if err := cache.Set(ctx, key, data); err != nil {
						b.Fatalf("Set failed: %v", err)
					}
				}
			})
		}
	}
}

func BenchmarkGet(b *testing.B) {
	ctx := context.Background()
	for _, backend := range backends {
		for _, size := range sizes {
			b.Run(backend.name+"_"+size.name, func(b *testing.B) {
				cache, cleanup := backend.setup(b)
				defer cleanup()
				data := generateTileData(size.size)

				// Populate cache
				for i := 0; i < 100; i++ {
					key := TileCacheKey{Source: "osm", X: i, Y: i, Z: i % 20}
					cache.Set(ctx, key, data)
				}

				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					key := TileCacheKey{Source: "osm", X: i % 100, Y: i % 100, Z: (i % 100) % 20}
					_, _, err := cache.Get(ctx, key)
					if err != nil {
						b.Fatalf("Get failed: %v", err)
					}
				}
			})
		}
	}
}

func BenchmarkMixed(b *testing.B) {
	ctx := context.Background()
	for _, backend := range backends {
		b.Run(backend.name, func(b *testing.B) {
			cache, cleanup := backend.setup(b)
			defer cleanup()
			data := generateTileData(mediumTileSize)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				key := generateRandomKey()
				// 80% reads, 20% writes
				if i%5 == 0 {
					cache.Set(ctx, key, data)
				} else {
					cache.Get(ctx, key)
				}
			}
		})
	}
}

func BenchmarkConcurrentGet(b *testing.B) {
	ctx := context.Background()
	for _, backend := range backends {
		b.Run(backend.name, func(b *testing.B) {
			cache, cleanup := backend.setup(b)
			defer cleanup()
			data := generateTileData(mediumTileSize)

			for i := 0; i < 100; i++ {
				key := TileCacheKey{Source: "osm", X: i, Y: i, Z: i % 20}
				cache.Set(ctx, key, data)
			}

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					key := TileCacheKey{Source: "osm", X: i % 100, Y: i % 100, Z: (i % 100) % 20}
					cache.Get(ctx, key)
					i++
				}
			})
		})
	}
}
