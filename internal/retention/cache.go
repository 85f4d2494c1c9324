package retention

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hurricup/leaks-collector/pkg/compression"
	"github.com/hurricup/leaks-collector/pkg/config"
	"github.com/hurricup/leaks-collector/pkg/errors"
	"github.com/hurricup/leaks-collector/pkg/utils"
)

const (
	cacheMagic   uint32 = 0x52564958 // "RVIX"
	cacheVersion uint32 = 1

	fingerprintBytes = 64 * 1024
)

// CachePath returns the on-disk cache file path for a snapshot, per the
// configured suffix.
func CachePath(snapshotPath string, cfg config.CacheConfig) string {
	return snapshotPath + cfg.Suffix
}

// Fingerprint hashes the first 64KiB of a snapshot file, used to detect a
// stale or mismatched cache without re-reading the whole snapshot.
func Fingerprint(snapshotPath string) ([]byte, error) {
	f, err := os.Open(snapshotPath)
	if err != nil {
		return nil, errors.Wrap(errors.CodeSnapshotIO, "open snapshot for fingerprint", err)
	}
	defer f.Close()

	buf := make([]byte, fingerprintBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.Wrap(errors.CodeSnapshotIO, "read snapshot for fingerprint", err)
	}

	sum := sha256.Sum256(buf[:n])
	return sum[:], nil
}

// SaveCache writes the reverse index to path, compressed per cfg.Compression.
func SaveCache(path string, snapshotSize int64, fingerprint []byte, ri *ReverseIndex, cfg config.CacheConfig) error {
	var body bytes.Buffer

	ids := make([]uint64, 0, len(ri.parents))
	for id := range ri.parents {
		ids = append(ids, id)
	}

	if err := binary.Write(&body, binary.BigEndian, uint32(len(ids))); err != nil {
		return errors.Wrap(errors.CodeCacheCorrupt, "write entry count", err)
	}
	for _, id := range ids {
		parents := ri.parents[id]
		if err := binary.Write(&body, binary.BigEndian, id); err != nil {
			return errors.Wrap(errors.CodeCacheCorrupt, "write entry id", err)
		}
		if err := binary.Write(&body, binary.BigEndian, uint32(len(parents))); err != nil {
			return errors.Wrap(errors.CodeCacheCorrupt, "write parent count", err)
		}
		for _, p := range parents {
			if err := binary.Write(&body, binary.BigEndian, p); err != nil {
				return errors.Wrap(errors.CodeCacheCorrupt, "write parent id", err)
			}
		}
	}

	if err := binary.Write(&body, binary.BigEndian, uint32(len(ri.roots))); err != nil {
		return errors.Wrap(errors.CodeCacheCorrupt, "write root count", err)
	}
	for id, kind := range ri.roots {
		if err := binary.Write(&body, binary.BigEndian, id); err != nil {
			return errors.Wrap(errors.CodeCacheCorrupt, "write root id", err)
		}
		kindBytes := []byte(kind)
		if err := binary.Write(&body, binary.BigEndian, uint16(len(kindBytes))); err != nil {
			return errors.Wrap(errors.CodeCacheCorrupt, "write root kind length", err)
		}
		if _, err := body.Write(kindBytes); err != nil {
			return errors.Wrap(errors.CodeCacheCorrupt, "write root kind", err)
		}
	}

	compressionType := compressionTypeFor(cfg.Compression)
	compressor, err := compression.New(compressionType, compression.LevelDefault)
	if err != nil && compressionType == compression.TypeZstd {
		compressionType = compression.TypeGzip
		compressor, err = compression.New(compressionType, compression.LevelDefault)
	}
	if err != nil {
		return errors.Wrap(errors.CodeCacheCorrupt, "create compressor", err)
	}
	compressed, err := compressor.Compress(body.Bytes())
	if err != nil {
		return errors.Wrap(errors.CodeCacheCorrupt, "compress reverse index", err)
	}

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, cacheMagic)
	binary.Write(&out, binary.BigEndian, cacheVersion)
	binary.Write(&out, binary.BigEndian, uint64(snapshotSize))
	binary.Write(&out, binary.BigEndian, uint32(len(fingerprint)))
	out.Write(fingerprint)
	binary.Write(&out, binary.BigEndian, byte(compressionType))
	out.Write(compressed)

	return os.WriteFile(path, out.Bytes(), 0o644)
}

// LoadCache reads a cached reverse index from path, validating it against
// the live snapshot's size and fingerprint. Any mismatch or corruption
// returns an error so the caller can silently rebuild.
func LoadCache(path string, snapshotSize int64, fingerprint []byte) (*ReverseIndex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeCacheCorrupt, "read cache file", err)
	}

	r := bytes.NewReader(raw)

	var magic, version uint32
	var cachedSize uint64
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil || magic != cacheMagic {
		return nil, errors.New(errors.CodeCacheCorrupt, "bad cache magic")
	}
	if err := binary.Read(r, binary.BigEndian, &version); err != nil || version != cacheVersion {
		return nil, errors.New(errors.CodeCacheCorrupt, "unsupported cache version")
	}
	if err := binary.Read(r, binary.BigEndian, &cachedSize); err != nil || int64(cachedSize) != snapshotSize {
		return nil, errors.New(errors.CodeCacheCorrupt, "snapshot size mismatch")
	}

	var fpLen uint32
	if err := binary.Read(r, binary.BigEndian, &fpLen); err != nil {
		return nil, errors.Wrap(errors.CodeCacheCorrupt, "read fingerprint length", err)
	}
	cachedFP := make([]byte, fpLen)
	if _, err := io.ReadFull(r, cachedFP); err != nil {
		return nil, errors.Wrap(errors.CodeCacheCorrupt, "read fingerprint", err)
	}
	if !bytes.Equal(cachedFP, fingerprint) {
		return nil, errors.New(errors.CodeCacheCorrupt, "fingerprint mismatch")
	}

	compressionByte, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrap(errors.CodeCacheCorrupt, "read compression type", err)
	}
	compressor, err := compression.New(compression.Type(compressionByte), compression.LevelDefault)
	if err != nil {
		return nil, errors.Wrap(errors.CodeCacheCorrupt, "create decompressor", err)
	}

	remaining, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.CodeCacheCorrupt, "read cache body", err)
	}
	body, err := compressor.Decompress(remaining)
	if err != nil {
		return nil, errors.Wrap(errors.CodeCacheCorrupt, "decompress cache body", err)
	}

	return decodeReverseIndex(body)
}

func decodeReverseIndex(body []byte) (*ReverseIndex, error) {
	r := bytes.NewReader(body)
	ri := &ReverseIndex{
		parents: make(map[uint64][]uint64),
		roots:   make(map[uint64]RootKind),
	}

	var entryCount uint32
	if err := binary.Read(r, binary.BigEndian, &entryCount); err != nil {
		return nil, errors.Wrap(errors.CodeCacheCorrupt, "read entry count", err)
	}
	for i := uint32(0); i < entryCount; i++ {
		var id uint64
		var parentCount uint32
		if err := binary.Read(r, binary.BigEndian, &id); err != nil {
			return nil, errors.Wrap(errors.CodeCacheCorrupt, "read entry id", err)
		}
		if err := binary.Read(r, binary.BigEndian, &parentCount); err != nil {
			return nil, errors.Wrap(errors.CodeCacheCorrupt, "read parent count", err)
		}
		parents := make([]uint64, parentCount)
		for j := range parents {
			if err := binary.Read(r, binary.BigEndian, &parents[j]); err != nil {
				return nil, errors.Wrap(errors.CodeCacheCorrupt, "read parent id", err)
			}
		}
		ri.parents[id] = parents
	}

	var rootCount uint32
	if err := binary.Read(r, binary.BigEndian, &rootCount); err != nil {
		return nil, errors.Wrap(errors.CodeCacheCorrupt, "read root count", err)
	}
	for i := uint32(0); i < rootCount; i++ {
		var id uint64
		var kindLen uint16
		if err := binary.Read(r, binary.BigEndian, &id); err != nil {
			return nil, errors.Wrap(errors.CodeCacheCorrupt, "read root id", err)
		}
		if err := binary.Read(r, binary.BigEndian, &kindLen); err != nil {
			return nil, errors.Wrap(errors.CodeCacheCorrupt, "read root kind length", err)
		}
		kindBytes := make([]byte, kindLen)
		if _, err := io.ReadFull(r, kindBytes); err != nil {
			return nil, errors.Wrap(errors.CodeCacheCorrupt, "read root kind", err)
		}
		ri.roots[id] = RootKind(kindBytes)
	}

	return ri, nil
}

func compressionTypeFor(name string) compression.Type {
	switch name {
	case "gzip":
		return compression.TypeGzip
	case "none":
		return compression.TypeNone
	default:
		return compression.TypeZstd
	}
}

// LoadOrBuildReverseIndex loads a cached reverse index if it matches the
// snapshot, otherwise builds one fresh and writes it back to cache. Any
// cache miss, mismatch or corruption is logged as a warning and silently
// triggers a rebuild, per spec.md §7.
func LoadOrBuildReverseIndex(oracle GraphOracle, snapshotPath string, cfg config.CacheConfig, log utils.Logger) (*ReverseIndex, error) {
	info, err := os.Stat(snapshotPath)
	if err != nil {
		return nil, errors.Wrap(errors.CodeSnapshotIO, "stat snapshot", err)
	}

	fp, err := Fingerprint(snapshotPath)
	if err != nil {
		return nil, err
	}

	cachePath := CachePath(snapshotPath, cfg)
	if ri, err := LoadCache(cachePath, info.Size(), fp); err == nil {
		debugf(log, "reverse index cache hit: %s", cachePath)
		return ri, nil
	} else if log != nil {
		log.Warn("reverse index cache miss for %s: %v", cachePath, err)
	}

	ri := BuildReverseIndex(oracle, log)
	if err := SaveCache(cachePath, info.Size(), fp, ri, cfg); err != nil {
		return ri, fmt.Errorf("reverse index built but cache write failed: %w", err)
	}
	return ri, nil
}
