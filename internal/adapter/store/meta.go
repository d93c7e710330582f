package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"codeagent/config"
)

// CurrentSchemaVersion is the on-disk format version. Increment on
// breaking changes to the storage layout.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// SchemaInfo records the format version and a hash of index-relevant
// configuration. A hash change means stored vectors no longer match
// what the current config would produce.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

func (s *BoltVectorStore) SchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}
		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				info.Version = 1
			}
		}
		if data := b.Get(keyConfigHash); data != nil {
			info.ConfigHash = string(data)
		}
		return nil
	})
	return &info, err
}

func (s *BoltVectorStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		data, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, data); err != nil {
			return err
		}
		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ComputeConfigHash hashes the configuration that determines index
// contents. Vectors embedded under one hash are unusable under another.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		EmbProvider  string `json:"emb_provider"`
		EmbModel     string `json:"emb_model"`
		EmbDimension int    `json:"emb_dimension"`
		ChunkSize    int    `json:"chunk_size"`
		ChunkOverlap int    `json:"chunk_overlap"`
		ChunkUnit    string `json:"chunk_unit"`
		ChunkAST     bool   `json:"chunk_ast"`
	}{
		EmbProvider:  cfg.Embedding.Provider,
		EmbModel:     cfg.Embedding.Model,
		EmbDimension: cfg.Embedding.Dimension,
		ChunkSize:    cfg.Chunker.Size,
		ChunkOverlap: cfg.Chunker.Overlap,
		ChunkUnit:    cfg.Chunker.Unit,
		ChunkAST:     cfg.Chunker.ASTChunking,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// NeedsRebuild reports whether the stored index is incompatible with
// the given configuration. A fresh database never needs a rebuild.
func (s *BoltVectorStore) NeedsRebuild(cfg *config.Config) (bool, string, error) {
	info, err := s.SchemaInfo()
	if err != nil {
		return false, "", fmt.Errorf("failed to read schema info: %w", err)
	}

	if info.Version == 0 {
		return false, "", nil
	}
	if info.Version > CurrentSchemaVersion {
		return true, fmt.Sprintf("index created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion), nil
	}
	if info.Version < CurrentSchemaVersion {
		return true, fmt.Sprintf("index schema upgrade required (v%d to v%d)", info.Version, CurrentSchemaVersion), nil
	}

	if hash := ComputeConfigHash(cfg); info.ConfigHash != "" && info.ConfigHash != hash {
		return true, "index configuration changed", nil
	}
	return false, "", nil
}

// MarkBuilt stamps the database with the current schema version and
// config hash after a successful indexing pass.
func (s *BoltVectorStore) MarkBuilt(cfg *config.Config) error {
	return s.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
}
