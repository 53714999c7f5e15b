// Package storage archives point-in-time snapshots of the record store,
// either to a local directory or to S3.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/recares/dme-matcher/internal/config"
	"github.com/recares/dme-matcher/internal/domain"
)

// Snapshot is the archived form of the sheets.
type Snapshot struct {
	TakenAt time.Time              `json:"taken_at"`
	Sheets  map[string]domain.Grid `json:"sheets"`
}

// Storage writes snapshots to the configured backend.
type Storage struct {
	config config.StorageConfig

	// AWS storage (optional)
	aws *AWSStorage
}

// New creates a storage for cfg. It returns nil, nil when archiving is
// disabled.
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	s := &Storage{config: cfg}

	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "aws":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("storage: s3 bucket is required")
		}
		awsStorage, err := NewAWSStorage(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		s.aws = awsStorage
	case "local":
		if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	default:
		return nil, fmt.Errorf("storage: unknown type %q", cfg.Type)
	}

	return s, nil
}

// Key returns the archive key for a snapshot taken at t.
func (s *Storage) Key(t time.Time) string {
	t = t.UTC()
	name := fmt.Sprintf("sheets-%s.json", t.Format("150405"))
	if s.config.S3Prefix == "" {
		return path.Join(t.Format("2006/01/02"), name)
	}
	return path.Join(s.config.S3Prefix, t.Format("2006/01/02"), name)
}

// Archive stores the sheets and returns the key they were written under.
func (s *Storage) Archive(ctx context.Context, at time.Time, sheets map[string]domain.Grid) (string, error) {
	key := s.Key(at)
	snap := Snapshot{TakenAt: at.UTC(), Sheets: sheets}

	if s.aws != nil {
		if err := s.aws.SaveToS3(ctx, key, snap); err != nil {
			return "", err
		}
		return "s3://" + s.aws.bucket + "/" + key, nil
	}

	p := filepath.Join(s.config.LocalPath, filepath.FromSlash(key))
	if err := s.saveToFile(p, snap); err != nil {
		return "", err
	}
	return p, nil
}

// Load reads a snapshot previously written under key.
func (s *Storage) Load(ctx context.Context, key string) (*Snapshot, error) {
	var snap Snapshot
	if s.aws != nil {
		if err := s.aws.GetFromS3(ctx, key, &snap); err != nil {
			return nil, err
		}
		return &snap, nil
	}

	data, err := os.ReadFile(filepath.Join(s.config.LocalPath, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &snap, nil
}

func (s *Storage) saveToFile(p string, data interface{}) error {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	return os.WriteFile(p, jsonData, 0644)
}
