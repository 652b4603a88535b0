package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL string // STAGEFLOW_DATABASE_URL (empty = in-memory store)
	HTTPAddr    string // STAGEFLOW_HTTP_ADDR (default ":8080")
	NATSURL     string // STAGEFLOW_NATS_URL (optional, empty = no events)
	AuthToken   string // STAGEFLOW_AUTH_TOKEN (optional, empty = auth disabled)
	StagesFile  string // STAGEFLOW_STAGES_FILE (optional, empty = embedded catalog)

	// Snapshot settings
	SnapshotInterval   time.Duration // STAGEFLOW_SNAPSHOT_INTERVAL (default 5m; 0 = disabled)
	SnapshotS3Bucket   string        // STAGEFLOW_SNAPSHOT_S3_BUCKET (enables S3 when set)
	SnapshotS3Endpoint string        // STAGEFLOW_SNAPSHOT_S3_ENDPOINT (custom endpoint for MinIO)
	SnapshotS3Region   string        // STAGEFLOW_SNAPSHOT_S3_REGION (default "us-east-1")
	SnapshotS3Key      string        // STAGEFLOW_SNAPSHOT_S3_KEY (default "stageflow/snapshot.jsonl")
	SnapshotGitRepo    string        // STAGEFLOW_SNAPSHOT_GIT_REPO (enables git when set; path to clone)
	SnapshotGitFile    string        // STAGEFLOW_SNAPSHOT_GIT_FILE (default "stageflow.jsonl")
	SnapshotGitBranch  string        // STAGEFLOW_SNAPSHOT_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:        os.Getenv("STAGEFLOW_DATABASE_URL"),
		HTTPAddr:           envOrDefault("STAGEFLOW_HTTP_ADDR", ":8080"),
		NATSURL:            os.Getenv("STAGEFLOW_NATS_URL"),
		AuthToken:          os.Getenv("STAGEFLOW_AUTH_TOKEN"),
		StagesFile:         os.Getenv("STAGEFLOW_STAGES_FILE"),
		SnapshotS3Bucket:   os.Getenv("STAGEFLOW_SNAPSHOT_S3_BUCKET"),
		SnapshotS3Endpoint: os.Getenv("STAGEFLOW_SNAPSHOT_S3_ENDPOINT"),
		SnapshotS3Region:   envOrDefault("STAGEFLOW_SNAPSHOT_S3_REGION", "us-east-1"),
		SnapshotS3Key:      envOrDefault("STAGEFLOW_SNAPSHOT_S3_KEY", "stageflow/snapshot.jsonl"),
		SnapshotGitRepo:    os.Getenv("STAGEFLOW_SNAPSHOT_GIT_REPO"),
		SnapshotGitFile:    envOrDefault("STAGEFLOW_SNAPSHOT_GIT_FILE", "stageflow.jsonl"),
		SnapshotGitBranch:  envOrDefault("STAGEFLOW_SNAPSHOT_GIT_BRANCH", "main"),
	}

	intervalStr := envOrDefault("STAGEFLOW_SNAPSHOT_INTERVAL", "5m")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("STAGEFLOW_SNAPSHOT_INTERVAL: %w", err)
		}
		c.SnapshotInterval = d
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
