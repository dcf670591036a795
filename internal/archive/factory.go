package archive

import (
	"context"
	"fmt"

	"policyhub/internal/infra/archive/fs"
	"policyhub/internal/infra/archive/memory"
	"policyhub/internal/infra/archive/s3"
)

// Config selects and parameterizes an archive driver.
type Config struct {
	Driver Driver
	FSDir  string
	S3     S3Config
}

// S3Config carries S3 driver parameters. An empty struct defers to the
// POLICYHUB_ARCHIVE_S3_* environment variables.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// Open selects an archive Store implementation from cfg. An empty driver
// defaults to fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSDir)
	case DriverS3:
		if cfg.S3.Bucket == "" {
			return s3.OpenFromEnv(ctx)
		}
		return s3.New(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}
