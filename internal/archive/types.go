// Package archive re-exports core export-archive abstractions for stable
// imports and hosts the driver factory.
package archive

import (
	"policyhub/internal/archive/core"
)

type (
	// Driver identifies an archive backend driver.
	Driver = core.Driver
	// PutOptions configures an artifact write.
	PutOptions = core.PutOptions
	// Info describes stored artifact metadata.
	Info = core.Info
	// Store is the interface for archive backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)
