package config

type IService interface {
	// Dataset selection
	GetDatasetName() string
	GetDatasetRootFolder() string
	GetMetadataFolder() string

	// Feature extraction
	GetModelName() string
	GetModelPath() string
	GetDevice() string
	GetFrameColorMode() string
	GetFrameDiff() bool
	GetFrameStride() int

	// Pooling and regression
	GetPoolingMethod() string
	GetRegressorName() string
	GetSeed() int64

	// Run policy: skip a corrupt video and continue, or abort the run
	GetSkipCorruptVideos() bool

	// Artifacts and persistence
	GetSettingsFolder() string
	GetArtifactsFolder() string
	GetFoldLogFile() string
	GetPlotPerFold() bool
}
