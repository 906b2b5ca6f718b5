package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type envService struct {
}

// NewEnv returns a config service backed by environment variables with
// hardcoded fallbacks. Env vars are typically loaded from a .env file in
// dev mode (see main).
func NewEnv() IService {
	return &envService{}
}

func (svc *envService) GetDatasetName() string {
	return strings.ToLower(getString("VQA_DATASET", "live"))
}

func (svc *envService) GetDatasetRootFolder() string {
	return getString("VQA_DATASET_ROOT", "./videos")
}

func (svc *envService) GetMetadataFolder() string {
	return getString("VQA_METADATA_FOLDER", svc.GetDatasetRootFolder())
}

func (svc *envService) GetModelName() string {
	return strings.ToLower(getString("VQA_MODEL", "vgg19"))
}

func (svc *envService) GetModelPath() string {
	return getString("VQA_MODEL_PATH", fmt.Sprintf("./models/%s.onnx", svc.GetModelName()))
}

func (svc *envService) GetDevice() string {
	return strings.ToLower(getString("VQA_DEVICE", "cpu"))
}

func (svc *envService) GetFrameColorMode() string {
	return strings.ToLower(getString("VQA_FRAME_COLOR_MODE", "rgb"))
}

func (svc *envService) GetFrameDiff() bool {
	return getBool("VQA_FRAME_DIFF", false)
}

func (svc *envService) GetFrameStride() int {
	return getInt("VQA_FRAME_STRIDE", 1)
}

func (svc *envService) GetPoolingMethod() string {
	return strings.ToLower(getString("VQA_POOLING", "max"))
}

func (svc *envService) GetRegressorName() string {
	return strings.ToLower(getString("VQA_REGRESSOR", "svr"))
}

func (svc *envService) GetSeed() int64 {
	// 0 means derive the seed from the clock (non-reproducible run)
	return int64(getInt("VQA_SEED", 0))
}

func (svc *envService) GetSkipCorruptVideos() bool {
	return getBool("VQA_SKIP_CORRUPT_VIDEOS", false)
}

func (svc *envService) GetSettingsFolder() string {
	return getString("VQA_SETTINGS_FOLDER", "./settings")
}

func (svc *envService) GetArtifactsFolder() string {
	return getString("VQA_ARTIFACTS_FOLDER", "./artifacts")
}

func (svc *envService) GetFoldLogFile() string {
	return getString("VQA_FOLD_LOG_FILE", "folds.log")
}

func (svc *envService) GetPlotPerFold() bool {
	return getBool("VQA_PLOT_PER_FOLD", true)
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
