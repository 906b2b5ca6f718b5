package data

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/khaledhikmat/vqa-go/model"
	"github.com/khaledhikmat/vqa-go/service/config"
)

type filesDBService struct {
	CfgSvc config.IService
}

func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) SaveFeatures(features model.FeatureSet) error {
	features.Timestamp = time.Now().Unix()

	data, err := json.Marshal(features)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(svc.CfgSvc.GetSettingsFolder(), 0755); err != nil {
		return err
	}

	output := svc.featuresFile(features.Dataset)
	err = os.WriteFile(output, data, 0644)
	if err != nil {
		return err
	}

	return nil
}

func (svc *filesDBService) RetrieveFeatures(dataset string) (model.FeatureSet, error) {
	var features model.FeatureSet

	data, err := os.ReadFile(svc.featuresFile(dataset))
	if err != nil {
		return features, fmt.Errorf("no cached features for dataset %s: %w", dataset, err)
	}

	err = json.Unmarshal(data, &features)
	if err != nil {
		return features, err
	}

	return features, nil
}

func (svc *filesDBService) NewError(err interface{}) error {
	// Determine if the error is custom
	var customErr model.CustomError
	if custom, ok := err.(model.CustomError); ok {
		customErr = custom
	} else {
		customErr.Processor = "N/A"
		customErr.Inner = err.(error)
		customErr.Message = err.(error).Error()
		customErr.StackTrace = "N/A"
		customErr.Misc = nil
	}

	// Create an error object to persist
	errorData := struct {
		Timestamp  int64                  `json:"timestamp"`
		Processor  string                 `json:"processor"`
		Inner      string                 `json:"innerError"`
		Message    string                 `json:"message"`
		StackTrace string                 `json:"stackTrace"`
		Misc       map[string]interface{} `json:"misc"`
	}{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Inner:      customErr.Inner.Error(),
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
	return newEntity(errorData, "errors", svc.CfgSvc)
}

func (svc *filesDBService) NewEvaluationSummary(summary model.EvaluationSummary) error {
	summary.Timestamp = time.Now().Unix()
	return newEntity(summary, "evaluation-summaries", svc.CfgSvc)
}

func (svc *filesDBService) NewExtractionStats(stats model.ExtractionStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, "extraction-stats", svc.CfgSvc)
}

func (svc *filesDBService) featuresFile(dataset string) string {
	return fmt.Sprintf("%s/%s-features.json", svc.CfgSvc.GetSettingsFolder(), dataset)
}

func newEntity[T any](entity T, filename string, cfgsvc config.IService) error {
	entities, err := retrieveEntites[T](filename, cfgsvc)
	if err != nil {
		return err
	}

	entities = append(entities, entity)

	// Marshal the entity data to JSON
	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgsvc.GetSettingsFolder(), 0755); err != nil {
		return err
	}

	// Write the JSON data to the file (with truncation)
	output := fmt.Sprintf("%s/%s.json", cfgsvc.GetSettingsFolder(), filename)
	err = os.WriteFile(output, data, 0644)
	if err != nil {
		return err
	}

	return nil
}

func retrieveEntites[T any](filename string, cfgsvc config.IService) ([]T, error) {
	var entities []T

	data, err := os.ReadFile(fmt.Sprintf("%s/%s.json", cfgsvc.GetSettingsFolder(), filename))
	if err != nil {
		// WARNIG: File not found, return empty slice
		return entities, nil
	}

	entities = []T{}
	err = json.Unmarshal(data, &entities)
	if err != nil {
		return entities, err
	}

	return entities, nil
}
