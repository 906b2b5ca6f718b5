package storage

import (
	"os"
	"path/filepath"

	"github.com/khaledhikmat/vqa-go/service/config"
)

type localService struct {
	CfgSvc config.IService
}

func NewLocal(cfgsvc config.IService) IService {
	return &localService{
		CfgSvc: cfgsvc,
	}
}

func (svc *localService) SaveArtifact(name string, data []byte) (string, error) {
	folder := svc.CfgSvc.GetArtifactsFolder()
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(folder, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}
