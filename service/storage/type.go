package storage

type IService interface {
	// SaveArtifact persists a named diagnostic artifact (fold plots and
	// the like) and returns its final location.
	SaveArtifact(name string, data []byte) (string, error)
}
