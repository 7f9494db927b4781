package s3

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"

	"github.com/Biniyam-Belay/rulDashboard/pkg/client/s3"
	"github.com/Biniyam-Belay/rulDashboard/pkg/scaler"
)

// ArtifactRepo loads the fitted scaler artifacts the training pipeline
// exported to object storage.
type ArtifactRepo struct {
	StorageS3 *s3.StorageS3
}

func NewArtifactRepo(storageS3 *s3.StorageS3) *ArtifactRepo {
	return &ArtifactRepo{
		StorageS3: storageS3,
	}
}

// LoadScaler fetches a MinMaxScaler export (JSON) by object key and builds
// the transform from its fitted parameters.
func (a *ArtifactRepo) LoadScaler(ctx context.Context, key string) (*scaler.MinMax, error) {
	if a.StorageS3 == nil || a.StorageS3.Client == nil {
		return nil, fmt.Errorf("s3 client not initialized")
	}

	obj, err := a.StorageS3.Client.GetObject(ctx, a.StorageS3.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get object %s: %w", key, err)
	}
	defer obj.Close()

	var params scaler.Params
	if err := json.NewDecoder(obj).Decode(&params); err != nil {
		return nil, fmt.Errorf("decode scaler artifact %s: %w", key, err)
	}

	m, err := scaler.New(params)
	if err != nil {
		return nil, fmt.Errorf("build scaler from %s: %w", key, err)
	}
	return m, nil
}
