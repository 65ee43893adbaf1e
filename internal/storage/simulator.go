package storage

import "fmt"

// Simulator is the StorageClient used when no bucket is configured. It
// fabricates URLs without uploading, which keeps local development free of
// cloud credentials.
type Simulator struct {
	bucket   string
	endpoint string
}

func NewSimulator(bucket, endpoint string) *Simulator {
	if bucket == "" {
		bucket = "steam-shelf-dev"
	}
	return &Simulator{bucket: bucket, endpoint: endpoint}
}

func (s *Simulator) UploadImage(objectKey string, imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", fmt.Errorf("empty image data")
	}
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, objectKey), nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, objectKey), nil
}
