package storage

// StorageClient mirrors remote images into our own bucket.
type StorageClient interface {
	UploadImage(objectKey string, imageData []byte) (string, error)
}
