package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
)

type S3Client struct {
	client     *s3.Client
	bucket     string
	publicURL  string
	httpClient *http.Client
}

type S3Config struct {
	Endpoint  string
	Bucket    string
	PublicURL string
	Region    string
}

func NewS3Client(cfg S3Config) (*S3Client, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	// Custom endpoint for R2-compatible storage
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Client{
		client:     client,
		bucket:     cfg.Bucket,
		publicURL:  cfg.PublicURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// UploadImage resizes and stores one image, returning its public URL.
func (s *S3Client) UploadImage(objectKey string, imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", fmt.Errorf("empty image data")
	}
	if len(imageData) > 5*1024*1024 { // 5MB max
		return "", fmt.Errorf("image too large: %d bytes", len(imageData))
	}

	hash := sha256.Sum256(imageData)
	hashHex := hex.EncodeToString(hash[:])

	// Resize to max 512x512; dashboard tiles never need more
	resized, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	resized = imaging.Fit(resized, 512, 512, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("image/png"),
		Metadata: map[string]string{
			"image_hash": hashHex,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", s.publicURL, objectKey), nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, objectKey), nil
}

// DownloadImage fetches an image from the Steam CDN or storefront.
func (s *S3Client) DownloadImage(url string) ([]byte, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "steam-shelf/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "image/png" && contentType != "image/jpeg" && contentType != "image/webp" {
		return nil, fmt.Errorf("invalid content type: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, err
	}
	if len(data) > 5*1024*1024 {
		return nil, fmt.Errorf("image too large: %d bytes", len(data))
	}
	return data, nil
}

// MirrorImage downloads a remote image and re-uploads it to the bucket.
func (s *S3Client) MirrorImage(objectKey, sourceURL string) (string, error) {
	imageData, err := s.DownloadImage(sourceURL)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	return s.UploadImage(objectKey, imageData)
}
