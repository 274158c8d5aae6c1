// Package upload is the port to the external image-hosting service. The
// core only needs "bytes in, hosted URL out"; transforms and storage live
// on the other side.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/parley-chat/parley/internal/apperr"
)

type Uploader interface {
	Upload(ctx context.Context, file io.Reader, filename string) (url string, err error)
}

// Disabled is wired when no hosting service is configured; attachment
// uploads then fail with a validation error instead of a panic.
type Disabled struct{}

func (Disabled) Upload(context.Context, io.Reader, string) (string, error) {
	return "", apperr.Validationf("image uploads are not configured")
}

// Cloudinary uploads through the unsigned-preset endpoint and returns the
// secure URL the service assigns.
type Cloudinary struct {
	CloudName    string
	UploadPreset string
	HTTPClient   *http.Client
}

func NewCloudinary(cloudName, uploadPreset string) *Cloudinary {
	return &Cloudinary{
		CloudName:    cloudName,
		UploadPreset: uploadPreset,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Cloudinary) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", apperr.Internalf("image upload failed")
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", apperr.Internalf("image upload failed")
	}
	writer.WriteField("upload_preset", c.UploadPreset)
	writer.WriteField("public_id", uuid.NewString())
	if err := writer.Close(); err != nil {
		return "", apperr.Internalf("image upload failed")
	}

	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", c.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", apperr.Internalf("image upload failed")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", apperr.Internalf("image upload failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperr.Internalf("image upload failed with status %d", resp.StatusCode)
	}

	var result struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.SecureURL == "" {
		return "", apperr.Internalf("image upload returned no URL")
	}
	return result.SecureURL, nil
}
