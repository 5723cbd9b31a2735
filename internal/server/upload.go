package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTPUploader posts captured images to the upload endpoint as multipart
// form data. Images that are already hosted (http/https) pass through.
type HTTPUploader struct {
	httpClient *http.Client
	endpoint   string
}

func NewHTTPUploader(endpoint string) *HTTPUploader {
	return &HTTPUploader{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoint:   endpoint,
	}
}

func (u *HTTPUploader) Upload(ctx context.Context, imageURI string) (string, error) {
	imageURI = strings.TrimSpace(imageURI)
	if imageURI == "" {
		return "", errors.New("no image provided")
	}
	if strings.HasPrefix(imageURI, "http://") || strings.HasPrefix(imageURI, "https://") {
		return imageURI, nil
	}
	if u.endpoint == "" {
		return "", errors.New("no upload endpoint configured")
	}

	path := strings.TrimPrefix(imageURI, "file://")
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		ext = "jpg"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "photo."+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	var data struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode upload response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if data.Error == "" {
			data.Error = "image upload failed"
		}
		return "", fmt.Errorf("upload returned status %d: %s", resp.StatusCode, data.Error)
	}
	if data.URL == "" {
		return "", errors.New("upload response has no url")
	}
	return data.URL, nil
}
