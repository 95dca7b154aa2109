package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"imgvault/config"
	"imgvault/pkg/models"
	service "imgvault/pkg/services"
	"imgvault/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupImageHandler(t *testing.T) (*fiber.App, *MockImageService, *MockJobService, *utils.PathManager) {
	t.Helper()
	log := utils.NewNopLogger()
	pm, err := utils.NewPathManager(t.TempDir(), log)
	require.NoError(t, err)

	images := new(MockImageService)
	jobs := new(MockJobService)
	h := NewImageHandler(images, jobs, pm, config.Default(), log)

	app := fiber.New()
	app.Post("/images", h.Upload)
	app.Get("/images/:base", h.GetManifest)
	app.Get("/images/:base/srcset", h.GetSrcSet)
	app.Get("/images/:base/best", h.GetBestVariant)
	app.Delete("/images/:base", h.DeleteImage)
	return app, images, jobs, pm
}

func uploadRequest(t *testing.T, target string, field string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body), string(data))
	return body
}

func testManifest() *models.OptimizationManifest {
	return &models.OptimizationManifest{
		BaseName:         "img1",
		Main:             models.VariantResult{Name: models.TierMain, Path: "/x/img1_main.jpg", URL: "/uploads/images/img1_main.jpg", Width: 1200, Height: 900},
		Medium:           &models.VariantResult{Name: models.TierMedium, Path: "/x/img1_medium.jpg", URL: "/uploads/images/img1_medium.jpg", Width: 800, Height: 600},
		Thumbnail:        &models.VariantResult{Name: models.TierThumbnail, Path: "/x/img1_thumbnail.jpg", URL: "/uploads/images/img1_thumbnail.jpg", Width: 300, Height: 300},
		VariantsProduced: []string{models.TierMain, models.TierMedium, models.TierThumbnail},
	}
}

func tempEntries(t *testing.T, pm *utils.PathManager) int {
	t.Helper()
	entries, err := os.ReadDir(pm.GetTempPath(""))
	require.NoError(t, err)
	return len(entries)
}

func TestUploadSync(t *testing.T) {
	app, images, _, pm := setupImageHandler(t)

	images.On("ValidateImage", mock.AnythingOfType("string")).Return(true)
	images.On("Optimize", mock.Anything, mock.AnythingOfType("string"), pm.GetImagesPath(), mock.AnythingOfType("string"), models.DefaultOptimizeOptions()).
		Return(testManifest(), nil)

	resp, err := app.Test(uploadRequest(t, "/images", "image", []byte("jpeg bytes")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "img1", body["baseName"])
	assert.Equal(t, 0, tempEntries(t, pm))
	images.AssertExpectations(t)
}

func TestUploadQueryDisablesTiers(t *testing.T) {
	app, images, _, pm := setupImageHandler(t)

	want := models.OptimizeOptions{GenerateThumbnail: false, GeneratePreview: true}
	images.On("ValidateImage", mock.Anything).Return(true)
	images.On("Optimize", mock.Anything, mock.Anything, pm.GetImagesPath(), mock.Anything, want).Return(testManifest(), nil)

	resp, err := app.Test(uploadRequest(t, "/images?thumbnail=false", "image", []byte("jpeg bytes")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	images.AssertExpectations(t)
}

func TestUploadMissingFile(t *testing.T) {
	app, _, _, _ := setupImageHandler(t)

	resp, err := app.Test(uploadRequest(t, "/images", "other", []byte("x")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing image file", decodeBody(t, resp)["error"])
}

func TestUploadUnsupported(t *testing.T) {
	app, images, _, pm := setupImageHandler(t)
	images.On("ValidateImage", mock.Anything).Return(false)

	resp, err := app.Test(uploadRequest(t, "/images", "image", []byte("not an image")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unsupported file", decodeBody(t, resp)["error"])
	assert.Equal(t, 0, tempEntries(t, pm))
	images.AssertNotCalled(t, "Optimize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadProcessingFailure(t *testing.T) {
	app, images, _, _ := setupImageHandler(t)
	images.On("ValidateImage", mock.Anything).Return(true)
	images.On("Optimize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("encoder failed"))

	resp, err := app.Test(uploadRequest(t, "/images", "image", []byte("jpeg bytes")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "processing failed", body["error"])
	assert.Equal(t, true, body["retryable"])
}

func TestUploadAsync(t *testing.T) {
	app, images, jobs, pm := setupImageHandler(t)
	images.On("ValidateImage", mock.Anything).Return(true)
	jobs.On("Submit", mock.Anything, mock.MatchedBy(func(job *models.OptimizeJob) bool {
		return job.BaseName != "" && job.Options.GenerateThumbnail
	})).Return(nil)

	resp, err := app.Test(uploadRequest(t, "/images?async=true", "image", []byte("jpeg bytes")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["jobId"])
	assert.NotEmpty(t, body["baseName"])

	// the upload stays on disk for the worker
	assert.Equal(t, 1, tempEntries(t, pm))
	images.AssertNotCalled(t, "Optimize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadAsyncQueueFailure(t *testing.T) {
	app, images, jobs, pm := setupImageHandler(t)
	images.On("ValidateImage", mock.Anything).Return(true)
	jobs.On("Submit", mock.Anything, mock.Anything).Return(service.ErrQueueClosed)

	resp, err := app.Test(uploadRequest(t, "/images?async=true", "image", []byte("jpeg bytes")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, tempEntries(t, pm))
}

func TestGetManifest(t *testing.T) {
	app, images, _, _ := setupImageHandler(t)
	images.On("GetManifest", "img1").Return(testManifest(), nil)
	images.On("GetManifest", "unknown").Return(nil, service.ErrManifestNotFound)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"found", "/images/img1", 200},
		{"not found", "/images/unknown", 404},
		{"invalid base name", "/images/bad.name", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestGetSrcSet(t *testing.T) {
	app, images, _, _ := setupImageHandler(t)
	images.On("GetManifest", "img1").Return(testManifest(), nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/images/img1/srcset", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t,
		"/uploads/images/img1_thumbnail.jpg 300w, /uploads/images/img1_medium.jpg 800w, /uploads/images/img1_main.jpg 1200w",
		decodeBody(t, resp)["srcset"])
}

func TestGetBestVariant(t *testing.T) {
	app, images, _, _ := setupImageHandler(t)
	images.On("GetManifest", "img1").Return(testManifest(), nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/images/img1/best?width=250", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, models.TierThumbnail, decodeBody(t, resp)["name"])

	resp, err = app.Test(httptest.NewRequest("GET", "/images/img1/best", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestDeleteImage(t *testing.T) {
	app, images, _, _ := setupImageHandler(t)
	images.On("DeleteImage", mock.Anything, "img1").Return(nil)
	images.On("DeleteImage", mock.Anything, "gone").Return(service.ErrManifestNotFound)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/images/img1", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/images/gone", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
