// pkg/services/image.go
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imgvault/config"
	"imgvault/pkg/cache"
	"imgvault/pkg/metrics"
	"imgvault/pkg/models"
	"imgvault/pkg/utils"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FallbackPlaceholder is a transparent 1x1 GIF returned when no placeholder can be rendered
const FallbackPlaceholder = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

var (
	ErrEmptySource       = errors.New("source image is empty")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrManifestNotFound  = errors.New("manifest not found")
)

// supportedFormats are the decoder names accepted by ValidateImage
var supportedFormats = map[string]bool{
	"jpeg": true,
	"jpg":  true,
	"png":  true,
	"webp": true,
	"gif":  true,
}

// ImageService turns one uploaded image into the fixed set of web variants
type ImageService struct {
	config       *config.Config
	cache        *cache.TTLCache[any]
	log          *utils.Logger
	publicPrefix string
	maxDimension int

	placeholder func(image.Image) (string, error)
}

// NewImageService creates a new image service. The cache is optional.
func NewImageService(cfg *config.Config, c *cache.TTLCache[any], log *utils.Logger) *ImageService {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = utils.NewNopLogger()
	}

	return &ImageService{
		config:       cfg,
		cache:        c,
		log:          log,
		publicPrefix: strings.TrimSuffix(cfg.Images.PublicPrefix, "/"),
		maxDimension: cfg.Images.MaxDimension,
		placeholder:  renderPlaceholder,
	}
}

// Optimize decodes the source once and writes every requested tier to outputDir.
// Tiers are produced in parallel; VariantsProduced keeps the fixed tier order.
func (s *ImageService) Optimize(ctx context.Context, sourcePath, outputDir, baseName string, opts models.OptimizeOptions) (*models.OptimizationManifest, error) {
	start := time.Now()
	log := s.log.WithFunc().WithFields(logrus.Fields{
		"source":   sourcePath,
		"baseName": baseName,
		"atomic":   opts.Atomic,
	})

	manifest, err := s.optimize(ctx, sourcePath, outputDir, baseName, opts)
	if err != nil {
		metrics.RecordOptimize("error", time.Since(start).Seconds())
		log.WithError(err).Error("Failed to optimize image")
		return nil, err
	}

	metrics.RecordOptimize("success", time.Since(start).Seconds())
	metrics.RecordCompression(manifest.CompressionRatio)

	log.WithFields(logrus.Fields{
		"variants":         manifest.VariantsProduced,
		"compressionRatio": manifest.CompressionRatio,
		"durationMs":       time.Since(start).Milliseconds(),
	}).Info("Image optimized")

	return manifest, nil
}

func (s *ImageService) optimize(ctx context.Context, sourcePath, outputDir, baseName string, opts models.OptimizeOptions) (*models.OptimizationManifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	original, img, err := s.loadSource(sourcePath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	writeDir := outputDir
	if opts.Atomic {
		writeDir = utils.NewStagingPath(outputDir)
		if err := os.MkdirAll(writeDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create staging directory: %w", err)
		}
		defer func() {
			if err := os.RemoveAll(writeDir); err != nil {
				s.log.WithFunc().WithError(err).WithField("staging", writeDir).Warn("Failed to remove staging directory")
			}
		}()
	}

	tiers := tiersFor(opts)
	results := make([]models.VariantResult, len(tiers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(tiers))
	for i, spec := range tiers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.writeVariant(gctx, img, spec, writeDir, baseName)
			if err != nil {
				return fmt.Errorf("%s variant: %w", spec.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	placeholder := s.safePlaceholder(ctx, img, baseName)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Atomic {
		if err := s.publish(results, outputDir); err != nil {
			return nil, err
		}
	}

	manifest := &models.OptimizationManifest{
		BaseName:  baseName,
		Original:  *original,
		CreatedAt: time.Now(),
	}
	for _, res := range results {
		switch res.Name {
		case models.TierMain:
			manifest.Main = res
		case models.TierMedium:
			manifest.Medium = &res
		case models.TierThumbnail:
			manifest.Thumbnail = &res
		case models.TierPreview:
			manifest.Preview = &res
		}
		manifest.VariantsProduced = append(manifest.VariantsProduced, res.Name)
		metrics.RecordVariant(res.Name, res.Size)
	}

	manifest.Placeholder = placeholder
	manifest.CompressionRatio = compressionRatio(original.Size, manifest.TotalVariantBytes())

	if s.cache != nil {
		s.cache.Set(ManifestKey(baseName), manifest, cache.TTLLong)
	}

	return manifest, nil
}

// tiersFor lists the file tiers of one call in their fixed order
func tiersFor(opts models.OptimizeOptions) []models.VariantSpec {
	names := []string{models.TierMain, models.TierMedium}
	if opts.GenerateThumbnail {
		names = append(names, models.TierThumbnail)
	}
	if opts.GeneratePreview {
		names = append(names, models.TierPreview)
	}

	specs := make([]models.VariantSpec, 0, len(names))
	for _, name := range names {
		spec, _ := models.TierSpec(name)
		specs = append(specs, spec)
	}
	return specs
}

func (s *ImageService) loadSource(sourcePath string) (*models.ImageSourceDescriptor, image.Image, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source: %w", err)
	}
	if len(data) == 0 {
		return nil, nil, ErrEmptySource
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(sourcePath))
		}
		return nil, nil, fmt.Errorf("failed to decode source: %w", err)
	}

	b := img.Bounds()
	return &models.ImageSourceDescriptor{
		Path:   sourcePath,
		Bytes:  data,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
		Size:   int64(len(data)),
	}, img, nil
}

func (s *ImageService) writeVariant(ctx context.Context, img image.Image, spec models.VariantSpec, dir, baseName string) (models.VariantResult, error) {
	resized := resizeVariant(img, spec)

	data, err := encodeJPEG(resized, spec.Quality)
	if err != nil {
		return models.VariantResult{}, err
	}

	// cancelled while encoding
	if err := ctx.Err(); err != nil {
		return models.VariantResult{}, err
	}

	fileName := spec.FileName(baseName)
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return models.VariantResult{}, fmt.Errorf("failed to write %s: %w", fileName, err)
	}

	return models.VariantResult{
		Name:   spec.Name,
		Path:   path,
		URL:    s.publicURL(fileName),
		Width:  resized.Bounds().Dx(),
		Height: resized.Bounds().Dy(),
		Size:   int64(len(data)),
	}, nil
}

// publish moves staged variants into outputDir and rewrites their paths.
// When a rename fails, the variants already moved are removed again so
// either every tier is published or none is.
func (s *ImageService) publish(results []models.VariantResult, outputDir string) error {
	published := make([]string, 0, len(results))
	for i := range results {
		target := filepath.Join(outputDir, filepath.Base(results[i].Path))
		if err := os.Rename(results[i].Path, target); err != nil {
			s.unpublish(published)
			return fmt.Errorf("failed to publish %s: %w", filepath.Base(target), err)
		}
		published = append(published, target)
	}
	for i := range results {
		results[i].Path = published[i]
	}
	return nil
}

func (s *ImageService) unpublish(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.log.WithFunc().WithError(err).WithField("path", p).Warn("Failed to roll back published variant")
		}
	}
}

// safePlaceholder never fails the pipeline: errors and codec panics yield ""
func (s *ImageService) safePlaceholder(ctx context.Context, img image.Image, baseName string) (dataURL string) {
	if ctx.Err() != nil {
		return ""
	}

	log := s.log.WithFunc().WithField("baseName", baseName)
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("Placeholder generation panicked: %v", r)
			dataURL = ""
		}
	}()

	dataURL, err := s.placeholder(img)
	if err != nil {
		log.WithError(err).Warn("Failed to generate placeholder")
		return ""
	}
	return dataURL
}

func (s *ImageService) publicURL(fileName string) string {
	return s.publicPrefix + "/" + fileName
}

func compressionRatio(originalSize, variantsSize int64) float64 {
	if originalSize <= 0 {
		return 0
	}
	ratio := (1 - float64(variantsSize)/float64(originalSize)) * 100
	return math.Round(ratio*100) / 100
}

// OptimizeMany optimizes each path in turn. Failures are logged and skipped.
func (s *ImageService) OptimizeMany(ctx context.Context, paths []string, outputDir string, opts models.OptimizeOptions) []*models.OptimizationManifest {
	batch := utils.NewBaseName()
	manifests := make([]*models.OptimizationManifest, 0, len(paths))

	for i, path := range paths {
		if ctx.Err() != nil {
			s.log.WithFunc().WithError(ctx.Err()).Warn("Batch optimization cancelled")
			break
		}
		manifest, err := s.Optimize(ctx, path, outputDir, utils.BatchBaseName(batch, i), opts)
		if err != nil {
			s.log.WithFunc().WithError(err).WithField("source", path).Warn("Skipping image in batch")
			continue
		}
		manifests = append(manifests, manifest)
	}

	return manifests
}

// GetImageInfo returns dimensions, format and orientation, or nil when the file cannot be decoded
func (s *ImageService) GetImageInfo(path string) *models.ImageInfo {
	key := ImageInfoKey(filepath.Base(path))
	if s.cache != nil {
		if info, ok := cache.GetAs[*models.ImageInfo](s.cache, key); ok {
			return info
		}
	}

	info, err := readImageInfo(path)
	if err != nil {
		s.log.WithFunc().WithError(err).WithField("path", path).Debug("Failed to read image info")
		return nil
	}

	if s.cache != nil {
		s.cache.Set(key, info, cache.TTLLong)
	}
	return info
}

func readImageInfo(path string) (*models.ImageInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptySource
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return &models.ImageInfo{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      format,
		Size:        int64(len(data)),
		HasAlpha:    hasAlpha(cfg.ColorModel),
		Orientation: readOrientation(data),
	}, nil
}

// readOrientation returns the EXIF orientation tag, 1 when absent
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// ValidateImage accepts supported formats whose dimensions fit the configured ceiling
func (s *ImageService) ValidateImage(path string) bool {
	info, err := readImageInfo(path)
	if err != nil {
		s.log.WithFunc().WithError(err).WithField("path", path).Debug("Image failed validation")
		return false
	}
	if !supportedFormats[strings.ToLower(info.Format)] {
		return false
	}
	return info.Width <= s.maxDimension && info.Height <= s.maxDimension
}

// GeneratePlaceholder returns the blurred data URL for a file, or FallbackPlaceholder
func (s *ImageService) GeneratePlaceholder(path string) string {
	key := PlaceholderKey(filepath.Base(path))
	if s.cache != nil {
		if url, ok := cache.GetAs[string](s.cache, key); ok {
			return url
		}
	}

	_, img, err := s.loadSource(path)
	if err != nil {
		s.log.WithFunc().WithError(err).WithField("path", path).Warn("Failed to load image for placeholder")
		return FallbackPlaceholder
	}

	url := s.safePlaceholder(context.Background(), img, filepath.Base(path))
	if url == "" {
		return FallbackPlaceholder
	}

	if s.cache != nil {
		s.cache.Set(key, url, cache.TTLLong)
	}
	return url
}

// GetManifest returns the cached manifest of a base name
func (s *ImageService) GetManifest(baseName string) (*models.OptimizationManifest, error) {
	if s.cache != nil {
		if m, ok := cache.GetAs[*models.OptimizationManifest](s.cache, ManifestKey(baseName)); ok {
			return m, nil
		}
	}
	return nil, ErrManifestNotFound
}

// CleanupImageFiles removes every variant of a manifest. Failures are logged, never returned.
func (s *ImageService) CleanupImageFiles(ctx context.Context, manifest *models.OptimizationManifest) {
	if manifest == nil {
		return
	}

	var g errgroup.Group
	for _, v := range manifest.Variants() {
		g.Go(func() error {
			if err := os.Remove(v.Path); err != nil {
				s.log.WithFunc().WithError(err).WithFields(logrus.Fields{
					"baseName": manifest.BaseName,
					"variant":  v.Name,
				}).Warn("Failed to delete variant file")
			}
			return nil
		})
	}
	_ = g.Wait()

	if s.cache != nil {
		s.cache.Delete(ManifestKey(manifest.BaseName))
	}

	s.log.WithFunc().WithField("baseName", manifest.BaseName).Info("Image files cleaned up")
}

// DeleteImage removes the variants of a cached manifest
func (s *ImageService) DeleteImage(ctx context.Context, baseName string) error {
	manifest, err := s.GetManifest(baseName)
	if err != nil {
		return err
	}
	s.CleanupImageFiles(ctx, manifest)
	return nil
}
