package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	cfg "imgvault/config"
	"imgvault/pkg/models"
	"imgvault/pkg/utils"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// blobStore is the minimal object storage surface used for backup and restore
type blobStore interface {
	Name() string
	Upload(ctx context.Context, key string, file *os.File) error
	List(ctx context.Context, prefix string) ([]string, error)
	Download(ctx context.Context, key string, file *os.File) error
}

// BackupService mirrors the published variants to a cloud bucket
type BackupService struct {
	config    *cfg.Config
	log       *utils.Logger
	store     blobStore
	imagesDir string
	prefix    string

	mu     sync.Mutex
	status models.BackupStatus
}

// NewBackupService returns nil, nil when backup is disabled
func NewBackupService(config *cfg.Config, pathManager *utils.PathManager, log *utils.Logger) (*BackupService, error) {
	if config == nil {
		return nil, fmt.Errorf("❌ invalid configuration: config is nil")
	}

	if log == nil {
		return nil, fmt.Errorf("❌ logger is nil")
	}

	if !config.Backup.Enabled {
		log.WithFunc().Info("Backup is disabled")
		return nil, nil
	}

	secrets := cfg.LoadSecrets()
	var (
		store blobStore
		err   error
	)
	switch config.Backup.Provider {
	case "aws":
		store, err = newS3Store(config, secrets.AWSAccessKeyID, secrets.AWSSecretAccessKey, log)
	case "gcp":
		store, err = newGCSStore(config, secrets.GCPCredentialsFile, log)
	case "azure":
		store, err = newAzureStore(config, secrets.AzureStorageAccountKey, log)
	default:
		log.WithFunc().WithField("provider", config.Backup.Provider).Info("No backup provider configured")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("❌ failed to initialize %s client: %w", config.Backup.Provider, err)
	}

	log.WithFunc().WithField("provider", store.Name()).Info("Backup is enabled")
	return newBackupServiceWithStore(config, store, pathManager.GetImagesPath(), log), nil
}

func newBackupServiceWithStore(config *cfg.Config, store blobStore, imagesDir string, log *utils.Logger) *BackupService {
	prefix := config.Backup.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &BackupService{
		config:    config,
		log:       log,
		store:     store,
		imagesDir: imagesDir,
		prefix:    prefix,
		status:    models.BackupStatus{Provider: store.Name(), Prefix: prefix},
	}
}

// Backup uploads every published variant
func (s *BackupService) Backup(ctx context.Context) error {
	s.log.WithFunc().WithField("path", s.imagesDir).Debug("Starting backup process")

	if _, err := os.Stat(s.imagesDir); err != nil {
		s.log.WithFunc().WithError(err).WithField("path", s.imagesDir).Error("Source path not accessible")
		return s.recordBackup(0, fmt.Errorf("source path not accessible: %w", err))
	}

	var files []string
	err := filepath.WalkDir(s.imagesDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != s.imagesDir && utils.IsStagingDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return s.recordBackup(0, fmt.Errorf("failed to list variants: %w", err))
	}

	uploaded, err := s.uploadFiles(ctx, files)
	return s.recordBackup(uploaded, err)
}

// BackupManifest uploads the variants of a single manifest
func (s *BackupService) BackupManifest(ctx context.Context, manifest *models.OptimizationManifest) error {
	var files []string
	for _, v := range manifest.Variants() {
		files = append(files, v.Path)
	}
	uploaded, err := s.uploadFiles(ctx, files)
	return s.recordBackup(uploaded, err)
}

func (s *BackupService) uploadFiles(ctx context.Context, files []string) (int, error) {
	uploaded := 0
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return uploaded, err
		}

		rel, err := filepath.Rel(s.imagesDir, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = filepath.Base(p)
		}
		key := s.prefix + filepath.ToSlash(rel)

		if err := s.uploadFile(ctx, key, p); err != nil {
			s.log.WithFunc().WithError(err).WithField("file", key).Error("Failed to upload file")
			return uploaded, fmt.Errorf("failed to upload %s: %w", key, err)
		}
		uploaded++

		s.log.WithFunc().WithFields(logrus.Fields{
			"file":     key,
			"provider": s.store.Name(),
		}).Debug("File uploaded successfully")
	}
	return uploaded, nil
}

func (s *BackupService) uploadFile(ctx context.Context, key, p string) error {
	file, err := os.Open(p)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.store.Upload(ctx, key, file)
}

// Restore downloads every object under the prefix into the images directory
func (s *BackupService) Restore(ctx context.Context) error {
	s.log.WithFunc().Debug("Starting restore process")

	keys, err := s.store.List(ctx, s.prefix)
	if err != nil {
		return s.recordRestore(0, fmt.Errorf("failed to list backup: %w", err))
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		return s.recordRestore(0, fmt.Errorf("failed to create images directory: %w", err))
	}

	restored := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return s.recordRestore(restored, err)
		}

		// variants live in a flat directory; anything nested is flattened to its file name
		name := path.Base(strings.TrimPrefix(key, s.prefix))
		if name == "" || name == "." || name == "/" {
			continue
		}

		if err := s.downloadFile(ctx, key, filepath.Join(s.imagesDir, name)); err != nil {
			s.log.WithFunc().WithError(err).WithField("file", key).Error("Failed to download file")
			return s.recordRestore(restored, fmt.Errorf("failed to restore %s: %w", key, err))
		}
		restored++
	}

	s.log.WithFunc().WithFields(logrus.Fields{
		"files":    restored,
		"provider": s.store.Name(),
	}).Info("Restore completed")

	return s.recordRestore(restored, nil)
}

func (s *BackupService) downloadFile(ctx context.Context, key, target string) error {
	file, err := os.Create(target)
	if err != nil {
		return err
	}
	if err := s.store.Download(ctx, key, file); err != nil {
		file.Close()
		os.Remove(target)
		return err
	}
	return file.Close()
}

// GetStatus returns a copy of the current backup status
func (s *BackupService) GetStatus() models.BackupStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *BackupService) recordBackup(files int, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.status.LastBackup = &now
	s.status.FilesUploaded = files
	s.status.LastError = errorString(err)
	return err
}

func (s *BackupService) recordRestore(files int, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.status.LastRestore = &now
	s.status.FilesRestored = files
	s.status.LastError = errorString(err)
	return err
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// s3Store backs up to an AWS S3 bucket
type s3Store struct {
	bucket     string
	session    *session.Session
	client     *s3.S3
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
}

func newS3Store(config *cfg.Config, accessKey, secretKey string, log *utils.Logger) (*s3Store, error) {
	log.WithFunc().WithFields(logrus.Fields{
		"region": config.Backup.AWS.Region,
		"bucket": config.Backup.AWS.Bucket,
	}).Debug("Initializing AWS client")

	if config.Backup.AWS.Bucket == "" {
		return nil, fmt.Errorf("AWS bucket name is not configured")
	}
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("AWS credentials not provided")
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(config.Backup.AWS.Region),
		Credentials: credentials.NewStaticCredentials(accessKey, secretKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &s3Store{
		bucket:     config.Backup.AWS.Bucket,
		session:    sess,
		client:     s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
	}, nil
}

func (s *s3Store) Name() string { return "aws" }

func (s *s3Store) Upload(ctx context.Context, key string, file *os.File) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(models.EncodedMimeType),
	})
	return err
}

func (s *s3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	return keys, err
}

func (s *s3Store) Download(ctx context.Context, key string, file *os.File) error {
	_, err := s.downloader.DownloadWithContext(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// gcsStore backs up to a Google Cloud Storage bucket
type gcsStore struct {
	bucket string
	client *gcs.Client
}

func newGCSStore(config *cfg.Config, credentialsFile string, log *utils.Logger) (*gcsStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Vérification des prérequis
	if config.Backup.GCP.Bucket == "" {
		return nil, fmt.Errorf("GCP bucket name is not configured")
	}
	if config.Backup.GCP.ProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is not configured")
	}
	if credentialsFile == "" {
		return nil, fmt.Errorf("GCP credentials file path not provided")
	}

	if _, err := os.Stat(credentialsFile); err != nil {
		log.WithFunc().WithError(err).WithField("credentialsPath", credentialsFile).Error("Credentials file check failed")
		return nil, fmt.Errorf("credentials file not found: %w", err)
	}

	client, err := gcs.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP client: %w", err)
	}

	attrs, err := client.Bucket(config.Backup.GCP.Bucket).Attrs(ctx)
	if err != nil {
		client.Close()
		if err == gcs.ErrBucketNotExist {
			return nil, fmt.Errorf("bucket %s does not exist in project %s", config.Backup.GCP.Bucket, config.Backup.GCP.ProjectID)
		}
		return nil, fmt.Errorf("failed to access bucket %s: %w", config.Backup.GCP.Bucket, err)
	}

	log.WithFunc().WithFields(logrus.Fields{
		"bucket":   config.Backup.GCP.Bucket,
		"created":  attrs.Created,
		"location": attrs.Location,
	}).Info("Successfully connected to GCP bucket")

	return &gcsStore{bucket: config.Backup.GCP.Bucket, client: client}, nil
}

func (s *gcsStore) Name() string { return "gcp" }

func (s *gcsStore) Upload(ctx context.Context, key string, file *os.File) error {
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = models.EncodedMimeType
	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func (s *gcsStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return keys, nil
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, attrs.Name)
	}
}

func (s *gcsStore) Download(ctx context.Context, key string, file *os.File) error {
	reader, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return err
	}
	defer reader.Close()
	_, err = io.Copy(file, reader)
	return err
}

// azureStore backs up to an Azure Blob Storage container
type azureStore struct {
	containerURL azblob.ContainerURL
}

func newAzureStore(config *cfg.Config, accountKey string, log *utils.Logger) (*azureStore, error) {
	log.WithFunc().WithFields(logrus.Fields{
		"storageAccount": config.Backup.Azure.StorageAccount,
		"container":      config.Backup.Azure.Container,
	}).Debug("Initializing Azure client")

	if config.Backup.Azure.StorageAccount == "" {
		return nil, fmt.Errorf("Azure storage account name is not configured")
	}
	if config.Backup.Azure.Container == "" {
		return nil, fmt.Errorf("Azure container name is not configured")
	}
	if accountKey == "" {
		return nil, fmt.Errorf("Azure storage account key not provided")
	}

	credential, err := azblob.NewSharedKeyCredential(config.Backup.Azure.StorageAccount, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credentials: %w", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	containerURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net/%s",
		config.Backup.Azure.StorageAccount,
		config.Backup.Azure.Container))
	if err != nil {
		return nil, fmt.Errorf("failed to parse container URL: %w", err)
	}

	store := &azureStore{containerURL: azblob.NewContainerURL(*containerURL, pipeline)}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = store.containerURL.GetProperties(ctx, azblob.LeaseAccessConditions{})
	if err != nil {
		// Tentative de création du container s'il n'existe pas
		if storageErr, ok := err.(azblob.StorageError); ok && storageErr.ServiceCode() == azblob.ServiceCodeContainerNotFound {
			log.WithFunc().WithField("container", config.Backup.Azure.Container).Info("Container does not exist, creating it")

			if _, err := store.containerURL.Create(ctx, azblob.Metadata{}, azblob.PublicAccessNone); err != nil {
				return nil, fmt.Errorf("failed to create container %s: %w", config.Backup.Azure.Container, err)
			}
		} else {
			return nil, fmt.Errorf("failed to access Azure container %s: %w", config.Backup.Azure.Container, err)
		}
	}

	log.WithFunc().WithFields(logrus.Fields{
		"storageAccount": config.Backup.Azure.StorageAccount,
		"container":      config.Backup.Azure.Container,
	}).Info("Successfully connected to Azure Blob Storage")

	return store, nil
}

func (s *azureStore) Name() string { return "azure" }

func (s *azureStore) Upload(ctx context.Context, key string, file *os.File) error {
	blobURL := s.containerURL.NewBlockBlobURL(key)
	_, err := azblob.UploadFileToBlockBlob(ctx, file, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024, // 4MB blocks
		Parallelism: 16,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: models.EncodedMimeType,
		},
	})
	return err
}

func (s *azureStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for marker := (azblob.Marker{}); marker.NotDone(); {
		resp, err := s.containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{Prefix: prefix})
		if err != nil {
			return nil, err
		}
		marker = resp.NextMarker
		for _, item := range resp.Segment.BlobItems {
			keys = append(keys, item.Name)
		}
	}
	return keys, nil
}

func (s *azureStore) Download(ctx context.Context, key string, file *os.File) error {
	blobURL := s.containerURL.NewBlobURL(key)
	return azblob.DownloadBlobToFile(ctx, blobURL, 0, azblob.CountToEnd, file, azblob.DownloadFromBlobOptions{})
}
