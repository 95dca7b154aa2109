package service

// Cache key prefixes shared by the services and the HTTP layer
const (
	manifestKeyPrefix    = "manifest:"
	imageInfoKeyPrefix   = "image-info:"
	placeholderKeyPrefix = "placeholder:"
	jobKeyPrefix         = "job:"
)

func ManifestKey(baseName string) string    { return manifestKeyPrefix + baseName }
func ImageInfoKey(fileName string) string   { return imageInfoKeyPrefix + fileName }
func PlaceholderKey(fileName string) string { return placeholderKeyPrefix + fileName }
func JobKey(id string) string               { return jobKeyPrefix + id }
