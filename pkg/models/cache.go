// pkg/models/cache.go
package models

// StorageStats summarizes what the image store holds on disk
type StorageStats struct {
	VariantCount    int     `json:"variantCount"`
	VariantsSize    int64   `json:"variantsSize"`
	StagingDirCount int     `json:"stagingDirCount"`
	TempFileCount   int     `json:"tempFileCount"`
	TempSize        int64   `json:"tempSize"`
	TotalSize       int64   `json:"totalSize"`
	MaxSize         int64   `json:"maxSize"`
	UsagePercent    float64 `json:"usagePercent"`
}

// CalculateUsagePercent calculates and sets the usage percentage
func (s *StorageStats) CalculateUsagePercent() {
	if s.MaxSize > 0 {
		s.UsagePercent = float64(s.TotalSize) / float64(s.MaxSize) * 100
	} else {
		s.UsagePercent = 0
	}
}
