// pkg/models/backup.go
package models

import "time"

// BackupStatus reports the outcome of the last backup and restore
type BackupStatus struct {
	Provider      string     `json:"provider"`
	Prefix        string     `json:"prefix"`
	LastBackup    *time.Time `json:"lastBackup,omitempty"`
	FilesUploaded int        `json:"filesUploaded"`
	LastRestore   *time.Time `json:"lastRestore,omitempty"`
	FilesRestored int        `json:"filesRestored"`
	LastError     string     `json:"lastError,omitempty"`
}
