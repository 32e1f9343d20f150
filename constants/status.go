package constants

// UploadStatus is the per-file status reported during a bulk upload.
type UploadStatus string

// Stable values (these exact strings appear in progress events and logs).
const (
	StatusPending    UploadStatus = "PENDING"    // queued, not started
	StatusUploading  UploadStatus = "UPLOADING"  // storing the PDF
	StatusExtracting UploadStatus = "EXTRACTING" // model extraction in progress
	StatusAdded      UploadStatus = "ADDED"      // terminal: invoice persisted
	StatusFailed     UploadStatus = "FAILED"     // terminal: file rejected
)

// Terminal reports whether no further events follow for the file.
func (s UploadStatus) Terminal() bool {
	return s == StatusAdded || s == StatusFailed
}
