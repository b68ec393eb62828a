package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// StringArray is an alias for pq.StringArray to handle PostgreSQL arrays
type StringArray = pq.StringArray

type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

type AccessLevel string

const (
	AccessNone    AccessLevel = "no_access"
	AccessList    AccessLevel = "list"
	AccessRead    AccessLevel = "read"
	AccessWrite   AccessLevel = "write"
	AccessFull    AccessLevel = "full"
	AccessSpecial AccessLevel = "special"
)

// File attribute flags recorded for root files. Stored as a text array, not
// an enum: scanners on different platforms report different flag sets.
const (
	AttrHidden   = "hidden"
	AttrSystem   = "system"
	AttrReadOnly = "readonly"
	AttrArchive  = "archive"
)

// ScanSession is one execution of the network scanner across a domain.
// Rows are updated incrementally while status is "running" and frozen once
// the scan completes or fails.
type ScanSession struct {
	ID                  int64         `json:"id" db:"id"`
	Domain              string        `json:"domain" db:"domain"`
	StartTime           time.Time     `json:"start_time" db:"start_time"`
	EndTime             *time.Time    `json:"end_time,omitempty" db:"end_time"`
	TotalHosts          int           `json:"total_hosts" db:"total_hosts"`
	TotalShares         int           `json:"total_shares" db:"total_shares"`
	TotalSensitiveFiles int           `json:"total_sensitive_files" db:"total_sensitive_files"`
	Status              SessionStatus `json:"status" db:"status"`
}

// Share is one network share observed during one session. The same physical
// share recurs across sessions with a new row each time; (hostname,
// share_name) is its natural identity across sessions.
type Share struct {
	ID           int64       `json:"id" db:"id"`
	SessionID    int64       `json:"session_id" db:"session_id"`
	Hostname     string      `json:"hostname" db:"hostname"`
	ShareName    string      `json:"share_name" db:"share_name"`
	AccessLevel  AccessLevel `json:"access_level" db:"access_level"`
	ErrorMessage *string     `json:"error_message,omitempty" db:"error_message"`
	TotalFiles   int         `json:"total_files" db:"total_files"`
	TotalDirs    int         `json:"total_dirs" db:"total_dirs"`
	HiddenFiles  int         `json:"hidden_files" db:"hidden_files"`
	ScanTime     time.Time   `json:"scan_time" db:"scan_time"`
}

// NaturalKey identifies "the same" share across sessions.
func (s Share) NaturalKey() ShareKey {
	return ShareKey{Hostname: s.Hostname, ShareName: s.ShareName}
}

type ShareKey struct {
	Hostname  string
	ShareName string
}

// SensitiveFile is one pattern match inside a share. A single physical file
// accumulates one row per matching pattern, so DetectionType is an open
// string vocabulary, not a closed enum.
type SensitiveFile struct {
	ID            int64     `json:"id" db:"id"`
	ShareID       int64     `json:"share_id" db:"share_id"`
	FilePath      string    `json:"file_path" db:"file_path"`
	FileName      string    `json:"file_name" db:"file_name"`
	DetectionType string    `json:"detection_type" db:"detection_type"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// RootFile is a file found directly at a share's root.
type RootFile struct {
	ID           int64       `json:"id" db:"id"`
	ShareID      int64       `json:"share_id" db:"share_id"`
	FileName     string      `json:"file_name" db:"file_name"`
	FileType     string      `json:"file_type" db:"file_type"`
	FileSize     int64       `json:"file_size" db:"file_size"`
	Attributes   StringArray `json:"attributes" db:"attributes"`
	CreatedTime  *time.Time  `json:"created_time,omitempty" db:"created_time"`
	ModifiedTime *time.Time  `json:"modified_time,omitempty" db:"modified_time"`
}

// SensitivePattern is a user-managed detection rule. Patterns are mutable
// independently of scans and are not versioned: historical SensitiveFile rows
// keep whatever detection_type was recorded at scan time.
type SensitivePattern struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Pattern     string    `json:"pattern" db:"pattern"`
	Type        string    `json:"type" db:"type"`
	Description string    `json:"description" db:"description"`
	Enabled     bool      `json:"enabled" db:"enabled"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ShareListing is a share row annotated with the distinct sensitive-file
// count computed by the filtered listing query.
type ShareListing struct {
	Share
	SensitiveFileCount int `json:"sensitive_file_count" db:"sensitive_file_count"`
}
