package types

import (
	"time"

	"github.com/objectfs/docvfs/internal/config"
)

// Node represents one row of the nodes table: a file or directory.
type Node struct {
	ID            int64             `json:"id"`
	UUID          string            `json:"uuid"`
	OwnerID       int64             `json:"owner_id"`
	RootKey       string            `json:"root_key"`
	ParentPath    string            `json:"parent_path"`
	Filename      string            `json:"filename"`
	Ordinal       uint32            `json:"ordinal"`
	IsDirectory   bool              `json:"is_directory"`
	IsPublic      bool              `json:"is_public"`
	IsBinary      bool              `json:"is_binary"`
	ContentText   *string           `json:"content_text,omitempty"`
	ContentBinary []byte            `json:"content_binary,omitempty"`
	ContentType   string            `json:"content_type"`
	SizeBytes     int64             `json:"size_bytes"`
	CreatedTime   int64             `json:"created_time"`
	ModifiedTime  int64             `json:"modified_time"`
}

// DirEntry is a single readdir() result row — a subset of Node's columns,
// matching the field list spec'd for readdir.
type DirEntry struct {
	UUID         string `json:"uuid"`
	Filename     string `json:"filename"`
	IsDirectory  bool   `json:"is_directory"`
	IsPublic     bool   `json:"is_public"`
	Ordinal      uint32 `json:"ordinal"`
	SizeBytes    int64  `json:"size_bytes"`
	ContentType  string `json:"content_type"`
	CreatedTime  int64  `json:"created_time"`
	ModifiedTime int64  `json:"modified_time"`
}

// SearchMode selects how multiple query terms combine.
type SearchMode string

const (
	MatchAny SearchMode = "MATCH_ANY"
	MatchAll SearchMode = "MATCH_ALL"
)

// SearchOrder selects the ordering of search hits.
type SearchOrder string

const (
	OrderModTime SearchOrder = "MOD_TIME"
	OrderName    SearchOrder = "NAME"
)

// SearchHit is one result row from search_text or search_binaries.
type SearchHit struct {
	UUID            string `json:"uuid"`
	FullPath        string `json:"full_path"`
	Filename        string `json:"filename"`
	LineNo          int    `json:"line_no,omitempty"`
	ContentSnippet  string `json:"content_snippet,omitempty"`
	ContentType     string `json:"content_type"`
	SizeBytes       int64  `json:"size_bytes"`
	ModifiedTime    int64  `json:"modified_time"`
}

// RenameResult is the outcome of a rename primitive call.
type RenameResult struct {
	Success    bool   `json:"success"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// MessageState tracks a chat message's persistence lifecycle.
type MessageState string

const (
	MessageSent   MessageState = "SENT"
	MessageFailed MessageState = "FAILED"
	MessageSaved  MessageState = "SAVED"
)

// Room is a named chat/signaling room.
type Room struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Attachment is a binary payload attached to a Message.
type Attachment struct {
	ID        int64  `json:"id"`
	MessageID string `json:"message_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	Data      []byte `json:"data,omitempty"`
}

// Message is one persisted chat message, client-id keyed for at-most-once
// persistence.
type Message struct {
	ID          string       `json:"id"`
	RoomID      int64        `json:"room_id"`
	Timestamp   int64        `json:"timestamp"`
	Sender      string       `json:"sender"`
	Content     string       `json:"content"`
	PublicKey   string       `json:"public_key"`
	Signature   string       `json:"signature"`
	State       MessageState `json:"state"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// CacheStats reports readdir/stat cache performance.
type CacheStats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Size        int64   `json:"size"`
	Capacity    int64   `json:"capacity"`
	HitRate     float64 `json:"hit_rate"`
	Utilization float64 `json:"utilization"`
}

// HealthStatus represents the health status of a component.
type HealthStatus struct {
	Status     string            `json:"status"`
	LastCheck  time.Time         `json:"last_check"`
	Response   time.Duration     `json:"response_time"`
	ErrorCount int64             `json:"error_count"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details"`
}

// ConnectionStats represents Store connection pool statistics.
type ConnectionStats struct {
	Active      int           `json:"active"`
	Idle        int           `json:"idle"`
	Total       int           `json:"total"`
	MaxOpen     int           `json:"max_open"`
	Lifetime    time.Duration `json:"lifetime"`
	IdleTimeout time.Duration `json:"idle_timeout"`
}

// PerformanceMetrics represents system performance metrics surfaced on the
// ops API.
type PerformanceMetrics struct {
	Timestamp       time.Time     `json:"timestamp"`
	ReadThroughput  float64       `json:"read_throughput"`
	WriteThroughput float64       `json:"write_throughput"`
	ReadLatency     time.Duration `json:"read_latency"`
	WriteLatency    time.Duration `json:"write_latency"`
	CacheHitRate    float64       `json:"cache_hit_rate"`
	ActiveUsers     int64         `json:"active_users"`
	PendingRequests int64         `json:"pending_requests"`
	ErrorRate       float64       `json:"error_rate"`
}

// --- DocService request structs (§4.4) ---

// CreateFileRequest is the request body for DocService.CreateFile.
type CreateFileRequest struct {
	Owner       int64  `json:"owner"`
	Name        string `json:"name"`
	Folder      string `json:"folder"`
	InsertAfter string `json:"insert_after,omitempty"`
	RootKey     string `json:"root_key"`
}

// CreateFolderRequest is the request body for DocService.CreateFolder.
type CreateFolderRequest struct {
	Owner       int64  `json:"owner"`
	Name        string `json:"name"`
	Folder      string `json:"folder"`
	InsertAfter string `json:"insert_after,omitempty"`
	RootKey     string `json:"root_key"`
}

// SaveFileRequest is the request body for DocService.SaveFile.
type SaveFileRequest struct {
	Owner       int64  `json:"owner"`
	Filename    string `json:"filename"`
	Folder      string `json:"folder"`
	Content     string `json:"content"`
	NewFileName string `json:"new_file_name,omitempty"`
	RootKey     string `json:"root_key"`
}

// PasteItem names one source path being moved by PasteItemsRequest.
type PasteItem struct {
	SourcePath string `json:"source_path"`
}

// PasteItemsRequest is the request body for DocService.PasteItems.
type PasteItemsRequest struct {
	Owner         int64       `json:"owner"`
	TargetFolder  string      `json:"target_folder"`
	Items         []PasteItem `json:"items"`
	TargetOrdinal uint32      `json:"target_ordinal"`
	RootKey       string      `json:"root_key"`
}

// PasteItemResult reports the outcome of moving one PasteItem.
type PasteItemResult struct {
	SourcePath string `json:"source_path"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// JoinFilesRequest is the request body for DocService.JoinFiles.
type JoinFilesRequest struct {
	Owner     int64    `json:"owner"`
	Filenames []string `json:"filenames"`
	Folder    string   `json:"folder"`
	RootKey   string   `json:"root_key"`
}

// MoveDirection selects which neighbor MoveUpDown swaps ordinals with.
type MoveDirection string

const (
	MoveUp   MoveDirection = "UP"
	MoveDown MoveDirection = "DOWN"
)

// MoveUpDownRequest is the request body for DocService.MoveUpDown.
type MoveUpDownRequest struct {
	Owner     int64         `json:"owner"`
	Filename  string        `json:"filename"`
	Direction MoveDirection `json:"direction"`
	Folder    string        `json:"folder"`
	RootKey   string        `json:"root_key"`
}

// RenameFolderRequest is the request body for DocService.RenameFolder.
type RenameFolderRequest struct {
	Owner      int64  `json:"owner"`
	OldPath    string `json:"old_path"`
	NewName    string `json:"new_name"`
	RootKey    string `json:"root_key"`
}

// DeleteRequest is the request body for DocService.DeleteFileOrFolder.
type DeleteRequest struct {
	Owner     int64  `json:"owner"`
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	Force     bool   `json:"force"`
	RootKey   string `json:"root_key"`
}

// SetPublicRequest is the request body for DocService.SetPublic.
type SetPublicRequest struct {
	Owner    int64  `json:"owner"`
	Path     string `json:"path"`
	IsPublic bool   `json:"is_public"`
	RootKey  string `json:"root_key"`
}

// --- SigningRelay wire messages (§4.5/§6.2) ---

// WireEnvelope is decoded first to dispatch on Type before unmarshaling the
// full concrete message struct.
type WireEnvelope struct {
	Type string `json:"type"`
}

type JoinMessage struct {
	Type      string `json:"type"`
	Room      string `json:"room"`
	User      string `json:"user"`
	PublicKey string `json:"publicKey,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type OfferMessage struct {
	Type      string `json:"type"`
	Target    string `json:"target"`
	Offer     any    `json:"offer"`
	Room      string `json:"room"`
	PublicKey string `json:"publicKey,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type AnswerMessage struct {
	Type   string `json:"type"`
	Target string `json:"target"`
	Answer any    `json:"answer"`
}

type ICECandidateMessage struct {
	Type      string `json:"type"`
	Target    string `json:"target"`
	Candidate any    `json:"candidate"`
}

type BroadcastMessage struct {
	Type      string `json:"type"`
	Room      string `json:"room"`
	Message   Message `json:"message"`
	Sender    string  `json:"sender,omitempty"`
	PublicKey string  `json:"publicKey,omitempty"`
	Signature string  `json:"signature,omitempty"`
}

type DeleteMsgMessage struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	Room      string `json:"room"`
	PublicKey string `json:"publicKey,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type AckMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type RoomInfoMessage struct {
	Type         string   `json:"type"`
	Participants []string `json:"participants"`
	Room         string   `json:"room"`
}

type UserJoinedMessage struct {
	Type string `json:"type"`
	User string `json:"user"`
	Room string `json:"room"`
}

type UserLeftMessage struct {
	Type string `json:"type"`
	User string `json:"user"`
	Room string `json:"room"`
}

type PersistMessage struct {
	Type    string  `json:"type"`
	Room    string  `json:"room"`
	Message Message `json:"message"`
}

// Configuration type aliases, re-exported here so callers importing
// pkg/types get both the domain model and the configuration shape without
// a second import.
type (
	Configuration    = config.Configuration
	DatabaseConfig   = config.DatabaseConfig
	PoolConfig       = config.PoolConfig
	SignalingConfig  = config.SignalingConfig
	SecurityConfig   = config.SecurityConfig
	MonitoringConfig = config.MonitoringConfig
	MetricsConfig    = config.MetricsConfig
	LoggingConfig    = config.LoggingConfig
	RetryConfig      = config.RetryConfig
	CircuitBreakerConfig = config.CircuitBreakerConfig
	HealthChecksConfig   = config.HealthChecksConfig
)
