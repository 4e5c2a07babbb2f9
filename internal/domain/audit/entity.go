package audit

import "time"

// RecordID identifier type
type RecordID string

// Feature names the orchestrator that produced a record.
type Feature string

const (
	FeatureProfile      Feature = "profile"
	FeatureConversation Feature = "conversation"
	FeatureImage        Feature = "image"
	FeatureIdentity     Feature = "identity"
	FeatureURL          Feature = "url"
	FeatureIP           Feature = "ip"
	FeatureAssistant    Feature = "assistant"
)

// Record is one orchestrator outcome kept for auditing. The report itself is not
// stored; only enough to tell genuine results from degraded defaults.
type Record struct {
	ID          RecordID  `json:"id"`
	Feature     Feature   `json:"feature"`
	Score       int       `json:"score"`
	Degraded    bool      `json:"degraded"`
	Reason      string    `json:"reason,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	EvidenceURL string    `json:"evidence_url,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Failure is one failed provider attempt inside a chain execution.
type Failure struct {
	ID         int64     `json:"id"`
	RecordID   RecordID  `json:"record_id"`
	Capability string    `json:"capability"`
	Provider   string    `json:"provider"`
	Reason     string    `json:"reason"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary aggregates records since a point in time.
type Summary struct {
	Total     int            `json:"total"`
	Degraded  int            `json:"degraded"`
	ByFeature map[string]int `json:"by_feature"`
	SinceDays int            `json:"since_days"`
}

// Page represents a paginated response with data and metadata
type Page struct {
	Data     []*Record `json:"data"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// EvidenceKey names an archived image by record id and MIME type.
func EvidenceKey(id RecordID, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	case "image/gif":
		ext = ".gif"
	}
	return "images/" + string(id) + ext
}
