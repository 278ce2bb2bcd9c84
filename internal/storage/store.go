// Package storage persists the knowledge base audit trail through GORM.
// It is the durable mirror behind the in-memory store: writes are best
// effort from the caller's point of view, reads serve reporting.
package storage

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"foreman/internal/agents"
	"foreman/internal/documents"
	"foreman/internal/orchestrator"
)

// JSONMap stores arbitrary operation arguments as a JSON text column.
type JSONMap map[string]interface{}

// Value converts the map to a JSON string for storage
func (m JSONMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan converts the database value back to a map
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported type for JSONMap")
	}
}

// ConversationRecord is one mirrored query/response exchange.
type ConversationRecord struct {
	gorm.Model
	RecordID string `gorm:"column:record_id;index"`
	Agent    string `gorm:"index"`
	Query    string `gorm:"type:text"`
	Response string `gorm:"type:text"`
	Failed   bool
	AskedAt  time.Time
}

// TableName sets the table name for ConversationRecord
func (ConversationRecord) TableName() string {
	return "conversations"
}

// InsightRecord is one mirrored document observation.
type InsightRecord struct {
	gorm.Model
	Source      string `gorm:"index"`
	Topic       string `gorm:"index"`
	Content     string `gorm:"type:text"`
	ExtractedAt time.Time
}

// TableName sets the table name for InsightRecord
func (InsightRecord) TableName() string {
	return "insights"
}

// DecisionRecord is one mirrored coordination verdict.
type DecisionRecord struct {
	gorm.Model
	RecordID  string `gorm:"column:record_id;index"`
	Source    string
	Decision  string `gorm:"type:text"`
	Reason    string `gorm:"type:text"`
	DecidedAt time.Time
}

// TableName sets the table name for DecisionRecord
func (DecisionRecord) TableName() string {
	return "decisions"
}

// CalculationRecord is one mirrored analysis operation with its inputs
// and serialized result.
type CalculationRecord struct {
	gorm.Model
	RecordID   string  `gorm:"column:record_id;index"`
	Agent      string  `gorm:"index"`
	Operation  string  `gorm:"index"`
	Arguments  JSONMap `gorm:"type:text"`
	ResultJSON string  `gorm:"type:text"`
	RanAt      time.Time
}

// TableName sets the table name for CalculationRecord
func (CalculationRecord) TableName() string {
	return "calculations"
}

// DocumentRecord tracks an ingested document for reporting. Content is
// not mirrored; the in-memory store owns it.
type DocumentRecord struct {
	gorm.Model
	DocumentID string `gorm:"column:document_id;index"`
	Name       string
	Path       string
	SizeBytes  int64
	WordCount  int
	LineCount  int
	LoadedAt   time.Time
}

// TableName sets the table name for DocumentRecord
func (DocumentRecord) TableName() string {
	return "documents"
}

// Store is the GORM-backed audit store. A nil *Store is a disabled
// mirror: every method is a no-op, so callers never branch on whether
// persistence is configured.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the audit database and migrates the schema. Supported
// dialects are sqlite3 and postgres.
func Open(dialect, dsn string, logger *slog.Logger) (*Store, error) {
	switch dialect {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("storage: unsupported dialect %q", dialect)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: connect %s: %w", dialect, err)
	}

	db.DB().SetMaxIdleConns(10)
	db.DB().SetMaxOpenConns(100)
	db.DB().SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&ConversationRecord{},
		&InsightRecord{},
		&DecisionRecord{},
		&CalculationRecord{},
		&DocumentRecord{},
	).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migrate schema: %w", err)
	}

	logger.Info("audit store ready", "dialect", dialect)
	return &Store{db: db, logger: logger.With("component", "storage")}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveConversation mirrors one exchange.
func (s *Store) SaveConversation(c orchestrator.Conversation) error {
	if s == nil {
		return nil
	}
	rec := ConversationRecord{
		RecordID: c.ID,
		Agent:    string(c.Agent),
		Query:    c.Query,
		Response: c.Response,
		Failed:   c.Error,
		AskedAt:  c.Timestamp,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("storage: save conversation: %w", err)
	}
	return nil
}

// SaveInsight mirrors one extracted insight.
func (s *Store) SaveInsight(in agents.Insight) error {
	if s == nil {
		return nil
	}
	rec := InsightRecord{
		Source:      string(in.Source),
		Topic:       in.Topic,
		Content:     in.Content,
		ExtractedAt: in.Timestamp,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("storage: save insight: %w", err)
	}
	return nil
}

// SaveDecision mirrors one coordination decision.
func (s *Store) SaveDecision(d orchestrator.Decision) error {
	if s == nil {
		return nil
	}
	rec := DecisionRecord{
		RecordID:  d.ID,
		Source:    string(d.Source),
		Decision:  d.Decision,
		Reason:    d.Reason,
		DecidedAt: d.Timestamp,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("storage: save decision: %w", err)
	}
	return nil
}

// SaveCalculation mirrors one executed analysis operation. Results that
// cannot be serialized are stored as an error note rather than dropped.
func (s *Store) SaveCalculation(c orchestrator.Calculation) error {
	if s == nil {
		return nil
	}

	resultJSON, err := json.Marshal(c.Result)
	if err != nil {
		resultJSON = []byte(fmt.Sprintf(`{"unserializable":%q}`, err.Error()))
	}

	rec := CalculationRecord{
		RecordID:   c.ID,
		Agent:      string(c.Agent),
		Operation:  c.Operation,
		Arguments:  JSONMap(c.Arguments),
		ResultJSON: string(resultJSON),
		RanAt:      c.Timestamp,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("storage: save calculation: %w", err)
	}
	return nil
}

// SaveDocument records an ingested document.
func (s *Store) SaveDocument(doc *documents.Document) error {
	if s == nil {
		return nil
	}
	rec := DocumentRecord{
		DocumentID: doc.ID,
		Name:       doc.Name,
		Path:       doc.Path,
		SizeBytes:  doc.SizeBytes,
		WordCount:  doc.WordCount,
		LineCount:  doc.LineCount,
		LoadedAt:   doc.LoadedAt,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("storage: save document: %w", err)
	}
	return nil
}

// RecentConversations returns the newest exchanges, newest first.
func (s *Store) RecentConversations(limit int) ([]ConversationRecord, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var recs []ConversationRecord
	if err := s.db.Order("id desc").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("storage: recent conversations: %w", err)
	}
	return recs, nil
}

// InsightsByTopic returns insights recorded under one focus area,
// newest first.
func (s *Store) InsightsByTopic(topic string, limit int) ([]InsightRecord, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var recs []InsightRecord
	if err := s.db.Where("topic = ?", topic).Order("id desc").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("storage: insights by topic: %w", err)
	}
	return recs, nil
}

// CalculationsByOperation returns the audit rows for one operation,
// newest first.
func (s *Store) CalculationsByOperation(operation string, limit int) ([]CalculationRecord, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var recs []CalculationRecord
	if err := s.db.Where("operation = ?", operation).Order("id desc").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("storage: calculations by operation: %w", err)
	}
	return recs, nil
}

// Counts reports row totals per table for the status surface.
func (s *Store) Counts() (map[string]int64, error) {
	if s == nil {
		return nil, nil
	}

	counts := make(map[string]int64, 5)
	for table, model := range map[string]interface{}{
		"conversations": &ConversationRecord{},
		"insights":      &InsightRecord{},
		"decisions":     &DecisionRecord{},
		"calculations":  &CalculationRecord{},
		"documents":     &DocumentRecord{},
	} {
		var n int64
		if err := s.db.Model(model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("storage: count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
