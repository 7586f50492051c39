package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// transcriptRow is the relational form of Transcript.
type transcriptRow struct {
	ID           string    `gorm:"primaryKey;size:36"`
	OriginalText string    `gorm:"not null"`
	EditedText   string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"index;autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
	Meta         metaCols  `gorm:"embedded;embeddedPrefix:meta_"`
}

type metaCols struct {
	StartTime     time.Time
	EndTime       time.Time
	DurationNS    int64
	AudioRef      string
	AudioChecksum string `gorm:"size:64"`
	Locale        string `gorm:"size:35"`
	OnDevice      bool
}

func (transcriptRow) TableName() string {
	return "transcripts"
}

// updatableColumns excludes original_text and created_at.
var updatableColumns = []string{
	"edited_text",
	"updated_at",
	"meta_start_time",
	"meta_end_time",
	"meta_duration_ns",
	"meta_audio_ref",
	"meta_audio_checksum",
	"meta_locale",
	"meta_on_device",
}

// SQL stores transcripts through gorm.
type SQL struct {
	db *gorm.DB
}

// NewSQL wraps an open gorm handle. Call Migrate before first use.
func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db}
}

// OpenSQL opens backend ("sqlite" or "postgres") and migrates the schema.
// For sqlite dsn is a file path.
func OpenSQL(backend, dsn string) (*SQL, error) {
	var dialector gorm.Dialector
	switch backend {
	case "sqlite":
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql backend %q", backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	if backend == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", backend, err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s := NewSQL(db)
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates or updates the transcripts table.
func (s *SQL) Migrate() error {
	if err := s.db.AutoMigrate(&transcriptRow{}); err != nil {
		return fmt.Errorf("migrate transcripts: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks connectivity.
func (s *SQL) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQL) FetchRecent(ctx context.Context, limit int) ([]Transcript, error) {
	var rows []transcriptRow
	q := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch transcripts: %w", err)
	}

	out := make([]Transcript, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.transcript())
	}
	return out, nil
}

func (s *SQL) Save(ctx context.Context, t Transcript) error {
	return s.upsert(ctx, t)
}

func (s *SQL) Update(ctx context.Context, t Transcript) error {
	return s.upsert(ctx, t)
}

func (s *SQL) upsert(ctx context.Context, t Transcript) error {
	row := rowFrom(t)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(updatableColumns),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write transcript %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&transcriptRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete transcript %s: %w", id, err)
	}
	return nil
}

func (s *SQL) Find(ctx context.Context, id string) (Transcript, error) {
	var row transcriptRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Transcript{}, ErrNotFound
	}
	if err != nil {
		return Transcript{}, fmt.Errorf("find transcript %s: %w", id, err)
	}
	return row.transcript(), nil
}

func rowFrom(t Transcript) transcriptRow {
	return transcriptRow{
		ID:           t.ID,
		OriginalText: t.OriginalText,
		EditedText:   t.EditedText,
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
		Meta: metaCols{
			StartTime:     t.Metadata.StartTime.UTC(),
			EndTime:       t.Metadata.EndTime.UTC(),
			DurationNS:    int64(t.Metadata.Duration),
			AudioRef:      t.Metadata.AudioRef,
			AudioChecksum: t.Metadata.AudioChecksum,
			Locale:        t.Metadata.Locale,
			OnDevice:      t.Metadata.OnDevice,
		},
	}
}

func (r transcriptRow) transcript() Transcript {
	return Transcript{
		ID:           r.ID,
		OriginalText: r.OriginalText,
		EditedText:   r.EditedText,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Metadata: RecordingMetadata{
			StartTime:     r.Meta.StartTime,
			EndTime:       r.Meta.EndTime,
			Duration:      time.Duration(r.Meta.DurationNS),
			AudioRef:      r.Meta.AudioRef,
			AudioChecksum: r.Meta.AudioChecksum,
			Locale:        r.Meta.Locale,
			OnDevice:      r.Meta.OnDevice,
		},
	}
}
