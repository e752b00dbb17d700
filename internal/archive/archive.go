// Package archive provides an optional local record of relayed messages.
// It is an audit surface only — delivery state is never persisted and the
// relay gives no cross-restart guarantees.
package archive

import (
	"fmt"
	"time"

	"github.com/zulandar/semaphore/internal/bridge"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Message is one relayed chat message as stored in the archive.
type Message struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Sender     string    `gorm:"size:64;index" json:"sender"`
	Character  string    `gorm:"size:64" json:"character,omitempty"`
	Body       string    `gorm:"type:text" json:"body"`
	Radius     string    `gorm:"size:16" json:"radius"`
	Location   string    `gorm:"size:64" json:"location,omitempty"`
	Channel    string    `gorm:"size:16;index" json:"channel,omitempty"`
	ReceivedAt time.Time `gorm:"index" json:"received_at"`
	SentAt     time.Time `json:"sent_at"`
}

// Archive wraps the sqlite store.
type Archive struct {
	db *gorm.DB
}

// Open opens (or creates) the archive database at path and migrates the
// message table.
func Open(path string) (*Archive, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Message{}); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return &Archive{db: db}, nil
}

// Record stores a group of delivered events. Satisfies bridge.Recorder.
func (a *Archive) Record(events []bridge.Event) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now()
	msgs := make([]Message, 0, len(events))
	for _, ev := range events {
		msgs = append(msgs, Message{
			Sender:     ev.Sender,
			Character:  ev.Character,
			Body:       ev.Message,
			Radius:     ev.Radius,
			Location:   ev.Location,
			Channel:    ev.Channel,
			ReceivedAt: ev.ReceivedAt,
			SentAt:     now,
		})
	}
	if err := a.db.Create(&msgs).Error; err != nil {
		return fmt.Errorf("archive: record: %w", err)
	}
	return nil
}

// Recent returns the latest messages, newest first.
func (a *Archive) Recent(limit int) ([]Message, error) {
	var msgs []Message
	if err := a.db.Order("received_at DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("archive: recent: %w", err)
	}
	return msgs, nil
}
