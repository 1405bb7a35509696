package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationQueued NotificationStatus = "queued"
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

const (
	NotifyKindStockAlert = "stock_alert"
	NotifyKindPOCreated  = "po_created"
)

// Notification is an outbox record for one outbound WhatsApp message.
type Notification struct {
	BaseModel
	Channel       string             `gorm:"type:varchar(20);not null;default:'whatsapp'" json:"channel"`
	Kind          string             `gorm:"type:varchar(30);not null;index" json:"kind"`
	RecipientName string             `gorm:"type:varchar(255)" json:"recipient_name"`
	Target        string             `gorm:"type:varchar(30);not null" json:"target"`
	Message       string             `gorm:"type:text;not null" json:"message"`
	RefTable      string             `gorm:"type:varchar(50)" json:"ref_table"`
	RefID         *uuid.UUID         `gorm:"type:uuid" json:"ref_id"`
	Status        NotificationStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	Attempts      int                `gorm:"not null;default:0" json:"attempts"`
	LastError     string             `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt *time.Time         `gorm:"index" json:"next_attempt_at,omitempty"`
	SentAt        *time.Time         `json:"sent_at,omitempty"`
}
