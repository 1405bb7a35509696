package repository

import (
	"time"

	"ijaplastik-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(notifs []*model.Notification) error
	FindByID(id uuid.UUID) (*model.Notification, error)
	// Claim leases a deliverable record until the given time so that only
	// one worker sends it. It reports false when someone else holds it.
	Claim(id uuid.UUID, now, until time.Time) (bool, error)
	MarkSent(id uuid.UUID, attempts int, at time.Time) error
	MarkFailed(id uuid.UUID, attempts int, lastErr string, next *time.Time) error
	// Due lists records that still need delivery at now.
	Due(now time.Time, maxAttempts, limit int) ([]uuid.UUID, error)
	ListByRef(refTable string, refID uuid.UUID) ([]model.Notification, error)
}

type notificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db}
}

func (r *notificationRepo) Create(notifs []*model.Notification) error {
	if len(notifs) == 0 {
		return nil
	}
	return r.db.Create(notifs).Error
}

func (r *notificationRepo) FindByID(id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) Claim(id uuid.UUID, now, until time.Time) (bool, error) {
	res := r.db.Model(&model.Notification{}).
		Where("id = ? AND status <> ?", id, model.NotificationSent).
		Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", now).
		UpdateColumn("next_attempt_at", until)
	return res.RowsAffected == 1, res.Error
}

func (r *notificationRepo) MarkSent(id uuid.UUID, attempts int, at time.Time) error {
	return r.db.Model(&model.Notification{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"status":          model.NotificationSent,
		"attempts":        attempts,
		"sent_at":         at,
		"last_error":      "",
		"next_attempt_at": nil,
	}).Error
}

func (r *notificationRepo) MarkFailed(id uuid.UUID, attempts int, lastErr string, next *time.Time) error {
	return r.db.Model(&model.Notification{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"status":          model.NotificationFailed,
		"attempts":        attempts,
		"last_error":      lastErr,
		"next_attempt_at": next,
	}).Error
}

func (r *notificationRepo) Due(now time.Time, maxAttempts, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&model.Notification{}).
		Where("status <> ? AND attempts < ?", model.NotificationSent, maxAttempts).
		Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", now).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *notificationRepo) ListByRef(refTable string, refID uuid.UUID) ([]model.Notification, error) {
	var notifs []model.Notification
	err := r.db.Where("ref_table = ? AND ref_id = ?", refTable, refID).Order("created_at ASC").Find(&notifs).Error
	return notifs, err
}
