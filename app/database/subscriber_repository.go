package database

import (
	"context"
	"fmt"
	"time"
)

// SubscribersTable implements SubscriberRepository over the sms_subscribers table
type SubscribersTable struct {
	db *DB
}

func NewSubscribersTable(db *DB) *SubscribersTable {
	return &SubscribersTable{db: db}
}

// ListPhones returns each subscriber number once, in sign-up order.
func (r *SubscribersTable) ListPhones(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT phone FROM sms_subscribers
		WHERE phone != ''
		GROUP BY phone
		ORDER BY MIN(id)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var phones []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		phones = append(phones, phone)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribers: %w", err)
	}

	return phones, nil
}

func (r *SubscribersTable) GetSubscriberCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT phone) FROM sms_subscribers WHERE phone != ''`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get subscriber count: %w", err)
	}
	return count, nil
}

// AddSubscriber records phone unless it is already present. It reports
// whether a row was added.
func (r *SubscribersTable) AddSubscriber(ctx context.Context, phone string) (bool, error) {
	if phone == "" {
		return false, fmt.Errorf("phone is required")
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sms_subscribers (phone, created_at)
		SELECT ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM sms_subscribers WHERE phone = ?)
	`, phone, time.Now().Unix(), phone)
	if err != nil {
		return false, fmt.Errorf("failed to add subscriber: %w", err)
	}

	added, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check inserted subscriber: %w", err)
	}
	return added > 0, nil
}
