package repository

import (
	"context"
	"database/sql"
	"errors"

	"subadmin/internal/subscription"
)

const selectColumns = `id, name, price, count, created_at, updated_at`

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (*subscription.Subscription, error) {
	sub := &subscription.Subscription{}
	err := row.Scan(&sub.ID, &sub.Name, &sub.Price, &sub.Count, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, subscription.ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (r *SubscriptionRepository) List(ctx context.Context) ([]subscription.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM subscriptions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]subscription.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id int64) (*subscription.Subscription, error) {
	return scanSubscription(r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM subscriptions WHERE id = $1`, id))
}

func (r *SubscriptionRepository) Create(ctx context.Context, f subscription.Fields) (*subscription.Subscription, error) {
	return scanSubscription(r.db.QueryRowContext(ctx,
		`INSERT INTO subscriptions (name, price, count)
		 VALUES ($1, $2, $3) RETURNING `+selectColumns,
		f.Name, f.Price, f.Count))
}

func (r *SubscriptionRepository) Update(ctx context.Context, id int64, f subscription.Fields) (*subscription.Subscription, error) {
	return scanSubscription(r.db.QueryRowContext(ctx,
		`UPDATE subscriptions SET name = $1, price = $2, count = $3, updated_at = NOW()
		 WHERE id = $4 RETURNING `+selectColumns,
		f.Name, f.Price, f.Count, id))
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return subscription.ErrNotFound
	}
	return nil
}
