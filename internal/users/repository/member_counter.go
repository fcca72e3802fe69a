package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MemberCounter counts registered users over the shared pgx pool.
type MemberCounter struct {
	pool *pgxpool.Pool
}

func NewMemberCounter(pool *pgxpool.Pool) *MemberCounter {
	return &MemberCounter{pool: pool}
}

func (m *MemberCounter) CountMembers(ctx context.Context) (int64, error) {
	var n int64
	if err := m.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
