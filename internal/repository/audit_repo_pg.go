package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGAuditRepository struct {
	db querier
}

func NewAuditRepository(db *pgxpool.Pool) AuditWriter {
	return &PGAuditRepository{db: db}
}

func (r *PGAuditRepository) InsertAudit(ctx context.Context, e domain.AuditEntry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO audit_logs (id, actor_type, actor_id, action, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ActorType, e.ActorID, e.Action, details, e.IPAddress, e.UserAgent, e.CreatedAt)
	return err
}

var _ AuditWriter = (*PGAuditRepository)(nil)
