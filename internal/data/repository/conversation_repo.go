package repository

import (
	"context"
	"errors"
	"fmt"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ConversationRepository interface {
	FindByDriver(ctx context.Context, tenantID, driverID uuid.UUID, phone string) (*entity.Conversation, error)
	FindLatestByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*entity.Conversation, error)
	FindByPhone(ctx context.Context, phone string) ([]*entity.Conversation, error)
	FindByBooking(ctx context.Context, tenantID, bookingID uuid.UUID) (*entity.Conversation, error)
	Save(ctx context.Context, conversation *entity.Conversation) error
}

const conversationColumns = `id, tenant_id, driver_id, phone, state, current_booking_id,
	last_activity_at, session_expires_at, created_at, updated_at`

type conversationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewConversationRepository(db database.PgxIface, log *zap.Logger) ConversationRepository {
	return &conversationRepository{
		db:  db,
		log: log.With(zap.String("repository", "conversation")),
	}
}

func scanConversation(row pgx.Row) (*entity.Conversation, error) {
	var c entity.Conversation
	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.DriverID,
		&c.Phone,
		&c.State,
		&c.CurrentBookingID,
		&c.LastActivityAt,
		&c.SessionExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conversationRepository) findOne(ctx context.Context, op, query string, args ...any) (*entity.Conversation, error) {
	conversation, err := scanConversation(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return conversation, nil
}

func (r *conversationRepository) FindByDriver(ctx context.Context, tenantID, driverID uuid.UUID, phone string) (*entity.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE tenant_id = $1 AND driver_id = $2 AND phone = $3`
	return r.findOne(ctx, "find conversation by driver "+driverID.String(), query, tenantID, driverID, phone)
}

// FindLatestByPhone resolves an inbound sender within one tenant.
func (r *conversationRepository) FindLatestByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*entity.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations
		WHERE tenant_id = $1 AND phone = $2 ORDER BY last_activity_at DESC LIMIT 1`
	return r.findOne(ctx, "find conversation by phone", query, tenantID, phone)
}

// FindByPhone spans tenants, most recently active first. Inbound webhooks use
// it only when the receiving number names no tenant.
func (r *conversationRepository) FindByPhone(ctx context.Context, phone string) ([]*entity.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE phone = $1 ORDER BY last_activity_at DESC`

	rows, err := r.db.Query(ctx, query, phone)
	if err != nil {
		r.log.Error("Failed to find conversations by phone", zap.Error(err))
		return nil, fmt.Errorf("find conversations by phone: %w", err)
	}
	defer rows.Close()

	var conversations []*entity.Conversation
	for rows.Next() {
		conversation, err := scanConversation(rows)
		if err != nil {
			r.log.Error("Failed to scan conversation row", zap.Error(err))
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		conversations = append(conversations, conversation)
	}

	return conversations, rows.Err()
}

func (r *conversationRepository) FindByBooking(ctx context.Context, tenantID, bookingID uuid.UUID) (*entity.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE tenant_id = $1 AND current_booking_id = $2 LIMIT 1`
	return r.findOne(ctx, "find conversation by booking "+bookingID.String(), query, tenantID, bookingID)
}

// Save upserts on (tenant_id, driver_id, phone), keeping one conversation per driver phone.
func (r *conversationRepository) Save(ctx context.Context, c *entity.Conversation) error {
	query := `
		INSERT INTO conversations (` + conversationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id, driver_id, phone) DO UPDATE
		SET state = EXCLUDED.state,
		    current_booking_id = EXCLUDED.current_booking_id,
		    last_activity_at = EXCLUDED.last_activity_at,
		    session_expires_at = EXCLUDED.session_expires_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		c.ID,
		c.TenantID,
		c.DriverID,
		c.Phone,
		c.State,
		c.CurrentBookingID,
		c.LastActivityAt,
		c.SessionExpiresAt,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		r.log.Error("Failed to save conversation",
			zap.Error(err),
			zap.String("driver_id", c.DriverID.String()),
			zap.String("state", string(c.State)),
		)
		return fmt.Errorf("save conversation for driver %s: %w", c.DriverID.String(), err)
	}

	return nil
}
