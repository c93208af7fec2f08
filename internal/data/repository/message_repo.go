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

// MessageRepository is append-only apart from delivery progress.
type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Message, error)
	FindByProviderID(ctx context.Context, direction entity.MessageDirection, providerMessageID string) (*entity.Message, error)
	FindByBooking(ctx context.Context, tenantID, bookingID uuid.UUID) ([]*entity.Message, error)
	// UpdateDelivery applies only while the stored status is still expected,
	// so a late or replayed update never moves a message backwards.
	UpdateDelivery(ctx context.Context, message *entity.Message, expected entity.MessageStatus) (bool, error)
}

const messageColumns = `id, tenant_id, booking_id, driver_id, direction, recipient, sender, type, template,
	body, provider_message_id, status, error_detail, created_at, updated_at`

type messageRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewMessageRepository(db database.PgxIface, log *zap.Logger) MessageRepository {
	return &messageRepository{
		db:  db,
		log: log.With(zap.String("repository", "message")),
	}
}

func scanMessage(row pgx.Row) (*entity.Message, error) {
	var m entity.Message
	err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.BookingID,
		&m.DriverID,
		&m.Direction,
		&m.Recipient,
		&m.Sender,
		&m.Type,
		&m.Template,
		&m.Body,
		&m.ProviderMessageID,
		&m.Status,
		&m.ErrorDetail,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepository) Create(ctx context.Context, m *entity.Message) error {
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		m.ID,
		m.TenantID,
		m.BookingID,
		m.DriverID,
		m.Direction,
		m.Recipient,
		m.Sender,
		m.Type,
		m.Template,
		m.Body,
		m.ProviderMessageID,
		m.Status,
		m.ErrorDetail,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create message",
			zap.Error(err),
			zap.String("type", string(m.Type)),
			zap.String("direction", string(m.Direction)),
		)
		return fmt.Errorf("create message %s: %w", m.ID.String(), err)
	}

	return nil
}

func (r *messageRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1 AND tenant_id = $2`

	message, err := scanMessage(r.db.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find message by ID %s: %w", id.String(), err)
	}

	return message, nil
}

func (r *messageRepository) FindByProviderID(ctx context.Context, direction entity.MessageDirection, providerMessageID string) (*entity.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE provider_message_id = $1 AND direction = $2`

	message, err := scanMessage(r.db.QueryRow(ctx, query, providerMessageID, direction))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find message by provider ID",
			zap.Error(err),
			zap.String("provider_message_id", providerMessageID),
		)
		return nil, fmt.Errorf("find message by provider ID %s: %w", providerMessageID, err)
	}

	return message, nil
}

func (r *messageRepository) FindByBooking(ctx context.Context, tenantID, bookingID uuid.UUID) ([]*entity.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE tenant_id = $1 AND booking_id = $2 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, tenantID, bookingID)
	if err != nil {
		r.log.Error("Failed to find messages by booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find messages by booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var messages []*entity.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			r.log.Error("Failed to scan message row", zap.Error(err))
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

func (r *messageRepository) UpdateDelivery(ctx context.Context, m *entity.Message, expected entity.MessageStatus) (bool, error) {
	query := `
		UPDATE messages
		SET provider_message_id = $2, status = $3, error_detail = $4, updated_at = $5
		WHERE id = $1 AND status = $6
	`

	result, err := r.db.Exec(ctx, query, m.ID, m.ProviderMessageID, m.Status, m.ErrorDetail, m.UpdatedAt, expected)
	if err != nil {
		r.log.Error("Failed to update message delivery",
			zap.Error(err),
			zap.String("message_id", m.ID.String()),
			zap.String("status", string(m.Status)),
		)
		return false, fmt.Errorf("update message %s delivery: %w", m.ID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}
