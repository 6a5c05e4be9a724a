package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the four ledger tables.  Rows are never deleted, so the
// foreign keys use RESTRICT.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id                BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id           BIGINT UNSIGNED NOT NULL,
		price             DECIMAL(12,2)   NOT NULL,
		booking_price     DECIMAL(12,2)   NOT NULL DEFAULT 0,
		price_type        VARCHAR(16)     NOT NULL,
		start_date        DATE            NULL,
		end_date          DATE            NULL,
		payment_status    VARCHAR(16)     NOT NULL DEFAULT 'pending',
		last_payment_date DATETIME        NULL,
		created_at        DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at        DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_bookings_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payments (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		booking_id   BIGINT UNSIGNED NOT NULL,
		milestone_id BIGINT UNSIGNED NULL,
		amount       DECIMAL(12,2)   NOT NULL,
		method       VARCHAR(16)     NOT NULL,
		status       VARCHAR(16)     NOT NULL DEFAULT 'pending',
		reference    VARCHAR(128)    NOT NULL DEFAULT '',
		match_source VARCHAR(16)     NOT NULL DEFAULT '',
		paid_at      DATETIME        NULL,
		created_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_payments_booking (booking_id),
		KEY idx_payments_milestone (milestone_id),
		CONSTRAINT fk_payments_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS milestones (
		id                BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		booking_id        BIGINT UNSIGNED NOT NULL,
		sequence          INT             NOT NULL,
		type              VARCHAR(16)     NOT NULL,
		due_date          DATE            NOT NULL,
		amount            DECIMAL(12,2)   NOT NULL,
		status            VARCHAR(16)     NOT NULL DEFAULT 'pending',
		payment_id        BIGINT UNSIGNED NULL,
		paid_at           DATETIME        NULL,
		payment_method    VARCHAR(16)     NULL,
		payment_reference VARCHAR(128)    NULL,
		created_at        DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at        DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_milestones_booking_sequence (booking_id, sequence),
		KEY idx_milestones_due (booking_id, due_date),
		CONSTRAINT fk_milestones_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE RESTRICT,
		CONSTRAINT fk_milestones_payment FOREIGN KEY (payment_id) REFERENCES payments (id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payment_links (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		token_hash   CHAR(64)        NOT NULL,
		booking_id   BIGINT UNSIGNED NOT NULL,
		milestone_id BIGINT UNSIGNED NOT NULL,
		amount       DECIMAL(12,2)   NOT NULL,
		status       VARCHAR(16)     NOT NULL DEFAULT 'active',
		payment_id   BIGINT UNSIGNED NULL,
		created_by   BIGINT UNSIGNED NOT NULL DEFAULT 0,
		expires_at   DATETIME        NOT NULL,
		created_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_payment_links_token_hash (token_hash),
		KEY idx_payment_links_milestone (milestone_id, status),
		KEY idx_payment_links_expiry (status, expires_at),
		CONSTRAINT fk_payment_links_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE RESTRICT,
		CONSTRAINT fk_payment_links_milestone FOREIGN KEY (milestone_id) REFERENCES milestones (id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing ledger table.  It is safe to run on every
// start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
