package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS sanction_types (
		id              BIGSERIAL PRIMARY KEY,
		name            TEXT NOT NULL,
		description     TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sanction_types_name ON sanction_types(name);`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id               BIGSERIAL PRIMARY KEY,
		plate            TEXT NOT NULL,
		owner            TEXT,
		sanctioned       BOOLEAN NOT NULL DEFAULT false,
		sanction_type_id BIGINT REFERENCES sanction_types(id),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_vehicles_plate ON vehicles(plate);`,
	`CREATE TABLE IF NOT EXISTS controls (
		id                BIGSERIAL PRIMARY KEY,
		vehicle_id        BIGINT NOT NULL REFERENCES vehicles(id),
		ingress_at        TIMESTAMPTZ NOT NULL,
		egress_at         TIMESTAMPTZ,
		control_date      DATE NOT NULL,
		ingress_primary   TEXT,
		ingress_secondary TEXT,
		egress_primary    TEXT,
		egress_secondary  TEXT,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (egress_at IS NULL OR egress_at >= ingress_at)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_controls_vehicle_date ON controls(vehicle_id, control_date);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_controls_open_episode ON controls(vehicle_id, control_date) WHERE egress_at IS NULL;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM sanction_types WHERE name = 'BLOCKED') THEN
			INSERT INTO sanction_types (name, description) VALUES ('BLOCKED', 'Access denied by security');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM sanction_types WHERE name = 'WARNING') THEN
			INSERT INTO sanction_types (name, description) VALUES ('WARNING', 'Pending administrative issue');
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
