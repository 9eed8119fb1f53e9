package assetregistry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// PostgresStore persists assets in PostgreSQL. The asset id sequence starts
// at the fixed base and only moves forward, so ids are never reused even
// across restarts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the schema. Idempotent; called once at startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SEQUENCE IF NOT EXISTS asset_ids START %d`, domain.FirstAssetID),
		`CREATE TABLE IF NOT EXISTS assets (
			id BIGINT PRIMARY KEY,
			serial_number TEXT NOT NULL,
			model_details TEXT NOT NULL,
			manufacturer_details TEXT NOT NULL,
			warranty_terms_ref TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			owner TEXT NOT NULL,
			approved TEXT NOT NULL DEFAULT '',
			price BIGINT NOT NULL,
			listed BOOLEAN NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS assets_owner_idx ON assets(owner)`,
		`CREATE TABLE IF NOT EXISTS transfer_records (
			asset_id BIGINT NOT NULL REFERENCES assets(id),
			seq INT NOT NULL,
			from_identity TEXT NOT NULL,
			to_identity TEXT NOT NULL,
			at TIMESTAMPTZ NOT NULL,
			event TEXT NOT NULL,
			PRIMARY KEY (asset_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS serial_index (
			serial_number TEXT PRIMARY KEY,
			asset_id BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate assets schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) NextID(ctx context.Context) (domain.AssetID, error) {
	var id uint64
	if err := s.db.QueryRowContext(ctx, `SELECT nextval('asset_ids')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("next asset id: %w", err)
	}
	return domain.AssetID(id), nil
}

func (s *PostgresStore) Create(ctx context.Context, asset *Asset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create asset: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO assets (id, serial_number, model_details, manufacturer_details,
			warranty_terms_ref, created_at, owner, approved, price, listed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, int64(asset.ID), asset.SerialNumber, asset.ModelDetails, asset.ManufacturerDetails,
		asset.WarrantyTermsRef, asset.CreatedAt, asset.Owner.String(), asset.Approved.String(),
		int64(asset.Price), asset.Listed)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}

	if err := insertHistoryTx(ctx, tx, asset.ID, 0, asset.History); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO serial_index (serial_number, asset_id)
		VALUES ($1, $2)
		ON CONFLICT (serial_number) DO UPDATE SET asset_id = EXCLUDED.asset_id
	`, asset.SerialNumber, int64(asset.ID))
	if err != nil {
		return fmt.Errorf("index serial number: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) Update(ctx context.Context, asset *Asset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update asset: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE assets
		SET owner = $2, approved = $3, price = $4, listed = $5
		WHERE id = $1
	`, int64(asset.ID), asset.Owner.String(), asset.Approved.String(), int64(asset.Price), asset.Listed)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dErrors.New(dErrors.CodeNotFound, "asset not found")
	}

	var have int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transfer_records WHERE asset_id = $1`, int64(asset.ID)).Scan(&have); err != nil {
		return fmt.Errorf("count history: %w", err)
	}
	if have < len(asset.History) {
		if err := insertHistoryTx(ctx, tx, asset.ID, have, asset.History); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// insertHistoryTx batch-appends history records starting at sequence `from`
// using a single unnest insert.
func insertHistoryTx(ctx context.Context, tx *sql.Tx, id domain.AssetID, from int, history []TransferRecord) error {
	if from >= len(history) {
		return nil
	}
	pending := history[from:]
	seqs := make([]int64, 0, len(pending))
	froms := make([]string, 0, len(pending))
	tos := make([]string, 0, len(pending))
	ats := make([]time.Time, 0, len(pending))
	events := make([]string, 0, len(pending))
	for i, rec := range pending {
		seqs = append(seqs, int64(from+i))
		froms = append(froms, rec.From.String())
		tos = append(tos, rec.To.String())
		ats = append(ats, rec.At)
		events = append(events, string(rec.Event))
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transfer_records (asset_id, seq, from_identity, to_identity, at, event)
		SELECT $1, unnest($2::bigint[]), unnest($3::text[]), unnest($4::text[]),
			unnest($5::timestamptz[]), unnest($6::text[])
		ON CONFLICT (asset_id, seq) DO NOTHING
	`, int64(id), pq.Array(seqs), pq.Array(froms), pq.Array(tos), pq.Array(ats), pq.Array(events))
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.AssetID) (*Asset, error) {
	return s.scanAsset(ctx, `SELECT id, serial_number, model_details, manufacturer_details,
		warranty_terms_ref, created_at, owner, approved, price, listed
		FROM assets WHERE id = $1`, int64(id))
}

func (s *PostgresStore) FindBySerial(ctx context.Context, serial string) (*Asset, error) {
	return s.scanAsset(ctx, `SELECT a.id, a.serial_number, a.model_details, a.manufacturer_details,
		a.warranty_terms_ref, a.created_at, a.owner, a.approved, a.price, a.listed
		FROM serial_index si JOIN assets a ON a.id = si.asset_id
		WHERE si.serial_number = $1`, serial)
}

func (s *PostgresStore) scanAsset(ctx context.Context, query string, arg any) (*Asset, error) {
	var (
		asset           Asset
		id, price       int64
		owner, approved string
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&id, &asset.SerialNumber,
		&asset.ModelDetails, &asset.ManufacturerDetails, &asset.WarrantyTermsRef,
		&asset.CreatedAt, &owner, &approved, &price, &asset.Listed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, fmt.Errorf("find asset: %w", err)
	}
	asset.ID = domain.AssetID(id)
	asset.Owner = domain.Identity(owner)
	asset.Approved = domain.Identity(approved)
	asset.Price = domain.Money(price)

	history, err := s.loadHistory(ctx, asset.ID)
	if err != nil {
		return nil, err
	}
	asset.History = history
	return &asset, nil
}

func (s *PostgresStore) loadHistory(ctx context.Context, id domain.AssetID) ([]TransferRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_identity, to_identity, at, event
		FROM transfer_records WHERE asset_id = $1 ORDER BY seq
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	history := []TransferRecord{}
	for rows.Next() {
		var (
			rec      TransferRecord
			from, to string
			event    string
		)
		if err := rows.Scan(&from, &to, &rec.At, &event); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		rec.From = domain.Identity(from)
		rec.To = domain.Identity(to)
		rec.Event = domain.TransferEventType(event)
		history = append(history, rec)
	}
	return history, rows.Err()
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner domain.Identity) ([]*Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM assets WHERE owner = $1 ORDER BY id`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	defer rows.Close()

	var ids []domain.AssetID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owned asset id: %w", err)
		}
		ids = append(ids, domain.AssetID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	owned := []*Asset{}
	for _, id := range ids {
		asset, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		owned = append(owned, asset)
	}
	return owned, nil
}
