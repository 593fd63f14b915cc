package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

// arrays de postgres via el type map de pgx
var typeMap = pgtype.NewMap()

func int64Array(dst *[]int64) sql.Scanner   { return typeMap.SQLScanner(dst) }
func stringArray(dst *[]string) sql.Scanner { return typeMap.SQLScanner(dst) }

func statusStrings(xs []domain.ProductStatus) []string {
	out := make([]string, len(xs))
	for i, s := range xs {
		out[i] = string(s)
	}
	return out
}

// Products

type PgProductRepository struct {
	db *sql.DB
}

func NewPgProductRepository(db *sql.DB) *PgProductRepository {
	return &PgProductRepository{db: db}
}

const productColumns = `p.id, p.parent_id, p.sku, p.name, p.status, p.category_ids, p.tag_ids, p.modified_at_utc`

func scanProduct(row interface{ Scan(...any) error }) (*domain.ProductView, error) {
	var p domain.ProductView
	var status string
	if err := row.Scan(
		&p.ID,
		&p.ParentID,
		&p.Sku,
		&p.Name,
		&status,
		int64Array(&p.CategoryIDs),
		int64Array(&p.TagIDs),
		&p.ModifiedAt,
	); err != nil {
		return nil, err
	}
	p.Status = domain.ProductStatus(status)
	return &p, nil
}

func (r *PgProductRepository) GetByID(ctx context.Context, id int64) (*domain.ProductView, error) {
	q := `select ` + productColumns + ` from catalog_products p where p.id = $1`
	p, err := scanProduct(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// FindBySku prefers a published match when the sku is shared, then the lowest id.
func (r *PgProductRepository) FindBySku(ctx context.Context, sku string) (*domain.ProductView, error) {
	q := `
        select ` + productColumns + `
        from catalog_products p
        where p.sku = $1
        order by (p.status = 'publish') desc, p.id asc
        limit 1
    `
	p, err := scanProduct(r.db.QueryRowContext(ctx, q, sku))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// eligibleWhere mirrors domain.EligibilityQuery.Matches.
const eligibleWhere = `
        from catalog_products p
        left join storesync_product_state s on s.product_id = p.id
        where p.status = any($1)
          and not (p.category_ids && $2::bigint[])
          and not (p.tag_ids && $3::bigint[])
          and case when $4
                   then coalesce(s.need, 0) = 2 or s.last_sync_at_utc is null
                   else coalesce(s.need, 0) >= 1
              end
`

func eligibleArgs(q domain.EligibilityQuery) []any {
	cats := q.Exclusions.Categories
	if cats == nil {
		cats = []int64{}
	}
	tags := q.Exclusions.Tags
	if tags == nil {
		tags = []int64{}
	}
	return []any{statusStrings(domain.SyncableStatuses), cats, tags, q.Kind.IsFull()}
}

func (r *PgProductRepository) FindEligible(ctx context.Context, q domain.EligibilityQuery) ([]int64, error) {
	args := eligibleArgs(q)
	var limit sql.NullInt64
	if q.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(q.Limit), Valid: true}
	}
	args = append(args, limit)

	query := `select p.id` + eligibleWhere + `
        order by p.modified_at_utc desc, p.id desc
        limit $5
    `
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgProductRepository) CountEligible(ctx context.Context, q domain.EligibilityQuery) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `select count(*)`+eligibleWhere, eligibleArgs(q)...).Scan(&n)
	return n, err
}

func (r *PgProductRepository) ListSyncedIDs(ctx context.Context) ([]int64, error) {
	q := `
        select p.id
        from catalog_products p
        join storesync_product_state s on s.product_id = p.id
        where p.status = any($1)
          and cardinality(s.synced_stores) > 0
        order by p.id
    `
	rows, err := r.db.QueryContext(ctx, q, statusStrings(domain.SyncableStatuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Orders

type PgOrderRepository struct {
	db *sql.DB
}

func NewPgOrderRepository(db *sql.DB) *PgOrderRepository {
	return &PgOrderRepository{db: db}
}

func (r *PgOrderRepository) GetByID(ctx context.Context, id int64) (*domain.OrderView, error) {
	var o domain.OrderView
	var status string
	err := r.db.QueryRowContext(ctx,
		`select id, status, created_at_utc from catalog_orders where id = $1`, id,
	).Scan(&o.ID, &status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)

	lines, err := r.loadLines(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	return &o, nil
}

func (r *PgOrderRepository) Recent(ctx context.Context, limit int, statuses []domain.OrderStatus) ([]domain.OrderView, error) {
	st := make([]string, len(statuses))
	for i, s := range statuses {
		st[i] = string(s)
	}
	q := `
        select id, status, created_at_utc
        from catalog_orders
        where status = any($1)
        order by created_at_utc desc, id desc
        limit $2
    `
	rows, err := r.db.QueryContext(ctx, q, st, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.OrderView
	var ids []int64
	for rows.Next() {
		var o domain.OrderView
		var status string
		if err := rows.Scan(&o.ID, &status, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (r *PgOrderRepository) loadLines(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderLine, error) {
	out := make(map[int64][]domain.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
        select order_id, product_id, variation_id
        from catalog_order_lines
        where order_id = any($1)
        order by order_id, line_no
    `, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		var l domain.OrderLine
		if err := rows.Scan(&orderID, &l.ProductID, &l.VariationID); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], l)
	}
	return out, rows.Err()
}

// Categories

type PgCategoryRepository struct {
	db *sql.DB
}

func NewPgCategoryRepository(db *sql.DB) *PgCategoryRepository {
	return &PgCategoryRepository{db: db}
}

func (r *PgCategoryRepository) ListAll(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `select id, name, parent_id from catalog_categories order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// Sync state

type PgSyncStateRepository struct {
	db *sql.DB
}

func NewPgSyncStateRepository(db *sql.DB) *PgSyncStateRepository {
	return &PgSyncStateRepository{db: db}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getState(ctx context.Context, q queryRower, productID int64, lock bool) (domain.SyncState, error) {
	query := `
        select need, marked_at_utc, last_sync_at_utc, last_sync_kind, synced_stores
        from storesync_product_state
        where product_id = $1
    `
	if lock {
		query += ` for update`
	}
	st := domain.SyncState{ProductID: productID}
	var need int16
	var markedAt, lastSync sql.NullTime
	var kind string
	err := q.QueryRowContext(ctx, query, productID).Scan(
		&need, &markedAt, &lastSync, &kind, stringArray(&st.SyncedStores),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	st.Need = domain.SyncNeed(need)
	if markedAt.Valid {
		st.MarkedAt = markedAt.Time
	}
	if lastSync.Valid {
		t := lastSync.Time
		st.LastSyncAt = &t
	}
	st.LastSyncKind = domain.SyncKind(kind)
	return st, nil
}

func (r *PgSyncStateRepository) Get(ctx context.Context, productID int64) (domain.SyncState, error) {
	return getState(ctx, r.db, productID, false)
}

func (r *PgSyncStateRepository) MarkFull(ctx context.Context, productID int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        insert into storesync_product_state (product_id, need, marked_at_utc)
        values ($1, 2, $2)
        on conflict (product_id) do update
        set need = 2, marked_at_utc = excluded.marked_at_utc
    `, productID, now.UTC())
	return err
}

// MarkLight never downgrades a pending full sync.
func (r *PgSyncStateRepository) MarkLight(ctx context.Context, productID int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        insert into storesync_product_state (product_id, need, marked_at_utc)
        values ($1, 1, $2)
        on conflict (product_id) do update
        set need = greatest(storesync_product_state.need, 1),
            marked_at_utc = excluded.marked_at_utc
    `, productID, now.UTC())
	return err
}

func (r *PgSyncStateRepository) CompleteSync(
	ctx context.Context,
	productID int64,
	kind domain.SyncKind,
	startedAt time.Time,
	stores []string,
	now time.Time,
) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	st, err := getState(ctx, tx, productID, true)
	if err != nil {
		return err
	}
	st.CompleteSync(kind, startedAt, stores, now.UTC())

	var markedAt sql.NullTime
	if !st.MarkedAt.IsZero() {
		markedAt = sql.NullTime{Time: st.MarkedAt, Valid: true}
	}
	synced := st.SyncedStores
	if synced == nil {
		synced = []string{}
	}
	if _, err := tx.ExecContext(ctx, `
        insert into storesync_product_state
            (product_id, need, marked_at_utc, last_sync_at_utc, last_sync_kind, synced_stores)
        values ($1,$2,$3,$4,$5,$6)
        on conflict (product_id) do update
        set need = case when storesync_product_state.marked_at_utc > $7
                        then storesync_product_state.need
                        else excluded.need end,
            marked_at_utc = greatest(storesync_product_state.marked_at_utc, excluded.marked_at_utc),
            last_sync_at_utc = excluded.last_sync_at_utc,
            last_sync_kind = excluded.last_sync_kind,
            synced_stores = excluded.synced_stores
    `,
		productID,
		int16(st.Need),
		markedAt,
		*st.LastSyncAt,
		string(st.LastSyncKind),
		synced,
		startedAt.UTC(),
	); err != nil {
		return err
	}
	return tx.Commit()
}
