package postgres

// SQL statements for the order pipeline tables.

var requiredTables = []string{
	"orders",
	"order_statistics",
	"applied_line_items",
	"statistics_cache",
	"intake_queue",
}

const (
	queryTableExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = $1
		)
	`

	// queryInsertOrder stores an order once, keyed by id.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for a redelivered order.
	queryInsertOrder = `
		INSERT INTO orders (
			id, order_date, order_date_time, utc_offset_seconds, products, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`

	queryGetOrder = `
		SELECT id, order_date_time, utc_offset_seconds, products
		FROM orders
		WHERE id = $1
	`

	// queryIncrementStatistics applies one line item exactly once.
	// The guard row and the counter upsert are one statement: either both land or neither does.
	// A replayed (order_id, line_no) yields an empty guard, inserts nothing and returns no rows.
	queryIncrementStatistics = `
		WITH guard AS (
			INSERT INTO applied_line_items (order_id, line_no, applied_at)
			VALUES ($1, $2, $7)
			ON CONFLICT (order_id, line_no) DO NOTHING
			RETURNING order_id
		)
		INSERT INTO order_statistics (
			date, product_id, product_name, orders_count, orders_value, updated_at
		)
		SELECT $3::text, $4::text, $5::text, 1, $6::numeric, $7::timestamptz
		FROM guard
		ON CONFLICT (date, product_id)
		DO UPDATE SET
			product_name = EXCLUDED.product_name,
			orders_count = order_statistics.orders_count + 1,
			orders_value = order_statistics.orders_value + EXCLUDED.orders_value,
			updated_at   = EXCLUDED.updated_at
		RETURNING orders_count
	`

	queryStatisticsForDate = `
		SELECT date, product_id, product_name, orders_count, orders_value
		FROM order_statistics
		WHERE date = $1
		ORDER BY arrival_seq ASC
	`

	queryStatisticsDates = `
		SELECT DISTINCT date
		FROM order_statistics
		ORDER BY date DESC
	`

	queryPutCache = `
		INSERT INTO statistics_cache (date, snapshot, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (date)
		DO UPDATE SET
			snapshot   = EXCLUDED.snapshot,
			updated_at = EXCLUDED.updated_at
	`

	queryGetCache = `SELECT snapshot FROM statistics_cache WHERE date = $1`

	queryGetAllCache = `
		SELECT date, snapshot
		FROM statistics_cache
		ORDER BY date DESC
	`

	queryEnqueue = `
		INSERT INTO intake_queue (partition_id, order_id, payload, enqueued_at)
		VALUES ($1, $2, $3, $4)
		RETURNING seq
	`

	queryCountStranded = `
		SELECT COUNT(*)
		FROM intake_queue
		WHERE partition_id >= $1 OR partition_id < 0
	`

	// queryDequeue removes the head of one partition inside the caller's transaction.
	// The row is gone only once that transaction commits; SKIP LOCKED keeps a second
	// consumer from blocking on a row that is already being processed.
	queryDequeue = `
		DELETE FROM intake_queue
		WHERE seq = (
			SELECT seq
			FROM intake_queue
			WHERE partition_id = $1
			ORDER BY seq ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING seq, payload
	`
)
