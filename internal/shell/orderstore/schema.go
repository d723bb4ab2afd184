package orderstore

import "context"

// schemaSQL creates the order tables on a fresh database.
// order_history.id is a bigserial so that entries sharing the same
// occurred_at timestamp still have a total order.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	reader_ticket TEXT NOT NULL,
	library_id BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_reader_ticket ON orders (reader_ticket);

CREATE TABLE IF NOT EXISTS order_history (
	id BIGSERIAL PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	status TEXT NOT NULL CHECK (status IN ('new', 'processing', 'ready', 'done', 'cancelled', 'error', 'archived')),
	description TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
	staff_ticket TEXT
);

CREATE INDEX IF NOT EXISTS idx_order_history_order_id ON order_history (order_id, occurred_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS order_items (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	book_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('ordered', 'handed', 'returned', 'cancelled', 'analogous')),
	description TEXT,
	order_to_return UUID REFERENCES orders (id) ON DELETE SET NULL,
	handed_at TIMESTAMP WITH TIME ZONE,
	to_return_at TIMESTAMP WITH TIME ZONE,
	returned_at TIMESTAMP WITH TIME ZONE,
	analogous_item UUID REFERENCES order_items (id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id);
CREATE INDEX IF NOT EXISTS idx_order_items_order_to_return ON order_items (order_to_return);
`

// EnsureSchema creates the order tables if they do not exist yet.
func (os OrderStore) EnsureSchema(ctx context.Context) error {
	_, err := os.db.Exec(ctx, schemaSQL)

	return err
}
