package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/pkg/errors"

	"github.com/you/fanharvest/internal/core"
)

const schema = `CREATE TABLE IF NOT EXISTS messages (
  id TEXT NOT NULL,
  account_id TEXT NOT NULL,
  user_id TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,
  content TEXT NOT NULL,
  time TEXT NOT NULL DEFAULT '',
  attachments_json TEXT NOT NULL DEFAULT '[]',
  PRIMARY KEY (account_id, id)
);
CREATE TABLE IF NOT EXISTS payments (
  account_id TEXT NOT NULL,
  user_id TEXT NOT NULL DEFAULT '',
  time TEXT NOT NULL,
  price REAL NOT NULL,
  status TEXT NOT NULL,
  paid_status TEXT NOT NULL,
  type TEXT NOT NULL,
  media_types_json TEXT NOT NULL DEFAULT '[]',
  vault_name TEXT NOT NULL DEFAULT 'Unknown',
  content TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (account_id, time, content)
);
CREATE TABLE IF NOT EXISTS vaults (
  account_id TEXT NOT NULL,
  name TEXT NOT NULL,
  media_count INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (account_id, name)
);
CREATE TABLE IF NOT EXISTS subscribers (
  user_id TEXT NOT NULL PRIMARY KEY,
  user_name TEXT NOT NULL,
  sub_price TEXT NOT NULL DEFAULT '0.00',
  sub_duration TEXT NOT NULL DEFAULT '',
  sub_date TEXT NOT NULL DEFAULT ''
);`

// SQLiteSink stores extraction results locally. Message rows are keyed by
// content id and payment rows by (account, time, content), so re-running a
// pass over an unchanged snapshot inserts nothing. The content component
// keeps payments whose time failed to reconstruct from shadowing each other.
type SQLiteSink struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=wal;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set WAL")
	}
	ApplySQLitePragmas(context.Background(), db)
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Close() error { return s.db.Close() }

func (s *SQLiteSink) Ping() error { return s.db.Ping() }

func (s *SQLiteSink) String() string { return fmt.Sprintf("SQLiteSink{%p}", s.db) }

// WriteThread persists every message and payment of one pass in a single
// transaction.
func (s *SQLiteSink) WriteThread(ctx context.Context, thread core.Thread) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	const insertMsg = `INSERT INTO messages (id, account_id, user_id, role, content, time, attachments_json)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(account_id, id) DO NOTHING;`
	for _, msg := range thread.Messages {
		atts, err := json.Marshal(msg.Attachments)
		if err != nil {
			return errors.Wrap(err, "encode attachments")
		}
		if msg.Attachments == nil {
			atts = []byte("[]")
		}
		if _, err := tx.ExecContext(ctx, insertMsg,
			msg.ID, thread.AccountID, thread.UserID, string(msg.Role), msg.Content, msg.Time, string(atts),
		); err != nil {
			return errors.Wrap(err, "insert message")
		}
	}

	const insertPayment = `INSERT INTO payments (account_id, user_id, time, price, status, paid_status, type, media_types_json, vault_name, content)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(account_id, time, content) DO NOTHING;`
	for _, p := range thread.Payments {
		kinds, err := json.Marshal(p.MediaTypes)
		if err != nil {
			return errors.Wrap(err, "encode media types")
		}
		if p.MediaTypes == nil {
			kinds = []byte("[]")
		}
		if _, err := tx.ExecContext(ctx, insertPayment,
			p.AccountID, p.UserID, p.Time, p.Price, string(p.Status), string(p.PaidStatus),
			string(p.Type), string(kinds), p.VaultName, p.Content,
		); err != nil {
			return errors.Wrap(err, "insert payment")
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// WriteVault upserts the active vault category.
func (s *SQLiteSink) WriteVault(ctx context.Context, vault core.Vault) error {
	const q = `INSERT INTO vaults (account_id, name, media_count)
VALUES (?, ?, ?)
ON CONFLICT(account_id, name) DO UPDATE SET media_count = excluded.media_count;`
	_, err := s.db.ExecContext(ctx, q, vault.AccountID, vault.Name, vault.MediaCount)
	return errors.Wrap(err, "upsert vault")
}

// WriteSubscribers upserts the current subscriber list.
func (s *SQLiteSink) WriteSubscribers(ctx context.Context, subs []core.Subscriber) error {
	const q = `INSERT INTO subscribers (user_id, user_name, sub_price, sub_duration, sub_date)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  user_name = excluded.user_name,
  sub_price = excluded.sub_price,
  sub_duration = excluded.sub_duration,
  sub_date = excluded.sub_date;`
	for _, sub := range subs {
		date := ""
		if sub.SubDate != nil {
			date = sub.SubDate.Format("2006-01-02")
		}
		if _, err := s.db.ExecContext(ctx, q, sub.UserID, sub.UserName, sub.SubPrice, sub.SubDuration, date); err != nil {
			return errors.Wrap(err, "upsert subscriber")
		}
	}
	return nil
}

// CountMessages reports stored message rows, optionally scoped to an account.
func (s *SQLiteSink) CountMessages(ctx context.Context, accountID string) (int64, error) {
	query := `SELECT COUNT(*) FROM messages`
	var args []any
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count messages")
	}
	return n, nil
}

// ListMessages returns stored messages newest first.
func (s *SQLiteSink) ListMessages(ctx context.Context, accountID string, limit int) ([]core.Message, error) {
	query := `SELECT id, role, content, time, attachments_json FROM messages`
	var args []any
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	defer rows.Close()

	var out []core.Message
	for rows.Next() {
		var (
			msg  core.Message
			role string
			atts string
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Time, &atts); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		msg.Role = core.Role(role)
		if err := json.Unmarshal([]byte(atts), &msg.Attachments); err != nil {
			return nil, errors.Wrap(err, "decode attachments")
		}
		out = append(out, msg)
	}
	return out, errors.Wrap(rows.Err(), "iterate messages")
}

// ListPayments returns stored payments newest first.
func (s *SQLiteSink) ListPayments(ctx context.Context, accountID string, limit int) ([]core.Payment, error) {
	query := `SELECT account_id, user_id, time, price, status, paid_status, type, media_types_json, vault_name, content FROM payments`
	var args []any
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list payments")
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var (
			p                        core.Payment
			status, paid, typ, kinds string
		)
		if err := rows.Scan(&p.AccountID, &p.UserID, &p.Time, &p.Price, &status, &paid, &typ, &kinds, &p.VaultName, &p.Content); err != nil {
			return nil, errors.Wrap(err, "scan payment")
		}
		p.Status = core.ReadStatus(status)
		p.PaidStatus = core.PaidStatus(paid)
		p.Type = core.PaymentType(typ)
		if err := json.Unmarshal([]byte(kinds), &p.MediaTypes); err != nil {
			return nil, errors.Wrap(err, "decode media types")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "iterate payments")
}
