package executor

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lockplane/lockstep/migration"
)

// Session runs migration statements on a database, inside a transaction while
// one is open.
type Session struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSession returns a Session for db.
func NewSession(db *sql.DB) *Session {
	return &Session{db: db}
}

// Exec implements migration.ExecFunc.
func (s *Session) Exec(ctx context.Context, statement string) error {
	if s.tx != nil {
		_, err := s.tx.ExecContext(ctx, statement)
		return err
	}
	_, err := s.db.ExecContext(ctx, statement)
	return err
}

// Hooks returns transaction callbacks bound to the session.
func (s *Session) Hooks() migration.TxHooks {
	return migration.TxHooks{
		Begin:    s.begin,
		Commit:   s.commit,
		Rollback: s.rollback,
	}
}

func (s *Session) begin(ctx context.Context) error {
	if s.tx != nil {
		return errors.New("transaction already open")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	s.tx = tx
	return nil
}

func (s *Session) commit(ctx context.Context) error {
	if s.tx == nil {
		return errors.New("no open transaction")
	}

	tx := s.tx
	s.tx = nil
	return tx.Commit()
}

// rollback is a no-op without an open transaction, since a failed commit has
// already ended it.
func (s *Session) rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}

	tx := s.tx
	s.tx = nil
	return tx.Rollback()
}
