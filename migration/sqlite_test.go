package migration

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lockplane/lockstep/database"
	"github.com/lockplane/lockstep/database/sqlite"
	"github.com/lockplane/lockstep/operation"
)

// sqlSession runs statements on an open transaction when there is one.
type sqlSession struct {
	db *sql.DB
	tx *sql.Tx
}

func (s *sqlSession) exec(ctx context.Context, stmt string) error {
	if s.tx != nil {
		_, err := s.tx.ExecContext(ctx, stmt)
		return err
	}
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *sqlSession) hooks() TxHooks {
	return TxHooks{
		Begin: func(ctx context.Context) error {
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			s.tx = tx
			return nil
		},
		Commit: func(ctx context.Context) error {
			tx := s.tx
			s.tx = nil
			return tx.Commit()
		},
		Rollback: func(ctx context.Context) error {
			if s.tx == nil {
				return nil
			}
			tx := s.tx
			s.tx = nil
			return tx.Rollback()
		},
	}
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query sqlite_master: %v", err)
	}
	return count > 0
}

func TestMigrator_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer func() { _ = db.Close() }()

	state, err := sqlite.NewStateStore(ctx, db, "")
	if err != nil {
		t.Fatalf("NewStateStore failed: %v", err)
	}

	reg := NewRegistry()
	reg.Register(New("0001_create_users").Operation(
		operation.CreateTable("users",
			database.NewField("id", database.Serial).AsPrimaryKey(),
			database.NewField("email", database.Text).NotNull(),
		),
		operation.AddIndex("users", database.NewIndex("idx_users_email").Column("email").AsUnique()),
	))
	reg.Register(New("0002_add_name").DependsOn("0001_create_users").Operation(
		operation.AddField("users", database.NewField("name", database.Text)),
	))
	reg.Register(New("0003_posts").DependsOn("0001_create_users").Operation(
		operation.CreateTable("posts",
			database.NewField("id", database.Serial).AsPrimaryKey(),
			database.NewField("user_id", database.Integer).NotNull().
				ReferencesColumn("users", "id").OnDelete(database.Cascade),
		),
	))

	session := &sqlSession{db: db}
	m := NewMigrator(reg, sqlite.NewDriver(), state)

	applied, err := m.MigrateForwardTx(ctx, session.exec, session.hooks())
	if err != nil {
		t.Fatalf("MigrateForwardTx failed: %v", err)
	}
	if want := []string{"0001_create_users", "0002_add_name", "0003_posts"}; !reflect.DeepEqual(applied, want) {
		t.Errorf("Expected %v, got %v", want, applied)
	}

	if !tableExists(t, db, "users") || !tableExists(t, db, "posts") {
		t.Fatal("Expected users and posts tables to exist")
	}
	if _, err := db.Exec(`INSERT INTO users (email, name) VALUES ('a@example.com', 'A')`); err != nil {
		t.Fatalf("Expected name column to exist: %v", err)
	}

	stored, err := state.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if !reflect.DeepEqual(stored, applied) {
		t.Errorf("Expected state %v, got %v", applied, stored)
	}

	unapplied, err := m.MigrateBackwardTx(ctx, "0002_add_name", session.exec, session.hooks())
	if err != nil {
		t.Fatalf("MigrateBackwardTx failed: %v", err)
	}
	if want := []string{"0003_posts", "0002_add_name"}; !reflect.DeepEqual(unapplied, want) {
		t.Errorf("Expected %v, got %v", want, unapplied)
	}
	if tableExists(t, db, "posts") {
		t.Error("Expected posts table to be dropped")
	}

	if _, err := m.MigrateBackwardTx(ctx, "", session.exec, session.hooks()); err != nil {
		t.Fatalf("MigrateBackwardTx (all) failed: %v", err)
	}
	if tableExists(t, db, "users") {
		t.Error("Expected users table to be dropped")
	}

	stored, _ = state.AppliedMigrations(ctx)
	if len(stored) != 0 {
		t.Errorf("Expected empty state, got %v", stored)
	}
}

func TestMigrator_SQLiteFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer func() { _ = db.Close() }()

	state, err := sqlite.NewStateStore(ctx, db, "")
	if err != nil {
		t.Fatalf("NewStateStore failed: %v", err)
	}

	reg := NewRegistry()
	reg.Register(New("0001_ok").Operation(
		operation.CreateTable("things", database.NewField("id", database.Integer).AsPrimaryKey()),
	))
	reg.Register(New("0002_broken").DependsOn("0001_ok").Operation(
		operation.CreateTable("widgets", database.NewField("id", database.Integer).AsPrimaryKey()),
		operation.RunSQL("THIS IS NOT SQL"),
	))

	session := &sqlSession{db: db}
	m := NewMigrator(reg, sqlite.NewDriver(), state)

	_, err = m.MigrateForwardTx(ctx, session.exec, session.hooks())

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Expected *ExecutionError, got %v", err)
	}
	if execErr.Migration != "0002_broken" || !reflect.DeepEqual(execErr.Completed, []string{"0001_ok"}) {
		t.Errorf("Unexpected failure: %+v", execErr)
	}

	if !tableExists(t, db, "things") {
		t.Error("Expected first migration to stay applied")
	}
	if tableExists(t, db, "widgets") {
		t.Error("Expected failed migration to be rolled back")
	}

	plan, err := m.PlanForward(ctx)
	if err != nil {
		t.Fatalf("PlanForward failed: %v", err)
	}
	if want := []string{"0002_broken"}; !reflect.DeepEqual(plan, want) {
		t.Errorf("Expected %v still pending, got %v", want, plan)
	}
}
