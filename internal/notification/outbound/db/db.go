package db

import (
	"context"
	_ "embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/irnotify/internal/pkg/clock"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Schema creates the tables this repository reads and writes.
//
//go:embed schema.sql
var Schema string

type DB struct {
	conn  *pgxpool.Pool
	uid   uid.NumberID
	clock clock.Clocker
	ins   instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, uid uid.NumberID, clk clock.Clocker, ins instrument.Instrumentation) *DB {
	return &DB{
		conn:  conn,
		uid:   uid,
		clock: clk,
		ins:   ins,
	}
}

// - 23505 unique violation -> goerror.ErrConflict
// - 23503 foreign_key_violation -> goerror.ErrNotFound
func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return goerror.ErrConflict
		case "23503":
			return goerror.ErrNotFound
		}
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
