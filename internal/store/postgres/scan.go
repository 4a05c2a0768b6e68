package postgres

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
)

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func textOrEmpty(t pgtype.Text) string {
	if t.Valid {
		return t.String
	}
	return ""
}

func timestamptzPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	tt := t.Time
	return &tt
}

func uuidOrEmpty(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuidBytesToString(u.Bytes)
}

func uuidBytesToString(b [16]byte) string {
	var buf [36]byte
	hex.Encode(buf[0:8], b[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], b[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], b[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], b[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:36], b[10:16])
	return string(buf[:])
}

func nonNilStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// isMissing reports whether err means the addressed row does not exist. Ids
// come straight from request paths, so a malformed uuid counts as missing.
func isMissing(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == pgInvalidText
}

func pgErrorCode(err error) (code, constraint string) {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return pgerr.Code, pgerr.ConstraintName
	}
	return "", ""
}

// summaryColumns selects a user summary from a users row aliased as alias.
func summaryColumns(alias string) string {
	return alias + ".id, " + alias + ".username, " + alias + ".firstname, " + alias + ".lastname, " + alias + ".avatar"
}

type summaryScan struct {
	id pgtype.UUID
	s  domain.UserSummary
}

func (x *summaryScan) dest() []any {
	return []any{&x.id, &x.s.Username, &x.s.Firstname, &x.s.Lastname, &x.s.Avatar}
}

func (x *summaryScan) value() domain.UserSummary {
	s := x.s
	s.ID = uuidOrEmpty(x.id)
	return s
}

func collectSummaries(rows pgx.Rows) ([]domain.UserSummary, error) {
	defer rows.Close()

	out := []domain.UserSummary{}
	for rows.Next() {
		var sc summaryScan
		if err := rows.Scan(sc.dest()...); err != nil {
			return nil, err
		}
		out = append(out, sc.value())
	}
	return out, rows.Err()
}
