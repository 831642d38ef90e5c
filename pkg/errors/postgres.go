package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE values the marketplace reacts to.
const (
	SQLStateUniqueViolation      = "23505"
	SQLStateForeignKeyViolation  = "23503"
	SQLStateCheckViolation       = "23514"
	SQLStateSerializationFailure = "40001"
	SQLStateDeadlockDetected     = "40P01"
	SQLStateQueryCanceled        = "57014"
)

// PGDiagnostics is the driver-neutral view of a Postgres error.
type PGDiagnostics struct {
	Code       string `json:"pg_code,omitempty"`
	Constraint string `json:"pg_constraint,omitempty"`
	Table      string `json:"pg_table,omitempty"`
	Column     string `json:"pg_column,omitempty"`
	Detail     string `json:"pg_detail,omitempty"`
	Message    string `json:"pg_message,omitempty"`
}

// Postgres extracts diagnostics from a pgx or lib/pq error anywhere in the chain.
func Postgres(err error) (PGDiagnostics, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return PGDiagnostics{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return PGDiagnostics{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	}
	return PGDiagnostics{}, false
}

// FromPostgres maps an untyped database failure onto an API code. Unknown
// states stay internal so they surface as 500s.
func FromPostgres(err error) (*Error, bool) {
	diag, ok := Postgres(err)
	if !ok {
		return nil, false
	}
	switch diag.Code {
	case SQLStateUniqueViolation:
		return Wrap(CodeConflict, err, "resource already exists"), true
	case SQLStateForeignKeyViolation:
		return Wrap(CodeValidation, err, "referenced resource does not exist"), true
	case SQLStateCheckViolation:
		return Wrap(CodeValidation, err, "value violates a data constraint"), true
	case SQLStateSerializationFailure, SQLStateDeadlockDetected:
		return Wrap(CodeStateConflict, err, "concurrent update, retry the request"), true
	case SQLStateQueryCanceled:
		return Wrap(CodeDependency, err, "database query canceled"), true
	default:
		return Wrap(CodeInternal, err, "database error"), true
	}
}

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string         `json:"top_message"`
	Code       Code           `json:"code,omitempty"`
	Chain      []string       `json:"chain,omitempty"`
	PG         *PGDiagnostics `json:"pg,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if diag, ok := Postgres(err); ok {
		d.PG = &diag
	}
	return d
}

// Fields renders the dump as log fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.PG != nil {
		fields["pg_code"] = d.PG.Code
		fields["pg_constraint"] = d.PG.Constraint
		fields["pg_table"] = d.PG.Table
		fields["pg_column"] = d.PG.Column
		fields["pg_detail"] = d.PG.Detail
		fields["pg_message"] = d.PG.Message
	}
	return fields
}
