package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks malformed input rejected before any state change.
	ErrValidation = errors.New("validation error")
	// ErrExtraction marks an extraction strategy that could not produce candidates.
	ErrExtraction = errors.New("extraction failure")
	// ErrPersistence marks a store that is unavailable or refused the write.
	ErrPersistence = errors.New("persistence error")
	// ErrInvalidArgument is kept as an alias of ErrValidation.
	ErrInvalidArgument = ErrValidation
)

// DomainError carries the failing operation alongside one of the sentinels above.
type DomainError struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DomainError) Unwrap() []error {
	out := []error{}
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func Validation(op, msg string) error {
	return &DomainError{Kind: ErrValidation, Op: op, Msg: msg}
}

func NotFound(resource string, id any) error {
	return &DomainError{Kind: ErrNotFound, Op: resource, Msg: fmt.Sprintf("id %v", id)}
}

func Extraction(op string, err error) error {
	return &DomainError{Kind: ErrExtraction, Op: op, Err: err}
}

func Persistence(op string, err error) error {
	return &DomainError{Kind: ErrPersistence, Op: op, Err: err}
}

// ClassifyDB wraps store errors that mean "store unavailable" as ErrPersistence and
// returns every other error unchanged.
func ClassifyDB(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	if IsUnavailable(err) {
		return Persistence(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsUnavailable reports connection loss, shutdown and lock contention errors.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		switch {
		case strings.HasPrefix(code, "08"):
			return true
		case code == "40001", code == "40P01", code == "55P03":
			return true
		case code == "57P01", code == "57P02", code == "57P03":
			return true
		}
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sql: database is closed")
}
