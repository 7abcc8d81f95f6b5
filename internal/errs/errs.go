// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errs is a trimmed, non-protobuf reimagining of MatrixOne's
// pkg/common/moerr: a single error type carrying the taxonomy kind plus
// the wire-level codes each protocol needs to report it.
package errs

import (
	"context"
	"fmt"
)

// Kind is one of the nine error taxonomy members from the error handling
// design: query-level errors are caught at the connection loop and
// converted to the protocol's error message, except IoError and
// CancellationError, which are never reported to the peer.
type Kind int

const (
	KindParse Kind = iota
	KindSchema
	KindType
	KindConstraint
	KindFeature
	KindProtocol
	KindAuth
	KindIo
	KindCancellation
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindSchema:
		return "SchemaError"
	case KindType:
		return "TypeError"
	case KindConstraint:
		return "ConstraintError"
	case KindFeature:
		return "FeatureError"
	case KindProtocol:
		return "ProtocolError"
	case KindAuth:
		return "AuthError"
	case KindIo:
		return "IoError"
	case KindCancellation:
		return "CancellationError"
	default:
		return "UnknownError"
	}
}

// Error is the engine's single error type. It is always constructed
// through one of the New* helpers below so that every error carries a
// Kind the protocol layers can translate without string matching.
type Error struct {
	Kind Kind
	msg  string

	// MySQLCode and SQLState are wire-level MySQL ERR_Packet fields.
	MySQLCode uint16
	SQLState  string

	// PgCode is the Postgres ErrorResponse SQLSTATE code.
	PgCode string
}

func (e *Error) Error() string {
	return e.msg
}

// kindDefaults mirrors moerr's per-group SQLSTATE/error-code tables,
// collapsed to one representative code per taxonomy kind since the core
// does not need MySQL's full per-statement error catalog.
var kindDefaults = map[Kind]struct {
	mysqlCode uint16
	sqlState  string
	pgCode    string
}{
	KindParse:        {1064, "42000", "42601"},
	KindSchema:       {1146, "42S02", "42P01"},
	KindType:         {1366, "HY000", "42804"},
	KindConstraint:   {1062, "23000", "23505"},
	KindFeature:      {1235, "42000", "0A000"},
	KindProtocol:     {1047, "08S01", "08P01"},
	KindAuth:         {1045, "28000", "28P01"},
	KindIo:           {2013, "HY000", "08006"},
	KindCancellation: {1317, "70100", "57014"},
}

func new(ctx context.Context, kind Kind, msg string, args ...any) *Error {
	_ = ctx // reserved for future request-scoped error tagging, mirroring moerr's signature
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	d := kindDefaults[kind]
	return &Error{Kind: kind, msg: msg, MySQLCode: d.mysqlCode, SQLState: d.sqlState, PgCode: d.pgCode}
}

func NewParseError(ctx context.Context, msg string, args ...any) *Error {
	return new(ctx, KindParse, msg, args...)
}

func NewSchemaError(ctx context.Context, msg string, args ...any) *Error {
	return new(ctx, KindSchema, msg, args...)
}

func NewTypeError(ctx context.Context, msg string, args ...any) *Error {
	return new(ctx, KindType, msg, args...)
}

func NewConstraintError(ctx context.Context, msg string, args ...any) *Error {
	return new(ctx, KindConstraint, msg, args...)
}

func NewFeatureError(ctx context.Context, msg string, args ...any) *Error {
	return new(ctx, KindFeature, msg, args...)
}

func NewProtocolError(ctx context.Context, msg string, args ...any) *Error {
	return new(ctx, KindProtocol, msg, args...)
}

func NewAuthError(ctx context.Context, msg string, args ...any) *Error {
	return new(ctx, KindAuth, msg, args...)
}

func NewIoError(ctx context.Context, msg string, args ...any) *Error {
	return new(ctx, KindIo, msg, args...)
}

func NewCancellationError(ctx context.Context) *Error {
	return new(ctx, KindCancellation, "query canceled")
}

// As reports whether err is an *Error and returns it, the pattern the
// protocol layers use to decide whether to keep the connection open.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
