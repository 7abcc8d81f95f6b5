// Package oid re-declares the subset of Postgres's built-in type OIDs a
// RowDescription needs, matching the numbering in github.com/lib/pq/oid.
// The driver package itself is never imported - this server only needs
// its OID table, not a client implementation - so the constants are
// copied here rather than pulled in as a dependency of a server binary.
package oid

type Oid uint32

const (
	T_bool      Oid = 16
	T_bytea     Oid = 17
	T_char      Oid = 18
	T_name      Oid = 19
	T_int8      Oid = 20
	T_int2      Oid = 21
	T_int4      Oid = 23
	T_text      Oid = 25
	T_json      Oid = 114
	T_float4    Oid = 700
	T_float8    Oid = 701
	T_unknown   Oid = 705
	T_bpchar    Oid = 1042
	T_varchar   Oid = 1043
	T_date      Oid = 1082
	T_time      Oid = 1083
	T_timestamp Oid = 1114
	T_numeric   Oid = 1700
	T_uuid      Oid = 2950
)
