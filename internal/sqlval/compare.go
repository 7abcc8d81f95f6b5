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

package sqlval

// Compare orders two non-null values of compatible kinds. It is used by
// ORDER BY and by window partition ordering; three-valued SQL equality
// (which must return Null, not bool, when either side is Null) lives in
// the expression evaluator instead, since it produces a Value, not an int.
func Compare(a, b Value) int {
	if isNumeric(a.Kind) && isNumeric(b.Kind) {
		ad, bd := a.AsDecimal(), b.AsDecimal()
		return ad.Cmp(bd)
	}
	switch a.Kind {
	case KBoolean:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	case KText, KChar:
		return compareStrings(a.AsText(), b.AsText())
	case KDate:
		return compareInts(int64(a.d.ToTime().Unix()), int64(b.d.ToTime().Unix()))
	case KTime:
		return compareInts(timeToMicros(a.t), timeToMicros(b.t))
	case KTimestamp:
		return compareInts(a.ts.ToTime().UnixMicro(), b.ts.ToTime().UnixMicro())
	case KUuid:
		return compareStrings(a.u.String(), b.u.String())
	case KJson:
		return compareStrings(a.j.String(), b.j.String())
	default:
		return 0
	}
}

func timeToMicros(t Time) int64 {
	return int64(t.Hour)*3600000000 + int64(t.Minute)*60000000 + int64(t.Second)*1000000 + int64(t.Micros)
}

func isNumeric(k Kind) bool {
	return k == KInteger || k == KBigInt || k == KFloat || k == KDecimal
}

func compareStrings(a, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func compareInts(a, b int64) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

// Equivalent implements a "Null = Null -> true" predicate: GROUP BY
// keying, DISTINCT row dedup, and set-operation row equality all use
// this instead of SQL's three-valued "=".
func Equivalent(a, b Value) bool {
	if a.IsNull() && b.IsNull() {
		return true
	}
	if a.IsNull() != b.IsNull() {
		return false
	}
	if a.Kind != b.Kind && !(isNumeric(a.Kind) && isNumeric(b.Kind)) {
		return false
	}
	return Compare(a, b) == 0
}

// EquivalentRow compares two tuples of values with Equivalent, used for
// row-level dedup (DISTINCT, UNION/INTERSECT/EXCEPT without ALL) and for
// partitioning by GROUP BY key.
func EquivalentRow(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equivalent(a[i], b[i]) {
			return false
		}
	}
	return true
}
