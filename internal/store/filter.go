package store

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// matches reports whether doc satisfies every clause of filter. Clause
// values are either plain values (equality) or operator documents such as
// {"$lte": 1700000000}.
func matches(doc Doc, filter Doc) bool {
	for field, want := range filter {
		got, present := doc[field]
		if ops, isOps := operatorClause(want); isOps {
			if !present || !matchOperators(got, ops) {
				return false
			}
			continue
		}
		if !present || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func operatorClause(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func matchOperators(got any, ops map[string]any) bool {
	for op, arg := range ops {
		switch op {
		case "$eq":
			if !valuesEqual(got, arg) {
				return false
			}
		case "$ne":
			if valuesEqual(got, arg) {
				return false
			}
		case "$lt":
			if !numericLess(got, arg) {
				return false
			}
		case "$lte":
			if !numericLess(got, arg) && !valuesEqual(got, arg) {
				return false
			}
		case "$gt":
			if !numericLess(arg, got) {
				return false
			}
		case "$gte":
			if !numericLess(arg, got) && !valuesEqual(got, arg) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// applyUpdate mutates doc in place. Supported operators: $set, $inc,
// $push, $addToSet, $pull. Unknown operators are an error so a typo never
// silently drops a write.
func applyUpdate(doc Doc, update Doc) error {
	for op, rawFields := range update {
		fields, ok := rawFields.(map[string]any)
		if !ok {
			return fmt.Errorf("store: update operator %s needs a document, got %T", op, rawFields)
		}
		for field, arg := range fields {
			switch op {
			case "$set":
				doc[field] = arg
			case "$inc":
				cur, _ := asFloat(doc[field])
				inc, ok := asFloat(arg)
				if !ok {
					return fmt.Errorf("store: $inc %s with non-numeric %T", field, arg)
				}
				doc[field] = cur + inc
			case "$push":
				doc[field] = append(asSlice(doc[field]), arg)
			case "$addToSet":
				cur := asSlice(doc[field])
				if !sliceContains(cur, arg) {
					doc[field] = append(cur, arg)
				} else {
					doc[field] = cur
				}
			case "$pull":
				cur := asSlice(doc[field])
				kept := make([]any, 0, len(cur))
				for _, v := range cur {
					if !valuesEqual(v, arg) {
						kept = append(kept, v)
					}
				}
				doc[field] = kept
			default:
				return fmt.Errorf("store: unsupported update operator %s", op)
			}
		}
	}
	return nil
}

// seedFromFilter builds the base document for an upsert from the filter's
// equality clauses, mirroring upsert semantics of document databases.
func seedFromFilter(filter Doc) Doc {
	doc := Doc{}
	for field, v := range filter {
		if _, isOps := operatorClause(v); isOps {
			continue
		}
		doc[field] = v
	}
	return doc
}

func sortDocs(docs []Doc, field string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		if desc {
			return valueLess(docs[j][field], docs[i][field])
		}
		return valueLess(docs[i][field], docs[j][field])
	})
}

func valueLess(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func numericLess(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return aok && bok && af < bf
}

// valuesEqual compares across the numeric types that JSON decoding and Go
// literals mix (int vs float64), falling back to DeepEqual.
func valuesEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	if aok != bok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func asSlice(v any) []any {
	if v == nil {
		return nil
	}
	if s, ok := v.([]any); ok {
		return s
	}
	return []any{v}
}

func sliceContains(s []any, v any) bool {
	for _, e := range s {
		if valuesEqual(e, v) {
			return true
		}
	}
	return false
}
