package querysql

import (
	"database/sql"
	"math"
	"time"
)

// scanRows reads at most maxRows rows as column-name maps. The second result
// reports whether more rows were available.
func scanRows(rows *sql.Rows, maxRows int) ([]string, []map[string]interface{}, bool, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, false, err
	}

	out := make([]map[string]interface{}, 0)
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if len(out) == maxRows {
			return columns, out, true, rows.Err()
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, false, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	return columns, out, false, rows.Err()
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return val
	}
}

// bindArgs turns whole JSON numbers back into integers so LIMIT and integer
// comparisons bind with the type drivers expect.
func bindArgs(args []interface{}) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		if f, ok := a.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			out[i] = int64(f)
			continue
		}
		out[i] = a
	}
	return out
}
