package trytonclient

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nomis52/demoseed/bos"
)

// encodeParams converts call parameters to their wire representation.
func encodeParams(params []any) []any {
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = encodeValue(p)
	}
	return out
}

// encodeDomain renders a domain as a list of [field, operator, value].
func encodeDomain(d bos.Domain) []any {
	out := make([]any, 0, len(d))
	for _, c := range d {
		out = append(out, []any{c.Field, string(c.Op), encodeValue(c.Value)})
	}
	return out
}

// encodeValue converts Go values to the server's JSON conventions: dates,
// decimals and durations are objects tagged with __class__, one2many
// construction becomes a list of commands.
func encodeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bos.Date:
		return map[string]any{"__class__": "date", "year": x.Year(), "month": int(x.Month()), "day": x.Day()}
	case time.Time:
		return map[string]any{
			"__class__": "datetime",
			"year":      x.Year(), "month": int(x.Month()), "day": x.Day(),
			"hour": x.Hour(), "minute": x.Minute(), "second": x.Second(),
			"microsecond": x.Nanosecond() / 1000,
		}
	case decimal.Decimal:
		return map[string]any{"__class__": "Decimal", "decimal": x.String()}
	case time.Duration:
		return map[string]any{"__class__": "timedelta", "seconds": x.Seconds()}
	case bos.ID:
		return int64(x)
	case []bos.ID:
		out := make([]any, len(x))
		for i, id := range x {
			out[i] = int64(id)
		}
		return out
	case bos.Children:
		records := make([]any, len(x))
		for i, r := range x {
			records[i] = encodeValue(r)
		}
		return []any{[]any{"create", records}}
	case bos.Add:
		return []any{[]any{"add", encodeValue([]bos.ID(x))}}
	case bos.Record:
		return encodeValue(map[string]any(x))
	case bos.Domain:
		return encodeDomain(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = encodeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = encodeValue(e)
		}
		return out
	}
	return v
}

// decodeValue reverses encodeValue on a generically decoded JSON value.
// Integral numbers become int64 so that many2one values read as IDs.
func decodeValue(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = decodeValue(e)
		}
		return x
	case map[string]any:
		if class, ok := x["__class__"].(string); ok {
			if decoded, ok := decodeClass(class, x); ok {
				return decoded
			}
		}
		for k, e := range x {
			x[k] = decodeValue(e)
		}
		return x
	}
	return v
}

func decodeClass(class string, m map[string]any) (any, bool) {
	num := func(key string) int {
		f, _ := m[key].(float64)
		return int(f)
	}
	switch class {
	case "date":
		return bos.NewDate(num("year"), time.Month(num("month")), num("day")), true
	case "datetime":
		return time.Date(num("year"), time.Month(num("month")), num("day"),
			num("hour"), num("minute"), num("second"), num("microsecond")*1000, time.UTC), true
	case "Decimal":
		s, _ := m["decimal"].(string)
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, false
		}
		return d, true
	case "timedelta":
		f, _ := m["seconds"].(float64)
		return time.Duration(f * float64(time.Second)), true
	case "bytes":
		s, _ := m["base64"].(string)
		return s, true
	}
	return nil, false
}

func toID(v any) bos.ID {
	return bos.Record{"v": v}.Ref("v")
}

func toIDs(list []any) []bos.ID {
	ids := make([]bos.ID, 0, len(list))
	for _, v := range list {
		ids = append(ids, toID(v))
	}
	return ids
}
