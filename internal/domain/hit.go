package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Provenance keys added to every indexed row.
const (
	PayloadSnapshotID = "snapshot_id"
	PayloadChapter    = "chapter"
	PayloadRowIndex   = "row_index"
	PayloadSourceCSV  = "source_csv"
)

// Field is one key/value pair of a Payload.
type Field struct {
	Key   string
	Value any
}

// Payload is a JSON object that remembers the order its keys were inserted
// (or decoded) in. Row fields keep their CSV column order this way.
// Copies share storage, so a payload is read-only once handed out.
type Payload struct {
	fields []Field
	index  map[string]int
}

// NewPayload builds a payload from fields. Later duplicates overwrite earlier
// values in place.
func NewPayload(fields ...Field) Payload {
	var p Payload
	for _, f := range fields {
		p.Set(f.Key, f.Value)
	}
	return p
}

// Set adds key or replaces its value without moving it.
func (p *Payload) Set(key string, value any) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[key]; ok {
		p.fields[i].Value = value
		return
	}
	p.index[key] = len(p.fields)
	p.fields = append(p.fields, Field{Key: key, Value: value})
}

// Get returns the raw value stored under key.
func (p Payload) Get(key string) (any, bool) {
	i, ok := p.index[key]
	if !ok {
		return nil, false
	}
	return p.fields[i].Value, true
}

// String returns the stringified value under key, or "".
func (p Payload) String(key string) string {
	v, ok := p.Get(key)
	if !ok {
		return ""
	}
	return StringValue(v)
}

// First returns the first non-empty stringified value among keys.
func (p Payload) First(keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(p.String(k)); s != "" {
			return s
		}
	}
	return ""
}

// Int returns the integer under key. Strings holding integers are accepted.
func (p Payload) Int(key string) (int, bool) {
	v, ok := p.Get(key)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

// Fields returns the fields in insertion order. The slice must not be modified.
func (p Payload) Fields() []Field {
	return p.fields
}

// Len returns the number of keys.
func (p Payload) Len() int {
	return len(p.fields)
}

// MarshalJSON writes the object with keys in insertion order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal payload field %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping its key order. Numbers decode as
// json.Number so integers round-trip without a float detour.
func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = Payload{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("payload must be a JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("payload key must be a string, got %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode payload field %q: %w", key, err)
		}
		p.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

// StringValue stringifies a payload value. Lists are comma-joined, integral
// floats print without a fraction and nil is "".
func StringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case []string:
		return joinNonEmpty(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, StringValue(item))
		}
		return joinNonEmpty(parts)
	case Payload:
		b, err := x.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0:0]
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ", ")
}

// Field name variants seen across HTS exports and indexed payloads.
var (
	DescriptionKeys = []string{"Description", "description", "Article Description", "article_description", "article"}
	CodeKeys        = []string{"HTS Number", "hts_number", "hts10", "HTS10", "code"}
	RateGeneralKeys = []string{"General Rate of Duty", "general_rate_of_duty", "rate_general", "general"}
	RateSpecialKeys = []string{"Special Rate of Duty", "special_rate_of_duty", "rate_special", "special"}
	RateColumn2Keys = []string{"Column 2 Rate of Duty", "column_2_rate_of_duty", "rate_col2", "col2"}
)

// Hit is one vector search result.
type Hit struct {
	ID      string
	Score   float64
	Payload Payload
}

// Description returns the row's description text.
func (h Hit) Description() string {
	return h.Payload.First(DescriptionKeys...)
}

// Code returns the row's tariff code. Older exports split it into
// heading/subheading and stat suffix columns.
func (h Hit) Code() string {
	if code := h.Payload.First(CodeKeys...); code != "" {
		return code
	}
	heading := h.Payload.First("Heading/Subheading", "heading_subheading")
	if heading == "" {
		return ""
	}
	return NormalizeCode(heading + h.Payload.First("Stat Suffix", "stat_suffix"))
}

// Chapter returns the chapter recorded at index time.
func (h Hit) Chapter() (int, bool) {
	return h.Payload.Int(PayloadChapter)
}

// RowIndex returns the row position within its source file.
func (h Hit) RowIndex() (int, bool) {
	return h.Payload.Int(PayloadRowIndex)
}

// SourceCSV returns the file the row was indexed from.
func (h Hit) SourceCSV() string {
	return h.Payload.String(PayloadSourceCSV)
}

// Rates returns the three duty-rate strings.
func (h Hit) Rates() Rates {
	return Rates{
		General: h.Payload.First(RateGeneralKeys...),
		Special: h.Payload.First(RateSpecialKeys...),
		Column2: h.Payload.First(RateColumn2Keys...),
	}
}

// Rates groups the general, special and column-2 duty rates.
type Rates struct {
	General string `json:"general"`
	Special string `json:"special"`
	Column2 string `json:"col2"`
}

// Point is a vector with its payload, as written to a vector index.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}
