package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_KeepsInsertionOrder(t *testing.T) {
	p := NewPayload(
		Field{"snapshot_id", "S1"},
		Field{"zeta", "z"},
		Field{"alpha", 1},
	)
	p.Set("zeta", "z2")
	p.Set("beta", []string{"a", "b"})

	keys := make([]string, 0, p.Len())
	for _, f := range p.Fields() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"snapshot_id", "zeta", "alpha", "beta"}, keys)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"snapshot_id":"S1","zeta":"z2","alpha":1,"beta":["a","b"]}`, string(data))
}

func TestPayload_UnmarshalKeepsOrderAndNumbers(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"z":1,"a":"x","m":[1,"two",null],"n":2.5}`), &p))

	require.Equal(t, 4, p.Len())
	assert.Equal(t, "z", p.Fields()[0].Key)
	assert.Equal(t, "a", p.Fields()[1].Key)
	assert.Equal(t, "1", p.String("z"))
	assert.Equal(t, "1, two", p.String("m"))
	assert.Equal(t, "2.5", p.String("n"))

	n, ok := p.Int("z")
	assert.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestPayload_UnmarshalRejectsNonObject(t *testing.T) {
	var p Payload
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &p))
	require.NoError(t, json.Unmarshal([]byte(`null`), &p))
	assert.Equal(t, 0, p.Len())
}

func TestStringValue(t *testing.T) {
	assert.Equal(t, "12", StringValue(float64(12)))
	assert.Equal(t, "12.5", StringValue(12.5))
	assert.Equal(t, "true", StringValue(true))
	assert.Equal(t, "", StringValue(nil))
	assert.Equal(t, "a, b", StringValue([]any{"a", " ", "b"}))
}

func TestHit_Accessors(t *testing.T) {
	hit := Hit{
		ID:    "p1",
		Score: 0.9,
		Payload: NewPayload(
			Field{PayloadSnapshotID, "S1"},
			Field{PayloadChapter, 1},
			Field{PayloadRowIndex, json.Number("7")},
			Field{PayloadSourceCSV, "ch_01.csv"},
			Field{"HTS Number", "0101.21.00.10"},
			Field{"Description", "Purebred breeding horses"},
			Field{"General Rate of Duty", "Free"},
			Field{"Column 2 Rate of Duty", ""},
		),
	}

	ch, ok := hit.Chapter()
	assert.True(t, ok)
	assert.Equal(t, 1, ch)
	row, ok := hit.RowIndex()
	assert.True(t, ok)
	assert.Equal(t, 7, row)
	assert.Equal(t, "ch_01.csv", hit.SourceCSV())
	assert.Equal(t, "0101.21.00.10", hit.Code())
	assert.Equal(t, "Purebred breeding horses", hit.Description())
	assert.Equal(t, Rates{General: "Free"}, hit.Rates())
}

func TestHit_CodeFromSplitColumns(t *testing.T) {
	hit := Hit{Payload: NewPayload(
		Field{"Heading/Subheading", "0101.21.00"},
		Field{"Stat Suffix", "10"},
	)}
	assert.Equal(t, "0101210010", hit.Code())
}
