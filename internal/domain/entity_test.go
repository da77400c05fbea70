package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRef_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain id", input: `"t-1"`, want: "t-1"},
		{name: "populated with _id", input: `{"_id": "t-2", "title": "x"}`, want: "t-2"},
		{name: "populated with id", input: `{"id": "t-3"}`, want: "t-3"},
		{name: "numeric id", input: `{"_id": 42}`, want: "42"},
		{name: "no id key", input: `{"title": "x"}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Ref
			require.NoError(t, json.Unmarshal([]byte(tt.input), &r))
			assert.Equal(t, tt.want, r.ID)
		})
	}
}

func TestRef_UnmarshalJSON_Invalid(t *testing.T) {
	var r Ref
	err := json.Unmarshal([]byte(`[1, 2]`), &r)
	assert.Error(t, err)
}

func TestRef_EncodesAsPlainID(t *testing.T) {
	data, err := json.Marshal([]Ref{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.JSONEq(t, `["a", "b"]`, string(data))

	out, err := yaml.Marshal(struct {
		Deps []Ref `yaml:"deps"`
	}{Deps: Refs("a")})
	require.NoError(t, err)
	assert.Equal(t, "deps:\n    - a\n", string(out))
}

func TestRef_UnmarshalYAML(t *testing.T) {
	var doc struct {
		Deps []Ref `yaml:"deps"`
	}
	input := "deps:\n  - a\n  - {_id: b, title: x}\n  - {id: c}\n"

	require.NoError(t, yaml.Unmarshal([]byte(input), &doc))

	assert.Equal(t, Refs("a", "b", "c"), doc.Deps)
}

func TestPriorityValue_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		value   PriorityValue
		want    int
		wantErr bool
	}{
		{name: "unset", value: PriorityValue{}, want: PriorityDefault},
		{name: "low", value: PriorityNamed("low"), want: 1},
		{name: "medium", value: PriorityNamed("medium"), want: 3},
		{name: "high mixed case", value: PriorityNamed(" High "), want: 5},
		{name: "level", value: PriorityLevel(4), want: 4},
		{name: "unknown name", value: PriorityNamed("urgent"), wantErr: true},
		{name: "level too high", value: PriorityLevel(6), wantErr: true},
		{name: "negative level", value: PriorityLevel(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.Resolve()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriorityValue_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		value PriorityValue
		want  int
	}{
		{name: "unset", value: PriorityValue{}, want: PriorityDefault},
		{name: "valid name", value: PriorityNamed("low"), want: 1},
		{name: "valid level", value: PriorityLevel(4), want: 4},
		{name: "unknown name", value: PriorityNamed("urgent"), want: PriorityDefault},
		{name: "level too high", value: PriorityLevel(7), want: PriorityMax},
		{name: "negative level", value: PriorityLevel(-2), want: PriorityMin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Normalize())
		})
	}
}

func TestPriorityValue_JSONRoundTripKeepsForm(t *testing.T) {
	var rec TaskRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id": "t", "priority": "high"}`), &rec))
	assert.Equal(t, PriorityNamed("high"), rec.Priority)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "t", "priority": 2}`), &rec))
	assert.Equal(t, PriorityLevel(2), rec.Priority)

	data, err := json.Marshal(PriorityNamed("low"))
	require.NoError(t, err)
	assert.Equal(t, `"low"`, string(data))
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("")
	require.NoError(t, err)
	assert.True(t, p.IsZero())

	p, err = ParsePriority("5")
	require.NoError(t, err)
	assert.Equal(t, PriorityLevel(5), p)

	p, err = ParsePriority("high")
	require.NoError(t, err)
	assert.Equal(t, PriorityNamed("high"), p)

	_, err = ParsePriority("9")
	assert.Error(t, err)
}

func TestTaskRecord_DependencyIDs(t *testing.T) {
	rec := TaskRecord{Dependencies: Refs("a", "b")}
	assert.Equal(t, []string{"a", "b"}, rec.DependencyIDs())
}
