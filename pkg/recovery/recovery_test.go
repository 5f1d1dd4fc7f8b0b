package recovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"explainergo/pkg/schema"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestClean(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "valid object unchanged",
			input: `{"name":"a","count":1}`,
			want:  `{"name":"a","count":1}`,
		},
		{
			name:  "valid object keeps entities inside strings",
			input: `{"name":"&quot;x&quot;"}`,
			want:  `{"name":"&quot;x&quot;"}`,
		},
		{
			name:  "json fence",
			input: "```json\n{\"x\": 1}\n```",
			want:  `{"x": 1}`,
		},
		{
			name:  "bare fence",
			input: "```\n{\"x\": 1}\n```",
			want:  `{"x": 1}`,
		},
		{
			name:  "html entities",
			input: `Here: {&quot;x&quot;: 1}`,
			want:  `{"x": 1}`,
		},
		{
			name:  "surrounding prose",
			input: `Sure! {"x": 1} Hope this helps.`,
			want:  `{"x": 1}`,
		},
		{
			name:  "trailing commas",
			input: `{"a": 1, "b": 2,}`,
			want:  `{"a": 1, "b": 2}`,
		},
		{
			name:  "trailing comma in array",
			input: `{"a": [1, 2, ], "b": 2}`,
			want:  `{"a": [1, 2 ], "b": 2}`,
		},
		{
			name:  "truncated after inner object",
			input: `{"a":[{"x":1},{"y":2`,
			want:  `{"a":[{"x":1}]}`,
		},
		{
			name:    "no object start",
			input:   "I cannot help with that.",
			wantErr: ErrNoJSONStart,
		},
		{
			name:    "no object end",
			input:   `{"a": [1, 2, 3`,
			wantErr: ErrNoJSONEnd,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"x\": [1, 2,]}\n```",
		`noise {"a": {"b": 1,},} noise`,
		`{"ok": true}`,
	}
	for _, in := range inputs {
		once, err := Clean(in)
		require.NoError(t, err)
		twice, err := Clean(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, in)
	}
}

func TestAutoComplete(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"a": [1, 2, 3`, `{"a": [1, 2, 3]}`},
		{`{"a": {"b": 1`, `{"a": {"b": 1}}`},
		{`{"a": 1}`, `{"a": 1}`},
		{`{"a": [[1`, `{"a": [[1]]}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AutoComplete(tt.input), tt.input)
	}
}

func TestTemperatureFor(t *testing.T) {
	assert.Equal(t, float32(0.3), TemperatureFor(1))
	assert.Equal(t, float32(0.2), TemperatureFor(2))
	assert.Equal(t, float32(0.1), TemperatureFor(3))
	assert.Equal(t, float32(0.1), TemperatureFor(7))
}

type scripted struct {
	responses []string
	err       error
	temps     []float32
}

func (s *scripted) gen(_ context.Context, attempt int, temp float32) (string, error) {
	s.temps = append(s.temps, temp)
	if s.err != nil {
		return "", s.err
	}
	idx := attempt - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

func TestRecover_FirstAttempt(t *testing.T) {
	g := &scripted{responses: []string{"```json\n{\"name\":\"a\",\"count\":2}\n```"}}
	sink := &MemorySink{}

	got, err := Recover(context.Background(), g.gen, Options[payload]{
		Name:   "test",
		Schema: schema.For[payload]("payload"),
		Sink:   sink,
	})
	require.NoError(t, err)
	assert.Equal(t, &payload{Name: "a", Count: 2}, got)
	assert.Equal(t, []float32{0.3}, g.temps)
	assert.Empty(t, sink.Writes())
}

func TestRecover_SecondAttempt(t *testing.T) {
	g := &scripted{responses: []string{
		"not json at all",
		`{"name":"b","count":3,}`,
	}}

	got, err := Recover(context.Background(), g.gen, Options[payload]{
		Schema: schema.For[payload]("payload"),
	})
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name)
	assert.Equal(t, []float32{0.3, 0.2}, g.temps)
}

func TestRecover_ExhaustedWritesSinkOnce(t *testing.T) {
	g := &scripted{responses: []string{
		`{"name":"a"}`,
		`{"name":"b","count":"x"}`,
		`{"name":"last"}`,
	}}
	sink := &MemorySink{}

	got, err := Recover(context.Background(), g.gen, Options[payload]{
		Name:        "test",
		Schema:      schema.For[payload]("payload"),
		MaxAttempts: 3,
		Sink:        sink,
	})
	assert.Nil(t, got)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "memory#1", exhausted.DebugPath)

	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)

	assert.Equal(t, []float32{0.3, 0.2, 0.1}, g.temps)
	assert.Equal(t, []string{`{"name":"last"}`}, sink.Writes())
}

func TestRecover_RejectedHook(t *testing.T) {
	g := &scripted{responses: []string{
		"sorry, no json",
		`{"name":"a"}`,
		`{"name":"c","count":1}`,
	}}

	var rejected []int
	got, err := Recover(context.Background(), g.gen, Options[payload]{
		Schema:   schema.For[payload]("payload"),
		Rejected: func(attempt int, err error) { rejected = append(rejected, attempt) },
	})
	require.NoError(t, err)
	assert.Equal(t, "c", got.Name)
	assert.Equal(t, []int{1, 2}, rejected)
}

func TestRecover_ValidateHookRetries(t *testing.T) {
	g := &scripted{responses: []string{
		`{"name":"","count":1}`,
		`{"name":"ok","count":1}`,
	}}

	got, err := Recover(context.Background(), g.gen, Options[payload]{
		Validate: func(p *payload) error {
			if p.Name == "" {
				return errors.New("name is empty")
			}
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Name)
	assert.Len(t, g.temps, 2)
}

func TestRecover_ServiceErrorIsTerminal(t *testing.T) {
	boom := errors.New("connection refused")
	g := &scripted{err: boom}
	sink := &MemorySink{}

	_, err := Recover(context.Background(), g.gen, Options[payload]{Sink: sink})

	var svc *ServiceError
	require.ErrorAs(t, err, &svc)
	assert.Equal(t, 1, svc.Attempt)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, g.temps, 1)
	assert.Empty(t, sink.Writes())
}

func TestRecover_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := &scripted{responses: []string{`{}`}}

	_, err := Recover(ctx, g.gen, Options[payload]{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, g.temps)
}

func TestDecode_ParseError(t *testing.T) {
	_, err := Decode[payload](`{"name": "a" "count": 1}`, nil, nil)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "failed_response.txt")
	sink := FileSink{Path: path}

	loc, err := sink.Write("raw text")
	require.NoError(t, err)
	assert.Equal(t, path, loc)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "raw text", string(data))
}

func TestDiscardSink(t *testing.T) {
	loc, err := DiscardSink{}.Write("raw text")
	require.NoError(t, err)
	assert.Empty(t, loc)
}
