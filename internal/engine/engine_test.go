package engine

import (
	"errors"
	"testing"
)

func TestCoerceParameter(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		value   any
		def     any
		want    string
		wantErr error
	}{
		{name: "string passthrough", typ: "str", value: "hello", want: "hello"},
		{name: "empty type means string", typ: "", value: "hello", want: "hello"},
		{name: "string from number", typ: "str", value: 42, want: "42"},
		{name: "int from int", typ: "int", value: 7, want: "7"},
		{name: "int from json float", typ: "int", value: float64(7), want: "7"},
		{name: "int from string", typ: "int", value: "7", want: "7"},
		{name: "int from fractional", typ: "int", value: 7.5, wantErr: ErrTypeCoercion},
		{name: "int from garbage", typ: "int", value: "seven", wantErr: ErrTypeCoercion},
		{name: "float from float", typ: "float", value: 2.5, want: "2.5"},
		{name: "float from int", typ: "float", value: 2, want: "2"},
		{name: "float from string", typ: "float", value: "2.5", want: "2.5"},
		{name: "float from garbage", typ: "float", value: "pi", wantErr: ErrTypeCoercion},
		{name: "default applied", typ: "int", value: nil, def: 3, want: "3"},
		{name: "value wins over default", typ: "int", value: 5, def: 3, want: "5"},
		{name: "no value no default", typ: "str", value: nil, def: nil, want: ""},
		{name: "unknown type", typ: "bool", value: true, wantErr: ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceParameter(tt.typ, tt.value, tt.def)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubstitute(t *testing.T) {
	values := map[string]string{
		"name":  "world",
		"count": "3",
	}

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  error
	}{
		{name: "simple", template: "echo hello $name", want: "echo hello world"},
		{name: "braced", template: "echo ${name}ly", want: "echo worldly"},
		{name: "multiple", template: "repeat $count times: $name", want: "repeat 3 times: world"},
		{name: "escaped dollar", template: "cost: $$5", want: "cost: $5"},
		{name: "no placeholders", template: "ls -la", want: "ls -la"},
		{name: "unknown placeholder", template: "echo $missing", wantErr: ErrUnknownPlaceholder},
		{name: "unknown braced", template: "echo ${missing}", wantErr: ErrUnknownPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Substitute(tt.template, values)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubstituteAll(t *testing.T) {
	values := map[string]string{"infile": "/in.txt", "outfile": "/out.txt"}

	got, err := SubstituteAll([]string{
		"cat $infile",
		"sed 's/a/b/' $infile > $outfile",
	}, values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"cat /in.txt",
		"sed 's/a/b/' /in.txt > /out.txt",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := SubstituteAll([]string{"echo $nope"}, values); !errors.Is(err, ErrUnknownPlaceholder) {
		t.Errorf("expected ErrUnknownPlaceholder, got %v", err)
	}
}
