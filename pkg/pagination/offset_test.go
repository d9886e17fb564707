package pagination

import (
	"errors"
	"net/url"
	"testing"
)

func TestParseNonNegative(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		def     int
		want    int
		wantErr bool
	}{
		{name: "absent uses default", raw: "", def: 10, want: 10},
		{name: "zero", raw: "0", def: 10, want: 0},
		{name: "positive", raw: "2000", def: 10, want: 2000},
		{name: "surrounding spaces", raw: " 5 ", def: 0, want: 5},
		{name: "negative", raw: "-1", def: 0, wantErr: true},
		{name: "not a number", raw: "abc", def: 0, wantErr: true},
		{name: "float", raw: "1.5", def: 0, wantErr: true},
		{name: "trailing garbage", raw: "10abc", def: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNonNegative(tt.raw, tt.def)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNonNegative(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParam) {
					t.Errorf("error = %v, want ErrInvalidParam", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseNonNegative(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		want      Params
		wantParam string
	}{
		{
			name:  "defaults",
			query: "",
			want:  Params{Offset: 0, ResultsPerPage: 10},
		},
		{
			name:  "explicit values",
			query: "startIndex=40&resultsPerPage=20",
			want:  Params{Offset: 40, ResultsPerPage: 20},
		},
		{
			name:      "bad offset reported first",
			query:     "startIndex=-3&resultsPerPage=x",
			wantParam: ParamStartIndex,
		},
		{
			name:      "bad results per page",
			query:     "startIndex=3&resultsPerPage=x",
			wantParam: ParamResultsPerPage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			got, err := ParseRequest(values)

			if tt.wantParam != "" {
				var paramErr *ParamError
				if !errors.As(err, &paramErr) {
					t.Fatalf("error = %v, want *ParamError", err)
				}
				if paramErr.Param != tt.wantParam {
					t.Errorf("Param = %q, want %q", paramErr.Param, tt.wantParam)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseRequest() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRequest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParamError_Error(t *testing.T) {
	err := &ParamError{Param: ParamResultsPerPage, Value: "x"}
	want := "resultsPerPage parameter must be a non-negative integer"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInvalidParam) {
		t.Error("errors.Is(err, ErrInvalidParam) = false")
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		offset  int
		perPage int
		want    Window
	}{
		{
			name:    "most recent page",
			total:   250000,
			offset:  0,
			perPage: 10,
			want:    Window{StartIndex: 249990, ResultsPerPage: 10},
		},
		{
			name:    "skip recent records",
			total:   250000,
			offset:  100,
			perPage: 20,
			want:    Window{StartIndex: 249880, ResultsPerPage: 20},
		},
		{
			name:    "exactly reaches oldest record",
			total:   30,
			offset:  20,
			perPage: 10,
			want:    Window{StartIndex: 0, ResultsPerPage: 10},
		},
		{
			name:    "clamped when fewer remain",
			total:   30,
			offset:  25,
			perPage: 10,
			want:    Window{StartIndex: 0, ResultsPerPage: 5},
		},
		{
			name:    "zero page size",
			total:   30,
			offset:  5,
			perPage: 0,
			want:    Window{StartIndex: 25, ResultsPerPage: 0},
		},
		{
			name:    "offset beyond total yields empty window",
			total:   5,
			offset:  9,
			perPage: 10,
			want:    Window{StartIndex: 0, ResultsPerPage: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.total, tt.offset, tt.perPage)
			if got != tt.want {
				t.Errorf("Translate(%d, %d, %d) = %+v, want %+v",
					tt.total, tt.offset, tt.perPage, got, tt.want)
			}
		})
	}
}

func TestWindow_Values(t *testing.T) {
	got := Window{StartIndex: 249990, ResultsPerPage: 10}.Values().Encode()
	want := "resultsPerPage=10&startIndex=249990"
	if got != want {
		t.Errorf("Values().Encode() = %q, want %q", got, want)
	}
}
