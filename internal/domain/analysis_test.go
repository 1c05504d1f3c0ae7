package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStringListUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "bare string", input: `"开心"`, want: []string{"开心"}},
		{name: "list of strings", input: `["聊天","吐槽"]`, want: []string{"聊天", "吐槽"}},
		{name: "empty list", input: `[]`, want: []string{}},
		{name: "null", input: `null`, want: nil},
		{name: "number", input: `42`, wantErr: true},
		{name: "mixed list", input: `["开心", 1]`, wantErr: true},
		{name: "object", input: `{"a":"b"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringList
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), "must be a string or a list of strings") {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d elements, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("element %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestStringListMarshal(t *testing.T) {
	tests := []struct {
		name string
		list StringList
		want string
	}{
		{name: "single element as bare string", list: StringList{"开心"}, want: `"开心"`},
		{name: "multiple elements as list", list: StringList{"聊天", "吐槽"}, want: `["聊天","吐槽"]`},
		{name: "empty as list", list: StringList{}, want: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.list)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, out)
			}
		})
	}
}

func TestAnalysisRoundTrip(t *testing.T) {
	input := `{"emotion":"无语","usage_scene":["聊天调侃","自嘲"],"design_inspiration":"熊猫头"}`

	var a Analysis
	if err := json.Unmarshal([]byte(input), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(a.Emotion) != 1 || a.Emotion[0] != "无语" {
		t.Errorf("unexpected emotion: %v", a.Emotion)
	}
	if len(a.UsageScene) != 2 {
		t.Errorf("unexpected usage scene: %v", a.UsageScene)
	}

	out, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != input {
		t.Errorf("expected %s, got %s", input, out)
	}
}

func TestQueryText(t *testing.T) {
	tests := []struct {
		name     string
		analysis Analysis
		want     string
	}{
		{
			name: "fields in fixed order",
			analysis: Analysis{
				Emotion:           StringList{"无语", "嫌弃"},
				UsageScene:        StringList{"聊天调侃"},
				DesignInspiration: StringList{"熊猫头"},
			},
			want: "无语 嫌弃 聊天调侃 熊猫头",
		},
		{
			name: "empty elements skipped",
			analysis: Analysis{
				Emotion:    StringList{"开心", ""},
				UsageScene: StringList{"", "庆祝"},
			},
			want: "开心 庆祝",
		},
		{
			name:     "raw appended after fields",
			analysis: Analysis{Emotion: StringList{"生气"}, Raw: "模型原始输出"},
			want:     "生气 模型原始输出",
		},
		{
			name:     "raw kept untrimmed",
			analysis: Analysis{Raw: "  带空格的输出  "},
			want:     "  带空格的输出  ",
		},
		{
			name:     "blank raw skipped",
			analysis: Analysis{Emotion: StringList{"开心"}, Raw: "   "},
			want:     "开心",
		},
		{
			name:     "error marker still flattens",
			analysis: Analysis{Emotion: StringList{"怒"}, Error: "request timed out"},
			want:     "怒",
		},
		{name: "zero analysis", analysis: Analysis{}, want: ""},
		{
			name:     "all elements blank",
			analysis: Analysis{Emotion: StringList{""}, UsageScene: StringList{""}},
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.analysis.QueryText(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAnalysisPredicates(t *testing.T) {
	tests := []struct {
		name      string
		analysis  Analysis
		isError   bool
		isZero    bool
		indexable bool
	}{
		{name: "zero value", analysis: Analysis{}, isZero: true},
		{
			name:     "error marker",
			analysis: Analysis{Error: "download failed", Raw: "<html>502</html>"},
			isError:  true,
		},
		{
			name:      "structured fields",
			analysis:  Analysis{Emotion: StringList{"开心"}},
			indexable: true,
		},
		{
			name:      "raw fallback only",
			analysis:  Analysis{Raw: "非JSON输出"},
			indexable: true,
		},
		{
			name:     "blank raw only",
			analysis: Analysis{Raw: "   "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.analysis.IsError(); got != tt.isError {
				t.Errorf("IsError: expected %v, got %v", tt.isError, got)
			}
			if got := tt.analysis.IsZero(); got != tt.isZero {
				t.Errorf("IsZero: expected %v, got %v", tt.isZero, got)
			}
			if got := tt.analysis.Indexable(); got != tt.indexable {
				t.Errorf("Indexable: expected %v, got %v", tt.indexable, got)
			}
		})
	}
}
