package client

import "testing"

func TestParseReport(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantObjects int
		wantLabel   string
		wantDesc    string
	}{
		{
			name:        "plain object",
			raw:         `{"objects":[{"label":"cup","confidence":0.8,"box":{"x":0.1,"y":0.2,"w":0.3,"h":0.4}}],"description":"a table"}`,
			wantObjects: 1,
			wantLabel:   "cup",
			wantDesc:    "a table",
		},
		{
			name:        "fenced with comments and trailing comma",
			raw:         "```json\n{\n  // objects\n  \"objects\": [{\"label\": \"dog\", \"confidence\": 0.9, \"box\": {\"x\": 0, \"y\": 0, \"w\": 1, \"h\": 1},}],\n}\n```",
			wantObjects: 1,
			wantLabel:   "dog",
		},
		{
			name:        "bare array",
			raw:         `Here you go: [{"label":"car","confidence":0.5,"box":{"x":0.5,"y":0.5,"w":0.1,"h":0.1}}]`,
			wantObjects: 1,
			wantLabel:   "car",
		},
		{
			name:     "prose",
			raw:      "I see a cat on a sofa.",
			wantDesc: "Model returned non-JSON response",
		},
		{
			name:     "broken json",
			raw:      `{"objects": [{"label": }`,
			wantDesc: "Failed to parse model response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := ParseReport(tt.raw)
			if err != nil {
				t.Fatalf("ParseReport returned error: %v", err)
			}
			if len(report.Objects) != tt.wantObjects {
				t.Fatalf("Expected %d objects, got %d", tt.wantObjects, len(report.Objects))
			}
			if tt.wantLabel != "" && report.Objects[0].Label != tt.wantLabel {
				t.Errorf("Expected label %q, got %q", tt.wantLabel, report.Objects[0].Label)
			}
			if tt.wantDesc != "" && report.Description != tt.wantDesc {
				t.Errorf("Expected description %q, got %q", tt.wantDesc, report.Description)
			}
		})
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	got := SanitizeModelJSON("noise {\"a\": 1, /* x */ \"b\": [1,2,],} tail")
	want := `{"a": 1,  "b": [1,2]}`
	if got != want {
		t.Errorf("SanitizeModelJSON = %q, want %q", got, want)
	}
}
