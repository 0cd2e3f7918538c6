package services

import (
	"encoding/json"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "bare object",
			content:  `{"a": 1}`,
			expected: `{"a": 1}`,
		},
		{
			name:     "markdown fenced",
			content:  "```json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "surrounded by prose",
			content:  `Here is the analysis: {"a": 1} Hope that helps!`,
			expected: `{"a": 1}`,
		},
		{
			name:     "nested objects",
			content:  `{"outer": {"inner": {"deep": true}}}`,
			expected: `{"outer": {"inner": {"deep": true}}}`,
		},
		{
			name:     "braces inside strings",
			content:  `{"summary": "used {placeholders} today"}`,
			expected: `{"summary": "used {placeholders} today"}`,
		},
		{
			name:     "escaped quote inside string",
			content:  `{"summary": "said \"done{\" loudly"}`,
			expected: `{"summary": "said \"done{\" loudly"}`,
		},
		{
			name:     "no object at all",
			content:  "sorry, I cannot answer that",
			expected: "sorry, I cannot answer that",
		},
		{
			name:     "unterminated object",
			content:  `prefix {"a": 1`,
			expected: `{"a": 1`,
		},
		{
			name:     "only first object",
			content:  `{"a": 1} {"b": 2}`,
			expected: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSONObject(tt.content); got != tt.expected {
				t.Errorf("extractJSONObject() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestDailyWorkResultDecode(t *testing.T) {
	content := "```json\n" + `{
  "total_estimated_hours": 6.5,
  "average_complexity_score": 7,
  "average_seniority_score": 6,
  "work_summary": "Shipped the webhook pipeline",
  "key_achievements": ["webhook verification"],
  "work_categories": {"feature": 5.0, "bugfix": 1.5},
  "deduplicated_items": [
    {"commit_description": "add webhook", "report_description": "webhook work", "confidence": 0.9, "explanation": "same task", "hours_counted": 5.0}
  ],
  "hour_estimation_reasoning": "scope-based",
  "confidence_score": 0.85
}` + "\n```"

	var result DailyWorkResult
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if result.TotalEstimatedHours != 6.5 {
		t.Errorf("hours = %.2f, expected 6.5", result.TotalEstimatedHours)
	}
	if result.WorkCategories["feature"] != 5.0 {
		t.Errorf("work_categories not decoded: %v", result.WorkCategories)
	}
	if len(result.DeduplicatedItems) != 1 || result.DeduplicatedItems[0].HoursCounted != 5.0 {
		t.Errorf("deduplicated_items not decoded: %+v", result.DeduplicatedItems)
	}
}

func TestSimilarityResultDuplicateFlagOptional(t *testing.T) {
	var withFlag SimilarityResult
	if err := json.Unmarshal([]byte(`{"similarity_score": 0.4, "is_duplicate": true}`), &withFlag); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if withFlag.IsDuplicate == nil || !*withFlag.IsDuplicate {
		t.Error("explicit is_duplicate flag lost in decode")
	}

	var withoutFlag SimilarityResult
	if err := json.Unmarshal([]byte(`{"similarity_score": 0.9}`), &withoutFlag); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if withoutFlag.IsDuplicate != nil {
		t.Error("omitted is_duplicate must decode to nil so the score threshold applies")
	}
}
