package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"sorcerer.guard", []string{"sorcerer", "guard"}},
		{"solo", []string{"solo"}},
		{"a..b", []string{"a", "", "b"}},
		{"", []string{""}},
	}
	for _, tt := range tests {
		if got := SplitTags(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("SplitTags(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestRecordJSONIsFlat(t *testing.T) {
	idx, det := NewRecordPair("E1", NewCharacter{Name: "Amiya", Alias: "Doctor", Tags: "sorcerer.guard", Bio: "leader bio"})
	b, err := json.Marshal(Record{IndexRecord: idx, DetailsRecord: det})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"id", "name", "alias", "tags", "bio", "full_tags", "imagepath"} {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing key %q in %s", k, b)
		}
	}
	if got["imagepath"] != "images/E1.png" {
		t.Fatalf("unexpected imagepath %v", got["imagepath"])
	}
}

func TestCharacterUpdateIsEmpty(t *testing.T) {
	if !(CharacterUpdate{}).IsEmpty() {
		t.Fatalf("zero update should be empty")
	}
	tags := "x.y"
	if (CharacterUpdate{Tags: &tags}).IsEmpty() {
		t.Fatalf("update with tags should not be empty")
	}
}
