package session

import (
	"reflect"
	"testing"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "trims_each_element", raw: "a, b ,c", want: []string{"a", "b", "c"}},
		{name: "keeps_duplicates_in_order", raw: "yoga,breath,yoga", want: []string{"yoga", "breath", "yoga"}},
		{name: "empty_string", raw: "", want: []string{}},
		{name: "only_delimiters", raw: " , ,", want: []string{"", "", ""}},
		{name: "keeps_empty_elements", raw: "calm,, focus ,", want: []string{"calm", "", "focus", ""}},
		{name: "whitespace_only", raw: "   ", want: []string{""}},
		{name: "single_tag", raw: "  sleep  ", want: []string{"sleep"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTags(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseTags(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestJoinTagsRoundTrip(t *testing.T) {
	tags := []string{"x", "y"}
	if got := JoinTags(tags); got != "x, y" {
		t.Fatalf("JoinTags = %q", got)
	}
	if got := ParseTags(JoinTags(tags)); !reflect.DeepEqual(got, tags) {
		t.Fatalf("round trip = %#v", got)
	}
}

func TestHasTitle(t *testing.T) {
	for _, title := range []string{"", " ", "\t\n"} {
		if HasTitle(title) {
			t.Fatalf("HasTitle(%q) = true, want false", title)
		}
	}
	if !HasTitle(" Morning breath ") {
		t.Fatal("HasTitle should accept padded text")
	}
}

func TestSaveRequestFields(t *testing.T) {
	got := SaveRequest{Title: "T1", Tags: "x,y", JSONURL: " https://cdn.example/s.json "}.Fields()

	if got.Title != "T1" || !reflect.DeepEqual(got.Tags, []string{"x", "y"}) || got.JSONURL != "https://cdn.example/s.json" {
		t.Fatalf("Fields() = %#v", got)
	}
}
