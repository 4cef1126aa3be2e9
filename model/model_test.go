package model

import (
	"errors"
	"testing"

	"github.com/Keksclan/rawrfetch/fetcherr"
)

func TestID_AcceptsStringAndNumber(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ID
	}{
		{"string", `{"id":"abc","service":"x"}`, "abc"},
		{"number", `{"id":12345,"service":"x"}`, "12345"},
		{"large number", `{"id":98765432109876,"service":"x"}`, "98765432109876"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := DecodeCreator([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeCreator: %v", err)
			}
			if c.ID != tt.want {
				t.Fatalf("ID = %q, want %q", c.ID, tt.want)
			}
		})
	}
}

func TestDecodeCreator_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind fetcherr.Kind
	}{
		{"html", "<!DOCTYPE html><html></html>", fetcherr.InvalidResponse},
		{"empty", "   ", fetcherr.InvalidResponse},
		{"broken json", `{"id":`, fetcherr.ParseError},
		{"missing id", `{"name":"alice"}`, fetcherr.InvalidResponse},
		{"bad id type", `{"id":true}`, fetcherr.ParseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCreator([]byte(tt.body))
			if got := fetcherr.KindOf(err); got != tt.kind {
				t.Fatalf("kind = %v, want %v (err=%v)", got, tt.kind, err)
			}
		})
	}
}

func TestDecodeCreators(t *testing.T) {
	list, err := DecodeCreators([]byte(`[{"id":"1","name":"a"},{"name":"no id"},{"id":2,"name":"b"}]`))
	if err != nil {
		t.Fatalf("DecodeCreators: %v", err)
	}
	if len(list) != 2 || list[1].ID != "2" {
		t.Fatalf("unexpected result %+v", list)
	}

	single, err := DecodeCreators([]byte(`{"id":"7","name":"solo"}`))
	if err != nil {
		t.Fatalf("DecodeCreators(object): %v", err)
	}
	if len(single) != 1 || single[0].Name != "solo" {
		t.Fatalf("unexpected result %+v", single)
	}
}

func TestDecodePost(t *testing.T) {
	wrapped, err := DecodePost([]byte(`{"post":{"id":"p1","user":"u","attachments":[{"name":"a.png","path":"/a.png"}]}}`))
	if err != nil {
		t.Fatalf("DecodePost(wrapped): %v", err)
	}
	if wrapped.ID != "p1" || len(wrapped.Attachments) != 1 {
		t.Fatalf("unexpected post %+v", wrapped)
	}

	bare, err := DecodePost([]byte(`{"id":42,"user":7,"title":"hi"}`))
	if err != nil {
		t.Fatalf("DecodePost(bare): %v", err)
	}
	if bare.ID != "42" || bare.User != "7" {
		t.Fatalf("unexpected post %+v", bare)
	}

	if _, err := DecodePost([]byte(`{}`)); !errors.Is(err, fetcherr.New(fetcherr.InvalidResponse, "")) {
		t.Fatalf("expected InvalidResponse, got %v", err)
	}
}

func TestDecodePosts_EmptyPage(t *testing.T) {
	page, err := DecodePosts([]byte(`[]`))
	if err != nil {
		t.Fatalf("DecodePosts: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("got %d posts, want 0", len(page))
	}
}

func TestPostClone(t *testing.T) {
	p := Post{ID: "1", Attachments: []Attachment{{Name: "a"}}}
	c := p.Clone()
	c.Attachments[0].Name = "changed"
	if p.Attachments[0].Name != "a" {
		t.Fatal("Clone shares attachments")
	}
}

func TestIsNumeric(t *testing.T) {
	for s, want := range map[string]bool{
		"12345": true,
		"0":     true,
		"":      false,
		"12a":   false,
		"-1":    false,
		" 12":   false,
	} {
		if got := IsNumeric(s); got != want {
			t.Errorf("IsNumeric(%q) = %v, want %v", s, got, want)
		}
	}
}
