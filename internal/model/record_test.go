package model

import (
	"reflect"
	"testing"
)

func TestProductRecordIsEmpty(t *testing.T) {
	t.Parallel()

	t.Run("zero value is empty", func(t *testing.T) {
		t.Parallel()

		r := &ProductRecord{}
		if !r.IsEmpty() {
			t.Error("expected zero-value record to be empty")
		}
	})

	t.Run("record with only source URL is still empty", func(t *testing.T) {
		t.Parallel()

		r := &ProductRecord{SourceURL: "https://example.com/dp/B000TEST01"}
		if !r.IsEmpty() {
			t.Error("expected record with only source URL to be empty")
		}
	})

	t.Run("record with title is not empty", func(t *testing.T) {
		t.Parallel()

		r := &ProductRecord{Title: "Widget"}
		if r.IsEmpty() {
			t.Error("expected record with title to be non-empty")
		}
	})

	t.Run("record with only features is not empty", func(t *testing.T) {
		t.Parallel()

		r := &ProductRecord{Features: []string{"durable"}}
		if r.IsEmpty() {
			t.Error("expected record with features to be non-empty")
		}
	})
}

func TestProductRecordNormalize(t *testing.T) {
	t.Parallel()

	t.Run("trims whitespace from string fields", func(t *testing.T) {
		t.Parallel()

		r := &ProductRecord{
			ID:          " B000TEST01 ",
			Title:       "\n  Widget A  \n",
			Price:       " $19.99 ",
			Rating:      " 4.5 out of 5 ",
			ReviewCount: " 1,234 ratings ",
			Description: "  A fine widget.  ",
		}
		r.Normalize()

		if r.ID != "B000TEST01" {
			t.Errorf("expected trimmed ID, got %q", r.ID)
		}
		if r.Title != "Widget A" {
			t.Errorf("expected trimmed title, got %q", r.Title)
		}
		if r.Price != "$19.99" {
			t.Errorf("expected trimmed price, got %q", r.Price)
		}
		if r.Description != "A fine widget." {
			t.Errorf("expected trimmed description, got %q", r.Description)
		}
	})

	t.Run("drops blank feature bullets", func(t *testing.T) {
		t.Parallel()

		r := &ProductRecord{
			Features: []string{"  fast  ", "   ", "durable", "\n"},
		}
		r.Normalize()

		want := []string{"fast", "durable"}
		if !reflect.DeepEqual(r.Features, want) {
			t.Errorf("expected features %v, got %v", want, r.Features)
		}
	})

	t.Run("all-blank features become nil", func(t *testing.T) {
		t.Parallel()

		r := &ProductRecord{Features: []string{" ", "\t"}}
		r.Normalize()

		if r.Features != nil {
			t.Errorf("expected nil features, got %v", r.Features)
		}
	})
}
