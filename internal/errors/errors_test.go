package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFetchError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &FetchError{URL: "https://api.weather.gov/alerts", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected FetchError to unwrap to cause")
	}
	if err.Error() != "fetch https://api.weather.gov/alerts: connection refused" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	statusErr := &FetchError{URL: "https://www.spc.noaa.gov/products/outlook/day1otlk_cat.lyr.geojson", StatusCode: 503}
	if statusErr.Error() != "fetch https://www.spc.noaa.gov/products/outlook/day1otlk_cat.lyr.geojson: HTTP 503" {
		t.Errorf("unexpected message: %s", statusErr.Error())
	}
}

func TestParseError(t *testing.T) {
	cause := errors.New("invalid character '<'")
	err := &ParseError{URL: "https://example.com/feed", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected ParseError to unwrap to cause")
	}

	var pe *ParseError
	wrapped := fmt.Errorf("cycle failed: %w", err)
	if !errors.As(wrapped, &pe) {
		t.Error("expected errors.As to find ParseError through wrapping")
	}
}

func TestUpsertError(t *testing.T) {
	cause := errors.New("invalid geometry")
	err := &UpsertError{Table: "convective_outlooks", Key: "day1otlk_cat_lyr/3", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected UpsertError to unwrap to cause")
	}
	want := "upsert convective_outlooks key day1otlk_cat_lyr/3: invalid geometry"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestMultiError(t *testing.T) {
	var me MultiError

	if me.HasErrors() {
		t.Error("empty MultiError should report no errors")
	}
	if me.Error() != "no errors" {
		t.Errorf("unexpected message: %s", me.Error())
	}

	me.Add(nil)
	if me.HasErrors() {
		t.Error("adding nil should not record an error")
	}

	me.Add(errors.New("first"))
	if me.Error() != "first" {
		t.Errorf("unexpected single-error message: %s", me.Error())
	}

	me.Add(errors.New("second"))
	if me.Error() != "first (and 1 more errors)" {
		t.Errorf("unexpected multi message: %s", me.Error())
	}
}
