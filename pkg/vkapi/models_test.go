package vkapi

import "testing"

func TestBestSizeURL(t *testing.T) {
	p := Photo{Sizes: []PhotoSize{
		{Type: "s", URL: "small", Width: 75, Height: 56},
		{Type: "x", URL: "large", Width: 604, Height: 453},
		{Type: "m", URL: "medium", Width: 130, Height: 97},
	}}
	if got := p.BestSizeURL(); got != "large" {
		t.Errorf("expected largest rendition, got %q", got)
	}
}

func TestBestSizeURLFallsBackToLast(t *testing.T) {
	// Older API responses omit dimensions; VK orders sizes ascending.
	p := Photo{Sizes: []PhotoSize{
		{Type: "s", URL: "small"},
		{Type: "m", URL: "medium"},
		{Type: "x", URL: "large"},
	}}
	if got := p.BestSizeURL(); got != "large" {
		t.Errorf("expected last rendition as fallback, got %q", got)
	}
}

func TestBestSizeURLEmpty(t *testing.T) {
	if got := (Photo{}).BestSizeURL(); got != "" {
		t.Errorf("expected empty URL for photo without sizes, got %q", got)
	}
}
