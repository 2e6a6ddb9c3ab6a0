package storage

import (
	"context"
	"testing"

	"TitanMusic/config"
)

func newTestStore(t *testing.T, publicURL string) *ObjectStore {
	t.Helper()
	s, err := NewObjectStore(&config.Config{
		MinioEndpoint:  "localhost:9000",
		MinioAccessKey: "key",
		MinioSecretKey: "secret",
		MinioBucket:    "titan-music",
		MinioRegion:    "us-east-1",
		MinioPublicURL: publicURL,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestURLAndKeyOf(t *testing.T) {
	s := newTestStore(t, "")

	loc := s.URL("tracks/u1/1_song.mp3")
	if loc != "http://localhost:9000/titan-music/tracks/u1/1_song.mp3" {
		t.Fatalf("unexpected locator %s", loc)
	}

	cases := []struct {
		name    string
		locator string
		want    string
		wantErr bool
	}{
		{"OwnLocator", loc, "tracks/u1/1_song.mp3", false},
		{"OtherHost", "https://cdn.example.com/titan-music/covers/u1/2_c.png", "covers/u1/2_c.png", false},
		{"OtherBucket", "https://cdn.example.com/another/covers/x.png", "", true},
		{"BucketOnly", "http://localhost:9000/titan-music/", "", true},
		{"Garbage", "::", "", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := s.KeyOf(c.locator)
			if (err != nil) != c.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != c.want {
				t.Errorf("expected %q, got %q", c.want, got)
			}
		})
	}
}

func TestPublicBaseURL(t *testing.T) {
	s := newTestStore(t, "https://media.example.com/")
	if got := s.URL("/covers/a.png"); got != "https://media.example.com/covers/a.png" {
		t.Errorf("unexpected locator %s", got)
	}
	key, err := s.KeyOf("https://media.example.com/covers/a.png")
	if err != nil || key != "covers/a.png" {
		t.Errorf("expected covers/a.png, got %q (%v)", key, err)
	}
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range cases {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %s, want %s", in, got, want)
		}
	}
}

func TestRemoveSkipsForeignLocators(t *testing.T) {
	s := newTestStore(t, "")
	// neither locator names an object in the bucket, so no request is made
	for _, loc := range []string{"https://cdn.example.com/art.png", "not a url at all"} {
		if err := s.Remove(context.Background(), loc); err != nil {
			t.Errorf("Remove(%q) = %v, want nil", loc, err)
		}
	}
}
