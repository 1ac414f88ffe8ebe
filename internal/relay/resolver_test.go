package relay

import "testing"

func TestResolve(t *testing.T) {
	manifest := "http://h/a/b/master.m3u8"

	tests := []struct {
		name string
		line string
		want string
	}{
		{"absolute_http", "http://other/x/chunk.ts", "http://other/x/chunk.ts"},
		{"absolute_https", "https://other/x/chunk.ts", "https://other/x/chunk.ts"},
		{"protocol_relative", "//cdn.example.com/seg/1.ts", "http://cdn.example.com/seg/1.ts"},
		{"root_relative", "/seg/1.ts", "http://h/seg/1.ts"},
		{"relative", "stream_0/chunk.ts", "http://h/a/b/stream_0/chunk.ts"},
		{"relative_plain_file", "chunk.ts", "http://h/a/b/chunk.ts"},
		{"relative_with_query", "chunk.ts?token=abc", "http://h/a/b/chunk.ts?token=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(manifest, tt.line)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestResolve_httpsManifest(t *testing.T) {
	got, err := Resolve("https://h/a/master.m3u8", "//cdn/x.ts")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://cdn/x.ts" {
		t.Errorf("protocol-relative should inherit https, got %q", got)
	}
}

func TestResolve_directoryIsManifestPath(t *testing.T) {
	// The base directory is the manifest URL's path up to the last "/":
	// a sibling reference must not include the manifest filename.
	got, err := Resolve("http://h/a/b/master.m3u8", "../up/seg.ts")
	if err != nil {
		t.Fatal(err)
	}
	if got != "http://h/a/up/seg.ts" {
		t.Errorf("got %q, want %q", got, "http://h/a/up/seg.ts")
	}
}

func TestResolve_malformedLine(t *testing.T) {
	if _, err := Resolve("http://h/a/master.m3u8", "%zz-bad-escape"); err == nil {
		t.Error("expected error for malformed line")
	}
}
