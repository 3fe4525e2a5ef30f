package object

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestDetectAudioType(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want string
	}{
		{name: "wav", head: []byte("RIFF\x24\x00\x00\x00WAVEfmt "), want: "audio/wave"},
		{name: "mp3 id3", head: []byte("ID3\x03\x00\x00\x00\x00\x00\x00"), want: "audio/mpeg"},
		{name: "mp3 frame", head: []byte{0xFF, 0xFB, 0x90, 0x64, 0x00}, want: "audio/mpeg"},
		{name: "flac", head: []byte("fLaC\x00\x00\x00\x22"), want: "audio/flac"},
		{name: "m4a", head: []byte("\x00\x00\x00\x20ftypM4A \x00\x00\x00\x00"), want: "audio/mp4"},
		{name: "ogg", head: []byte("OggS\x00\x02\x00\x00"), want: "application/ogg"},
		{name: "text", head: []byte("hello"), want: "text/plain; charset=utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectAudioType(tt.head); got != tt.want {
				t.Fatalf("DetectAudioType = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSniffKeepsWholeStream(t *testing.T) {
	payload := append([]byte("fLaC"), bytes.Repeat([]byte{1}, 2000)...)
	mime, body, err := Sniff(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	counter := &CountingReader{R: body}
	got, _ := io.ReadAll(counter)
	if mime != "audio/flac" || !bytes.Equal(got, payload) || counter.N != int64(len(payload)) {
		t.Fatalf("unexpected sniff result %q, %d bytes", mime, counter.N)
	}
}

func TestNewKey(t *testing.T) {
	key, err := NewKey("calls", "2026/03/morning.wav")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if !strings.HasPrefix(key, "calls/") || !strings.HasSuffix(key, "_2026_03_morning.wav") {
		t.Fatalf("unexpected key %q", key)
	}
	if _, err := NewKey("calls", "../secret"); err == nil {
		t.Fatalf("expected traversal rejected")
	}
}
