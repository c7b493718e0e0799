package fingerprint_test

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"imagededup/internal/faults"
	"imagededup/internal/fingerprint"
	"imagededup/internal/testsupport"
)

func TestCryptographicFingerprintEquality(t *testing.T) {
	a, err := fingerprint.CryptographicFingerprint(strings.NewReader("same bytes"))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	b, _ := fingerprint.CryptographicFingerprint(bytes.NewReader([]byte("same bytes")))
	c, _ := fingerprint.CryptographicFingerprint(strings.NewReader("same bytez"))
	if a != b {
		t.Fatal("expected identical content to produce identical digests")
	}
	if a == c {
		t.Fatal("expected different content to produce different digests")
	}
	// SHA-256 of the empty string.
	empty, _ := fingerprint.CryptographicFingerprint(strings.NewReader(""))
	if empty.String() != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("unexpected empty digest %s", empty)
	}
	parsed, err := fingerprint.ParseDigest(empty.String())
	if err != nil || parsed != empty {
		t.Fatalf("ParseDigest round trip failed: %v", err)
	}
}

func TestHashDistanceAndFormatting(t *testing.T) {
	a := fingerprint.Hash(0)
	b := fingerprint.Hash(0xFF)
	if a.Distance(b) != 8 || b.Distance(a) != 8 {
		t.Fatalf("unexpected distance %d", a.Distance(b))
	}
	if a.Distance(^a) != 64 {
		t.Fatalf("expected maximal distance 64")
	}
	if b.String() != "00000000000000ff" {
		t.Fatalf("unexpected hex %q", b.String())
	}
	parsed, err := fingerprint.ParseHash("00000000000000ff")
	if err != nil || parsed != b {
		t.Fatalf("ParseHash round trip failed: %v", err)
	}
	if _, err := fingerprint.ParseHash("zz"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPerceptualStateStrings(t *testing.T) {
	for _, s := range []fingerprint.PerceptualState{fingerprint.NotComputed, fingerprint.Valid, fingerprint.Unreadable} {
		if got := fingerprint.ParsePerceptualState(s.String()); got != s {
			t.Fatalf("round trip of %v gave %v", s, got)
		}
	}
	if fingerprint.ParsePerceptualState("bogus") != fingerprint.NotComputed {
		t.Fatal("expected unknown state to map to NotComputed")
	}
}

func TestCodecSamePixelsDifferentBytes(t *testing.T) {
	dir := t.TempDir()
	img := testsupport.BlockNoise(1, 64)
	fast := filepath.Join(dir, "fast.png")
	best := filepath.Join(dir, "best.png")
	testsupport.WritePNG(t, fast, img, png.BestSpeed)
	testsupport.WritePNG(t, best, img, png.NoCompression)

	codec := fingerprint.NewCodec()
	d1, err := codec.FileDigest(fast)
	if err != nil {
		t.Fatalf("FileDigest: %v", err)
	}
	d2, err := codec.FileDigest(best)
	if err != nil {
		t.Fatalf("FileDigest: %v", err)
	}
	if d1 == d2 {
		t.Fatal("expected different encodings to have different digests")
	}

	p1, h1, err := fingerprint.PerceptualFile(codec, fast)
	if err != nil {
		t.Fatalf("PerceptualFile: %v", err)
	}
	p2, h2, err := fingerprint.PerceptualFile(codec, best)
	if err != nil {
		t.Fatalf("PerceptualFile: %v", err)
	}
	if p1.Distance(p2) != 0 || h1.Distance(h2) != 0 {
		t.Fatalf("expected identical pixels to hash identically: phash %d dhash %d", p1.Distance(p2), h1.Distance(h2))
	}
}

func TestCodecUnrelatedImagesAreFar(t *testing.T) {
	codec := fingerprint.NewCodec()
	p1, d1, err := codec.Perceptual(testsupport.BlockNoise(1, 64))
	if err != nil {
		t.Fatalf("Perceptual: %v", err)
	}
	p2, d2, err := codec.Perceptual(testsupport.BlockNoise(2, 64))
	if err != nil {
		t.Fatalf("Perceptual: %v", err)
	}
	if p1.Distance(p2) <= 10 && d1.Distance(d2) <= 10 {
		t.Fatalf("expected unrelated images to differ: phash %d dhash %d", p1.Distance(p2), d1.Distance(d2))
	}
}

func TestDecodeFileRejectsCorruptInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	testsupport.WriteFile(t, path, 512)

	_, err := fingerprint.NewCodec().DecodeFile(path)
	if !errors.Is(err, faults.ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken.jpg") {
		t.Fatalf("expected path in error, got %v", err)
	}

	if _, err := fingerprint.NewCodec().FileDigest(filepath.Join(t.TempDir(), "missing.jpg")); !errors.Is(err, faults.ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable for missing file, got %v", err)
	}
}

func TestPerceptualRejectsNilImage(t *testing.T) {
	var img image.Image
	if _, _, err := fingerprint.NewCodec().Perceptual(img); !errors.Is(err, faults.ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}
