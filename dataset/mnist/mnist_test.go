package mnist

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeGz(t *testing.T, path string, payload []byte) {
	t.Helper()
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	if _, err := gz.Write(payload); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func makeFixture(t *testing.T, root string, labels []byte, pixel byte) {
	t.Helper()
	n := len(labels)

	images := make([]byte, 16+n*ImgSize*ImgSize)
	binary.BigEndian.PutUint32(images, imagesMagic)
	binary.BigEndian.PutUint32(images[4:], uint32(n))
	binary.BigEndian.PutUint32(images[8:], ImgSize)
	binary.BigEndian.PutUint32(images[12:], ImgSize)
	for i := 16; i < len(images); i++ {
		images[i] = pixel
	}
	writeGz(t, filepath.Join(root, testImagesFile), images)

	raw := make([]byte, 8+n)
	binary.BigEndian.PutUint32(raw, labelsMagic)
	binary.BigEndian.PutUint32(raw[4:], uint32(n))
	copy(raw[8:], labels)
	writeGz(t, filepath.Join(root, testLabelsFile), raw)
}

func TestLoadAndTransform(t *testing.T) {
	root := t.TempDir()
	makeFixture(t, root, []byte{3, 7}, 255)

	ds, err := Load(Config{Root: root, Train: false, Download: false, Mean: 0.1307, Std: 0.3081})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("len: want 2, got %d", ds.Len())
	}

	img, label := ds.At(0)
	if label != 3 {
		t.Fatalf("label: want 3, got %d", label)
	}
	if len(img) != SampleSize {
		t.Fatalf("sample size: want %d, got %d", SampleSize, len(img))
	}

	fg := (1.0 - 0.1307) / 0.3081
	bg := (0.0 - 0.1307) / 0.3081
	// corner of the canvas is padding, the center is image
	if math.Abs(img[0]-bg) > 1e-12 {
		t.Fatalf("padding value: want %v, got %v", bg, img[0])
	}
	center := (PaddedSize/2)*PaddedSize + PaddedSize/2
	if math.Abs(img[center]-fg) > 1e-12 {
		t.Fatalf("image value: want %v, got %v", fg, img[center])
	}

	if _, label = ds.At(1); label != 7 {
		t.Fatalf("label: want 7, got %d", label)
	}
}

func TestLoadMissingWithoutDownload(t *testing.T) {
	_, err := Load(Config{Root: t.TempDir(), Download: false, Mean: 0.5, Std: 0.5})
	if err == nil {
		t.Fatal("expected error for missing archives with download disabled")
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	root := t.TempDir()
	makeFixture(t, root, []byte{1}, 0)

	// corrupt the images magic
	images := make([]byte, 16+ImgSize*ImgSize)
	binary.BigEndian.PutUint32(images, 1234)
	writeGz(t, filepath.Join(root, testImagesFile), images)

	if _, err := Load(Config{Root: root, Download: false, Mean: 0.5, Std: 0.5}); err == nil {
		t.Fatal("expected error for bad magic number")
	}
}

func TestLoadRejectsCountMismatch(t *testing.T) {
	root := t.TempDir()
	makeFixture(t, root, []byte{1, 2}, 0)

	// labels header claims 3 entries but carries 2
	raw := make([]byte, 8+2)
	binary.BigEndian.PutUint32(raw, labelsMagic)
	binary.BigEndian.PutUint32(raw[4:], 3)
	writeGz(t, filepath.Join(root, testLabelsFile), raw)

	if _, err := Load(Config{Root: root, Download: false, Mean: 0.5, Std: 0.5}); err == nil {
		t.Fatal("expected error for label count mismatch")
	}
}
