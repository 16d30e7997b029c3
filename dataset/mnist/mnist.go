// Package mnist loads the MNIST handwritten digit dataset from the
// standard IDX archive files, downloading them on demand.
package mnist

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// ImgSize is the native MNIST image side length.
const ImgSize = 28

// PaddedSize is the side length after the resize transform; images are
// centered on a black 32x32 canvas so they fit the network input contract.
const PaddedSize = 32

// SampleSize is the flattened per-sample feature count (H * W * C).
const SampleSize = PaddedSize * PaddedSize

// NumClasses is the digit label count.
const NumClasses = 10

const baseURL = "https://ossci-datasets.s3.amazonaws.com/mnist/"

const (
	trainImagesFile = "train-images-idx3-ubyte.gz"
	trainLabelsFile = "train-labels-idx1-ubyte.gz"
	testImagesFile  = "t10k-images-idx3-ubyte.gz"
	testLabelsFile  = "t10k-labels-idx1-ubyte.gz"
)

// sha256 digests of the gzip archives, checked after download.
var checksums = map[string]string{
	trainImagesFile: "440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609",
	trainLabelsFile: "3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c",
	testImagesFile:  "8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6",
	testLabelsFile:  "f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6",
}

const (
	imagesMagic = 2051
	labelsMagic = 2049
)

// Config selects and prepares one split of the dataset.
type Config struct {
	Root     string // storage directory for the archive files
	Train    bool   // training split vs test split
	Download bool   // fetch missing archives from the mirror
	Mean     float64
	Std      float64
}

// Dataset is an indexable collection of (image, label) pairs. Images are
// kept in their raw byte form; the resize/normalize transform is applied
// per access.
type Dataset struct {
	images []byte // n * ImgSize * ImgSize
	labels []byte
	mean   float64
	std    float64
}

// Load reads one MNIST split, downloading the archives when allowed.
func Load(cfg Config) (*Dataset, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("mnist: root directory must be set")
	}
	if cfg.Std == 0 {
		return nil, fmt.Errorf("mnist: std must be nonzero")
	}

	imagesFile, labelsFile := testImagesFile, testLabelsFile
	if cfg.Train {
		imagesFile, labelsFile = trainImagesFile, trainLabelsFile
	}

	imagesRaw, err := readArchive(cfg, imagesFile)
	if err != nil {
		return nil, err
	}
	labelsRaw, err := readArchive(cfg, labelsFile)
	if err != nil {
		return nil, err
	}

	images, err := parseImages(imagesRaw)
	if err != nil {
		return nil, fmt.Errorf("mnist: %s: %w", imagesFile, err)
	}
	labels, err := parseLabels(labelsRaw)
	if err != nil {
		return nil, fmt.Errorf("mnist: %s: %w", labelsFile, err)
	}
	if len(images)/(ImgSize*ImgSize) != len(labels) {
		return nil, fmt.Errorf("mnist: %d images but %d labels",
			len(images)/(ImgSize*ImgSize), len(labels))
	}

	return &Dataset{
		images: images,
		labels: labels,
		mean:   cfg.Mean,
		std:    cfg.Std,
	}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.labels)
}

// At returns one transformed sample: the 28x28 image centered on a 32x32
// zero canvas, scaled to [0,1] and normalized to (x-mean)/std, flattened
// row-major, plus its digit label.
func (d *Dataset) At(i int) ([]float64, int) {
	out := make([]float64, SampleSize)
	pad := (PaddedSize - ImgSize) / 2
	bg := (0 - d.mean) / d.std
	for j := range out {
		out[j] = bg
	}
	src := d.images[i*ImgSize*ImgSize : (i+1)*ImgSize*ImgSize]
	for y := 0; y < ImgSize; y++ {
		for x := 0; x < ImgSize; x++ {
			v := float64(src[y*ImgSize+x]) / 255.0
			out[(y+pad)*PaddedSize+(x+pad)] = (v - d.mean) / d.std
		}
	}
	return out, int(d.labels[i])
}

func readArchive(cfg Config, name string) ([]byte, error) {
	path := filepath.Join(cfg.Root, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if !cfg.Download {
			return nil, fmt.Errorf("mnist: %s missing and download disabled", path)
		}
		if err := download(cfg.Root, name); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("mnist: stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mnist: open %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("mnist: gunzip %s: %w", path, err)
	}
	defer gz.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(gz); err != nil {
		return nil, fmt.Errorf("mnist: read %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

func download(root, name string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("mnist: mkdir %s: %w", root, err)
	}

	url := baseURL + name
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("mnist: download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mnist: download %s: status %s", url, resp.Status)
	}

	h := sha256.New()
	tmp, err := os.CreateTemp(root, name+".tmp-")
	if err != nil {
		return fmt.Errorf("mnist: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(io.MultiWriter(tmp, h), resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("mnist: download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("mnist: temp file: %w", err)
	}

	if sum := fmt.Sprintf("%x", h.Sum(nil)); sum != checksums[name] {
		return fmt.Errorf("mnist: %s checksum mismatch: got %s", name, sum)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(root, name)); err != nil {
		return fmt.Errorf("mnist: rename: %w", err)
	}
	return nil
}

func parseImages(raw []byte) ([]byte, error) {
	if len(raw) < 16 {
		return nil, fmt.Errorf("truncated header")
	}
	if magic := binary.BigEndian.Uint32(raw); magic != imagesMagic {
		return nil, fmt.Errorf("bad magic %d, want %d", magic, imagesMagic)
	}
	count := int(binary.BigEndian.Uint32(raw[4:]))
	rows := int(binary.BigEndian.Uint32(raw[8:]))
	cols := int(binary.BigEndian.Uint32(raw[12:]))
	if rows != ImgSize || cols != ImgSize {
		return nil, fmt.Errorf("unexpected image size %dx%d", rows, cols)
	}
	body := raw[16:]
	if len(body) != count*rows*cols {
		return nil, fmt.Errorf("body size %d does not match %d images", len(body), count)
	}
	return body, nil
}

func parseLabels(raw []byte) ([]byte, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("truncated header")
	}
	if magic := binary.BigEndian.Uint32(raw); magic != labelsMagic {
		return nil, fmt.Errorf("bad magic %d, want %d", magic, labelsMagic)
	}
	count := int(binary.BigEndian.Uint32(raw[4:]))
	body := raw[8:]
	if len(body) != count {
		return nil, fmt.Errorf("body size %d does not match %d labels", len(body), count)
	}
	for _, l := range body {
		if l >= NumClasses {
			return nil, fmt.Errorf("label %d out of range", l)
		}
	}
	return body, nil
}
