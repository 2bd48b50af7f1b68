package tagimg

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/corona10/goimagehash"
	"github.com/k1LoW/errors"
)

const MIMETypeImagePNG = "image/png"

// phashThreshold is the maximum perceptual hash distance for two images to be treated as the same.
const phashThreshold = 5

// Image is a rendered artifact. It is created by the Renderer, handed to a
// Publisher and then discarded.
type Image struct {
	i        image.Image
	b        []byte // encoded PNG
	checksum uint32
	pHash    *goimagehash.ImageHash
}

func newImage(img image.Image) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &Image{
		i: img,
		b: buf.Bytes(),
	}, nil
}

// LoadImage reads a PNG image from path.
func LoadImage(path string) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer f.Close()
	return newImageFromReader(f)
}

func newImageFromReader(r io.Reader) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &Image{
		i: img,
		b: b,
	}, nil
}

// MIMEType returns the MIME type of the encoded image.
func (i *Image) MIMEType() string {
	return MIMETypeImagePNG
}

// Bytes returns the encoded image.
func (i *Image) Bytes() []byte {
	if i == nil {
		return nil
	}
	return i.b
}

// Image returns the decoded raster.
func (i *Image) Image() image.Image {
	if i == nil {
		return nil
	}
	return i.i
}

func (i *Image) Width() int {
	if i == nil || i.i == nil {
		return 0
	}
	return i.i.Bounds().Dx()
}

func (i *Image) Height() int {
	if i == nil || i.i == nil {
		return 0
	}
	return i.i.Bounds().Dy()
}

func (i *Image) Checksum() uint32 {
	if i == nil {
		return 0
	}
	if i.checksum == 0 {
		i.checksum = crc32.ChecksumIEEE(i.b)
	}
	return i.checksum
}

func (i *Image) PHash() (_ *goimagehash.ImageHash, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if i == nil || i.i == nil {
		return nil, fmt.Errorf("image is nil")
	}
	if i.pHash == nil {
		pHash, err := goimagehash.PerceptionHash(i.i)
		if err != nil {
			return nil, fmt.Errorf("failed to compute perceptual hash: %w", err)
		}
		i.pHash = pHash
	}
	return i.pHash, nil
}

// Equivalent reports whether ii has the same content as i.
// Identical bytes are equivalent; otherwise the sizes must match and the
// perceptual hashes must be close.
func (i *Image) Equivalent(ii *Image) bool {
	if i == nil || ii == nil {
		return false
	}
	if i.Checksum() == ii.Checksum() && bytes.Equal(i.b, ii.b) {
		return true
	}
	if i.Width() != ii.Width() || i.Height() != ii.Height() {
		return false
	}
	aHash, err := i.PHash()
	if err != nil {
		return false
	}
	bHash, err := ii.PHash()
	if err != nil {
		return false
	}
	distance, err := aHash.Distance(bHash)
	if err != nil {
		return false
	}
	return distance < phashThreshold
}

// WriteTemp writes the encoded image to a new temporary file in dir.
// The returned release func removes the file and must be called once the
// file is no longer needed, whatever the outcome of its use.
func (i *Image) WriteTemp(dir string) (path string, release func() error, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	f, err := os.CreateTemp(dir, "tagimg-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	path = f.Name()
	release = func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if _, err := f.Write(i.b); err != nil {
		_ = f.Close()
		return "", nil, errors.Join(fmt.Errorf("failed to write temporary file: %w", err), release())
	}
	if err := f.Close(); err != nil {
		return "", nil, errors.Join(fmt.Errorf("failed to close temporary file: %w", err), release())
	}
	return path, release, nil
}

// Release drops the pixel and encoded data of the image.
func (i *Image) Release() {
	if i == nil {
		return
	}
	i.i = nil
	i.b = nil
	i.pHash = nil
}

func (i *Image) String() string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType(), base64.StdEncoding.EncodeToString(i.b))
}
