package tray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
)

const placeholderSize = 64

// Placeholder returns the generated fallback icon: a black square with white
// top-right and bottom-left quadrants.
func Placeholder(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	white := image.NewUniform(color.White)
	draw.Draw(img, image.Rect(width/2, 0, width, height/2), white, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, height/2, width/2, height), white, image.Point{}, draw.Src)
	return img
}

// LoadImage decodes the image at path. An empty path yields the placeholder;
// a path that cannot be read or decoded returns ErrIconLoad.
func LoadImage(path string) (image.Image, error) {
	if path == "" {
		return Placeholder(placeholderSize, placeholderSize), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIconLoad, path, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIconLoad, path, err)
	}
	return img, nil
}

// EncodeIcon renders img in the byte format the tray expects on goos: PNG,
// wrapped in an ICO container on Windows.
func EncodeIcon(img image.Image, goos string) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", ErrIconLoad, err)
	}
	if goos != "windows" {
		return buf.Bytes(), nil
	}
	b := img.Bounds()
	return wrapICO(buf.Bytes(), b.Dx(), b.Dy()), nil
}

// wrapICO embeds a single PNG image in an ICO file (supported since Vista).
func wrapICO(pngData []byte, width, height int) []byte {
	const headerSize = 6 + 16

	dim := func(v int) uint8 {
		if v >= 256 {
			return 0 // 0 means 256
		}
		return uint8(v)
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(pngData))
	binary.Write(&buf, binary.LittleEndian, struct {
		Reserved uint16
		Type     uint16
		Count    uint16
	}{0, 1, 1})
	binary.Write(&buf, binary.LittleEndian, struct {
		Width, Height uint8
		Colors        uint8
		Reserved      uint8
		Planes        uint16
		BitCount      uint16
		Size          uint32
		Offset        uint32
	}{dim(width), dim(height), 0, 0, 1, 32, uint32(len(pngData)), headerSize})
	buf.Write(pngData)
	return buf.Bytes()
}
