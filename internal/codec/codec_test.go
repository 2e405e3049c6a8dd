package codec

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestEncodePage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	img.Pix[5] = 255

	data, err := EncodePage(img)
	if err != nil {
		t.Fatalf("EncodePage: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode round trip: %v", err)
	}
	if got := decoded.Bounds(); got != img.Bounds() {
		t.Errorf("decoded bounds %v, want %v", got, img.Bounds())
	}
}

func TestEncodePageRejectsEmptyDimensions(t *testing.T) {
	if _, err := EncodePage(image.NewGray(image.Rect(0, 0, 0, 10))); err == nil {
		t.Fatal("EncodePage accepted a zero-width image")
	}
}
