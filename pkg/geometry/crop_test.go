package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropIsEmpty(t *testing.T) {
	assert.True(t, Crop{}.IsEmpty())
	assert.True(t, Crop{Width: 10}.IsEmpty())
	assert.True(t, Crop{Width: 10, Height: -1}.IsEmpty())
	assert.False(t, Crop{Width: 1, Height: 1}.IsEmpty())
}

func TestParseCrop(t *testing.T) {
	tests := []struct {
		in      string
		want    Crop
		wantErr bool
	}{
		{in: "10,20,300,200", want: Crop{X: 10, Y: 20, Width: 300, Height: 200}},
		{in: " 10, 20, 300, 200@1600x900", want: Crop{X: 10, Y: 20, Width: 300, Height: 200, SourceWidth: 1600, SourceHeight: 900}},
		{in: "-5,0,10,10@100x", want: Crop{X: -5, Width: 10, Height: 10, SourceWidth: 100}},
		{in: "10,20,300", wantErr: true},
		{in: "a,b,c,d", wantErr: true},
		{in: "1,2,3,4@big", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCrop(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCropRect(t *testing.T) {
	c := Crop{X: 10, Y: 20, Width: 30, Height: 40}
	assert.Equal(t, image.Rect(10, 20, 40, 60), c.Rect())
}

func TestCropNormalizeRescales(t *testing.T) {
	c := Crop{X: 10, Y: 10, Width: 90, Height: 90, SourceWidth: 100, SourceHeight: 100}
	got := c.Normalize(NewDimensions(50, 50))
	assert.Equal(t, Crop{X: 5, Y: 5, Width: 45, Height: 45, SourceWidth: 50, SourceHeight: 50}, got)
}

func TestCropNormalizeUpscales(t *testing.T) {
	c := Crop{X: 10, Y: 5, Width: 20, Height: 10, SourceWidth: 40, SourceHeight: 20}
	got := c.Normalize(NewDimensions(400, 100))
	assert.Equal(t, Crop{X: 100, Y: 25, Width: 200, Height: 50, SourceWidth: 400, SourceHeight: 100}, got)
}

func TestCropNormalizeSnaps(t *testing.T) {
	d := NewDimensions(100, 80)

	got := Crop{X: -10, Y: -5, Width: 50, Height: 50}.Normalize(d)
	assert.Equal(t, Crop{X: 0, Y: 0, Width: 40, Height: 45, SourceWidth: 100, SourceHeight: 80}, got)

	got = Crop{X: 90, Y: 70, Width: 50, Height: 50}.Normalize(d)
	assert.Equal(t, Crop{X: 90, Y: 70, Width: 10, Height: 10, SourceWidth: 100, SourceHeight: 80}, got)

	got = Crop{X: 150, Y: 10, Width: 10, Height: -20}.Normalize(d)
	assert.Equal(t, Crop{X: 100, Y: 10, Width: 0, Height: 0, SourceWidth: 100, SourceHeight: 80}, got)
	assert.True(t, got.IsEmpty())
}

func TestCropNormalizeDerivesMissingSource(t *testing.T) {
	// source height is derived from the 2:1 target, so the crop was drawn on 200x100
	c := Crop{X: 20, Y: 10, Width: 100, Height: 50, SourceWidth: 200}
	got := c.Normalize(NewDimensions(100, 50))
	assert.Equal(t, Crop{X: 10, Y: 5, Width: 50, Height: 25, SourceWidth: 100, SourceHeight: 50}, got)
}

func TestCropNormalizeIdempotent(t *testing.T) {
	crops := []Crop{
		{X: 10, Y: 10, Width: 90, Height: 90, SourceWidth: 100, SourceHeight: 100},
		{X: -7, Y: 3, Width: 33, Height: 500, SourceWidth: 61},
		{X: 1, Y: 1, Width: 5, Height: 5, SourceHeight: 9},
		{X: 3, Y: 4, Width: 30, Height: 40},
	}
	for _, d := range []Dimensions{NewDimensions(50, 50), NewDimensions(37, 91), NewDimensions(640, 480)} {
		for _, c := range crops {
			once := c.Normalize(d)
			twice := once.Normalize(d)
			assert.True(t, once.Equal(twice), "%s on %s: %s then %s", c, d, once, twice)
		}
	}
}

func TestCropNormalizeBoundsProperty(t *testing.T) {
	for _, d := range []Dimensions{NewDimensions(7, 5), NewDimensions(12, 12), NewDimensions(1, 9)} {
		for _, src := range []Dimensions{Empty, NewDimensions(10, 10), NewDimensions(3, 0), NewDimensions(0, 13)} {
			for x := -3; x <= 12; x += 3 {
				for y := -3; y <= 12; y += 3 {
					for w := -2; w <= 14; w += 4 {
						for h := -2; h <= 14; h += 4 {
							c := Crop{X: x, Y: y, Width: w, Height: h, SourceWidth: src.Width, SourceHeight: src.Height}
							got := c.Normalize(d)
							require.GreaterOrEqual(t, got.X, 0)
							require.GreaterOrEqual(t, got.Y, 0)
							require.GreaterOrEqual(t, got.Width, 0)
							require.GreaterOrEqual(t, got.Height, 0)
							require.LessOrEqual(t, got.X+got.Width, d.Width, "%s on %s", c, d)
							require.LessOrEqual(t, got.Y+got.Height, d.Height, "%s on %s", c, d)
							require.Equal(t, d, got.Source())
							require.True(t, got.Equal(got.Normalize(d)), "%s on %s not idempotent", c, d)
						}
					}
				}
			}
		}
	}
}

func FuzzCropNormalize(f *testing.F) {
	f.Add(10, 10, 90, 90, 100, 100, 50, 50)
	f.Add(-5, 3, 40, 2, 0, 17, 33, 21)
	f.Fuzz(func(t *testing.T, x, y, w, h, sw, sh, dw, dh int) {
		for _, v := range []int{x, y, w, h, sw, sh, dw, dh} {
			if v < -1<<20 || v > 1<<20 {
				t.Skip()
			}
		}
		if sw < 0 || sh < 0 || dw < 0 || dh < 0 {
			t.Skip()
		}
		d := NewDimensions(dw, dh)
		got := Crop{X: x, Y: y, Width: w, Height: h, SourceWidth: sw, SourceHeight: sh}.Normalize(d)
		if got.X < 0 || got.Y < 0 || got.X+got.Width > dw || got.Y+got.Height > dh {
			t.Fatalf("out of bounds: %s on %s", got, d)
		}
		if !got.Equal(got.Normalize(d)) {
			t.Fatalf("not idempotent: %s on %s", got, d)
		}
	})
}
