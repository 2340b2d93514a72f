package transform

import (
	"context"
	"image"
	"sort"

	"github.com/disintegration/imaging"
)

// LocalBackgroundRemover clears the backdrop of an image in process. It
// samples the border to estimate the background colour, then flood-fills
// inward from the edges, making every connected pixel within Tolerance of
// that colour fully transparent. Pixels that are already transparent count as
// background.
type LocalBackgroundRemover struct {
	// Tolerance is the maximum per-channel distance (0-255) from the
	// background colour.
	Tolerance uint8
}

func (r *LocalBackgroundRemover) Name() string { return "local-background-remover" }

func (r *LocalBackgroundRemover) Apply(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap(r.Name(), err)
	}
	src, err := decode(data)
	if err != nil {
		return nil, Wrap(r.Name(), err)
	}

	img := imaging.Clone(src)
	clearBackground(img, r.Tolerance)

	if err := ctx.Err(); err != nil {
		return nil, Wrap(r.Name(), err)
	}
	out, err := encodePNG(img)
	if err != nil {
		return nil, Wrap(r.Name(), err)
	}
	return out, nil
}

func clearBackground(img *image.NRGBA, tol uint8) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}
	bg := borderColor(img)

	isBackground := func(x, y int) bool {
		off := y*img.Stride + x*4
		p := img.Pix[off : off+4 : off+4]
		if p[3] == 0 {
			return true
		}
		return near(p[0], bg[0], tol) && near(p[1], bg[1], tol) && near(p[2], bg[2], tol)
	}

	visited := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))
	push := func(x, y int) {
		i := y*w + x
		if visited[i] {
			return
		}
		visited[i] = true
		if isBackground(x, y) {
			queue = append(queue, i)
		}
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%w, i/w

		off := y*img.Stride + x*4
		img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = 0, 0, 0, 0

		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}
}

// borderColor returns the per-channel median of the opaque border pixels.
func borderColor(img *image.NRGBA) [3]uint8 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	var rs, gs, bs []uint8
	sample := func(x, y int) {
		off := y*img.Stride + x*4
		if img.Pix[off+3] == 0 {
			return
		}
		rs = append(rs, img.Pix[off])
		gs = append(gs, img.Pix[off+1])
		bs = append(bs, img.Pix[off+2])
	}
	for x := 0; x < w; x++ {
		sample(x, 0)
		sample(x, h-1)
	}
	for y := 1; y < h-1; y++ {
		sample(0, y)
		sample(w-1, y)
	}
	if len(rs) == 0 {
		return [3]uint8{}
	}
	return [3]uint8{median(rs), median(gs), median(bs)}
}

func median(v []uint8) uint8 {
	sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })
	return v[len(v)/2]
}

func near(a, b, tol uint8) bool {
	if a > b {
		return a-b <= tol
	}
	return b-a <= tol
}

// LocalUpscaler enlarges an image by Factor using Lanczos resampling, never
// letting the longer edge exceed MaxEdge.
type LocalUpscaler struct {
	Factor  int
	MaxEdge int
}

func (u *LocalUpscaler) Name() string { return "local-upscaler" }

func (u *LocalUpscaler) Apply(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap(u.Name(), err)
	}
	src, err := decode(data)
	if err != nil {
		return nil, Wrap(u.Name(), err)
	}

	b := src.Bounds()
	tw, th := targetSize(b.Dx(), b.Dy(), u.Factor, u.MaxEdge)
	out := src
	if tw > b.Dx() || th > b.Dy() {
		out = imaging.Resize(src, tw, th, imaging.Lanczos)
	}

	encoded, err := encodePNG(out)
	if err != nil {
		return nil, Wrap(u.Name(), err)
	}
	return encoded, nil
}

// targetSize scales w×h by factor and shrinks the result proportionally so
// neither edge exceeds maxEdge. The result is never smaller than the input.
func targetSize(w, h, factor, maxEdge int) (int, int) {
	if factor < 1 {
		factor = 1
	}
	tw, th := w*factor, h*factor
	if maxEdge > 0 {
		longest := tw
		if th > longest {
			longest = th
		}
		if longest > maxEdge {
			tw = tw * maxEdge / longest
			th = th * maxEdge / longest
		}
	}
	if tw < w || th < h {
		return w, h
	}
	return tw, th
}
