package chart

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
)

// Resolution per output mode. Both modes draw the same plot.
const (
	InlineDPI = 150
	FileDPI   = 300
)

// Format is a download format.
type Format string

const (
	PNG Format = "png"
	PDF Format = "pdf"
)

// ParseFormat accepts "png" or "pdf", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case PNG, PDF:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ContentType returns the MIME type of encoded output.
func (f Format) ContentType() string {
	if f == PDF {
		return "application/pdf"
	}
	return "image/png"
}

// Encode draws p onto a w x h canvas and writes it to out. dpi only
// affects bitmap output.
func Encode(out io.Writer, p *plot.Plot, w, h vg.Length, format Format, dpi int) (err error) {
	// gonum/plot reports some drawing failures by panicking
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("draw: %v", r)
		}
	}()

	var wt io.WriterTo
	switch format {
	case PNG:
		c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
		p.Draw(draw.New(c))
		wt = vgimg.PngCanvas{Canvas: c}
	case PDF:
		c := vgpdf.New(w, h)
		p.Draw(draw.New(c))
		wt = c
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	_, err = wt.WriteTo(out)
	return err
}

// EncodeBytes is Encode into memory.
func EncodeBytes(p *plot.Plot, w, h vg.Length, format Format, dpi int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, p, w, h, format, dpi); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
