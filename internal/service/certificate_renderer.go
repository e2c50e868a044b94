package service

import (
	"bytes"
	"context"
	"credlyse_backend/internal/util"
	"fmt"
	"image/color"
	"path"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// CertificateArtwork is what the renderer needs to draw one certificate.
type CertificateArtwork struct {
	CertificateID string
	UserName      string
	CourseTitle   string
	IssuedAt      time.Time
}

// CertificateRenderer produces the certificate artifact and returns its URL.
type CertificateRenderer interface {
	Render(ctx context.Context, art CertificateArtwork) (string, error)
	Discard(ctx context.Context, artifactURL string) error
}

// PNGCertificateRenderer draws a landscape PNG and hands it to storage.
type PNGCertificateRenderer struct {
	Storage *StorageService
	Prefix  string
}

func NewPNGCertificateRenderer(storage *StorageService, prefix string) *PNGCertificateRenderer {
	if prefix == "" {
		prefix = "certificates"
	}
	return &PNGCertificateRenderer{Storage: storage, Prefix: prefix}
}

const (
	certWidth  = 1100
	certHeight = 850
)

func (r *PNGCertificateRenderer) key(id string) string {
	return path.Join(r.Prefix, id+".png")
}

func (r *PNGCertificateRenderer) Render(ctx context.Context, art CertificateArtwork) (string, error) {
	img, err := DrawCertificate(art)
	if err != nil {
		return "", err
	}
	url, err := r.Storage.UploadBytes(ctx, r.key(art.CertificateID), img, util.MimePNG)
	if err != nil {
		return "", fmt.Errorf("%w: store certificate artifact: %v", util.ErrUpstream, err)
	}
	return url, nil
}

func (r *PNGCertificateRenderer) Discard(ctx context.Context, artifactURL string) error {
	key := KeyFromURL(artifactURL, r.Prefix)
	if key == "" {
		return nil
	}
	return r.Storage.Delete(ctx, key)
}

// DrawCertificate renders the certificate as PNG bytes.
func DrawCertificate(art CertificateArtwork) ([]byte, error) {
	dc := gg.NewContext(certWidth, certHeight)

	dc.SetColor(color.White)
	dc.Clear()

	// border
	dc.SetRGB(0.2, 0.2, 0.8)
	dc.SetLineWidth(10)
	dc.DrawRectangle(36, 36, certWidth-72, certHeight-72)
	dc.Stroke()

	dc.SetFontFace(basicfont.Face7x13)
	cx := float64(certWidth) / 2

	centered := func(s string, y, scale float64) {
		dc.Push()
		dc.ScaleAbout(scale, scale, cx, y)
		dc.DrawStringAnchored(s, cx, y, 0.5, 0.5)
		dc.Pop()
	}

	dc.SetRGB(0.1, 0.1, 0.1)
	centered("Certificate of Completion", 230, 4)
	centered("This is to certify that", 330, 2)
	dc.SetRGB(0.2, 0.2, 0.8)
	centered(art.UserName, 420, 3.5)
	dc.SetRGB(0.1, 0.1, 0.1)
	centered("has successfully completed the course", 510, 2)
	centered(art.CourseTitle, 590, 3)

	dc.SetRGB(0.3, 0.3, 0.3)
	dc.Push()
	dc.ScaleAbout(1.5, 1.5, 100, 760)
	dc.DrawString("Date: "+art.IssuedAt.Format("January 02, 2006"), 100, 760)
	dc.Pop()

	shortID := art.CertificateID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	dc.Push()
	dc.ScaleAbout(1.5, 1.5, certWidth-100, 760)
	dc.DrawStringAnchored("Certificate ID: "+shortID, certWidth-100, 760, 1, 0)
	dc.Pop()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode certificate png: %w", err)
	}
	return buf.Bytes(), nil
}
