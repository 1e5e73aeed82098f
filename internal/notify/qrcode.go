package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// QRSize is the edge length in pixels of generated ticket images.
const QRSize = 320

// RenderQR encodes payload as a PNG image.
func RenderQR(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}

// QRStore keeps a copy of every issued ticket image on disk.
type QRStore struct {
	dir string
}

// NewQRStore ensures dir exists
func NewQRStore(dir string) (*QRStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create QR code directory %s: %w", dir, err)
	}
	return &QRStore{dir: dir}, nil
}

// Save writes png for a participant and returns its path.
func (s *QRStore) Save(participantID int64, png []byte) (string, error) {
	name := fmt.Sprintf("qr_%d_%s.png", participantID, time.Now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write QR code: %w", err)
	}
	return path, nil
}
