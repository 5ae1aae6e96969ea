package receipts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Storage persists receipt screenshots on local disk and hands back the URL
// they are served under by the staff API.
type Storage struct {
	dir     string
	baseURL string
}

func NewStorage(dir, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Storage{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save writes the image under a sanitized name. Only image extensions are
// accepted; anything else is a caller bug, not user input.
func (s *Storage) Save(data []byte, fileName string) (string, error) {
	safe := filepath.Base(fileName)
	switch strings.ToLower(filepath.Ext(safe)) {
	case ".png", ".jpg", ".jpeg":
	default:
		return "", fmt.Errorf("invalid receipt file format: %s", safe)
	}

	if err := os.WriteFile(filepath.Join(s.dir, safe), data, 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/receipts/%s", s.baseURL, safe), nil
}

func (s *Storage) Dir() string {
	return s.dir
}

// FileName builds the canonical receipt name for a requester.
func FileName(userID int64) string {
	return fmt.Sprintf("receipt_%d_%d.png", userID, time.Now().Unix())
}
