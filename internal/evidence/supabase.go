package evidence

import (
	"bytes"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/supabase-community/supabase-go"
)

// Uploader stores evidence objects produced by the upload-analysis flow.
type Uploader interface {
	Upload(key, contentType string, data []byte) error
}

type Config struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// Storage uploads evidence to a Supabase bucket.
type Storage struct {
	client *supabase.Client
	bucket string
}

// New returns a Supabase-backed uploader, or an error when the client cannot
// be constructed. Callers with missing credentials should use Disabled.
func New(cfg Config) (*Storage, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("evidence: create supabase client: %w", err)
	}
	return &Storage{client: client, bucket: cfg.Bucket}, nil
}

func (s *Storage) Upload(key, contentType string, data []byte) error {
	_, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("evidence: upload %s: %w", key, err)
	}
	return nil
}

// Disabled is the uploader used when Supabase credentials are absent; uploads
// are logged and dropped, never fatal.
type Disabled struct {
	Log zerolog.Logger
}

func (d Disabled) Upload(key, _ string, _ []byte) error {
	d.Log.Debug().Str("key", key).Msg("evidence upload skipped: storage disabled")
	return nil
}
