// Package media turns user-selected files into attachment URLs, either by
// uploading them to a remote media host or by inlining them as data URLs.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"

	"civicsync/models"
)

// ErrUploadFailed means the configured host rejected or failed an upload.
var ErrUploadFailed = errors.New("media upload failed")

// DefaultBaseURL is the Cloudinary API origin.
const DefaultBaseURL = "https://api.cloudinary.com"

// File is one user-selected attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Config selects the remote host. Uploads go remote only when both
// CloudName and UploadPreset are set.
type Config struct {
	BaseURL      string
	CloudName    string
	UploadPreset string
}

func (c Config) remote() bool {
	return c.CloudName != "" && c.UploadPreset != ""
}

// Failure reports a file that was skipped.
type Failure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type Uploader struct {
	cfg    Config
	client *http.Client
	logger *log.Logger
}

type Option func(*Uploader)

func WithHTTPClient(client *http.Client) Option {
	return func(u *Uploader) { u.client = client }
}

func WithLogger(logger *log.Logger) Option {
	return func(u *Uploader) { u.logger = logger }
}

func NewUploader(cfg Config, opts ...Option) *Uploader {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u := &Uploader{
		cfg:    cfg,
		client: http.DefaultClient,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Remote reports whether uploads leave the process.
func (u *Uploader) Remote() bool {
	return u.cfg.remote()
}

// ContentType returns the declared type, or one sniffed from the bytes when
// none was declared. It only labels data URLs.
func ContentType(f File) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	return mimetype.Detect(f.Data).String()
}

// KindOf classifies a file as video when its declared content type says so
// and as image otherwise. Sniffed types never change the kind.
func KindOf(f File) models.MediaKind {
	if strings.HasPrefix(f.ContentType, "video") {
		return models.MediaVideo
	}
	return models.MediaImage
}

// Ingest returns the attachment for f. Without a remote host it always
// succeeds with a data URL.
func (u *Uploader) Ingest(ctx context.Context, f File) (*models.Media, error) {
	kind := KindOf(f)
	if !u.cfg.remote() {
		return &models.Media{URL: DataURL(f), Type: kind}, nil
	}

	url, err := u.upload(ctx, f, kind)
	if err != nil {
		return nil, err
	}
	return &models.Media{URL: url, Type: kind}, nil
}

// IngestAll ingests files in order. A failed file is skipped and reported;
// it never stops the rest.
func (u *Uploader) IngestAll(ctx context.Context, files []File) ([]models.Media, []Failure) {
	media := make([]models.Media, 0, len(files))
	var failures []Failure
	for _, f := range files {
		m, err := u.Ingest(ctx, f)
		if err != nil {
			u.logger.Warn("skipping media file", "name", f.Name, "err", err)
			failures = append(failures, Failure{Name: f.Name, Error: err.Error()})
			continue
		}
		media = append(media, *m)
	}
	return media, failures
}

// DataURL inlines the file as a base64 data URL.
func DataURL(f File) string {
	mediaType := strings.TrimSpace(strings.SplitN(ContentType(f), ";", 2)[0])
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
}

func (u *Uploader) endpoint(kind models.MediaKind) string {
	return fmt.Sprintf("%s/v1_1/%s/%s/upload", strings.TrimRight(u.cfg.BaseURL, "/"), u.cfg.CloudName, kind)
}

func (u *Uploader) upload(ctx context.Context, f File, kind models.MediaKind) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", f.Name)
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if err := form.WriteField("upload_preset", u.cfg.UploadPreset); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint(kind), &body)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: host returned %s", ErrUploadFailed, resp.Status)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %w", ErrUploadFailed, err)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("%w: response has no secure_url", ErrUploadFailed)
	}
	return out.SecureURL, nil
}
