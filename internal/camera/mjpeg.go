package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// MJPEGSource reads a multipart/x-mixed-replace JPEG stream, the format most
// IP cameras and this service's own video feed serve.
type MJPEGSource struct {
	body   io.ReadCloser
	reader *multipart.Reader
}

// OpenMJPEG connects to url. The connection lives until Close or ctx ends.
func OpenMJPEG(ctx context.Context, url string) (*MJPEGSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}
	reader, err := multipartReader(resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return &MJPEGSource{body: resp.Body, reader: reader}, nil
}

func multipartReader(contentType string, body io.Reader) (*multipart.Reader, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("parse content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, fmt.Errorf("not a multipart stream: %s", mediaType)
	}
	boundary := strings.TrimPrefix(params["boundary"], "--")
	if boundary == "" {
		return nil, errors.New("stream has no boundary")
	}
	return multipart.NewReader(body, boundary), nil
}

// Read decodes the next JPEG part.
func (m *MJPEGSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	part, err := m.reader.NextPart()
	if errors.Is(err, io.EOF) {
		return nil, ErrEndOfStream
	}
	if err != nil {
		return nil, fmt.Errorf("read stream part: %w", err)
	}
	defer part.Close()

	img, err := jpeg.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("decode stream frame: %w", err)
	}
	return img, nil
}

// Close drops the connection.
func (m *MJPEGSource) Close() error {
	return m.body.Close()
}
