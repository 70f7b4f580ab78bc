package capture

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// MJPEGDevice reads frames from a motion-JPEG HTTP stream, the transport
// spoken by IP cameras and by the desktop frame relay. Each multipart
// part is one JPEG frame.
type MJPEGDevice struct {
	url    string
	resp   *http.Response
	reader *multipart.Reader
}

// NewMJPEGOpener returns an OpenFunc that connects to numbered streams
// under baseURL, e.g. http://camera.local/stream/0.
func NewMJPEGOpener(baseURL string) OpenFunc {
	return func(sourceID int) (Device, error) {
		return OpenMJPEG(fmt.Sprintf("%s/%d", strings.TrimRight(baseURL, "/"), sourceID))
	}
}

// OpenMJPEG connects to an MJPEG stream URL.
func OpenMJPEG(url string) (*MJPEGDevice, error) {
	client := &http.Client{Timeout: 0} // streaming; per-read deadlines don't apply
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("connect mjpeg stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("mjpeg stream %s: status %d", url, resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		resp.Body.Close()
		return nil, fmt.Errorf("mjpeg stream %s: unexpected content type %q", url, resp.Header.Get("Content-Type"))
	}

	return &MJPEGDevice{
		url:    url,
		resp:   resp,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

// Read returns the next JPEG frame from the stream.
func (d *MJPEGDevice) Read() (*Frame, error) {
	part, err := d.reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("next mjpeg part: %w", err)
	}
	defer part.Close()

	pixels, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("read mjpeg part: %w", err)
	}
	if len(pixels) == 0 {
		return nil, fmt.Errorf("empty mjpeg part")
	}

	return &Frame{
		Pixels:    pixels,
		Timestamp: time.Now(),
	}, nil
}

func (d *MJPEGDevice) Close() error {
	return d.resp.Body.Close()
}
