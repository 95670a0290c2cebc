package output

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

const imageTimeout = 20 * time.Second

// maxImageSize caps a single downloaded image (32 MiB).
const maxImageSize = 32 << 20

// DownloadImages fetches every entry of an image list produced by a
// conversion and stores it under the writer's output directory at the
// filename the converter issued. The converter itself never touches
// the network; this is the collaborator that does. Individual failures
// are logged and skipped, and the count of saved images is returned.
func (w *Writer) DownloadImages(ctx context.Context, imageList map[string]string) (int, error) {
	if len(imageList) == 0 {
		return 0, nil
	}
	client := &http.Client{Timeout: imageTimeout}

	saved := 0
	for src, name := range imageList {
		if err := w.downloadOne(ctx, client, src, name); err != nil {
			log.Warn().Str("src", src).Err(err).Msg("image download failed")
			continue
		}
		saved++
	}
	return saved, nil
}

func (w *Writer) downloadOne(ctx context.Context, client *http.Client, src, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	path := filepath.Join(w.OutputDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating image directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxImageSize)); err != nil {
		return fmt.Errorf("writing image bytes: %w", err)
	}
	return nil
}
