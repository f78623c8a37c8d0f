package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
)

// ProgressFunc is called during download with bytes downloaded and total
type ProgressFunc func(downloaded, total int64)

var httpClient = http.DefaultClient

// IsInstalled returns true if the model is downloaded and available
func IsInstalled(modelID string) bool {
	path := GetModelPath(modelID)
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// ListInstalled returns IDs of all installed models
func ListInstalled() []string {
	var installed []string
	for _, m := range models {
		if IsInstalled(m.ID) {
			installed = append(installed, m.ID)
		}
	}
	return installed
}

// partialPath is where an interrupted download is kept for resuming.
func partialPath(dest string) string {
	return dest + ".part"
}

// Download fetches a model from huggingface and returns its path. An
// interrupted download leaves a .part file that the next call resumes
// with a Range request. Progress callback is optional (can be nil).
func Download(ctx context.Context, modelID string, onProgress ProgressFunc) (string, error) {
	info := GetModel(modelID)
	if info == nil {
		return "", fmt.Errorf("unknown model: %s", modelID)
	}

	dir, err := GetModelsDir()
	if err != nil {
		return "", fmt.Errorf("failed to get models directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}

	destPath := filepath.Join(dir, info.Filename)
	if IsInstalled(modelID) {
		return destPath, nil
	}

	err = fetch(ctx, GetDownloadURL(modelID), destPath, info.SizeBytes, onProgress)
	if errors.Is(err, errRangeNotSatisfiable) {
		// stale or oversized partial file: start over once
		log.Warn().Str("model", modelID).Msg("partial download rejected by server, restarting")
		os.Remove(partialPath(destPath))
		err = fetch(ctx, GetDownloadURL(modelID), destPath, info.SizeBytes, onProgress)
	}
	if err != nil {
		return "", err
	}
	return destPath, nil
}

var errRangeNotSatisfiable = errors.New("range not satisfiable")

func fetch(ctx context.Context, url, destPath string, expected int64, onProgress ProgressFunc) error {
	partPath := partialPath(destPath)

	var existing int64
	if st, err := os.Stat(partPath); err == nil {
		existing = st.Size()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat partial download: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if existing > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(existing, 10)+"-")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusPartialContent:
		flags |= os.O_APPEND
		log.Info().Int64("offset", existing).Msg("resuming download")
	case http.StatusOK:
		// server ignored the range; start from zero
		existing = 0
		flags |= os.O_TRUNC
	case http.StatusRequestedRangeNotSatisfiable:
		return errRangeNotSatisfiable
	default:
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	total := resp.ContentLength
	if total >= 0 {
		total += existing
	} else {
		total = expected // fall back to expected size
	}

	out, err := os.OpenFile(partPath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open partial file: %w", err)
	}

	downloaded := existing
	if onProgress != nil {
		onProgress(downloaded, total)
	}

	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			out.Close()
			return err
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				out.Close()
				return fmt.Errorf("failed to write: %w", err)
			}
			downloaded += int64(n)
			if onProgress != nil {
				onProgress(downloaded, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			return fmt.Errorf("download interrupted: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if resp.ContentLength >= 0 && downloaded != total {
		return fmt.Errorf("download incomplete: %d of %d bytes", downloaded, total)
	}

	if err := os.Rename(partPath, destPath); err != nil {
		return fmt.Errorf("failed to finalize download: %w", err)
	}
	return nil
}

// Remove deletes a downloaded model and any partial download.
func Remove(modelID string) error {
	info := GetModel(modelID)
	if info == nil {
		return fmt.Errorf("unknown model: %s", modelID)
	}

	path := GetModelPath(modelID)
	if path == "" {
		return fmt.Errorf("failed to get model path")
	}
	os.Remove(partialPath(path))

	if !IsInstalled(modelID) {
		return fmt.Errorf("model not installed: %s", modelID)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}

	return nil
}

// GetInstalledPath returns the path to an installed model, or error if not installed
func GetInstalledPath(modelID string) (string, error) {
	if !IsInstalled(modelID) {
		return "", fmt.Errorf("model not installed: %s", modelID)
	}
	return GetModelPath(modelID), nil
}
