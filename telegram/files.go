package telegram

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/moyoez/sora-history-bot/types"
)

type getFileRequest struct {
	FileID string `json:"file_id"`
}

// FilePath resolves a file_id to its download path. Paths are cached while Telegram keeps them valid.
func (c *Client) FilePath(ctx context.Context, fileID string) (string, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return "", fmt.Errorf("missing file_id")
	}
	if path := c.filePaths.Get(fileID); path != "" {
		return path, nil
	}
	file, err := call[types.File](ctx, c, "getFile", getFileRequest{FileID: fileID})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(file.FilePath) == "" {
		return "", fmt.Errorf("telegram getFile: missing file_path")
	}
	c.filePaths.Set(fileID, file.FilePath)
	return file.FilePath, nil
}

// OpenFile streams the content of an uploaded file. The caller closes the reader.
func (c *Client) OpenFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	path, err := c.FilePath(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	url := c.baseURL + "/file/bot" + c.token + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, c.redact(err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, c.redact(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			c.filePaths.Delete(fileID)
		}
		return nil, &APIError{Method: "download", StatusCode: resp.StatusCode, Description: strings.TrimSpace(string(raw))}
	}
	return resp.Body, nil
}

// SendVideo uploads a local file as a streamable video. The body is produced through a pipe so the file is
// never held in memory.
func (c *Client) SendVideo(ctx context.Context, chatID int64, path, caption string) error {
	_, err := withRetry(ctx, c, "sendVideo", func() (*types.Message, error) {
		return c.sendVideoOnce(ctx, chatID, path, caption)
	})
	return err
}

func (c *Client) sendVideoOnce(ctx context.Context, chatID int64, path, caption string) (*types.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", path)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer pw.Close()
		defer mw.Close()

		_ = mw.WriteField("chat_id", strconv.FormatInt(chatID, 10))
		_ = mw.WriteField("supports_streaming", "true")
		if caption != "" {
			_ = mw.WriteField("caption", caption)
		}
		part, err := mw.CreateFormFile("video", filepath.Base(path))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendVideo"), pr)
	if err != nil {
		_ = pr.Close()
		return nil, c.redact(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	msg, err := do[*types.Message](c, "sendVideo", req)
	// unblock the writer goroutine if the server answered before reading everything
	_ = pr.Close()
	return msg, err
}
