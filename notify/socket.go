package notify

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
)

// MaxSocketPayload bounds one notification written to the Unix socket.
const MaxSocketPayload = 32 * 1024

// SocketTimeout is the timeout for Unix socket operations
var SocketTimeout = 3 * time.Second

// SendToSocket writes notification to a listener on a Unix domain socket: a 4 byte little-endian length,
// then the JSON payload. The listener may answer with a JSON object carrying "error".
func SendToSocket(socketPath string, notification *types.Notification) error {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return fmt.Errorf("unix socket not found: %s", socketPath)
	}

	payload, err := sonic.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %w", err)
	}
	if len(payload) > MaxSocketPayload {
		return fmt.Errorf("notification payload too large: %d bytes (max %d)", len(payload), MaxSocketPayload)
	}

	conn, err := net.DialTimeout("unix", socketPath, SocketTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to unix socket %s: %w", socketPath, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Errorf("[Notify] Failed to close unix socket connection: %v", err)
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(SocketTimeout)); err != nil {
		tool.DefaultLogger.Errorf("[Notify] Failed to set socket deadline: %v", err)
	}

	frame := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("failed to write to unix socket: %w", err)
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read response from unix socket: %w", err)
	}
	if n > 0 {
		var response map[string]any
		if err := sonic.Unmarshal(buf[:n], &response); err != nil {
			tool.DefaultLogger.Debugf("[Notify] Unix socket response (raw): %s", buf[:n])
		} else if errMsg, ok := response["error"].(string); ok && errMsg != "" {
			return fmt.Errorf("listener returned error: %s", errMsg)
		}
	}
	tool.DefaultLogger.Debugf("[Notify] Sent %s to %s", notification.Type, socketPath)
	return nil
}
