package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Frame is one decoded SSE payload from the roast stream.
type Frame struct {
	Text      string `json:"text"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// ErrStreamTruncated reports a stream that ended without the terminal
// marker. Truncated text must not be cached.
var ErrStreamTruncated = errors.New("stream ended without completion marker")

// ReadStream consumes newline-delimited "data: <json>" frames until the
// [DONE] sentinel, invoking onFrame for each decoded frame and returning
// the reassembled text plus any avatar URL carried in the frames.
func ReadStream(r io.Reader, onFrame func(Frame) error) (string, string, error) {
	var text strings.Builder
	var avatarURL string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return text.String(), avatarURL, nil
		}

		var frame Frame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			// Malformed frames are skipped, matching a tolerant consumer.
			continue
		}
		if frame.Text == "" {
			continue
		}
		text.WriteString(frame.Text)
		if frame.AvatarURL != "" {
			avatarURL = frame.AvatarURL
		}
		if onFrame != nil {
			if err := onFrame(frame); err != nil {
				return text.String(), avatarURL, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return text.String(), avatarURL, fmt.Errorf("failed to read stream: %w", err)
	}
	return text.String(), avatarURL, ErrStreamTruncated
}
