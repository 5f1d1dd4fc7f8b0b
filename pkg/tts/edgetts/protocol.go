package edgetts

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const headerSep = "\r\n\r\n"

// exchange sends the speech config and the SSML request, then copies audio
// frames to w until turn.end. It returns the number of audio bytes written.
func (p *Provider) exchange(ctx context.Context, conn *websocket.Conn, ssml string, w io.Writer) (int64, error) {
	stamp := p.now().UTC().Format(time.RFC1123)
	speechConfig := textFrame(map[string]string{
		"X-Timestamp":  stamp,
		"Content-Type": "application/json; charset=utf-8",
		"Path":         "speech.config",
	}, `{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"`+p.opts.OutputFormat+`"}}}}`)
	if err := conn.WriteMessage(websocket.TextMessage, speechConfig); err != nil {
		return 0, fmt.Errorf("failed to send speech.config: %w", err)
	}

	ssmlFrame := textFrame(map[string]string{
		"X-RequestId":  strings.ReplaceAll(uuid.New().String(), "-", ""),
		"X-Timestamp":  stamp,
		"Content-Type": "application/ssml+xml",
		"Path":         "ssml",
	}, ssml)
	if err := conn.WriteMessage(websocket.TextMessage, ssmlFrame); err != nil {
		return 0, fmt.Errorf("failed to send ssml: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	var written int64
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			return written, fmt.Errorf("read message failed: %w", err)
		}
		switch kind {
		case websocket.TextMessage:
			if headers, _ := parseTextFrame(data); headers["Path"] == "turn.end" {
				return written, nil
			}
		case websocket.BinaryMessage:
			n, err := writeAudioFrame(data, w)
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
	}
}

// textFrame renders headers in a stable order, Path last, followed by body.
func textFrame(headers map[string]string, body string) []byte {
	var b strings.Builder
	for _, k := range []string{"X-RequestId", "X-Timestamp", "Content-Type"} {
		if v, ok := headers[k]; ok {
			b.WriteString(k + ":" + v + "\r\n")
		}
	}
	b.WriteString("Path:" + headers["Path"] + headerSep)
	b.WriteString(body)
	return []byte(b.String())
}

// parseTextFrame splits a service text message into its headers and body.
func parseTextFrame(data []byte) (map[string]string, []byte) {
	head, body, _ := bytes.Cut(data, []byte(headerSep))
	headers := make(map[string]string)
	for _, line := range strings.Split(string(head), "\r\n") {
		if k, v, ok := strings.Cut(line, ":"); ok {
			headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return headers, body
}

// writeAudioFrame writes the payload of a binary message: a big-endian
// uint16 header length, the header, then audio bytes. Truncated frames are
// ignored.
func writeAudioFrame(data []byte, w io.Writer) (int, error) {
	if len(data) < 2 {
		return 0, nil
	}
	start := 2 + int(binary.BigEndian.Uint16(data))
	if len(data) <= start {
		return 0, nil
	}
	n, err := w.Write(data[start:])
	if err != nil {
		return n, fmt.Errorf("write audio data failed: %w", err)
	}
	return n, nil
}

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

// buildSSML wraps text for voice. The document language is taken from the
// voice ID ("en-GB-SoniaNeural" speaks en-GB).
func buildSSML(voice, rate, text string) string {
	lang := "en-US"
	if parts := strings.SplitN(voice, "-", 3); len(parts) == 3 {
		lang = parts[0] + "-" + parts[1]
	}
	body := ssmlEscaper.Replace(text)
	if rate != "" {
		body = fmt.Sprintf("<prosody rate='%s'>%s</prosody>", ssmlEscaper.Replace(rate), body)
	}
	return fmt.Sprintf("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice name='%s'>%s</voice></speak>",
		lang, ssmlEscaper.Replace(voice), body)
}
