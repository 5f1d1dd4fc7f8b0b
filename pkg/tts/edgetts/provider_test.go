package edgetts

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"explainergo/pkg/tracker"
	"explainergo/pkg/tts"
)

func TestWriteAudioFrame(t *testing.T) {
	var buf bytes.Buffer

	header := []byte("info")
	audio := []byte{0x01, 0x02, 0x03, 0x04}
	data := append([]byte{0x00, 0x04}, header...)
	data = append(data, audio...)

	n, err := writeAudioFrame(data, &buf)
	if err != nil || n != len(audio) {
		t.Errorf("writeAudioFrame = %d, %v", n, err)
	}
	if !bytes.Equal(buf.Bytes(), audio) {
		t.Errorf("Expected audio data %v, got %v", audio, buf.Bytes())
	}

	for _, short := range [][]byte{{0x00}, {0x00, 0x09, 'a'}, {0x00, 0x01, 'a'}} {
		if n, err := writeAudioFrame(short, &buf); n != 0 || err != nil {
			t.Errorf("frame %v should be ignored, got %d, %v", short, n, err)
		}
	}
}

func TestTextFrames(t *testing.T) {
	frame := textFrame(map[string]string{"Path": "ssml", "X-RequestId": "abc", "Content-Type": "application/ssml+xml"}, "<speak/>")
	if want := "X-RequestId:abc\r\nContent-Type:application/ssml+xml\r\nPath:ssml\r\n\r\n<speak/>"; string(frame) != want {
		t.Errorf("textFrame = %q", frame)
	}

	headers, body := parseTextFrame([]byte("X-RequestId:1\r\nPath: turn.end\r\n\r\n{}"))
	if headers["Path"] != "turn.end" || headers["X-RequestId"] != "1" || string(body) != "{}" {
		t.Errorf("parseTextFrame = %v, %q", headers, body)
	}
}

func TestBuildSSML(t *testing.T) {
	tests := []struct {
		name  string
		voice string
		rate  string
		text  string
		want  []string
	}{
		{"Normal text", "en-US-GuyNeural", "", "Hello world", []string{"Hello world", "xml:lang='en-US'", "name='en-US-GuyNeural'"}},
		{"Ampersand", "en-US-GuyNeural", "", "Ben & Jerry's", []string{"Ben &amp; Jerry&apos;s"}},
		{"Tags", "en-US-GuyNeural", "", "<speak>Hello</speak>", []string{"&lt;speak&gt;Hello&lt;/speak&gt;"}},
		{"Quotes", "en-US-GuyNeural", "", `She said "Hello"`, []string{`She said &quot;Hello&quot;`}},
		{"Language from voice", "en-GB-SoniaNeural", "", "Cheers", []string{"xml:lang='en-GB'"}},
		{"Rate", "en-US-AriaNeural", "+10%", "Faster", []string{"<prosody rate='+10%'>Faster</prosody>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSSML(tt.voice, tt.rate, tt.text)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("buildSSML() = %v, expected to contain %v", got, w)
				}
			}
			if tt.rate == "" && strings.Contains(got, "prosody") {
				t.Error("prosody added without a rate")
			}
		})
	}
}

func TestGenerateSecMSGec(t *testing.T) {
	p := NewProvider(Options{TrustedClientToken: "abc"}, nil, nil)
	fixed := time.Date(2024, 5, 1, 12, 2, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	token := p.generateSecMSGec()
	if len(token) != 64 {
		t.Errorf("Expected token length 64, got %d", len(token))
	}

	// Same five-minute window yields the same token.
	p.now = func() time.Time { return fixed.Add(2 * time.Minute) }
	if got := p.generateSecMSGec(); got != token {
		t.Errorf("token changed within window: %s vs %s", got, token)
	}
}

func TestSynthesize_NotConfigured(t *testing.T) {
	for _, env := range []string{"EDGE_TTS_BASE_URL", "EDGE_TTS_ORIGIN", "EDGE_TTS_USER_AGENT", "EDGE_TTS_TRUSTED_CLIENT_TOKEN", "EDGE_TTS_SEC_MS_GEC_VERSION"} {
		t.Setenv(env, "")
	}
	p := NewProvider(Options{}, nil, nil)
	_, err := p.Synthesize(context.Background(), "hi", "en-US-GuyNeural", filepath.Join(t.TempDir(), "a.mp3"))
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("expected configuration error, got %v", err)
	}

	_, err = p.Synthesize(context.Background(), "hi", "", "x.mp3")
	if err == nil {
		t.Error("expected error for missing voice")
	}
}

func fakeEdgeServer(t *testing.T, audio []byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("TrustedClientToken") != "tok" {
			http.Error(w, "bad token", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// speech.config, then ssml
		for i := 0; i < 2; i++ {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
		header := []byte("Path:audio\r\n")
		msg := append([]byte{0x00, byte(len(header))}, header...)
		msg = append(msg, audio...)
		_ = conn.WriteMessage(websocket.BinaryMessage, msg)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("X-RequestId:1\r\nPath:turn.end\r\n\r\n{}"))
	}))
}

func TestSynthesize_FakeServer(t *testing.T) {
	audio := bytes.Repeat([]byte{0xAB}, 2048)
	srv := fakeEdgeServer(t, audio)
	defer srv.Close()

	tr := tracker.New()
	logPath := filepath.Join(t.TempDir(), "tts.log")
	p := NewProvider(Options{
		BaseURL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		Origin:             "chrome-extension://test",
		UserAgent:          "test",
		TrustedClientToken: "tok",
		SecMSGecVersion:    "1-0",
	}, tr, tts.NewPromptLog(logPath))

	out := filepath.Join(t.TempDir(), "scene_01")
	format, err := p.Synthesize(context.Background(), "Narrator: Hello", "en-US-GuyNeural", out)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if format != "mp3" {
		t.Errorf("format = %s, want mp3", format)
	}

	data, err := os.ReadFile(out + ".mp3")
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if !bytes.Equal(data, audio) {
		t.Errorf("audio mismatch: got %d bytes", len(data))
	}
	if err := tts.VerifyAudioFile(out + ".mp3"); err != nil {
		t.Errorf("VerifyAudioFile: %v", err)
	}
	if tmp, _ := filepath.Glob(filepath.Join(filepath.Dir(out), ".edgetts-*")); len(tmp) != 0 {
		t.Errorf("temp files left behind: %v", tmp)
	}
	if got := tr.Snapshot()[providerName].APISuccess; got != 1 {
		t.Errorf("APISuccess = %d, want 1", got)
	}
	logData, _ := os.ReadFile(logPath)
	if strings.Contains(string(logData), "Narrator:") {
		t.Error("speaker label should be stripped before synthesis")
	}
}

func TestVoices(t *testing.T) {
	p := NewProvider(Options{}, nil, nil)
	voices, err := p.Voices(context.TODO())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	found := false
	for _, v := range voices {
		if v.ID == "en-US-GuyNeural" {
			found = true
			break
		}
	}
	if !found {
		t.Error("Default voice not found in list")
	}
}
