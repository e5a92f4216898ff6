package ytdlp

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

// stubCommand remplace commandContext par un faux binaire qui capture les
// arguments et rejoue une sortie fixe.
func stubCommand(t *testing.T, stdout string, exitCode int) *[][]string {
	t.Helper()
	var calls [][]string
	orig := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		calls = append(calls, append([]string{name}, args...))
		script := "printf '%s' " + shellQuote(stdout)
		if exitCode != 0 {
			script = "echo 'ERROR: Video unavailable' >&2; exit 1"
		}
		return exec.CommandContext(ctx, "sh", "-c", script)
	}
	t.Cleanup(func() { commandContext = orig })
	return &calls
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func TestFetchMetadata_ParsesDump(t *testing.T) {
	calls := stubCommand(t, `{"title":"A Video","description":"text","duration":125.7,"upload_date":"20240115","uploader":"Chan"}`, 0)

	meta, err := NewCLI().FetchMetadata(context.Background(), "https://youtube.com/watch?v=x")
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}

	if meta.Title != "A Video" || meta.Uploader != "Chan" {
		t.Fatalf("metadata fields: got %+v", meta)
	}
	if meta.DurationSeconds != 125 {
		t.Fatalf("duration must truncate to seconds: want 125, got %d", meta.DurationSeconds)
	}
	if meta.UploadDate != "20240115" {
		t.Fatalf("upload date: got %q", meta.UploadDate)
	}

	if len(*calls) != 1 {
		t.Fatalf("want 1 invocation, got %d", len(*calls))
	}
	args := (*calls)[0]
	if args[0] != "yt-dlp" {
		t.Fatalf("binary: want yt-dlp, got %q", args[0])
	}
	for _, flag := range []string{"--dump-single-json", "--no-download", "--no-playlist"} {
		if !contains(args, flag) {
			t.Fatalf("missing flag %q in %v", flag, args)
		}
	}
}

func TestFetchMetadata_CommandFailure(t *testing.T) {
	stubCommand(t, "", 1)

	_, err := NewCLI().FetchMetadata(context.Background(), "https://youtube.com/watch?v=x")
	if err == nil {
		t.Fatalf("expected error on non-zero exit")
	}
	if !strings.Contains(err.Error(), "Video unavailable") {
		t.Fatalf("error must carry the stderr first line, got %v", err)
	}
}

func TestFetchMetadata_GarbageOutput(t *testing.T) {
	stubCommand(t, "not json at all", 0)

	_, err := NewCLI().FetchMetadata(context.Background(), "https://youtube.com/watch?v=x")
	if err == nil || !strings.Contains(err.Error(), "parse yt-dlp output") {
		t.Fatalf("want parse error, got %v", err)
	}
}

func TestFetchMetadata_RequiresURL(t *testing.T) {
	calls := stubCommand(t, "{}", 0)
	if _, err := NewCLI().FetchMetadata(context.Background(), ""); err == nil {
		t.Fatalf("empty URL must be rejected")
	}
	if len(*calls) != 0 {
		t.Fatalf("empty URL must not invoke the binary")
	}
}

func TestDownloadAudio_Flags(t *testing.T) {
	calls := stubCommand(t, "", 0)

	if err := NewCLI().DownloadAudio(context.Background(), "https://youtube.com/watch?v=x", "/tmp/episodes/alice"); err != nil {
		t.Fatalf("DownloadAudio: %v", err)
	}

	args := (*calls)[0]
	for _, flag := range []string{"--format", "bestaudio/best", "--extract-audio", "--audio-format", "mp3", "--audio-quality", "192K", "--no-playlist"} {
		if !contains(args, flag) {
			t.Fatalf("missing flag %q in %v", flag, args)
		}
	}
	if !contains(args, "/tmp/episodes/alice/%(title)s.%(ext)s") {
		t.Fatalf("output template missing in %v", args)
	}
}

func TestDownloadAudio_RequiresDestDir(t *testing.T) {
	calls := stubCommand(t, "", 0)
	if err := NewCLI().DownloadAudio(context.Background(), "https://youtube.com/watch?v=x", "  "); err == nil {
		t.Fatalf("blank destination must be rejected")
	}
	if len(*calls) != 0 {
		t.Fatalf("blank destination must not invoke the binary")
	}
}

func TestWithBinary(t *testing.T) {
	calls := stubCommand(t, "{}", 0)
	cli := NewCLI(WithBinary("/opt/yt-dlp/yt-dlp"))
	if _, err := cli.FetchMetadata(context.Background(), "https://youtube.com/watch?v=x"); err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if (*calls)[0][0] != "/opt/yt-dlp/yt-dlp" {
		t.Fatalf("binary override: got %q", (*calls)[0][0])
	}
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}
