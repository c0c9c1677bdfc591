package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/notifyhub/cogbot/internal/domain"
)

// ytdlpInfo is the subset of yt-dlp's JSON dump that we use.
type ytdlpInfo struct {
	Title      string      `json:"title"`
	URL        string      `json:"url"`
	WebpageURL string      `json:"webpage_url"`
	Duration   float64     `json:"duration"`
	Entries    []ytdlpInfo `json:"entries"`
}

// YTDLPResolver resolves queries by running the yt-dlp binary. Free text is
// searched; playlists resolve to their first entry.
type YTDLPResolver struct {
	path    string
	timeout time.Duration
}

func NewYTDLPResolver(path string, timeout time.Duration) *YTDLPResolver {
	return &YTDLPResolver{path: path, timeout: timeout}
}

func (r *YTDLPResolver) Resolve(ctx context.Context, query string) (domain.Track, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.path, resolveArgs(query)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return domain.Track{}, fmt.Errorf("yt-dlp %q: %s", query, msg)
	}

	return parseYTDLP(stdout.Bytes())
}

func resolveArgs(query string) []string {
	return []string{
		"--dump-single-json",
		"--format", "bestaudio/best",
		"--no-playlist",
		"--no-warnings",
		"--quiet",
		"--default-search", "ytsearch",
		"--force-ipv4",
		query,
	}
}

func parseYTDLP(out []byte) (domain.Track, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return domain.Track{}, fmt.Errorf("decode yt-dlp output: %w", err)
	}
	if len(info.Entries) > 0 {
		info = info.Entries[0]
	}
	if info.URL == "" {
		return domain.Track{}, fmt.Errorf("yt-dlp returned no stream for %q: %w", info.Title, domain.ErrNotFound)
	}

	return domain.Track{
		Title:     info.Title,
		StreamURL: info.URL,
		PageURL:   info.WebpageURL,
		Duration:  time.Duration(info.Duration * float64(time.Second)),
		Source:    domain.SourceMusic,
	}, nil
}

var _ Resolver = (*YTDLPResolver)(nil)
