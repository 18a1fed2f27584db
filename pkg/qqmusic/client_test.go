package qqmusic

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lyrics-collector/pkg/source"
	"lyrics-collector/pkg/transport"
)

const lyricText = "[ti:青花瓷]\n[00:00.00]青花瓷 (Live) (Remix)\n[00:05.00]素胚勾勒出青花笔意"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.SearchURL = server.URL + "/search"
	cfg.LyricURL = server.URL + "/lyric"
	cfg.HTTP = transport.Config{Timeout: time.Second}
	return NewClient(cfg)
}

func TestDecodeJSONP(t *testing.T) {
	var resp LyricResponse

	// JSON 内部带括号，必须贪婪匹配到最后的右括号
	body := `MusicJsonCallback({"code":0,"lyric":"a (b) (c)) d"});`
	if err := decodeJSONP([]byte(body), &resp); err != nil {
		t.Fatalf("decodeJSONP failed: %v", err)
	}
	if resp.Lyric != "a (b) (c)) d" {
		t.Errorf("unexpected lyric %q", resp.Lyric)
	}

	resp = LyricResponse{}
	if err := decodeJSONP([]byte(`  {"code":0,"lyric":"raw"}  `), &resp); err != nil || resp.Lyric != "raw" {
		t.Errorf("raw JSON not decoded: %v %+v", err, resp)
	}

	if err := decodeJSONP([]byte("<html>blocked</html>"), &resp); err == nil {
		t.Error("expected error for non JSON payload")
	}
}

func TestDecodeLyric(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(lyricText))
	if got := decodeLyric(encoded); got != lyricText {
		t.Errorf("decodeLyric(base64) = %q", got)
	}

	raw := "[00:01.00]不是base64"
	if got := decodeLyric(raw); got != raw {
		t.Errorf("expected raw fallback, got %q", got)
	}
}

// TestSearchCandidatesCallback 搜索与歌词都使用回调包裹
func TestSearchCandidatesCallback(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(lyricText))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") == "" {
			t.Error("expected Referer header")
		}
		switch r.URL.Path {
		case "/search":
			q := r.URL.Query()
			if q.Get("w") != "周杰伦 青花瓷" || q.Get("g_tk") != "5381" {
				t.Errorf("unexpected search params %s", r.URL.RawQuery)
			}
			w.Write([]byte(`callback({"code":0,"data":{"song":{"list":[
				{"songmid":"003","songname":"青花瓷","singer":[{"name":"周杰伦"}]},
				{"songname":"no mid","singer":[{"name":"周杰伦"}]}
			]}}})`))
		case "/lyric":
			if r.URL.Query().Get("songmid") != "003" {
				t.Errorf("unexpected songmid %s", r.URL.Query().Get("songmid"))
			}
			w.Write([]byte(`MusicJsonCallback({"retcode":0,"code":0,"lyric":"` + encoded + `"})`))
		}
	})

	cands, err := client.SearchCandidates(context.Background(), "周杰伦", "青花瓷")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].Source != source.QQMusic || cands[0].FullLyrics != lyricText || cands[0].Score < 50 {
		t.Errorf("unexpected candidate %+v", cands[0])
	}
}

// TestSearchCandidatesInvalidBase64 base64 无效时保留原文，不丢弃候选
func TestSearchCandidatesInvalidBase64(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			w.Write([]byte(`{"code":0,"data":{"song":{"list":[{"mid":"m1","name":"Song","singer":[{"name":"Artist"}]}]}}}`))
		case "/lyric":
			w.Write([]byte(`{"code":0,"lyric":"plain text lyrics !!"}`))
		}
	})

	cands, err := client.SearchCandidates(context.Background(), "Artist", "Song")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 || cands[0].FullLyrics != "plain text lyrics !!" {
		t.Fatalf("expected raw lyric fallback, got %+v", cands)
	}
}

func TestSearchCandidatesNoSongs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/lyric" {
			t.Error("lyrics should not be fetched")
		}
		w.Write([]byte(`callback({"code":0,"data":{}})`))
	})

	cands, err := client.SearchCandidates(context.Background(), "Artist", "Song")
	if err != nil || len(cands) != 0 {
		t.Errorf("expected empty result, got %v %v", cands, err)
	}
}
