package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/dshills/flowscribe/internal/cache"
	"github.com/dshills/flowscribe/internal/config"
)

// resetFlags resets all package-level flag variables to their zero values.
func resetFlags() {
	flagOut = ""
	flagFormat = ""
	flagImageDir = ""
	flagVideos = false
	flagNoCache = false
	flagCacheDir = ""
	flagModel = ""
	flagVariations = 0
	flagMetricsFile = ""
	flagNoRedact = false
	flagLogLevel = ""
	flagPartition = ""
	exitCode = ExitSuccess
}

// isolateEnv points config, cache and credentials at a temp dir.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_CACHE_HOME", dir)
	t.Setenv("FLOWSCRIBE_CONFIG", "")
	t.Setenv("FLOWSCRIBE_CACHE_DIR", "")
	t.Setenv("FLOWSCRIBE_BASE_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	return dir
}

// --- buildOverrides tests ---

func TestBuildOverrides_NoFlags(t *testing.T) {
	resetFlags()
	m := buildOverrides()
	if len(m) != 0 {
		t.Errorf("buildOverrides() with no flags = %v, want empty map", m)
	}
}

func TestBuildOverrides_AllFlags(t *testing.T) {
	resetFlags()
	flagOut = "out.md"
	flagFormat = "json"
	flagImageDir = "imgs"
	flagVideos = true
	flagNoCache = true
	flagCacheDir = "/tmp/c"
	flagModel = "gpt-4o"
	flagVariations = 2
	flagMetricsFile = "m.prom"
	flagNoRedact = true
	flagLogLevel = "debug"
	defer resetFlags()

	want := map[string]string{
		"report.out":            "out.md",
		"report.format":         "json",
		"report.imageDir":       "imgs",
		"report.analyzeVideos":  "true",
		"cache.enabled":         "false",
		"cache.dir":             "/tmp/c",
		"models.chat":           "gpt-4o",
		"image.variations":      "2",
		"metricsFile":           "m.prom",
		"privacy.redactSecrets": "false",
		"log.level":             "debug",
	}
	got := buildOverrides()
	if len(got) != len(want) {
		t.Fatalf("buildOverrides() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("overrides[%q] = %q, want %q", k, got[k], v)
		}
	}

	// Every override key must be accepted by the config layer.
	cfg := config.Default()
	for k, v := range got {
		if err := config.SetField(&cfg, k, v); err != nil {
			t.Errorf("SetField(%q, %q) error: %v", k, v, err)
		}
	}
}

// --- version command tests ---

func TestVersionCmd_Execute(t *testing.T) {
	if err := versionCmd.Execute(); err != nil {
		t.Errorf("version command returned error: %v", err)
	}
}

// --- models command tests ---

func TestModelsListCmd_Execute(t *testing.T) {
	isolateEnv(t)
	modelsCmd.SetArgs([]string{"list"})
	if err := modelsCmd.Execute(); err != nil {
		t.Errorf("models list command returned error: %v", err)
	}
}

func TestModelsDoctor_NoKey(t *testing.T) {
	resetFlags()
	dir := isolateEnv(t)
	t.Setenv("FLOWSCRIBE_CONFIG", filepath.Join(dir, "config.yaml"))
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("secretsFile: "+filepath.Join(dir, "missing.yaml")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	modelsCmd.SetArgs([]string{"doctor"})
	if err := modelsCmd.Execute(); err != nil {
		t.Fatalf("models doctor returned error: %v", err)
	}
	if exitCode != ExitAuthError {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitAuthError)
	}
}

// --- config command tests ---

func TestConfigInit_CreatesFile(t *testing.T) {
	resetFlags()
	tmpDir := isolateEnv(t)

	configCmd.SetArgs([]string{"init"})
	if err := configCmd.Execute(); err != nil {
		t.Fatalf("config init returned error: %v", err)
	}

	configPath := filepath.Join(tmpDir, "flowscribe", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config init did not create config.yaml: %v", err)
	}
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config file is not valid YAML: %v", err)
	}
	if cfg.Models.Chat == "" {
		t.Error("config file has empty chat model")
	}
}

func TestConfigInit_AlreadyExists(t *testing.T) {
	resetFlags()
	tmpDir := isolateEnv(t)

	cfgDir := filepath.Join(tmpDir, "flowscribe")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	original := []byte("models:\n  chat: custom-model\n")
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), original, 0o644); err != nil {
		t.Fatal(err)
	}

	configCmd.SetArgs([]string{"init"})
	if err := configCmd.Execute(); err != nil {
		t.Fatalf("config init with existing file returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfgDir, "config.yaml"))
	if err != nil {
		t.Fatalf("cannot read config file: %v", err)
	}
	if string(data) != string(original) {
		t.Errorf("config init overwrote existing file:\n%s", data)
	}
}

func TestConfigSet_UpdatesFile(t *testing.T) {
	resetFlags()
	tmpDir := isolateEnv(t)

	configCmd.SetArgs([]string{"set", "image.variations", "2"})
	if err := configCmd.Execute(); err != nil {
		t.Fatalf("config set returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "flowscribe", "config.yaml"))
	if err != nil {
		t.Fatalf("cannot read config file: %v", err)
	}
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config file is not valid YAML: %v", err)
	}
	if cfg.Image.Variations != 2 {
		t.Errorf("image.variations = %d, want 2", cfg.Image.Variations)
	}
	if cfg.Models.Chat != "gpt-4o-mini" {
		t.Errorf("defaults not preserved: models.chat = %q", cfg.Models.Chat)
	}
}

func TestConfigSet_InvalidKey(t *testing.T) {
	resetFlags()
	isolateEnv(t)

	configCmd.SetArgs([]string{"set", "unknownKey", "value"})
	if err := configCmd.Execute(); err == nil {
		t.Error("config set with invalid key should return error")
	}
}

func TestConfigSet_MissingArgs(t *testing.T) {
	resetFlags()

	configCmd.SetArgs([]string{"set", "provider"})
	if err := configCmd.Execute(); err == nil {
		t.Error("config set with 1 arg should return error (requires 2)")
	}
}

func TestConfigShow_Execute(t *testing.T) {
	resetFlags()
	isolateEnv(t)

	configCmd.SetArgs([]string{"show"})
	if err := configCmd.Execute(); err != nil {
		t.Errorf("config show returned error: %v", err)
	}
}

// --- cache command tests ---

func seedCache(t *testing.T, dir string) *cache.Store {
	t.Helper()
	s, err := cache.New(cache.Options{Enabled: true, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(cache.Params{"request_type": "chat", "model": "m"}, map[string]any{"ok": true}, cache.PartitionText); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(cache.Params{"request_type": "image", "model": "m"}, map[string]any{"ok": true}, cache.PartitionImages); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCacheStats_Execute(t *testing.T) {
	resetFlags()
	dir := isolateEnv(t)
	seedCache(t, filepath.Join(dir, "cache"))

	cacheCmd.SetArgs([]string{"stats", "--cache-dir", filepath.Join(dir, "cache")})
	if err := cacheCmd.Execute(); err != nil {
		t.Errorf("cache stats returned error: %v", err)
	}
}

func TestCacheClear_Partition(t *testing.T) {
	resetFlags()
	dir := isolateEnv(t)
	cacheDir := filepath.Join(dir, "cache")
	s := seedCache(t, cacheDir)

	cacheCmd.SetArgs([]string{"clear", "--partition", "images", "--cache-dir", cacheDir})
	if err := cacheCmd.Execute(); err != nil {
		t.Fatalf("cache clear returned error: %v", err)
	}
	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.ImageCount != 0 || stats.TextCount != 1 {
		t.Errorf("after clearing images: text=%d images=%d, want 1 and 0", stats.TextCount, stats.ImageCount)
	}

	resetFlags()
	cacheCmd.SetArgs([]string{"clear", "--cache-dir", cacheDir})
	if err := cacheCmd.Execute(); err != nil {
		t.Fatalf("cache clear returned error: %v", err)
	}
	stats, err = s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCount != 0 {
		t.Errorf("after clearing all: %d entries remain", stats.TotalCount)
	}
}

func TestCacheClear_UnknownPartition(t *testing.T) {
	resetFlags()
	isolateEnv(t)

	cacheCmd.SetArgs([]string{"clear", "--partition", "audio"})
	if err := cacheCmd.Execute(); err == nil {
		t.Error("cache clear with unknown partition should return error")
	}
}

// --- generate command tests ---

// fakeOpenAI serves the chat, image and image download endpoints.
type fakeOpenAI struct {
	srv      *httptest.Server
	apiCalls atomic.Int32
}

func newFakeOpenAI(t *testing.T) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		f.apiCalls.Add(1)
		var body struct {
			Messages []struct {
				Content any `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		system, _ := body.Messages[0].Content.(string)
		content := "- Clicked search"
		switch {
		case strings.Contains(system, "image-generation prompts"):
			content = `{"prompts":[{"variation":"Minimalist","prompt":"a"},{"variation":"Vibrant","prompt":"b"}]}`
		case strings.Contains(system, "evaluating social media images"):
			content = `{"selected_image":1,"reasoning":"cleaner","scores":{"image_1":{"overall":9},"image_2":{"overall":7}}}`
		}
		reply := map[string]any{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": []any{map[string]any{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": content},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	})
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		n := f.apiCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"created":1,"data":[{"url":"%s/files/%d.png"}]}`, f.srv.URL, n)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png-bytes"))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func writeFlow(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "flow.json")
	data := `{"name":"Checkout","uploadId":"u1","steps":[{"type":"IMAGE","clickContext":{"text":"Buy","elementType":"button"}}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGenerate_EndToEndCached(t *testing.T) {
	resetFlags()
	dir := isolateEnv(t)
	api := newFakeOpenAI(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FLOWSCRIBE_BASE_URL", api.srv.URL+"/v1")
	t.Setenv("FLOWSCRIBE_MAX_RETRIES", "0")

	flowPath := writeFlow(t, dir)
	out := filepath.Join(dir, "REPORT.md")
	metricsPath := filepath.Join(dir, "flowscribe.prom")
	args := []string{flowPath,
		"--out", out,
		"--image-dir", filepath.Join(dir, "images"),
		"--cache-dir", filepath.Join(dir, "cache"),
		"--variations", "2",
		"--metrics-file", metricsPath,
	}

	generateCmd.SetArgs(args)
	if err := generateCmd.Execute(); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if exitCode != ExitSuccess {
		t.Fatalf("exitCode = %d, want %d", exitCode, ExitSuccess)
	}
	// interactions, summary, variations, 2 images, selection
	if got := api.apiCalls.Load(); got != 6 {
		t.Errorf("first run made %d API calls, want 6", got)
	}

	report, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(report), "**Name:** Checkout") {
		t.Errorf("unexpected report:\n%s", report)
	}
	if !strings.Contains(string(report), "#### Image 1 ✓ **SELECTED**") {
		t.Errorf("expected image 1 selected:\n%s", report)
	}
	if _, err := os.Stat(filepath.Join(dir, "images", "social_media_image_2.png")); err != nil {
		t.Errorf("image not saved: %v", err)
	}
	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics not written: %v", err)
	}
	if !strings.Contains(string(prom), "flowscribe_provider_requests_total") {
		t.Error("metrics file missing provider counter")
	}

	// A second run is served from the cache.
	resetFlags()
	generateCmd.SetArgs(args)
	if err := generateCmd.Execute(); err != nil {
		t.Fatalf("second generate returned error: %v", err)
	}
	if exitCode != ExitSuccess {
		t.Fatalf("exitCode = %d, want %d", exitCode, ExitSuccess)
	}
	if got := api.apiCalls.Load(); got != 6 {
		t.Errorf("second run made %d more API calls, want 0", got-6)
	}
}

func TestGenerate_MissingFlow(t *testing.T) {
	resetFlags()
	dir := isolateEnv(t)

	generateCmd.SetArgs([]string{filepath.Join(dir, "nope.json")})
	if err := generateCmd.Execute(); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if exitCode != ExitUsageError {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitUsageError)
	}
}

func TestGenerate_NoAPIKey(t *testing.T) {
	resetFlags()
	dir := isolateEnv(t)
	flowPath := writeFlow(t, dir)
	t.Setenv("FLOWSCRIBE_CONFIG", filepath.Join(dir, "config.yaml"))
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("secretsFile: "+filepath.Join(dir, "missing.yaml")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	generateCmd.SetArgs([]string{flowPath, "--cache-dir", filepath.Join(dir, "cache")})
	if err := generateCmd.Execute(); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if exitCode != ExitAuthError {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitAuthError)
	}
}

func TestGenerate_AuthFailure(t *testing.T) {
	resetFlags()
	dir := isolateEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "sk-bad")
	t.Setenv("FLOWSCRIBE_BASE_URL", srv.URL+"/v1")
	t.Setenv("FLOWSCRIBE_MAX_RETRIES", "0")

	generateCmd.SetArgs([]string{writeFlow(t, dir), "--cache-dir", filepath.Join(dir, "cache"), "--out", filepath.Join(dir, "r.md")})
	if err := generateCmd.Execute(); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if exitCode != ExitAuthError {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitAuthError)
	}
}

func TestGenerate_BadFormat(t *testing.T) {
	resetFlags()
	dir := isolateEnv(t)

	generateCmd.SetArgs([]string{writeFlow(t, dir), "--format", "pdf"})
	if err := generateCmd.Execute(); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if exitCode != ExitUsageError {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitUsageError)
	}
}

// --- exit code constants tests ---

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		code int
		want int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitUsageError", ExitUsageError, 2},
		{"ExitAuthError", ExitAuthError, 3},
		{"ExitRuntimeError", ExitRuntimeError, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.code, tt.want)
			}
		})
	}
}

func TestVersionConstant(t *testing.T) {
	if version == "" {
		t.Error("version constant is empty")
	}
}
