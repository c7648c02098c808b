package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable the tool uses. It is constructed once
// by Load at process start and passed explicitly to each component;
// nothing reads the environment after that.
type Config struct {
	// API
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
	MaxRetries     int
	Temperature    float32
	MaxTokens      int

	// Prompt handling
	MaxInputChars     int
	DefaultPromptFile string
	ChunkPause        time.Duration
	HeartbeatInterval time.Duration

	// Response format markers
	FileStartMarker    string
	FileEndMarker      string
	ContentStartMarker string
	ContentEndMarker   string
	OutputEndMarker    string

	// Files and backups
	BackupDir    string
	HistoryDir   string
	CheckTimeout time.Duration

	// Per-extension tables
	CommentFormats map[string]string
	CheckCommands  map[string][]string
}

// CommentFormats maps file extensions to their single-line (or block
// opener) comment token.
var defaultCommentFormats = map[string]string{
	"py": "#", "java": "//", "cpp": "//", "c": "//", "js": "//", "ts": "//",
	"go": "//", "rs": "//", "php": "//", "swift": "//", "kt": "//", "scala": "//",
	"sh": "#", "sql": "--", "html": "<!--", "css": "/*", "xml": "<!--",
	"yaml": "#", "yml": "#", "json": "//", "md": "<!--", "txt": "#",
}

// defaultCheckCommands maps file extensions to the external syntax
// checker invocation; the scratch file path is appended as the last
// argument. Go files are parsed in-process and have no entry here.
var defaultCheckCommands = map[string][]string{
	"py":   {"python", "-m", "py_compile"},
	"java": {"javac"},
	"cpp":  {"g++", "-fsyntax-only"},
	"c":    {"gcc", "-fsyntax-only"},
	"js":   {"node", "--check"},
	"ts":   {"tsc", "--noEmit"},
	"rs":   {"rustc", "--emit=metadata", "-o", os.DevNull},
}

// Load builds the configuration from the environment. A .env file in
// the working directory is honored when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIKey:         os.Getenv("MOONSHOT_API_KEY"),
		BaseURL:        envStr("MOONSHOT_API_BASE", "https://api.moonshot.cn/v1"),
		Model:          envStr("MOONSHOT_MODEL", "moonshot-v1-8k"),
		RequestTimeout: envDuration("REQUEST_TIMEOUT", 120*time.Second),
		MaxRetries:     envInt("MAX_RETRIES", 3),
		Temperature:    0.1,
		MaxTokens:      4000,

		MaxInputChars:     envInt("MAX_INPUT_CHARS", 32000),
		DefaultPromptFile: envStr("DEFAULT_PROMPT_FILE", "prompt.txt"),
		ChunkPause:        time.Second,
		HeartbeatInterval: 100 * time.Millisecond,

		FileStartMarker:    envStr("FILE_START_MARKER", "=== FILE BEGIN ==="),
		FileEndMarker:      envStr("FILE_END_MARKER", "=== FILE END ==="),
		ContentStartMarker: envStr("CONTENT_START_MARKER", "=== CONTENT BEGIN ==="),
		ContentEndMarker:   envStr("CONTENT_END_MARKER", "=== CONTENT END ==="),
		OutputEndMarker:    envStr("OUTPUT_END_MARKER", "# GENERATION COMPLETE"),

		BackupDir:    envStr("BACKUP_DIR", ".backup"),
		HistoryDir:   envStr("HISTORY_DIR", ".promptpilot"),
		CheckTimeout: envDuration("CHECK_TIMEOUT", 30*time.Second),

		CommentFormats: defaultCommentFormats,
		CheckCommands:  defaultCheckCommands,
	}
}

// Validate reports configuration problems that prevent API use.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("MOONSHOT_API_KEY is not set; export it or add it to a .env file")
	}
	if len(c.APIKey) < 10 {
		return fmt.Errorf("MOONSHOT_API_KEY looks like a placeholder")
	}
	return nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
