// Package pipelineconfig consolidates the environment-driven numeric knobs
// and feature flags the pipeline's components read, per the "feature flags
// as environment reads" design note: every tunable is resolved once at
// startup into a single struct instead of scattered os.Getenv calls.
package pipelineconfig

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// PipelineConfig holds every env-tunable knob named in spec §6.
type PipelineConfig struct {
	ShortThreshold int // SHORT_THRESHOLD
	LongThreshold  int // LONG_THRESHOLD

	MaxContentForAI int // MAX_CONTENT_FOR_AI
	MaxTextLength   int // MAX_TEXT_LENGTH
	MaxMediaSize    int64 // MAX_MEDIA_SIZE, bytes

	MinPDFChars int // MIN_PDF_CHARS
	MaxPDFPages int // MAX_PDF_PAGES
	OCRLanguages string // OCR_LANGUAGES

	EnableHeadlessBrowser bool // ENABLE_HEADLESS_BROWSER
	EnableAudioDownload   bool // ENABLE_AUDIO_DOWNLOAD

	// EnableFailSafeReanalysis gates the §4.9 fail-safe re-analysis path,
	// resolving the open question in §9: default on, but switchable
	// because it can double reasoner latency.
	EnableFailSafeReanalysis bool // ENABLE_FAILSAFE_REANALYSIS

	JurisdictionDefault string // JURISDICTION_DEFAULT

	FetcherTimeout    time.Duration
	ReasonerTimeout   time.Duration
	TranscribeTimeout time.Duration
	AudioDownloadTimeout time.Duration
}

// Load resolves PipelineConfig from the process environment using viper's
// env binding, falling back to the spec's stated defaults.
func Load() *PipelineConfig {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("SHORT_THRESHOLD", 3000)
	v.SetDefault("LONG_THRESHOLD", 10000)
	v.SetDefault("MAX_CONTENT_FOR_AI", 10000)
	v.SetDefault("MAX_TEXT_LENGTH", 100000)
	v.SetDefault("MAX_MEDIA_SIZE", 100*1024*1024)
	v.SetDefault("MIN_PDF_CHARS", 500)
	v.SetDefault("MAX_PDF_PAGES", 25)
	v.SetDefault("OCR_LANGUAGES", "eng+hin")
	v.SetDefault("ENABLE_HEADLESS_BROWSER", false)
	v.SetDefault("ENABLE_AUDIO_DOWNLOAD", false)
	v.SetDefault("ENABLE_FAILSAFE_REANALYSIS", true)
	v.SetDefault("JURISDICTION_DEFAULT", "India")

	return &PipelineConfig{
		ShortThreshold:           v.GetInt("SHORT_THRESHOLD"),
		LongThreshold:            v.GetInt("LONG_THRESHOLD"),
		MaxContentForAI:          v.GetInt("MAX_CONTENT_FOR_AI"),
		MaxTextLength:            v.GetInt("MAX_TEXT_LENGTH"),
		MaxMediaSize:             v.GetInt64("MAX_MEDIA_SIZE"),
		MinPDFChars:              v.GetInt("MIN_PDF_CHARS"),
		MaxPDFPages:              v.GetInt("MAX_PDF_PAGES"),
		OCRLanguages:             v.GetString("OCR_LANGUAGES"),
		EnableHeadlessBrowser:    v.GetBool("ENABLE_HEADLESS_BROWSER"),
		EnableAudioDownload:      v.GetBool("ENABLE_AUDIO_DOWNLOAD"),
		EnableFailSafeReanalysis: v.GetBool("ENABLE_FAILSAFE_REANALYSIS"),
		JurisdictionDefault:      v.GetString("JURISDICTION_DEFAULT"),
		FetcherTimeout:           60 * time.Second,
		ReasonerTimeout:          30 * time.Second,
		TranscribeTimeout:        180 * time.Second,
		AudioDownloadTimeout:     120 * time.Second,
	}
}

// WatchRulePackRoot watches root for changes and invokes onChange whenever a
// rule file is written, renamed or removed, so RuleRepository can drop its
// lazily-cached packs without a process restart. Watch errors are logged and
// non-fatal; the repository simply keeps serving its last cached pack.
func WatchRulePackRoot(root string, onChange func()) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					log.Info().Str("path", event.Name).Msg("rule pack changed, invalidating cache")
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("rule pack watcher error")
			}
		}
	}()

	if err := addRecursive(watcher, root); err != nil {
		watcher.Close()
		return nil, err
	}
	return watcher, nil
}

// addRecursive adds root and every subdirectory to the watcher since
// fsnotify does not recurse on its own; the rule pack layout nests
// {root}/{country}/{category}/*.json.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
