package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	imagecaptioner "github.com/menta2k/image-captioner"
	"github.com/menta2k/image-captioner/internal/config"
	"github.com/menta2k/image-captioner/internal/utils"
	"github.com/menta2k/image-captioner/pkg/annotate"
	"github.com/menta2k/image-captioner/pkg/batch"
	"github.com/menta2k/image-captioner/pkg/caption"
	"github.com/menta2k/image-captioner/pkg/client"
	"github.com/menta2k/image-captioner/pkg/gemini"
	"github.com/menta2k/image-captioner/pkg/llamacpp"
	"github.com/menta2k/image-captioner/pkg/metadata"
	"github.com/menta2k/image-captioner/pkg/ollama"
	"github.com/menta2k/image-captioner/pkg/report"
	"github.com/menta2k/image-captioner/pkg/web"
)

// Default server URLs and models per backend, used when --backend is given without --url or --model
var (
	defaultURLs = map[string]string{
		config.BackendOllama:   "http://localhost:11434",
		config.BackendLlamaCPP: "http://localhost:8080",
	}
	defaultModels = map[string]string{
		config.BackendOllama:   "llava",
		config.BackendLlamaCPP: "openbmb/minicpm-v4.5",
		config.BackendGemini:   gemini.DefaultModel,
	}
)

type cmdArgs struct {
	Config      string        `arg:"--config,-c" help:"JSON config file (default ~/.config/image-captioner/config.json if present)"`
	In          string        `arg:"--in,-i" env:"CAPTIONER_INPUT" help:"directory with images to caption"`
	Out         string        `arg:"--out,-o" env:"CAPTIONER_OUTPUT" help:"directory for annotated copies"`
	CSV         string        `arg:"--csv" help:"CSV report path"`
	JSON        string        `arg:"--json" help:"JSON report path"`
	Style       string        `arg:"--style,-s" env:"CAPTIONER_STYLE" help:"caption style: default|creative|factual"`
	Backend     string        `arg:"--backend,-b" env:"CAPTIONER_BACKEND" help:"backend to use: ollama|llamacpp|gemini"`
	URL         string        `arg:"--url" env:"CAPTIONER_URL" help:"backend server URL"`
	Model       string        `arg:"--model,-m" env:"CAPTIONER_MODEL" help:"vision model name"`
	APIKey      string        `arg:"--api-key" env:"GOOGLE_AI_API_KEY" help:"API key for the gemini backend"`
	Timeout     time.Duration `arg:"--timeout" help:"per-request timeout"`
	Font        string        `arg:"--font" help:"TrueType/OpenType font for the caption overlay"`
	Exif        bool          `arg:"--exif" help:"embed caption and hashtags into annotated copies (requires exiftool)"`
	Watch       bool          `arg:"--watch,-w" help:"rerun whenever the input directory changes"`
	Serve       bool          `arg:"--serve" help:"start the interactive front end instead of a batch run"`
	Addr        string        `arg:"--addr" help:"listen address for --serve"`
	WriteConfig bool          `arg:"--write-config" help:"write the effective config to --config (or the default path) and exit"`
	Verbosity   int           `arg:"-v" help:"log verbosity"`
}

const appName = "image-captioner"

func (cmdArgs) Version() string {
	return appName + " " + imagecaptioner.GetVersion()
}

func (cmdArgs) Description() string {
	return "Caption every image in a folder with a vision-language model, suggest hashtags and write CSV/JSON reports."
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	var args cmdArgs
	arg.MustParse(&args)

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	klog.InitFlags(fs)
	fs.Set("v", strconv.Itoa(args.Verbosity))
	defer klog.Flush()

	cfg, err := loadConfig(args)
	if err != nil {
		klog.Exitf("config: %v", err)
	}

	if args.WriteConfig {
		path := args.Config
		if path == "" {
			path = config.GetConfigPath()
		}
		if err := cfg.SaveToFile(path); err != nil {
			klog.Exitf("write config: %v", err)
		}
		klog.Infof("wrote %s", path)
		return
	}

	if err := cfg.Validate(); err != nil {
		klog.Exitf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vc, err := newClient(ctx, cfg)
	if err != nil {
		klog.Exitf("%v", err)
	}

	ic, err := imagecaptioner.New(vc, imagecaptioner.Config{
		Caption: caption.Options{
			Model:       cfg.Model.Name,
			Width:       cfg.Model.ImageWidth,
			Height:      cfg.Model.ImageHeight,
			SendFormat:  cfg.Model.SendFormat,
			SendQuality: cfg.Model.SendQuality,
		},
		Annotate: annotate.Options{
			FontPath: cfg.Annotate.FontPath,
			FontSize: cfg.Annotate.FontSize,
			Color:    cfg.Annotate.Color,
			X:        cfg.Annotate.OffsetX,
			Y:        cfg.Annotate.OffsetY,
		},
		JPEGQuality: cfg.Output.JPEGQuality,
	})
	if err != nil {
		klog.Exitf("%v", err)
	}

	klog.Infof("checking %s model %q...", cfg.Model.Backend, cfg.Model.Name)
	if err := ic.Check(ctx); err != nil {
		klog.Exitf("%v", err)
	}

	if args.Serve {
		serve(ic, cfg)
		return
	}

	if cfg.Output.WriteExif {
		mw, err := metadata.NewWriter()
		if err != nil {
			klog.Exitf("exiftool: %v", err)
		}
		defer mw.Close()
		ic.Batch().SetMetadataWriter(mw)
	}

	style, _ := cfg.Style()
	opts := batch.Options{
		InputDir:   cfg.Input.Dir,
		OutputDir:  cfg.Output.Dir,
		CSVFile:    cfg.Output.CSVFile,
		JSONFile:   cfg.Output.JSONFile,
		Style:      style,
		Extensions: cfg.Input.Extensions,
	}

	if err := run(ctx, ic, opts); err != nil {
		klog.Exitf("%v", err)
	}

	if args.Watch {
		if err := watch(ctx, ic, opts); err != nil {
			klog.Exitf("watch: %v", err)
		}
	}
}

// loadConfig merges the config file, environment and flags, in increasing precedence
func loadConfig(args cmdArgs) (*config.Config, error) {
	cfg := config.Default()

	path := args.Config
	if path == "" {
		if p := config.GetConfigPath(); fileExists(p) {
			path = p
		}
	}
	if path != "" && fileExists(path) {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		klog.V(1).Infof("loaded config from %s", path)
	} else if args.Config != "" && !args.WriteConfig {
		return nil, fmt.Errorf("config file %s not found", args.Config)
	}

	if args.In != "" {
		cfg.Input.Dir = args.In
	}
	if args.Out != "" {
		cfg.Output.Dir = args.Out
	}
	if args.CSV != "" {
		cfg.Output.CSVFile = args.CSV
	}
	if args.JSON != "" {
		cfg.Output.JSONFile = args.JSON
	}
	if args.Style != "" {
		cfg.Caption.Style = args.Style
	}
	if args.Backend != "" && args.Backend != cfg.Model.Backend {
		cfg.Model.Backend = args.Backend
		cfg.Model.URL = defaultURLs[args.Backend]
		cfg.Model.Name = defaultModels[args.Backend]
	}
	if args.URL != "" {
		cfg.Model.URL = args.URL
	}
	if args.Model != "" {
		cfg.Model.Name = args.Model
	}
	if args.APIKey != "" {
		cfg.Model.APIKey = args.APIKey
	}
	if args.Timeout > 0 {
		cfg.Model.Timeout = args.Timeout
	}
	if args.Font != "" {
		cfg.Annotate.FontPath = args.Font
	}
	if args.Exif {
		cfg.Output.WriteExif = true
	}
	if args.Addr != "" {
		cfg.Serve.Addr = args.Addr
	}
	return cfg, nil
}

// newClient creates the vision client for the configured backend
func newClient(ctx context.Context, cfg *config.Config) (client.VisionClient, error) {
	switch cfg.Model.Backend {
	case config.BackendOllama:
		c, err := ollama.NewClient(cfg.Model.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		c.SetTimeout(cfg.Model.Timeout)
		return c, nil
	case config.BackendLlamaCPP:
		c, err := llamacpp.NewClient(cfg.Model.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		c.SetTimeout(cfg.Model.Timeout)
		return c, nil
	case config.BackendGemini:
		if cfg.Model.APIKey == "" {
			return nil, errors.New("gemini backend requires --api-key or GOOGLE_AI_API_KEY")
		}
		c, err := gemini.NewClient(ctx, cfg.Model.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama', 'llamacpp' or 'gemini')", cfg.Model.Backend)
	}
}

// run processes the input directory once and prints the summary
func run(ctx context.Context, ic *imagecaptioner.ImageCaptioner, opts batch.Options) error {
	res, err := ic.ProcessDirectory(ctx, opts)
	if err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		klog.Warningf("%d file(s) could not be decoded", len(res.Failed))
	}
	return report.PrintSummary(os.Stdout, res.Summary)
}

// serve starts the interactive front end
func serve(ic *imagecaptioner.ImageCaptioner, cfg *config.Config) {
	s := web.NewServer(ic, ic.Processor())
	s.SetTimeout(cfg.Model.Timeout)

	klog.Infof("Listening on http://%s ...", cfg.Serve.Addr)
	if err := http.ListenAndServe(cfg.Serve.Addr, s.Routes()); err != nil {
		klog.Exitf("listen failed: %v", err)
	}
}

// watch reruns the batch whenever the input directory changes, until ctx is done
func watch(ctx context.Context, ic *imagecaptioner.ImageCaptioner, opts batch.Options) error {
	if utils.SameDir(opts.InputDir, opts.OutputDir) {
		return fmt.Errorf("output directory must differ from input directory in watch mode")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(opts.InputDir); err != nil {
		return fmt.Errorf("watch %s: %w", opts.InputDir, err)
	}
	klog.Infof("watching %s for changes", opts.InputDir)

	// coalesce bursts of events (a copy usually fires create + several writes)
	const settle = time.Second
	timer := time.NewTimer(settle)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %v", event)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				timer.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		case <-timer.C:
			if err := run(ctx, ic, opts); err != nil {
				return err
			}
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
