package main

import (
	"flag"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/fsnotify/fsnotify"

	"github.com/fotokart/fotokart/pkg/cache"
	"github.com/fotokart/fotokart/pkg/process"
	"github.com/fotokart/fotokart/pkg/server"
	"github.com/fotokart/fotokart/pkg/settings"
	"github.com/fotokart/fotokart/pkg/store"
)

var (
	folders   = flag.String("folders", "", "comma-separated photo folders to index (overrides saved settings)")
	addr      = flag.String("addr", "", "host:port to bind to (overrides saved settings)")
	watchFlag = flag.Bool("watch", false, "watch folders for changes and reprocess")
	workers   = flag.Int("workers", 0, "extraction worker count (0 = number of CPUs)")
	configDir = flag.String("config-dir", "", "settings directory (default: per-user config dir)")
	cacheFile = flag.String("cache", "", "record cache path (default: per-user cache dir)")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	dir := *configDir
	if dir == "" {
		d, err := settings.DefaultDir()
		if err != nil {
			klog.Exitf("config dir: %v", err)
		}
		dir = d
	}

	cfg, err := settings.Load(dir)
	if err != nil {
		klog.Exitf("load settings: %v", err)
	}
	if *folders != "" {
		cfg.Folders = splitFolders(*folders)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if err := cfg.Save(dir); err != nil {
		klog.Warningf("save settings: %v", err)
	}

	if len(cfg.Folders) == 0 {
		klog.Exitf("no folders configured: pass --folders or edit %s", dir)
	}

	cachePath := *cacheFile
	if cachePath == "" {
		p, err := cache.DefaultPath()
		if err != nil {
			klog.Exitf("cache path: %v", err)
		}
		cachePath = p
	}

	st := store.New()
	hub := server.NewHub()
	pipe := process.New(st,
		process.WithWorkers(cfg.Workers),
		process.WithBatchSize(cfg.BatchSize),
		process.WithSink(hub),
	)

	cached, ok := cache.Load(cachePath, cfg.Folders)
	if ok {
		st.InsertBatch(cached)
		klog.Infof("restored %d records from cache", len(cached))
	} else {
		go runOnce(pipe, st, cachePath, cfg.Folders)
	}

	srv := server.New(st, pipe, hub, cachePath, cfg.Folders)

	if cfg.StartBrowser {
		go openBrowser("http://" + cfg.ListenAddr)
	}

	var wg sync.WaitGroup
	if *watchFlag {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watch(pipe, st, cachePath, cfg.Folders); err != nil {
				klog.Errorf("watch failed: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		klog.Infof("listening on %s ...", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, srv.Router()); err != nil {
			klog.Exitf("listen failed: %v", err)
		}
	}()
	wg.Wait()
}

func splitFolders(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// openBrowser points the default browser at the map UI. Failure is
// harmless; the address is logged either way.
func openBrowser(url string) {
	time.Sleep(500 * time.Millisecond)
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		klog.V(1).Infof("open browser: %v", err)
	}
}

// runOnce processes the folders and persists the results.
func runOnce(pipe *process.Pipeline, st *store.Store, cachePath string, roots []string) {
	if _, err := pipe.Process(roots); err != nil {
		klog.Errorf("processing failed: %v", err)
		return
	}
	if err := cache.Save(cachePath, roots, st.Snapshot()); err != nil {
		klog.Errorf("cache save: %v", err)
	}
}

// watch watches the configured folders for changes and reprocesses
// after a short quiet period.
func watch(pipe *process.Pipeline, st *store.Store, cachePath string, roots []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	for _, d := range roots {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}
	klog.Infof("watching %d dirs ...", len(roots))

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			klog.V(1).Infof("event: %s", event)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(2*time.Second, func() {
				runOnce(pipe, st, cachePath, roots)
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Warningf("watch error: %v", err)
		}
	}
}
