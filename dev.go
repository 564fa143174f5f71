package main

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/nf/intcode/intcode"
)

// devMode runs the program in file, and runs it again each time the file
// changes. With debug set the program is loaded into the debugger instead.
func devMode(file string, debug bool, labelsFile string, o options, logger *slog.Logger) error {
	file = filepath.Clean(file)
	if labelsFile != "" {
		labelsFile = filepath.Clean(labelsFile)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(filepath.Dir(file)); err != nil {
		return err
	}
	if labelsFile != "" && filepath.Dir(labelsFile) != filepath.Dir(file) {
		if err := watcher.Watch(filepath.Dir(labelsFile)); err != nil {
			return err
		}
	}

	var (
		d    *debugger
		exit = make(chan error, 1)
	)
	if debug {
		d = newDebugger(o)
		log.SetPrefix("")
		log.SetOutput(d.log)
		go func() {
			err := d.Run()
			log.SetOutput(os.Stderr)
			log.SetPrefix("intcode: ")
			exit <- err
		}()
	}

	started := false
	reload := time.After(1 * time.Millisecond)
	for {
		select {
		case <-reload:
			log.Printf("dev: load %s", filepath.Base(file))
			p, err := intcode.ParseFile(file)
			if err != nil {
				log.Printf("dev: %v", err)
				break
			}
			if d == nil {
				if err := run(os.Stdout, p, o, logger); err != nil {
					log.Printf("dev: %v", err)
				}
				break
			}
			if labelsFile != "" {
				ls, err := parseLabels(labelsFile)
				if err != nil {
					log.Printf("dev: reading labels: %v", err)
				} else {
					d.setLabels(ls)
				}
			}
			if !started {
				log.Printf("dev: start")
				go d.control(p)
				started = true
			} else {
				log.Printf("dev: reset")
				d.swap(p)
			}
		case ev := <-watcher.Event:
			if (ev.Name == file || ev.Name == labelsFile) && !ev.IsAttrib() {
				reload = time.After(100 * time.Millisecond)
			}
		case err := <-watcher.Error:
			log.Printf("dev: watcher: %v", err)
		case err := <-exit:
			return err
		}
	}
}
