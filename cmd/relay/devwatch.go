package main

import (
	"os"

	"github.com/dev-console/dev-console/internal/httpapi"
	"github.com/dev-console/dev-console/internal/logging"
	"github.com/dev-console/dev-console/internal/util"
	"github.com/fsnotify/fsnotify"
)

// clientJSPath is where DEV_MODE looks for a client.js override; when the
// file doesn't exist the watcher still starts but never fires.
const clientJSPath = "internal/httpapi/client.js"

// watchClientJS reloads httpapi.ClientJS from disk whenever clientJSPath
// changes, so a developer iterating on the injected shim doesn't need to
// restart the relay (design §9 collaborators, DEV_MODE).
func watchClientJS(log *logging.Logger) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(clientJSPath); statErr == nil {
		if err := watcher.Add(clientJSPath); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}

	util.SafeGo(func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				data, err := os.ReadFile(clientJSPath)
				if err != nil {
					log.LogError(logging.KindServer, "", "dev-mode reload failed", err)
					continue
				}
				httpapi.SetClientJS(string(data))
				log.Log(logging.KindServer, "", "reloaded client.js", nil, "")
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.LogError(logging.KindServer, "", "dev-mode watch error", watchErr)
			}
		}
	})

	return func() { _ = watcher.Close() }, nil
}
