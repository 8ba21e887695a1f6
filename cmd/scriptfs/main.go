package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"scriptfs/internal/fs"
	"scriptfs/internal/logging"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-verbose] <source-directory> <mount-point>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Usage = usage
	flag.Parse()

	logging.Setup(*verbose)

	args := flag.Args()
	if len(args) != 2 {
		usage()
		os.Exit(2)
	}
	sourceDir, mountPoint := args[0], args[1]

	if err := os.MkdirAll(mountPoint, 0o755); err != nil {
		slog.Error("Failed to create mount point", "path", mountPoint, "err", err)
		os.Exit(1)
	}

	slog.Info("Starting scriptfs", "source", sourceDir, "mount", mountPoint)

	vfs, err := fs.NewScriptFS(sourceDir, mountPoint)
	if err != nil {
		slog.Error("Failed to create filesystem", "err", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	c, err := fuse.Mount(vfs.MountPoint(), vfs.MountOptions()...)
	if err != nil {
		slog.Error("Mount failed", "err", err)
		os.Exit(1)
	}
	defer c.Close()

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		slog.Info("Serving filesystem", "mount", vfs.MountPoint())
		if err := fusefs.Serve(c, vfs); err != nil {
			slog.Error("FUSE server error", "err", err)
		}
	}()

	go func() {
		sig := <-sigChan
		slog.Info("Received signal, unmounting", "signal", sig)
		if err := fuse.Unmount(vfs.MountPoint()); err != nil {
			slog.Error("Unmount error", "err", err)
		}
	}()

	wg.Wait()
	slog.Info("Clean shutdown complete")
}
