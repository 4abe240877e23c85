package main

import (
	"errors"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leonardcser/electives-mcp/internal/cache"
	"github.com/leonardcser/electives-mcp/internal/config"
	"github.com/leonardcser/electives-mcp/internal/logger"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	cfg, err := config.LoadCacheServer()
	if err != nil {
		logger.Errorf("config: %v", err)
		panic(err)
	}

	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(cfg.Socket), 0o755)
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	_ = os.Remove(cfg.Socket)

	l, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		logger.Errorf("listen %s: %v", cfg.Socket, err)
		panic(err)
	}
	_ = os.Chmod(cfg.Socket, 0o600)

	kv, err := cache.OpenBolt(cfg.DBPath, cache.BoltOptions{Bucket: cfg.Bucket, MaxValueBytes: cfg.MaxValueBytes})
	if err != nil {
		_ = l.Close()
		logger.Errorf("open %s: %v", cfg.DBPath, err)
		panic(err)
	}
	defer kv.Close()
	logger.Infof("Cache daemon serving %s on %s", cfg.DBPath, cfg.Socket)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Infof("Cache daemon shutting down")
		_ = l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				_ = os.Remove(cfg.Socket)
				return
			}
			continue
		}
		go cache.ServeConn(conn, kv)
	}
}
