package server

import (
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ecosync/bill-server-go/internal/config"
)

func TestNewHTTPServer(t *testing.T) {
	router := gin.New()
	cfg := &config.Config{HTTP: config.HTTPConfig{Host: "127.0.0.1", Port: 8000, HTTP2Enabled: false}}

	httpServer := NewHTTPServer(cfg, router)
	if httpServer.Addr != "127.0.0.1:8000" {
		t.Fatalf("unexpected addr: %s", httpServer.Addr)
	}
	if httpServer.Handler != router {
		t.Fatalf("expected plain router handler")
	}

	cfg.HTTP.HTTP2Enabled = true
	httpServer = NewHTTPServer(cfg, router)
	if httpServer.Handler == router {
		t.Fatalf("expected h2c wrapped handler")
	}
}
