package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/asampayo00/plus/internal/assetcache"
	"github.com/asampayo00/plus/internal/common"
	"github.com/asampayo00/plus/internal/core"
	"github.com/asampayo00/plus/internal/frontend"
	"github.com/asampayo00/plus/internal/genai"
	"github.com/asampayo00/plus/internal/history"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

const apiKeyEnv = "GEMINI_API_KEY"

func getConfigPath() string {
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// Default to config.yaml in current working directory
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml")
}

func main() {
	// Load configuration
	configPath := getConfigPath()
	config, err := core.LoadConfig(configPath)
	if err != nil {
		log.Printf("failed to load config from %s: %v", configPath, err)
		panic(err)
	}

	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		log.Panicf("%s must be set", apiKeyEnv)
	}

	store, err := history.NewStore(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		log.Printf("failed to initialize history store: %v", err)
		panic(err)
	}

	generator := genai.NewClient(apiKey, config.Model)
	coreService, err := core.NewCoreService(config, generator, store)
	if err != nil {
		log.Printf("failed to initialize core service: %v", err)
		panic(err)
	}

	server := defineServer()

	frontendService := frontend.NewFrontendService(config, coreService)
	frontendService.SetRoutes(server)

	if config.AssetCache.Enabled {
		installAssetCache(config, frontendService, server)
	}

	portString := fmt.Sprintf(":%d", config.Port)

	// Start HTTP server in a goroutine to allow graceful shutdown
	go func() {
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Printf("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if err := coreService.Close(); err != nil {
		log.Printf("core service close error: %v", err)
	}
}

// installAssetCache runs the cache install phase and activates the
// cache-first middleware. A failed install leaves the middleware out,
// matching a worker that failed to install: the page still serves, every
// request goes to the handlers.
func installAssetCache(config *core.ServiceConfig, frontendService *frontend.FrontendService, server *echo.Echo) {
	client := redis.NewClient(&redis.Options{Addr: config.AssetCache.Address})

	manifest := make([]assetcache.Entry, 0, len(config.AssetCache.Manifest))
	for _, entry := range config.AssetCache.Manifest {
		manifest = append(manifest, assetcache.Entry{Path: entry.Path, URL: entry.URL})
	}

	cache := assetcache.New(client, config.AssetCache.CacheName, frontendService.AssetResolver())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := cache.Install(ctx, manifest); err != nil {
		log.Printf("asset cache install failed, serving without it: %v", err)
		return
	}
	server.Use(cache.Middleware())
}

func defineServer() *echo.Echo {
	e := echo.New()

	// Configure request logger to skip "/probe" endpoint (health check)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/probe"
		},
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogHost:      true,
		LogUserAgent: true,
		LogRoutePath: true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Printf("%s %s (route=%s) - Status: %d - Latency: %v - Error: %v - RemoteIP: %s - Host: %s - UA: %s",
					v.Method,
					v.URI,
					v.RoutePath,
					v.Status,
					v.Latency,
					v.Error,
					v.RemoteIP,
					v.Host,
					v.UserAgent,
				)
			} else {
				log.Printf("%s %s (route=%s) - Status: %d - Latency: %v - RemoteIP: %s - Host: %s - UA: %s",
					v.Method,
					v.URI,
					v.RoutePath,
					v.Status,
					v.Latency,
					v.RemoteIP,
					v.Host,
					v.UserAgent,
				)
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())

	e.Validator = &common.GenericEchoValidator{}

	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service is running")
	})

	return e
}
