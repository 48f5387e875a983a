// Package web provides the price desk web server: routing, templates,
// sessions and HTTP/HTTPS serving.
package web

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/pricedesk/pricedesk/config"
	"github.com/pricedesk/pricedesk/logger"
	"github.com/pricedesk/pricedesk/util/common"
	"github.com/pricedesk/pricedesk/util/random"
	"github.com/pricedesk/pricedesk/web/controller"
	"github.com/pricedesk/pricedesk/web/locale"
	"github.com/pricedesk/pricedesk/web/middleware"
	"github.com/pricedesk/pricedesk/web/network"
	"github.com/pricedesk/pricedesk/web/service"
	"github.com/pricedesk/pricedesk/web/session"
)

//go:embed html/*
var htmlFS embed.FS

//go:embed translation/*
var i18nFS embed.FS

const shutdownTimeout = 10 * time.Second

// Server is the price desk web server.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	tlsConfig  *tls.Config

	authService    *service.AuthService
	catalogService *service.CatalogService

	index   *controller.IndexController
	catalog *controller.CatalogController

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server around the given services.
func NewServer(authService *service.AuthService, catalogService *service.CatalogService) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		authService:    authService,
		catalogService: catalogService,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// getHtmlFiles walks the local `web/html` directory and returns a list of
// template file paths. Used only in debug mode so templates reload from disk.
func (s *Server) getHtmlFiles() ([]string, error) {
	files := make([]string, 0)
	dir, _ := os.Getwd()
	err := fs.WalkDir(os.DirFS(dir), "web/html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// getHtmlTemplate parses the embedded page templates.
func (s *Server) getHtmlTemplate() (*template.Template, error) {
	return template.New("").ParseFS(htmlFS, "html/*.html")
}

// fallbackSecret is drawn once per process so that a SIGHUP restart keeps
// existing sessions valid.
var fallbackSecret = sync.OnceValue(func() []byte {
	logger.Warning("PRICEDESK_SESSION_SECRET is not set; sessions will not survive a process restart")
	return []byte(random.Seq(32))
})

func sessionSecret() []byte {
	if secret := config.GetSessionSecret(); secret != "" {
		return []byte(secret)
	}
	return fallbackSecret()
}

// loadTLSConfig returns the TLS configuration for the configured certificate
// pair, or nil when none is configured or it cannot be loaded.
func loadTLSConfig() *tls.Config {
	certFile := config.GetCertFile()
	keyFile := config.GetKeyFile()
	if certFile == "" && keyFile == "" {
		return nil
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		logger.Error("Error loading certificates:", err)
		return nil
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
}

// initRouter initializes Gin, registers middleware, templates and
// controllers and returns the configured engine.
func (s *Server) initRouter() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if config.IsDebug() {
		engine.Use(gin.Logger())
	}
	engine.Use(middleware.RecoveryMiddleware())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	store := cookie.NewStore(sessionSecret())
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   s.tlsConfig != nil,
		SameSite: http.SameSiteLaxMode,
	})
	engine.Use(sessions.Sessions(session.CookieName, store))

	if err := locale.InitLocalizer(i18nFS); err != nil {
		return nil, err
	}
	engine.Use(locale.LocalizerMiddleware())

	if config.IsDebug() {
		files, err := s.getHtmlFiles()
		if err != nil {
			return nil, err
		}
		engine.LoadHTMLFiles(files...)
	} else {
		tpl, err := s.getHtmlTemplate()
		if err != nil {
			return nil, err
		}
		engine.SetHTMLTemplate(tpl)
	}

	g := engine.Group("/")
	s.index = controller.NewIndexController(g, s.authService)
	s.catalog = controller.NewCatalogController(g, s.authService, s.catalogService)

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine, nil
}

// Start initializes and starts the web server. When a certificate pair is
// configured the port serves HTTPS and redirects plain HTTP.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	s.tlsConfig = loadTLSConfig()
	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	if s.tlsConfig != nil {
		listener = network.NewRedirectListener(listener)
		listener = tls.NewListener(listener, s.tlsConfig)
		logger.Info("Web server running HTTPS on", listener.Addr())
	} else {
		logger.Info("Web server running HTTP on", listener.Addr())
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("web server stopped:", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the web server.
func (s *Server) Stop() error {
	defer s.cancel()
	var err1, err2 error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(s.ctx, shutdownTimeout)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	}
	if s.listener != nil {
		// Shutdown already closed it.
		if err2 = s.listener.Close(); errors.Is(err2, net.ErrClosed) {
			err2 = nil
		}
	}
	return common.Combine(err1, err2)
}
