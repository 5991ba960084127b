// Package http is the gin boundary of the activation service. Requests
// arrive with IAP-style identity headers; each handler resolves its
// environment through the cached source and runs the catalog or activator
// against it.
package http

import (
	"fmt"
	"net/http"
	"time"

	"warden/internal/config"
	"warden/internal/domain"
	"warden/internal/infra/db"
	"warden/internal/infra/directory"
	"warden/internal/infra/environments"
	"warden/internal/infra/ratelimit"
	"warden/internal/infra/secrets"
	"warden/internal/infra/token"
	"warden/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	environments  *environments.Source
	signer        usecase.TokenSigner[domain.GrantID]
	resolver      usecase.SubjectResolver
	audit         usecase.AuditSink
	notifier      usecase.Notifier
	justification domain.JustificationPolicy

	rateLimiter       domain.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration

	now func() time.Time

	initErr error
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r, now: time.Now}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Environments  *environments.Source
	Signer        usecase.TokenSigner[domain.GrantID]
	Resolver      usecase.SubjectResolver
	Audit         usecase.AuditSink
	Notifier      usecase.Notifier
	Justification domain.JustificationPolicy
	RateLimiter   domain.RateLimiter
	Now           func() time.Time
}

func NewServerWithDeps(cfg config.Config, store *db.Store, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:           cfg,
		store:         store,
		r:             r,
		environments:  deps.Environments,
		signer:        deps.Signer,
		resolver:      deps.Resolver,
		audit:         deps.Audit,
		notifier:      deps.Notifier,
		justification: deps.Justification,
		rateLimiter:   deps.RateLimiter,
		now:           deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.rateLimitRequests = cfg.RateLimitRequests
	s.rateLimitWindow = cfg.RateLimitWindow()
	s.routes()
	return s
}

func (s *Server) initDeps() {
	justification, err := domain.NewJustificationPolicy(s.cfg.JustificationPattern, s.cfg.JustificationHint)
	if err != nil {
		s.initErr = fmt.Errorf("justification pattern: %w", err)
		return
	}
	s.justification = justification

	signer, err := token.NewSigner[domain.GrantID]([]byte(s.cfg.TokenSigningKey), token.GrantIDConverter{}, token.Config{
		Issuer:      s.cfg.TokenIssuer,
		MaxValidity: s.cfg.TokenValidity(),
	})
	if err != nil {
		s.initErr = fmt.Errorf("token signer: %w", err)
		return
	}
	s.signer = signer

	var loader environments.Loader
	switch s.cfg.PolicySource {
	case "file", "":
		loader = &environments.FileLoader{Dir: s.cfg.PolicyDir}
	case "vault":
		loader = secrets.NewVaultClient(s.cfg.VaultAddr, s.cfg.VaultToken, s.cfg.VaultMount)
	case "gcp":
		loader = secrets.NewGCPClient(s.cfg.GCPSecretManagerEndpoint, s.cfg.GCPProjectID, s.cfg.GCPAccessToken)
	default:
		s.initErr = fmt.Errorf("unsupported policy source %q", s.cfg.PolicySource)
		return
	}

	var dirClient *directory.Client
	if s.cfg.DirectoryEndpoint != "" {
		dirClient = directory.NewClient(s.cfg.DirectoryEndpoint, s.cfg.DirectoryToken)
		s.resolver = directory.NewResolver(dirClient)
	}
	factory := func(name string) (usecase.Provisioner[domain.GrantID], error) {
		if dirClient == nil {
			return nil, fmt.Errorf("environment %s: directory endpoint is not configured", name)
		}
		return db.NewLedgerProvisioner(directory.NewProvisioner(dirClient), s.store.Grants), nil
	}

	s.environments = environments.NewSource(loader, factory, environments.Config{
		Names: s.cfg.Environments,
		TTL:   s.cfg.PolicyCacheTTL(),
	})

	if s.store != nil {
		s.audit = db.NewAuditSink(s.store.AuditEvents)
	}

	if s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealth)

	api := s.r.Group("/api")
	{
		api.GET("/environments", s.handleListEnvironments)
		api.GET("/environments/:env/privileges", s.handleListPrivileges)
		api.GET("/environments/:env/reviewers", s.handleListReviewers)
		api.POST("/environments/:env/requests", s.handleCreateRequest)
		api.GET("/environments/:env/requests/inspect", s.handleInspectRequest)
		api.POST("/environments/:env/approve", s.handleApproveRequest)
		api.GET("/environments/:env/audit", s.handleListAudit)
	}
}

func (s *Server) Run() error {
	if s.initErr != nil {
		return s.initErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}

// catalogFor builds the per-request catalog for one environment. Catalogs
// are cheap; the policy and provisioner behind them are the cached part.
func (s *Server) catalogFor(c *gin.Context, env string) (*usecase.Catalog[domain.GrantID], *environments.Entry, bool) {
	entry, ok := s.environments.Get(c.Request.Context(), env)
	if !ok {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "unknown environment")
		return nil, nil, false
	}
	return usecase.NewCatalog[domain.GrantID](entry.Policy, entry.Provisioner, s.now), entry, true
}

func (s *Server) activatorFor(catalog *usecase.Catalog[domain.GrantID], entry *environments.Entry, env string) *usecase.Activator[domain.GrantID] {
	return usecase.NewActivator[domain.GrantID](catalog, entry.Provisioner, s.signer, s.resolver, s.justification, usecase.ActivatorConfig{
		Environment: env,
		Audit:       s.audit,
		Notifier:    s.notifier,
		Now:         s.now,
	})
}
