package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/haulbase/haulbase/internal/audit"
	auditdomain "github.com/haulbase/haulbase/internal/audit/domain"
	"github.com/haulbase/haulbase/internal/clock"
	"github.com/haulbase/haulbase/internal/commission"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	commissionscheduler "github.com/haulbase/haulbase/internal/commission/scheduler"
	"github.com/haulbase/haulbase/internal/commissionrule"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	"github.com/haulbase/haulbase/internal/config"
	"github.com/haulbase/haulbase/internal/identity"
	"github.com/haulbase/haulbase/internal/lead"
	leaddomain "github.com/haulbase/haulbase/internal/lead/domain"
	"github.com/haulbase/haulbase/internal/load"
	loaddomain "github.com/haulbase/haulbase/internal/load/domain"
	"github.com/haulbase/haulbase/internal/notification"
	"github.com/haulbase/haulbase/internal/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	audit.Module,
	identity.Module,
	commissionrule.Module,
	commission.Module,
	commissionscheduler.Module,
	lead.Module,
	load.Module,
	notification.Module,
	observability.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	genID       *snowflake.Node
	clock       clock.Clock
	ruleSvc     ruledomain.Service
	coordinator commissiondomain.Coordinator
	records     commissiondomain.Store
	scheduler   *commissionscheduler.Scheduler
	leadSvc     leaddomain.Service
	loadSvc     loaddomain.Service
	auditSvc    auditdomain.Service
	hub         *notification.Hub
	sink        notification.Sink
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	GenID       *snowflake.Node
	Clock       clock.Clock
	RuleSvc     ruledomain.Service
	Coordinator commissiondomain.Coordinator
	Records     commissiondomain.Store
	Scheduler   *commissionscheduler.Scheduler
	LeadSvc     leaddomain.Service
	LoadSvc     loaddomain.Service
	AuditSvc    auditdomain.Service
	Hub         *notification.Hub `optional:"true"`
	Sink        notification.Sink `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		clock:       p.Clock,
		ruleSvc:     p.RuleSvc,
		coordinator: p.Coordinator,
		records:     p.Records,
		scheduler:   p.Scheduler,
		leadSvc:     p.LeadSvc,
		loadSvc:     p.LoadSvc,
		auditSvc:    p.AuditSvc,
		hub:         p.Hub,
		sink:        p.Sink,
	}

	svc.registerCommissionRoutes()
	svc.registerRuleRoutes()
	svc.registerOpsRoutes()

	return svc
}

func (s *Server) registerCommissionRoutes() {
	v1 := s.engine.Group("/v1")
	v1.POST("/commissions/recalculate", s.RecalculateCommission)
	v1.POST("/commissions/recalculate-all", s.RecalculateAllCommissions)
	v1.GET("/commissions", s.ListCommissions)
	v1.GET("/commissions/stream", s.StreamCommissionEvents)
	v1.GET("/commissions/:id", s.GetCommissionByID)
	v1.POST("/commissions/:id/approve", s.ApproveCommission)
}

func (s *Server) registerRuleRoutes() {
	v1 := s.engine.Group("/v1")
	v1.POST("/commission-rules", s.CreateCommissionRule)
	v1.GET("/commission-rules", s.ListCommissionRules)
	v1.GET("/commission-rules/:id", s.GetCommissionRuleByID)
	v1.POST("/commission-rules/:id/archive", s.ArchiveCommissionRule)
}

func (s *Server) registerOpsRoutes() {
	v1 := s.engine.Group("/v1")
	v1.POST("/leads", s.CreateLead)
	v1.GET("/leads", s.ListLeads)
	v1.PATCH("/leads/:id/status", s.UpdateLeadStatus)
	v1.POST("/loads", s.CreateLoad)
	v1.GET("/loads", s.ListLoads)
	v1.PATCH("/loads/:id/status", s.UpdateLoadStatus)
	v1.POST("/loads/:id/invoice", s.RecordLoadInvoice)
}
