package rest

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/configs"
	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/pkg/client"
	"github.com/abstractors/go-rewards/pkg/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var logger = &log.Logger

const AdminKeyHeader = "X-Admin-Key"

type RestService struct {
	Cfg      *configs.MainConfiguration
	Handler  *client.ClientRequestHandler
	Gatherer prometheus.Gatherer
}

func NewRestService(cfg *configs.MainConfiguration, rewards client.RewardsAPI, gatherer prometheus.Gatherer) *RestService {
	return &RestService{
		Cfg:      cfg,
		Handler:  client.NewClientRequestHandler(cfg, rewards),
		Gatherer: gatherer,
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {

		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Admin-Key")
		c.Header("Access-Control-Allow-Methods", "POST, HEAD, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// AdminKeyMiddleware rejects requests without the configured admin key. An
// empty key disables the guarded routes.
func AdminKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader(AdminKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			c.Abort()
			respondError(c, c.FullPath(), apperror.Unauthorized("Unauthorized"))
			return
		}
		c.Next()
	}
}

func respondError(c *gin.Context, route string, err error) {
	resp := entities.ClientResponse{Error: err.Error()}
	var verr *client.ValidationError
	if errors.As(err, &verr) {
		resp.Error = "Validation failed"
		resp.Errors = verr.Errors
	}
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("Router:%s: %v", route, err)
	} else {
		logger.Debugf("Router:%s: %v", route, err)
	}
	c.JSON(status, entities.NewClientResponse(resp))
}

func (p *RestService) process(c *gin.Context, route string, message string, request client.RequestType, params map[string]string, payload interface{}) {
	data, err := p.Handler.Process(c.Request.Context(), request, params, payload)
	if err != nil {
		respondError(c, route, err)
		return
	}
	c.JSON(http.StatusOK, entities.NewClientResponse(entities.ClientResponse{Message: message, Data: data}))
}

func (p *RestService) Initialize() *gin.Engine {
	if p.Cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if p.Cfg.LogLevel == "debug" {
		router.Use(gin.Logger())
	}
	router.Use(CORSMiddleware())

	// ping the api
	router.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, entities.NewClientResponse(entities.ClientResponse{Message: "pong"}))
	})

	router.GET("/api/healthcheck", func(c *gin.Context) {
		p.process(c, "/api/healthcheck", "", client.GetNodeInfoRequest, nil, nil)
	})

	router.GET("/api/rewards/stats", func(c *gin.Context) {
		p.process(c, "/api/rewards/stats", "Reward stats retrieved", client.GetRewardStatsRequest, map[string]string{
			"chainId": c.Query("chainId"),
			"history": c.Query("history"),
		}, nil)
	})

	router.GET("/api/rewards/:address", func(c *gin.Context) {
		p.process(c, "/api/rewards/:address", "Pending rewards calculated", client.GetPendingRewardsRequest, map[string]string{
			"address": c.Param("address"),
			"chainId": c.Query("chainId"),
		}, nil)
	})

	router.POST("/api/rewards/claim-proof", func(c *gin.Context) {
		var payload entities.ClaimProofRequest
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondError(c, "/api/rewards/claim-proof", client.BindingError(err))
			return
		}
		p.process(c, "/api/rewards/claim-proof", "Claim proof generated", client.WriteClaimProofRequest, nil, &payload)
	})

	router.POST("/api/rewards/verify", func(c *gin.Context) {
		var payload entities.VerifyClaimRequest
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondError(c, "/api/rewards/verify", client.BindingError(err))
			return
		}
		p.process(c, "/api/rewards/verify", "Claim verified", client.VerifyClaimRequest, nil, &payload)
	})

	admin := router.Group("/api/admin", AdminKeyMiddleware(p.Cfg.AdminKey))
	admin.POST("/rewards/calculate", func(c *gin.Context) {
		p.process(c, "/api/admin/rewards/calculate", "Reward calculation completed", client.CalculateRewardsRequest, nil, nil)
	})

	if p.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{})))
	}
	return router
}
