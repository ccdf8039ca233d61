// Package sandbox is an in-memory school administration backend that
// speaks the same REST contract as the production API. It backs the demo
// console and end-to-end tests.
package sandbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
)

const contextUserKey = "currentUser"

// Account is a user who can log in to the sandbox.
type Account struct {
	Username string
	Password string
	FullName string
	Type     model.UserType
	ID       int
}

// DefaultAccounts are seeded when Options.Accounts is empty.
var DefaultAccounts = []Account{
	{ID: 1, Username: "admin", Password: "admin123", FullName: "Amina Okafor", Type: model.UserAdmin},
	{ID: 2, Username: "teacher", Password: "teacher123", FullName: "Daniel Mwangi", Type: model.UserTeacher},
	{ID: 3, Username: "staff", Password: "staff123", FullName: "Grace Njeri", Type: model.UserStaff},
}

// Options configures a sandbox.
type Options struct {
	Now      func() time.Time
	Secret   string
	Accounts []Account
	TokenTTL time.Duration
	// PageBase is the index of the first page on the wire.
	PageBase int
	Seed     int64
	// TLS, when set, makes Run serve HTTPS.
	TLS *tls.Config
	// Empty starts with no records.
	Empty bool
}

// Server is the sandbox backend.
type Server struct {
	engine   *gin.Engine
	tls      *tls.Config
	data     *dataset
	accounts map[string]Account
	now      func() time.Time
	secret   []byte
	tokenTTL time.Duration
}

// New builds a sandbox with seeded data.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Secret == "" {
		opts.Secret = "sandbox-secret"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if len(opts.Accounts) == 0 {
		opts.Accounts = DefaultAccounts
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}

	useJSONFieldNames()
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:   gin.New(),
		tls:      opts.TLS,
		accounts: make(map[string]Account, len(opts.Accounts)),
		now:      opts.Now,
		secret:   []byte(opts.Secret),
		tokenTTL: opts.TokenTTL,
	}
	for _, a := range opts.Accounts {
		s.accounts[a.Username] = a
	}
	s.data = newDataset(s.now)
	if !opts.Empty {
		s.data.seed(opts.Seed)
	}

	s.engine.Use(gin.Recovery(), requestLogger())
	s.routes(opts.PageBase)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		TLSConfig:         s.tls,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.tls != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()
	common.LogInfo("sandbox listening", common.Fields{"addr": addr, "tls": s.tls != nil})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("sandbox server: %w", err)
	}
}

func (s *Server) routes(pageBase int) {
	s.engine.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	s.engine.POST("/auth/token", s.issueToken)

	g := s.engine.Group("/", s.requireToken)
	g.GET("/configuration/:domain", s.configuration)
	g.GET("/sessions", s.sessions)
	g.GET("/classes", s.classes)
	g.POST("/progression/preview", s.previewProgression)
	g.POST("/progression/execute", s.executeProgression)
	g.POST("/pricing/bulk", s.bulkPrices)

	d := s.data
	mount(g, pageBase, d.attendanceResource())
	mount(g, pageBase, d.leaveResource())
	mount(g, pageBase, d.pricingResource())
	mount(g, pageBase, d.purchaseResource())
	mount(g, pageBase, d.stockResource())
	mount(g, pageBase, d.transportResource())
	mount(g, pageBase, d.studentResource())
	mount(g, pageBase, d.teacherResource())
}

type tokenClaims struct {
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(c *gin.Context) {
	if c.PostForm("grant_type") != "password" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_grant_type"})
		return
	}
	acct, ok := s.accounts[c.PostForm("username")]
	if !ok || acct.Password != c.PostForm("password") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_grant", "error_description": "Incorrect username or password"})
		return
	}

	tok, err := s.Sign(acct, s.now().Add(s.tokenTTL))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": tok,
		"token_type":   "bearer",
		"expires_in":   int(s.tokenTTL.Seconds()),
	})
}

// Sign issues an access token for acct that expires at exp.
func (s *Server) Sign(acct Account, exp time.Time) (string, error) {
	claims := tokenClaims{
		UserType: string(acct.Type),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(acct.ID),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) requireToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}

	for _, a := range s.accounts {
		if fmt.Sprint(a.ID) == claims.Subject {
			c.Set(contextUserKey, a)
			c.Next()
			return
		}
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Unknown user"})
}

func currentAccount(c *gin.Context) (Account, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return Account{}, false
	}
	a, ok := v.(Account)
	return a, ok
}

func (s *Server) configuration(c *gin.Context) {
	bag, ok := s.data.config[c.Param("domain")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("unknown configuration domain %q", c.Param("domain"))})
		return
	}
	c.JSON(http.StatusOK, bag)
}

func (s *Server) sessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.data.sessions})
}

func (s *Server) classes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.data.classes})
}

func (s *Server) bulkPrices(c *gin.Context) {
	var req model.BulkPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	for i, item := range req.Items {
		if item.UnitPrice.IsNegative() {
			validationError(c, "body", fmt.Sprintf("items.%d.unit_price", i), "ensure this value is greater than or equal to 0")
			return
		}
		if _, ok := s.data.pricing.get(item.ID); !ok {
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("pricing %d not found", item.ID)})
			return
		}
	}

	updated := 0
	for _, item := range req.Items {
		_, found, _ := s.data.pricing.update(item.ID, func(p *model.PricingRow) error {
			p.UnitPrice = item.UnitPrice
			return nil
		})
		if found {
			updated++
		}
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		common.LogDebug("sandbox request", common.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetHeader("X-Request-ID"),
			"duration":   time.Since(start).String(),
		})
	}
}
