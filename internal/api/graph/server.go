package graph

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"github.com/lvdashuaibi/campusvote/config"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// GraphQLServer GraphQL服务器
type GraphQLServer struct {
	schema *graphql.Schema
	engine *gin.Engine
	cfg    config.Config
	srv    *http.Server
}

// NewSchema 解析Schema并绑定解析器
func NewSchema(resolver *Resolver) *graphql.Schema {
	return graphql.MustParseSchema(schemaString, resolver)
}

// NewGraphQLServer 创建新的GraphQL服务器
func NewGraphQLServer(cfg config.Config, resolver *Resolver) *GraphQLServer {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	path := cfg.GraphQL.Path
	if path == "" {
		path = "/graphql"
	}

	s := &GraphQLServer{
		schema: NewSchema(resolver),
		engine: gin.New(),
		cfg:    cfg,
	}
	s.engine.Use(gin.Logger(), gin.Recovery())

	handler := &relay.Handler{Schema: s.schema}
	s.engine.POST(path, PrincipalMiddleware(), gin.WrapH(handler))
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	playground := strings.ReplaceAll(playgroundHTML, "{{endpoint}}", path)
	s.engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(playground))
	})
	return s
}

// Handler 返回HTTP处理器，测试中直接使用
func (s *GraphQLServer) Handler() http.Handler {
	return s.engine
}

// PrincipalMiddleware 从上游网关注入的请求头读取当前用户
func PrincipalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if id != "" {
			p := Principal{ID: id, Role: strings.TrimSpace(c.GetHeader(HeaderUserRole))}
			c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		}
		c.Next()
	}
}

// Start 启动GraphQL服务器，阻塞直到服务关闭
func (s *GraphQLServer) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("GraphQL服务已启动，API端点: %s, Playground: http://localhost%s/", s.cfg.GraphQL.Path, addr)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *GraphQLServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// playgroundHTML GraphQL Playground HTML
const playgroundHTML = `
<!DOCTYPE html>
<html>
<head>
  <meta charset=utf-8/>
  <meta name="viewport" content="user-scalable=no, initial-scale=1.0, minimum-scale=1.0, maximum-scale=1.0, minimal-ui">
  <title>Campus Vote GraphQL Playground</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/graphql-playground-react@1.7.22/build/static/css/index.css" />
  <link rel="shortcut icon" href="https://cdn.jsdelivr.net/npm/graphql-playground-react@1.7.22/build/favicon.png" />
  <script src="https://cdn.jsdelivr.net/npm/graphql-playground-react@1.7.22/build/static/js/middleware.js"></script>
</head>
<body>
  <div id="root">
    <style>
      body {
        background-color: rgb(23, 42, 58);
        font-family: Open Sans, sans-serif;
        height: 90vh;
      }
      #root {
        height: 100%;
        width: 100%;
        display: flex;
        align-items: center;
        justify-content: center;
      }
      .loading {
        font-size: 32px;
        font-weight: 200;
        color: rgba(255, 255, 255, .6);
        margin-left: 20px;
      }
      img {
        width: 78px;
        height: 78px;
      }
      .title {
        font-weight: 400;
      }
    </style>
    <img src='https://cdn.jsdelivr.net/npm/graphql-playground-react@1.7.22/build/logo.png' alt=''>
    <div class="loading"> 
      <span class="title">Campus Vote GraphQL Playground</span>
    </div>
  </div>
  <script>window.addEventListener('load', function (event) {
      GraphQLPlayground.init(document.getElementById('root'), {
        endpoint: '{{endpoint}}'
      })
    })</script>
</body>
</html>
`
