/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package rest exposes the flow subsystem over HTTP.
//
// Every handler touching the subsystem runs on the world loop through a Runner.
// Responses are JSON; errors are {"error": "..."} with a status derived from the
// error kind.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/engine"
	"github.com/rulego/flowgraph/savegame"
	"github.com/rulego/flowgraph/utils/runtime"
)

const (
	ContentTypeKey  = "Content-Type"
	JsonContextType = "application/json"
	//请求体最大长度
	maxBodySize = 4 << 20
)

// Config Rest 服务配置
type Config struct {
	//监听地址，如 :9090
	Server      string `json:"server" mapstructure:"server"`
	CertFile    string `json:"certFile" mapstructure:"certFile"`
	CertKeyFile string `json:"certKeyFile" mapstructure:"certKeyFile"`
	//是否开启调试事件 websocket
	Debug bool `json:"debug" mapstructure:"debug"`
}

// Exchange 一次请求的上下文
type Exchange struct {
	Request  *http.Request
	Response http.ResponseWriter
	//路径参数
	Params httprouter.Params
	body   []byte
}

// Body reads the request body once.
func (e *Exchange) Body() ([]byte, error) {
	if e.body == nil && e.Request.Body != nil {
		defer e.Request.Body.Close()
		body, err := io.ReadAll(io.LimitReader(e.Request.Body, maxBodySize))
		if err != nil {
			return nil, err
		}
		e.body = body
	}
	return e.body, nil
}

// Bind decodes the JSON body into v. An empty body leaves v unchanged.
func (e *Exchange) Bind(v interface{}) error {
	body, err := e.Body()
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest(err)
	}
	return nil
}

func (e *Exchange) Param(key string) string {
	if v := e.Params.ByName(key); v != "" {
		return v
	}
	return e.Request.URL.Query().Get(key)
}

// Handle handles a request and returns the response value.
type Handle func(exchange *Exchange) (interface{}, error)

// statusError carries an explicit http status.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string {
	return e.err.Error()
}

func (e *statusError) Unwrap() error {
	return e.err
}

func badRequest(err error) error {
	return &statusError{status: http.StatusBadRequest, err: err}
}

// statusOf maps errors to http status codes.
func statusOf(err error) int {
	var se *statusError
	switch {
	case errors.As(err, &se):
		return se.status
	case errors.Is(err, types.ErrAssetNotFound), errors.Is(err, types.ErrInstanceNotFound),
		errors.Is(err, types.ErrComponentNotFound), errors.Is(err, types.ErrSaveNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInstanceExists), errors.Is(err, types.ErrComponentExists),
		errors.Is(err, types.ErrSingleInstanceOnly):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// Rest 接收端端点
type Rest struct {
	//配置
	Config Config
	//路由器
	router    *httprouter.Router
	subsystem *engine.Subsystem
	runner    savegame.Runner
	saves     *savegame.Manager
	logger    types.Logger
	server    *http.Server
	listener  net.Listener
	mu        sync.Mutex
}

// New creates the endpoint and registers the flow routes. saves may be nil, in which
// case the save routes answer 404.
func New(config Config, subsystem *engine.Subsystem, runner savegame.Runner, saves *savegame.Manager) *Rest {
	if runner == nil {
		runner = savegame.DirectRunner{}
	}
	r := &Rest{
		Config:    config,
		router:    httprouter.New(),
		subsystem: subsystem,
		runner:    runner,
		saves:     saves,
		logger:    types.NewLogger(subsystem.Config().Logger),
	}
	r.routes()
	return r
}

// AddRouter 注册路由
func (r *Rest) AddRouter(method string, path string, handle Handle) *Rest {
	r.router.Handle(method, path, r.handler(handle))
	return r
}

func (r *Rest) GET(path string, handle Handle) *Rest {
	return r.AddRouter(http.MethodGet, path, handle)
}

func (r *Rest) POST(path string, handle Handle) *Rest {
	return r.AddRouter(http.MethodPost, path, handle)
}

func (r *Rest) PUT(path string, handle Handle) *Rest {
	return r.AddRouter(http.MethodPut, path, handle)
}

func (r *Rest) DELETE(path string, handle Handle) *Rest {
	return r.AddRouter(http.MethodDelete, path, handle)
}

// Handler mounts a plain http handler, used for the debug websocket.
func (r *Rest) Handler(method string, path string, handler http.Handler) *Rest {
	r.router.Handler(method, path, handler)
	return r
}

func (r *Rest) Router() *httprouter.Router {
	return r.router
}

// Start listens on Config.Server and serves in the background.
func (r *Rest) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server != nil {
		return fmt.Errorf("rest server already started on %s", r.listener.Addr())
	}
	ln, err := net.Listen("tcp", r.Config.Server)
	if err != nil {
		return err
	}
	r.listener = ln
	r.server = &http.Server{Handler: r.router, ReadHeaderTimeout: 10 * time.Second}
	server := r.server
	go func() {
		var err error
		if r.Config.CertKeyFile != "" && r.Config.CertFile != "" {
			r.logger.Infof("starting server with TLS on %s", ln.Addr())
			err = server.ServeTLS(ln, r.Config.CertFile, r.Config.CertKeyFile)
		} else {
			r.logger.Infof("starting server on %s", ln.Addr())
			err = server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Errorf("rest server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the listening address after Start.
func (r *Rest) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (r *Rest) Stop(ctx context.Context) error {
	r.mu.Lock()
	server := r.server
	r.server = nil
	r.listener = nil
	r.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (r *Rest) handler(handle Handle) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		defer func() {
			//捕捉异常
			if e := recover(); e != nil {
				pe := runtime.Recovered(e)
				r.logger.Errorf("rest handler %s %s %v\n%s", req.Method, req.URL.Path, pe, pe.Stack)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": pe.Error()})
			}
		}()
		exchange := &Exchange{Request: req, Response: w, Params: params}
		result, err := handle(exchange)
		if err != nil {
			writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
			return
		}
		if result == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// onLoop runs fn on the world loop with the request context.
func (r *Rest) onLoop(exchange *Exchange, fn func() error) error {
	return r.runner.Do(exchange.Request.Context(), fn)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set(ContentTypeKey, JsonContextType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
