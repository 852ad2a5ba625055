package bootstrap

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vivero/internal/pkg/config"
	"vivero/internal/pkg/nacos"
	"vivero/internal/tracing"
)

type AppCtx struct {
	Mux   *http.ServeMux
	Nacos *nacos.Client
}

// AppInfo 启动一个服务所需的全部特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx)
	// OnShutdown 在 HTTP server 关闭前按注册的逆序执行。
	OnShutdown []func(ctx context.Context)
}

// StartService 所有服务共用的启动与优雅关停流程：
// tracer、nacos 注册、/healthz、/metrics、SIGINT/SIGTERM。
func StartService(info AppInfo) {
	cfg := config.Get()

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Jaeger.Endpoint)
	if err != nil {
		log.Fatalf("failed to initialize tracer provider: %v", err)
	}

	var naming *nacos.Client
	var registeredIP string
	if cfg.Nacos.Enabled {
		naming, err = nacos.New(cfg.Nacos.Addr, cfg.Nacos.Namespace, cfg.Nacos.Group)
		if err != nil {
			log.Fatalf("failed to initialize nacos client: %v", err)
		}
		registeredIP, err = outboundIP()
		if err != nil {
			log.Fatalf("failed to get outbound IP address: %v", err)
		}
		if err := naming.Register(info.ServiceName, registeredIP, info.Port); err != nil {
			log.Fatalf("failed to register service with nacos: %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Nacos: naming})
	}

	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}
	go func() {
		log.Printf("%s listening on :%d", info.ServiceName, info.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v", server.Addr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutting down service %s...", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 关停按后进先出执行
	if naming != nil {
		if err := naming.Deregister(info.ServiceName, registeredIP, info.Port); err != nil {
			log.Printf("Error deregistering from Nacos: %v", err)
		}
	}

	for i := len(info.OnShutdown) - 1; i >= 0; i-- {
		info.OnShutdown[i](ctx)
	}

	if err := tp.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down tracer provider: %v", err)
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down http server: %v", err)
	}
	log.Printf("Service %s gracefully shut down.", info.ServiceName)
}

// outboundIP 取本机对外 IP 用于注册，不真正建立连接。
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
