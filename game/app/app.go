package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"shmahjong/common/config"
	shttp "shmahjong/common/http"
	"shmahjong/common/log"
	"shmahjong/core/container"
	"shmahjong/core/domain/repository"
)

const defaultRoundsLimit = 20

// Run 组装容器，启动 HTTP/WebSocket 服务，阻塞到收到退出信号
func Run(ctx context.Context, cfg *config.GameConfiguration) error {
	gameContainer, err := container.NewGameContainer(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := gameContainer.Close(); err != nil {
			log.Error("关闭 game 容器失败: %v", err)
		}
	}()

	server := NewServer(cfg, gameContainer)
	gameContainer.ConnWorker.Run()
	gameContainer.GameWorker.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("game 服务监听端口 %d", server.GetPort())
		serveErr <- server.Start()
	}()

	stop := func() {
		log.Info("正在关闭 game 服务...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("关闭 HTTP 服务失败: %v", err)
		}

		done := make(chan struct{})
		go func() {
			if err := gameContainer.Close(); err != nil {
				log.Warn("关闭 game 容器失败: %v", err)
			}
			close(done)
		}()

		select {
		case <-done:
			log.Info("game 服务已关闭")
		case <-shutdownCtx.Done():
			log.Warn("关闭 game 服务超时（5秒），defer 会确保资源最终被释放")
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	select {
	case <-ctx.Done():
		stop()
		return nil
	case err := <-serveErr:
		stop()
		return err
	case s := <-c:
		stop()
		log.Info("收到信号 %v，服务停止", s)
		return nil
	}
}

// NewServer 注册 HTTP 路由和 WebSocket 入口
func NewServer(cfg *config.GameConfiguration, c *container.GameContainer) *shttp.HttpServer {
	server := shttp.NewHttpServer(
		shttp.WithPort(cfg.HttpPort),
		shttp.WithMode(cfg.HttpConf.Mode),
	)
	server.Use(shttp.CorsMiddleware(cfg.HttpConf.AllowOrigins), shttp.LoggerMiddleware())

	server.GET("/health", healthHandler)
	server.Handle(http.MethodGet, "/ws", c.ConnWorker)
	server.Handle(http.MethodGet, "/ws/", c.ConnWorker)

	api := server.Group("/api")
	api.GET("/rooms", func(ctx *shttp.Context) error {
		ctx.Success(c.GameWorker.RoomManager.RoomStatuses())
		return nil
	})
	api.GET("/rooms/:roomId/rounds", roundsHandler(c.GameRecordRepository))
	return server
}

func healthHandler(ctx *shttp.Context) error {
	ctx.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
	return nil
}

// roundsHandler 房间最近的牌谱，未开启归档时返回 CodeUnavailable
func roundsHandler(repo repository.GameRecordRepository) shttp.HandlerFunc {
	return func(ctx *shttp.Context) error {
		if repo == nil {
			ctx.ErrorWithCode(shttp.CodeUnavailable, repository.ErrArchiveDisabled.Error())
			return nil
		}
		limit, err := strconv.Atoi(ctx.GetQueryWithDefault("limit", strconv.Itoa(defaultRoundsLimit)))
		if err != nil || limit <= 0 {
			ctx.BadRequest("limit must be a positive integer")
			return nil
		}

		rounds, err := repo.FindRoundRecordsByRoom(ctx.Request().Context(), ctx.GetParam("roomId"), limit)
		if err != nil {
			if errors.Is(err, repository.ErrGameRecordNotFound) {
				ctx.NotFound("")
				return nil
			}
			return err
		}
		ctx.Success(rounds)
		return nil
	}
}
