package main

import (
	"context"
	"fmt"
	"os"

	"shmahjong/common/config"
	"shmahjong/common/log"
	"shmahjong/common/metrics"
	"shmahjong/game/app"

	"github.com/spf13/cobra"
)

// 加载配置 -> 启动监控 -> 启动 HTTP/WebSocket 服务

var configFile string

var rootCmd = &cobra.Command{
	Use:   "game",
	Short: "game 上海麻将对局服务",
	Long:  `game 上海麻将对局服务，WebSocket 入口 /ws`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			log.Fatal("文件配置发生错误：%v", err)
		}
		log.InitLog(cfg.ID, cfg.LogConf.Level)
		log.Info("配置文件: %+v", *cfg)
		if cfg.MetricPort > 0 {
			go func() {
				log.Info("启动监控..., URL: http://localhost:%d/debug/statsviz/", cfg.MetricPort)
				if err := metrics.Serve(fmt.Sprintf("0.0.0.0:%d", cfg.MetricPort)); err != nil {
					log.Error("监控服务退出: %v", err)
				}
			}()
		}
		if err := app.Run(context.Background(), cfg); err != nil {
			log.Error("发生异常: %v", err)
			os.Exit(-1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "configFile", "", "配置文件路径，为空时只使用默认值和 SHMJ_ 环境变量")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %#v", err)
		os.Exit(1)
	}
}
