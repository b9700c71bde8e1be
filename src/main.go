package main

import (
	"RideAnalytics/src/config"
	"RideAnalytics/src/dashboard"
	"RideAnalytics/src/dataset"
	"RideAnalytics/src/datasource/file"
	"RideAnalytics/src/report"
	"RideAnalytics/src/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	ds, err := loadDataset(cfg, dcfg, logger)
	if err != nil {
		logger.Fatal(err.Error())
		logger.Close()
		log.Fatal(err)
	}

	srv := dashboard.NewServer(ds, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WatchSource {
		go watchSource(ctx, cfg.DataFile, srv, logger)
	}

	// 设置定时任务
	c := cron.New()
	if err := c.AddFunc("@every 1m", func() {
		if err := logger.CheckRotate(cfg); err != nil {
			logger.Error("日志轮转失败: " + err.Error())
		}
	}); err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return
	}

	if cfg.Export.Enabled {
		exporter := report.NewExporter(ds, cfg.Export.Dir, logger)
		spec := report.EverySpec(time.Duration(cfg.Export.Interval))
		if err := exporter.Schedule(c, spec); err != nil {
			logger.Error(err.Error())
			return
		}
		logger.Info(fmt.Sprintf("定时导出已启用(间隔: %v, 目录: %s)", spec, cfg.Export.Dir))
	}

	c.Start()
	defer c.Stop()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("看板已启动: " + cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP 服务异常退出: " + err.Error())
			cancel()
		}
	}()

	waitForShutdown(ctx, logger)

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	// /logs 的长连接在 logger 关闭前不会结束，先关闭日志再关闭服务
	logger.Close()
	_ = httpServer.Shutdown(shutdownCtx)
}

// loadDataset 读取并解析订单数据，只在启动时执行一次
func loadDataset(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) (*dataset.Dataset, error) {
	t1 := time.Now()
	ds, err := dataset.Load(cfg.DataFile,
		dataset.WithSheet(cfg.SheetName),
		dataset.WithEncoding(cfg.Encoding),
		dataset.WithColumns(dcfg.Columns),
	)
	if err != nil {
		return nil, fmt.Errorf("加载数据失败: %w", err)
	}

	stats := ds.Stats()
	logger.Info(fmt.Sprintf("数据已加载: %s, %d 行, 字段 %v, 耗时 %v",
		ds.Source(), ds.Len(), ds.Schema().Fields(), time.Since(t1)))
	if stats.BadDates+stats.BadTimes+stats.BadValues > 0 {
		logger.Warning(fmt.Sprintf("无法解析的值: 日期 %d, 时间 %d, 数值 %d",
			stats.BadDates, stats.BadTimes, stats.BadValues))
	}
	return ds, nil
}

// watchSource 数据文件变化时标记看板数据过期
func watchSource(ctx context.Context, path string, srv *dashboard.Server, logger *storage.Logger) {
	monitor, err := file.NewFileMonitor(path)
	if err != nil {
		logger.Error("File monitoring error:" + err.Error())
		return
	}
	defer monitor.Close()

	err = monitor.Watch(ctx, func(filePath string) {
		srv.MarkStale()
		logger.Warning("数据文件已更新，重启后生效: " + filePath)
	})
	if err != nil {
		logger.Error("File monitoring error:" + err.Error())
	}
}

// waitForShutdown SIGINT/SIGTERM 退出，SIGHUP 重新打开日志文件
func waitForShutdown(ctx context.Context, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if err := logger.Reopen(""); err != nil {
					log.Println("Failed to reopen log:", err)
				} else {
					logger.Info("Log file reopened")
				}
				continue
			}
			logger.Info("Received signal: " + sig.String() + ", shutting down...")
			return
		case <-ctx.Done():
			return
		}
	}
}
