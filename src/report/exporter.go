package report

import (
	"RideAnalytics/src/dataset"
	"RideAnalytics/src/processor"
	"RideAnalytics/src/storage"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron"
)

const (
	StampLayout  = "20060102150405"
	WorkbookName = "report.xlsx"
)

// Exporter 把未筛选的全量报表导出到 dir/<时间戳>/ 目录
type Exporter struct {
	ds       *dataset.Dataset
	pipeline *processor.Pipeline
	dir      string
	logger   *storage.Logger
	now      func() time.Time
}

func NewExporter(ds *dataset.Dataset, dir string, logger *storage.Logger) *Exporter {
	return &Exporter{
		ds:       ds,
		pipeline: processor.NewPipeline(),
		dir:      dir,
		logger:   logger,
		now:      time.Now,
	}
}

// Export 导出一次，返回本次导出的目录
func (e *Exporter) Export() (string, error) {
	t1 := time.Now()

	out := filepath.Join(e.dir, e.now().Format(StampLayout))
	if err := os.MkdirAll(out, 0755); err != nil {
		return "", fmt.Errorf("创建导出目录失败: %w", err)
	}

	sel := processor.AllOf(e.ds)
	rep := e.pipeline.Run(sel.Apply(e.ds))
	rep.Selection = sel

	if err := WriteExcel(rep, filepath.Join(out, WorkbookName)); err != nil {
		return out, err
	}
	files, err := WritePNG(rep, out)
	if err != nil {
		return out, err
	}

	e.logger.Info(fmt.Sprintf("报表已导出到 %s (图表 %d 个, 耗时 %v)", out, len(files), time.Since(t1)))
	return out, nil
}

// Schedule 按 cron 表达式定时导出，导出失败只记录日志
func (e *Exporter) Schedule(c *cron.Cron, spec string) error {
	err := c.AddFunc(spec, func() {
		if _, err := e.Export(); err != nil {
			e.logger.Error("定时导出失败: " + err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("创建定时任务失败: %w", err)
	}
	return nil
}

// EverySpec 把间隔转成 "@every 1h0m0s" 形式
func EverySpec(interval time.Duration) string {
	return fmt.Sprintf("@every %s", interval.String())
}
