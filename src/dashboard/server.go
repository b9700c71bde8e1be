package dashboard

import (
	"RideAnalytics/src/dataset"
	"RideAnalytics/src/processor"
	"RideAnalytics/src/report"
	"RideAnalytics/src/storage"
	"RideAnalytics/src/utils"
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Server 看板的 HTTP 入口，每个请求都重新筛选并计算全部结果表
type Server struct {
	ds       *dataset.Dataset
	pipeline *processor.Pipeline
	logger   *storage.Logger

	// 重算串行执行
	mu sync.Mutex

	// 数据源文件在加载后被修改
	stale atomic.Bool

	mux *http.ServeMux
}

func NewServer(ds *dataset.Dataset, logger *storage.Logger) *Server {
	s := &Server{
		ds:       ds,
		pipeline: processor.NewPipeline(),
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/report", s.handleReport)
	s.mux.HandleFunc("GET /api/filters", s.handleFilters)
	s.mux.HandleFunc("GET /export.xlsx", s.handleExport)
	s.mux.HandleFunc("GET /export/rows.xlsx", s.handleExportRows)
	s.mux.HandleFunc("GET /logs", s.handleLogs)
}

func (s *Server) Handler() http.Handler { return s.mux }

// MarkStale 数据源已变化，已加载的数据集不再是最新
func (s *Server) MarkStale() { s.stale.Store(true) }

func (s *Server) Stale() bool { return s.stale.Load() }

// Compute 按筛选条件计算报表
func (s *Server) Compute(sel processor.Selection) (*processor.View, *processor.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t1 := time.Now()
	view := sel.Apply(s.ds)
	rep := s.pipeline.Run(view)
	rep.Selection = sel
	s.logger.Debug(fmt.Sprintf("重新计算: 车型 %d 个, 支付方式 %d 个, 命中 %d 行, 耗时 %v",
		len(sel.VehicleTypes), len(sel.PaymentMethods), view.Len(), time.Since(t1)))
	return view, rep
}

// ParseSelection 没有参数时选中全部取值；参数存在但为空表示空集
func ParseSelection(r *http.Request, ds *dataset.Dataset) processor.Selection {
	all := processor.AllOf(ds)
	q := r.URL.Query()
	return processor.Selection{
		VehicleTypes:   selected(q["vehicle"], all.VehicleTypes),
		PaymentMethods: selected(q["payment"], all.PaymentMethods),
	}
}

func selected(values, all []string) []string {
	if values == nil {
		return all
	}
	out := []string{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" && !utils.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

var filterForm = template.Must(template.New("filters").Parse(`
<form method="get" action="/" style="padding:12px;font-family:sans-serif">
{{if .Stale}}<p style="color:#a50026">数据源文件已更新，重启服务后生效</p>{{end}}
<fieldset><legend>Vehicle Type</legend>
<input type="hidden" name="vehicle" value="">
{{range .Vehicles}}<label><input type="checkbox" name="vehicle" value="{{.Value}}"{{if .Checked}} checked{{end}}> {{.Value}}</label>
{{end}}</fieldset>
<fieldset><legend>Payment Method</legend>
<input type="hidden" name="payment" value="">
{{range .Payments}}<label><input type="checkbox" name="payment" value="{{.Value}}"{{if .Checked}} checked{{end}}> {{.Value}}</label>
{{end}}</fieldset>
<button type="submit">Apply</button>
<a href="/">Reset</a>
<a href="/export.xlsx?{{.Query}}">Export</a>
</form>
`))

type option struct {
	Value   string
	Checked bool
}

func options(all, chosen []string) []option {
	out := make([]option, len(all))
	for i, v := range all {
		out[i] = option{Value: v, Checked: utils.Contains(chosen, v)}
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sel := ParseSelection(r, s.ds)
	_, rep := s.Compute(sel)
	all := processor.AllOf(s.ds)

	var form bytes.Buffer
	err := filterForm.Execute(&form, map[string]interface{}{
		"Stale":    s.Stale(),
		"Vehicles": options(all.VehicleTypes, sel.VehicleTypes),
		"Payments": options(all.PaymentMethods, sel.PaymentMethods),
		"Query":    template.URL(r.URL.RawQuery),
	})
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	var page bytes.Buffer
	if err := renderPage(rep, &page); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	html := page.String()
	if i := strings.Index(html, "<body>"); i >= 0 {
		i += len("<body>")
		html = html[:i] + form.String() + html[i:]
	} else {
		html = form.String() + html
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	_, rep := s.Compute(ParseSelection(r, s.ds))
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	all := processor.AllOf(s.ds)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicle_types":   all.VehicleTypes,
		"payment_methods": all.PaymentMethods,
		"stale":           s.Stale(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	_, rep := s.Compute(ParseSelection(r, s.ds))

	var buf bytes.Buffer
	if err := report.WriteExcelTo(rep, &buf); err != nil {
		s.logger.Error("导出报表失败: " + err.Error())
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name := "report_" + time.Now().Format(report.StampLayout) + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(buf.Bytes())
}

// handleExportRows 导出筛选后的明细行
func (s *Server) handleExportRows(w http.ResponseWriter, r *http.Request) {
	view, _ := s.Compute(ParseSelection(r, s.ds))

	tmp, err := os.CreateTemp("", "rows-*.xlsx")
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := utils.SaveToExcel(view.Frame(), tmp.Name()); err != nil {
		s.logger.Error("导出明细失败: " + err.Error())
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="rows.xlsx"`)
	http.ServeFile(w, r, tmp.Name())
}

// handleLogs 持续推送日志
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	logChan := s.logger.Subscribe()
	defer s.logger.Unsubscribe(logChan)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("写出 JSON 失败: " + err.Error())
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
