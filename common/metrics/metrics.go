package metrics

import (
	"fmt"
	"net/http"

	"github.com/arl/statsviz"
)

// Serve 在独立端口上暴露 statsviz 运行时面板，阻塞直到出错
func Serve(addr string) error {
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		return fmt.Errorf("注册 statsviz 失败: %w", err)
	}
	return http.ListenAndServe(addr, mux)
}
