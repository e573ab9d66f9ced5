package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

var (
	// Info 正常日志，输出到 stdout (显示为 [info])
	Info *log.Logger

	// Error 错误日志，输出到 stderr (显示为 [err])
	Error *log.Logger
)

func init() {
	Info = log.New(os.Stdout, "", log.LstdFlags)
	Error = log.New(os.Stderr, "", log.LstdFlags)
}

// SetOutput 替换输出目标 (测试中用于静默或捕获日志)
func SetOutput(info, errw io.Writer) {
	Info.SetOutput(info)
	Error.SetOutput(errw)
}

// Println 输出正常日志到 stdout
func Println(v ...interface{}) {
	Info.Println(v...)
}

// Printf 格式化输出正常日志到 stdout
func Printf(format string, v ...interface{}) {
	Info.Printf(format, v...)
}

// Errorln 输出错误日志到 stderr
func Errorln(v ...interface{}) {
	Error.Println(v...)
}

// Errorf 格式化输出错误日志到 stderr
func Errorf(format string, v ...interface{}) {
	Error.Printf(format, v...)
}

// Fatalf 输出致命错误并退出程序
func Fatalf(format string, v ...interface{}) {
	Error.Fatalf(format, v...)
}

// Component 带组件标签的日志器, 输出形如 "[Simulator] ..."
type Component struct {
	tag string
}

// For 创建组件日志器
func For(tag string) Component {
	return Component{tag: tag}
}

func (c Component) prefix(format string) string {
	return fmt.Sprintf("[%s] %s", c.tag, format)
}

// Printf 正常日志
func (c Component) Printf(format string, v ...interface{}) {
	Info.Printf(c.prefix(format), v...)
}

// Errorf 错误日志
func (c Component) Errorf(format string, v ...interface{}) {
	Error.Printf(c.prefix(format), v...)
}
