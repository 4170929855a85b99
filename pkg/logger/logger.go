package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level representa o nível de log
type Level int

const (
	// DEBUG nível para mensagens detalhadas de depuração
	DEBUG Level = iota
	// INFO nível para informações gerais
	INFO
	// WARN nível para avisos
	WARN
	// ERROR nível para erros
	ERROR
	// FATAL nível para erros fatais (gera panic após registrar)
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO ", "WARN ", "ERROR", "FATAL"}

// String retorna o nome do nível sem espaços
func (l Level) String() string {
	if l < DEBUG || l > FATAL {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return strings.TrimSpace(levelNames[l])
}

// ParseLevel converte "debug", "info", "warn", "error" ou "fatal" em Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return INFO, fmt.Errorf("nível de log desconhecido: %q", s)
}

// sink agrupa as saídas do logger. Mensagens ERROR e FATAL vão para err.
type sink struct {
	out, err         io.Writer
	fileOut, fileErr io.WriteCloser
}

var (
	mu          sync.Mutex
	level       = INFO
	timeFormat  = "2006-01-02 15:04:05.000"
	includeFile = true
	initialized bool

	base = sink{out: os.Stdout, err: os.Stderr}
	dst  = base
)

// Init inicializa o logger com as saídas padrão
func Init() {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return
	}
	dst = base
	initialized = true
}

// SetLevel define o nível mínimo de log
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// GetLevel retorna o nível atual de log
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return level
}

// IsDebugEnabled verifica se o nível de debug está habilitado
func IsDebugEnabled() bool {
	return GetLevel() <= DEBUG
}

// SetOutput direciona todos os níveis para w (usado em testes)
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = sink{out: w, err: w}
	dst = base
}

// SetTimeFormat define o formato de timestamp
func SetTimeFormat(format string) {
	mu.Lock()
	defer mu.Unlock()
	timeFormat = format
}

// SetIncludeFile liga ou desliga a origem [arquivo:linha] nas mensagens
func SetIncludeFile(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	includeFile = enabled
}

// EnableFileLogging duplica os logs em arquivos no diretório informado
func EnableFileLogging(logDir, prefix string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("erro ao criar diretório de log: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	if prefix != "" {
		prefix += "_"
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, prefix+stamp+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("erro ao criar arquivo de log: %w", err)
	}
	errFile, err := os.OpenFile(filepath.Join(logDir, prefix+stamp+"_error.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logFile.Close()
		return fmt.Errorf("erro ao criar arquivo de log de erro: %w", err)
	}

	mu.Lock()
	closeFiles()
	dst = sink{
		out:     io.MultiWriter(base.out, logFile),
		err:     io.MultiWriter(base.err, errFile),
		fileOut: logFile,
		fileErr: errFile,
	}
	mu.Unlock()

	Info("Logging em arquivo iniciado")
	return nil
}

// Sync fecha os arquivos de log e volta às saídas padrão
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	closeFiles()
	dst = base
}

func closeFiles() {
	if dst.fileOut != nil {
		dst.fileOut.Close()
	}
	if dst.fileErr != nil {
		dst.fileErr.Close()
	}
}

// write formata e grava a mensagem; depth é o número de frames até o chamador
func write(depth int, l Level, component, format string, args ...interface{}) {
	mu.Lock()
	if l < level {
		mu.Unlock()
		return
	}
	w := dst.out
	if l >= ERROR {
		w = dst.err
	}
	tf, withFile := timeFormat, includeFile
	mu.Unlock()

	var source string
	if withFile {
		if _, file, line, ok := runtime.Caller(depth); ok {
			source = fmt.Sprintf(" [%s:%d]", filepath.Base(file), line)
		}
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if component != "" {
		msg = "(" + component + ") " + msg
	}

	fmt.Fprintf(w, "[%s] %s%s: %s\n", time.Now().Format(tf), levelNames[l], source, msg)

	if l == FATAL {
		panic(msg)
	}
}

func errMsg(msg string, err error) (string, []interface{}) {
	if err != nil {
		return "%s: %v", []interface{}{msg, err}
	}
	return "%s", []interface{}{msg}
}

// Debug escreve mensagem de log com nível DEBUG
func Debug(msg string) { write(2, DEBUG, "", "%s", msg) }

// Debugf escreve mensagem de log formatada com nível DEBUG
func Debugf(format string, args ...interface{}) { write(2, DEBUG, "", format, args...) }

// Info escreve mensagem de log com nível INFO
func Info(msg string) { write(2, INFO, "", "%s", msg) }

// Infof escreve mensagem de log formatada com nível INFO
func Infof(format string, args ...interface{}) { write(2, INFO, "", format, args...) }

// Warn escreve mensagem de log com nível WARN
func Warn(msg string) { write(2, WARN, "", "%s", msg) }

// Warnf escreve mensagem de log formatada com nível WARN
func Warnf(format string, args ...interface{}) { write(2, WARN, "", format, args...) }

// Error escreve mensagem de log com nível ERROR
func Error(msg string, err error) {
	f, a := errMsg(msg, err)
	write(2, ERROR, "", f, a...)
}

// Errorf escreve mensagem de log formatada com nível ERROR
func Errorf(format string, args ...interface{}) { write(2, ERROR, "", format, args...) }

// Fatal registra com nível FATAL e gera panic
func Fatal(msg string, err error) {
	f, a := errMsg(msg, err)
	write(2, FATAL, "", f, a...)
}

// Fatalf registra mensagem formatada com nível FATAL e gera panic
func Fatalf(format string, args ...interface{}) { write(2, FATAL, "", format, args...) }

// Component é um logger que prefixa as mensagens com o nome do subsistema
type Component string

// For retorna o logger do subsistema
func For(name string) Component { return Component(name) }

func (c Component) Debugf(format string, args ...interface{}) {
	write(2, DEBUG, string(c), format, args...)
}

func (c Component) Infof(format string, args ...interface{}) {
	write(2, INFO, string(c), format, args...)
}

func (c Component) Warnf(format string, args ...interface{}) {
	write(2, WARN, string(c), format, args...)
}

func (c Component) Errorf(format string, args ...interface{}) {
	write(2, ERROR, string(c), format, args...)
}

func (c Component) Error(msg string, err error) {
	f, a := errMsg(msg, err)
	write(2, ERROR, string(c), f, a...)
}
